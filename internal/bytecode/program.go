package bytecode

import (
	"github.com/funvibe/liquid/internal/symbol"
	"github.com/funvibe/liquid/internal/value"
)

// Program is the immutable result of compilation. It is safe to share
// between goroutines; every run allocates its own frames and slots.
type Program struct {
	Name         string
	Instructions Instructions
	Constants    []any
	Symbols      symbol.Metadata
	// Statements holds the start position of each top-level node, used to
	// resume after an error when the render mode tolerates it.
	Statements []int
	// LoopVars names the loop variable bound by each OpFor and OpTableRow,
	// keyed by the instruction's position.
	LoopVars map[int]string

	index map[any]int
}

func NewProgram(name string) *Program {
	return &Program{Name: name, index: map[any]int{}}
}

// AddConstant appends v to the constant pool and returns its index.
// Scalars are deduplicated.
func (p *Program) AddConstant(v any) int {
	key, dedup := constantKey(v)
	if dedup {
		if p.index == nil {
			p.index = map[any]int{}
		}
		if idx, ok := p.index[key]; ok {
			return idx
		}
	}
	p.Constants = append(p.Constants, v)
	idx := len(p.Constants) - 1
	if dedup {
		p.index[key] = idx
	}
	return idx
}

func constantKey(v any) (any, bool) {
	switch v.(type) {
	case string, int, float64, bool, value.EmptyValue:
		return v, true
	}
	return nil, false
}

// SetLoopVar records the variable name bound by the loop begun at pos.
func (p *Program) SetLoopVar(pos int, name string) {
	if p.LoopVars == nil {
		p.LoopVars = map[int]string{}
	}
	p.LoopVars[pos] = name
}

// Constant returns the pooled value at idx.
func (p *Program) Constant(idx int) any { return p.Constants[idx] }
