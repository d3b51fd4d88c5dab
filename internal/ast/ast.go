// Package ast defines the template syntax tree. Every node can both render
// itself against a context (the tree-walking interpreter) and compile
// itself into bytecode, so the two execution paths share one tree.
package ast

import (
	"errors"
	"io"
	"strings"

	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/render"
	"github.com/funvibe/liquid/internal/symbol"
)

// Node is a statement-level element of a template.
type Node interface {
	Render(ctx *render.Context, w io.Writer) error
	Compile(c Compiler) error
	String() string
}

// Expression is a value-producing element.
type Expression interface {
	Evaluate(ctx *render.Context) (any, error)
	Compile(c Compiler) error
	String() string
}

// Compiler is the emission interface nodes compile against.
type Compiler interface {
	// Emit appends an instruction and returns its position.
	Emit(op bytecode.Opcode, operands ...int) int
	AddConstant(v any) int
	// ChangeOperand rewrites the operands of an emitted instruction.
	ChangeOperand(pos int, operands ...int)
	// CurrentInstructions is the position the next Emit will use.
	CurrentInstructions() int
	Symbols() *symbol.Table

	EnterScope()
	LeaveScope()
	// NameLoop records the variable bound by the loop begun at pos.
	NameLoop(pos int, name string)

	// EnterLoop starts collecting break and continue jumps for the loop
	// whose variable lives in slot.
	EnterLoop(slot int)
	LeaveLoop() *LoopContext
	CurrentLoop() *LoopContext
}

// LoopContext collects jumps that are patched once a loop is complete.
type LoopContext struct {
	Slot      int
	Breaks    []int
	Continues []int
}

// Placeholder marks an operand that is backpatched later.
const Placeholder = 9999

var (
	errBreak    = errors.New("break outside loop")
	errContinue = errors.New("continue outside loop")
)

// IsLoopSignal reports whether err is a stray break or continue.
func IsLoopSignal(err error) bool {
	return errors.Is(err, errBreak) || errors.Is(err, errContinue)
}

// Template is the root of a parsed template.
type Template struct {
	Name  string
	Nodes []Node
}

// Render renders every top-level node. A node that fails is handed to the
// context's error policy; when that swallows the error rendering goes on
// with the next node.
func (t *Template) Render(ctx *render.Context, w io.Writer) error {
	for _, node := range t.Nodes {
		if err := node.Render(ctx, w); err != nil {
			if err := ctx.Error(err); err != nil {
				return err
			}
			ctx.Logger().Debugf("%s: continuing after %s", t.Name, node)
		}
	}
	return nil
}

func (t *Template) String() string {
	return joinNodes(t.Nodes)
}

// Block is a sequence of nodes inside a tag.
type Block struct {
	Nodes []Node
}

func (b *Block) Render(ctx *render.Context, w io.Writer) error {
	for _, node := range b.Nodes {
		if err := node.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) Compile(c Compiler) error {
	for _, node := range b.Nodes {
		if err := node.Compile(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) String() string {
	return joinNodes(b.Nodes)
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, "")
}

func boolOperand(b bool) int {
	if b {
		return 1
	}
	return 0
}
