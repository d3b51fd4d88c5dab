package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/funvibe/liquid/internal/symbol"
	"github.com/funvibe/liquid/internal/value"
)

// FormatVersion is bumped whenever the instruction set changes.
const FormatVersion = 1

var ErrVersionMismatch = errors.New("bytecode format version mismatch")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	constString byte = iota
	constInt
	constFloat
	constBool
	constNil
	constEmpty
)

// wireConstant tags each pooled value so ints come back as ints.
type wireConstant struct {
	Kind  byte    `cbor:"k"`
	Str   string  `cbor:"s,omitempty"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
	Bool  bool    `cbor:"b,omitempty"`
}

type wireInstruction struct {
	Op       Opcode `cbor:"o"`
	Operands []int  `cbor:"a,omitempty"`
}

type wireProgram struct {
	Version      int               `cbor:"v"`
	Name         string            `cbor:"n"`
	Instructions []wireInstruction `cbor:"c"`
	Constants    []wireConstant    `cbor:"k"`
	Symbols      symbol.Metadata   `cbor:"s"`
	Statements   []int             `cbor:"t,omitempty"`
	LoopVars     map[int]string    `cbor:"l,omitempty"`
}

// Marshal serializes a program to canonical CBOR.
func Marshal(p *Program) ([]byte, error) {
	w := wireProgram{
		Version:    FormatVersion,
		Name:       p.Name,
		Symbols:    p.Symbols,
		Statements: p.Statements,
		LoopVars:   p.LoopVars,
	}
	for _, ins := range p.Instructions.Slice() {
		w.Instructions = append(w.Instructions, wireInstruction{Op: ins.Op, Operands: ins.Operands})
	}
	for i, c := range p.Constants {
		wc, err := encodeConstant(c)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		w.Constants = append(w.Constants, wc)
	}
	return cborEncMode.Marshal(w)
}

// Unmarshal decodes a program produced by Marshal and validates it, so a
// corrupt or stale file fails here rather than in the VM.
func Unmarshal(data []byte) (*Program, error) {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal program: %w", err)
	}
	if w.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, w.Version, FormatVersion)
	}

	p := NewProgram(w.Name)
	p.Symbols = w.Symbols
	p.Statements = w.Statements
	p.LoopVars = w.LoopVars
	for i, wc := range w.Constants {
		c, err := decodeConstant(wc)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		p.Constants = append(p.Constants, c)
	}
	for pos, wi := range w.Instructions {
		def, err := Lookup(wi.Op)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", pos, err)
		}
		if len(wi.Operands) != def.Operands {
			return nil, fmt.Errorf("instruction %d: %s has %d operands, want %d", pos, def.Name, len(wi.Operands), def.Operands)
		}
		p.Instructions.Append(wi.Op, wi.Operands...)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func encodeConstant(c any) (wireConstant, error) {
	switch v := c.(type) {
	case string:
		return wireConstant{Kind: constString, Str: v}, nil
	case int:
		return wireConstant{Kind: constInt, Int: int64(v)}, nil
	case float64:
		return wireConstant{Kind: constFloat, Float: v}, nil
	case bool:
		return wireConstant{Kind: constBool, Bool: v}, nil
	case nil:
		return wireConstant{Kind: constNil}, nil
	case value.EmptyValue:
		return wireConstant{Kind: constEmpty}, nil
	}
	return wireConstant{}, fmt.Errorf("unsupported constant type %T", c)
}

func decodeConstant(wc wireConstant) (any, error) {
	switch wc.Kind {
	case constString:
		return wc.Str, nil
	case constInt:
		return int(wc.Int), nil
	case constFloat:
		return wc.Float, nil
	case constBool:
		return wc.Bool, nil
	case constNil:
		return nil, nil
	case constEmpty:
		return value.Empty, nil
	}
	return nil, fmt.Errorf("unknown constant kind %d", wc.Kind)
}
