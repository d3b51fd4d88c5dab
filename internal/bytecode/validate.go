package bytecode

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidProgram is returned for a program whose operands do not fit its
// instructions, constant pool or symbol metadata.
var ErrInvalidProgram = errors.New("invalid program")

// Validate checks every operand against what it addresses: constant
// indexes against the pool, jump targets against the instruction count,
// and counter and cycle slots against the symbol metadata. A program that
// passes can be run without indexing out of range.
func (p *Program) Validate() error {
	n := p.Instructions.Len()
	for pos := 0; pos < n; pos++ {
		if err := p.validateInstruction(pos, p.Instructions.At(pos)); err != nil {
			def, _ := Lookup(p.Instructions.At(pos).Op)
			return fmt.Errorf("%w: instruction %d (%s): %w", ErrInvalidProgram, pos, def.Name, err)
		}
	}

	if !sort.IntsAreSorted(p.Statements) {
		return fmt.Errorf("%w: statement positions are not sorted", ErrInvalidProgram)
	}
	for _, pos := range p.Statements {
		if pos < 0 || pos > n {
			return fmt.Errorf("%w: statement position %d out of range", ErrInvalidProgram, pos)
		}
	}
	for pos := range p.LoopVars {
		if pos < 0 || pos >= n {
			return fmt.Errorf("%w: loop variable at %d out of range", ErrInvalidProgram, pos)
		}
		if op := p.Instructions.At(pos).Op; op != OpFor && op != OpTableRow {
			return fmt.Errorf("%w: loop variable at %d names a %s", ErrInvalidProgram, pos, op)
		}
	}
	return nil
}

func (p *Program) validateInstruction(pos int, ins Instruction) error {
	ops := ins.Operands
	def, err := Lookup(ins.Op)
	if err != nil {
		return err
	}
	if len(ops) != def.Operands {
		return fmt.Errorf("has %d operands, want %d", len(ops), def.Operands)
	}

	switch ins.Op {
	case OpConstant:
		return p.checkConstant(ops[0], false)
	case OpResolve, OpAssign, OpCaptureEnd:
		return p.checkConstant(ops[0], true)
	case OpFilter:
		if err := p.checkConstant(ops[0], true); err != nil {
			return err
		}
		return checkCount("argument count", ops[1])
	case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpJumpIfStop:
		return p.checkTarget(ops[0])
	case OpLoopItems:
		if ops[0] != 0 && ops[0] != 1 {
			return fmt.Errorf("reversed flag %d", ops[0])
		}
	case OpFor, OpTableRow:
		if err := checkCount("slot", ops[0]); err != nil {
			return err
		}
		start := ops[1]
		if start <= pos || start >= p.Instructions.Len() || p.Instructions.At(start).Op != OpJumpIfStop {
			return fmt.Errorf("loop start %d is not a loop anchor", start)
		}
		return p.checkTarget(ops[2])
	case OpStep:
		return checkCount("slot", ops[0])
	case OpBreak, OpContinue:
		if err := checkCount("slot", ops[0]); err != nil {
			return err
		}
		return p.checkTarget(ops[1])
	case OpIncrement, OpDecrement:
		return checkSlot("counter", ops[0], len(p.Symbols.Counters))
	case OpCycle:
		if err := checkSlot("cycle", ops[0], len(p.Symbols.Cycles)); err != nil {
			return err
		}
		return checkCount("argument count", ops[1])
	}
	return nil
}

func (p *Program) checkConstant(idx int, name bool) error {
	if idx < 0 || idx >= len(p.Constants) {
		return fmt.Errorf("constant %d out of range (pool size %d)", idx, len(p.Constants))
	}
	if _, ok := p.Constants[idx].(string); name && !ok {
		return fmt.Errorf("constant %d is %T, want a name", idx, p.Constants[idx])
	}
	return nil
}

// checkTarget accepts any position up to and including the end of the
// program.
func (p *Program) checkTarget(target int) error {
	if target < 0 || target > p.Instructions.Len() {
		return fmt.Errorf("jump target %d out of range (%d instructions)", target, p.Instructions.Len())
	}
	return nil
}

func checkSlot(kind string, slot, n int) error {
	if slot < 0 || slot >= n {
		return fmt.Errorf("%s slot %d out of range (%d defined)", kind, slot, n)
	}
	return nil
}

func checkCount(what string, n int) error {
	if n < 0 {
		return fmt.Errorf("negative %s %d", what, n)
	}
	return nil
}
