package bytecode

import "fmt"

// Instruction is one opcode with its operands.
type Instruction struct {
	Op       Opcode
	Operands []int
}

// Instructions is an append-only arena of instructions addressed by
// position. Operands may be rewritten in place; instructions are never
// inserted or removed, so positions stay valid for the arena's lifetime.
type Instructions struct {
	code []Instruction
}

// Append adds an instruction and returns its position. It panics if the
// operand count does not match the opcode's definition.
func (in *Instructions) Append(op Opcode, operands ...int) int {
	mustArity(op, len(operands))
	ops := make([]int, len(operands))
	copy(ops, operands)
	in.code = append(in.code, Instruction{Op: op, Operands: ops})
	return len(in.code) - 1
}

// ChangeOperands overwrites the operands of the instruction at pos.
func (in *Instructions) ChangeOperands(pos int, operands ...int) {
	if pos < 0 || pos >= len(in.code) {
		panic(fmt.Sprintf("bytecode: change operands at %d: out of range (len=%d)", pos, len(in.code)))
	}
	ins := &in.code[pos]
	mustArity(ins.Op, len(operands))
	copy(ins.Operands, operands)
}

// Len is the number of instructions, which is also the next position.
func (in *Instructions) Len() int { return len(in.code) }

// At returns the instruction at pos. Callers must not modify its operands.
func (in *Instructions) At(pos int) Instruction { return in.code[pos] }

// Slice returns a copy of the arena.
func (in *Instructions) Slice() []Instruction {
	out := make([]Instruction, len(in.code))
	for i, ins := range in.code {
		ops := make([]int, len(ins.Operands))
		copy(ops, ins.Operands)
		out[i] = Instruction{Op: ins.Op, Operands: ops}
	}
	return out
}

func mustArity(op Opcode, n int) {
	def, err := Lookup(op)
	if err != nil {
		panic("bytecode: " + err.Error())
	}
	if def.Operands != n {
		panic(fmt.Sprintf("bytecode: %s takes %d operands, got %d", def.Name, def.Operands, n))
	}
}
