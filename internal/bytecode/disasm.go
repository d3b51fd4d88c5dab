package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func Disassemble(p *Program) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", p.Name))
	for pos := 0; pos < p.Instructions.Len(); pos++ {
		disassembleInstruction(&sb, p, pos)
	}

	if n := len(p.Symbols.Counters); n > 0 {
		sb.WriteString(fmt.Sprintf("counters: %s\n", strings.Join(p.Symbols.Counters, ", ")))
	}
	if n := len(p.Symbols.Cycles); n > 0 {
		sb.WriteString(fmt.Sprintf("cycles: %s\n", strings.Join(p.Symbols.Cycles, ", ")))
	}
	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, p *Program, pos int) {
	ins := p.Instructions.At(pos)
	sb.WriteString(fmt.Sprintf("%04d %-12s", pos, ins.Op))

	for _, operand := range ins.Operands {
		sb.WriteString(fmt.Sprintf(" %d", operand))
	}

	switch ins.Op {
	case OpConstant, OpResolve, OpAssign, OpCaptureEnd, OpFilter:
		sb.WriteString(fmt.Sprintf("\t; %#v", p.Constant(ins.Operands[0])))
	case OpIncrement, OpDecrement:
		if slot := ins.Operands[0]; slot < len(p.Symbols.Counters) {
			sb.WriteString("\t; " + p.Symbols.Counters[slot])
		}
	case OpFor, OpTableRow:
		if name, ok := p.LoopVars[pos]; ok {
			sb.WriteString("\t; " + name)
		}
	case OpCycle:
		if slot := ins.Operands[0]; slot < len(p.Symbols.Cycles) {
			sb.WriteString("\t; " + p.Symbols.Cycles[slot])
		}
	}
	sb.WriteByte('\n')
}
