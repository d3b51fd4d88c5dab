// Package bytecode defines the instruction set, the instruction arena and
// the compiled program format shared by the compiler and the VM.
package bytecode

import "fmt"

// Opcode identifies a single VM instruction.
type Opcode byte

const (
	// Stack and constants
	OpConstant Opcode = iota // Push constant: OpConstant <const>
	OpNil                    // Push the absent marker
	OpPop                    // Discard top of stack

	// Output
	OpWrite // Pop, stringify and write to the current output

	// Lookup
	OpResolve // Push context value: OpResolve <name const>
	OpGetItem // Pop key and object, push object[key]
	OpFilter  // Apply filter: OpFilter <name const> <argc>

	// Operators
	OpEqual
	OpNotEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpContains
	OpAnd
	OpOr
	OpNegate // Logical not
	OpRange  // Pop stop and start, push an inclusive integer range

	// Control flow (targets are absolute instruction positions)
	OpJump        // OpJump <target>
	OpJumpIfFalse // Pop condition: OpJumpIfFalse <target>
	OpJumpIfTrue  // Pop condition: OpJumpIfTrue <target>

	// Loops
	OpLoopItems  // Pop offset, limit, iterable; push item list: OpLoopItems <reversed>
	OpTableRow   // Begin tablerow loop: OpTableRow <slot> <loop start> <empty target>
	OpFor        // Begin for loop: OpFor <slot> <loop start> <empty target>
	OpJumpIfStop // Loop-start anchor holding the exit: OpJumpIfStop <after loop>
	OpStep       // Advance loop bound to slot: OpStep <slot>
	OpBreak      // Leave loop: OpBreak <slot> <target>
	OpContinue   // Next iteration: OpContinue <slot> <target>

	// Variables and helpers
	OpAssign       // Pop into a local: OpAssign <name const>
	OpCaptureBegin // Redirect output to a new buffer
	OpCaptureEnd   // Assign the buffer: OpCaptureEnd <name const>
	OpIncrement    // OpIncrement <counter slot>
	OpDecrement    // OpDecrement <counter slot>
	OpCycle        // Pop argc values, write the next one: OpCycle <cycle slot> <argc>
)

// Definition describes an opcode for validation and disassembly.
type Definition struct {
	Name     string
	Operands int // fixed operand count
	IsJump   bool
}

var definitions = map[Opcode]Definition{
	OpConstant: {"CONSTANT", 1, false},
	OpNil:      {"NIL", 0, false},
	OpPop:      {"POP", 0, false},

	OpWrite: {"WRITE", 0, false},

	OpResolve: {"RESOLVE", 1, false},
	OpGetItem: {"GET_ITEM", 0, false},
	OpFilter:  {"FILTER", 2, false},

	OpEqual:        {"EQ", 0, false},
	OpNotEqual:     {"NE", 0, false},
	OpLess:         {"LT", 0, false},
	OpGreater:      {"GT", 0, false},
	OpLessEqual:    {"LE", 0, false},
	OpGreaterEqual: {"GE", 0, false},
	OpContains:     {"CONTAINS", 0, false},
	OpAnd:          {"AND", 0, false},
	OpOr:           {"OR", 0, false},
	OpNegate:       {"NOT", 0, false},
	OpRange:        {"RANGE", 0, false},

	OpJump:        {"JMP", 1, true},
	OpJumpIfFalse: {"JIF", 1, true},
	OpJumpIfTrue:  {"JIT", 1, true},

	OpLoopItems:  {"LOOP_ITEMS", 1, false},
	OpTableRow:   {"TAB", 3, true},
	OpFor:        {"FOR", 3, true},
	OpJumpIfStop: {"JSI", 1, true},
	OpStep:       {"STE", 1, false},
	OpBreak:      {"BRK", 2, true},
	OpContinue:   {"CNT", 2, true},

	OpAssign:       {"ASSIGN", 1, false},
	OpCaptureBegin: {"CAPTURE", 0, false},
	OpCaptureEnd:   {"END_CAPTURE", 1, false},
	OpIncrement:    {"INC", 1, false},
	OpDecrement:    {"DEC", 1, false},
	OpCycle:        {"CYCLE", 2, false},
}

// Lookup returns the definition for op.
func Lookup(op Opcode) (Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return Definition{}, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(op))
}
