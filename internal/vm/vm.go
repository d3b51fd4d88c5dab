// Package vm executes compiled templates. Its output is byte-identical to
// rendering the parsed template directly.
package vm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/funvibe/liquid/internal/ast"
	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/drop"
	"github.com/funvibe/liquid/internal/render"
	"github.com/funvibe/liquid/internal/value"
)

// ErrStepLimit is returned when a run executes more instructions than its
// configured maximum.
var ErrStepLimit = errors.New("step limit exceeded")

var (
	errIterationExhausted   = errors.New("iteration exhausted")
	errStackUnderflow       = errors.New("stack underflow")
	errInvalidConstantIndex = errors.New("invalid constant index")
	errNoLoop               = errors.New("no active loop")
)

// Initial size of the operand stack.
const InitialStackSize = 64

// Instructions executed between cancellation checks.
const checkInterval = 1000

// loopFrame is the runtime state of one for or tablerow loop.
type loopFrame struct {
	slot     int
	items    []any
	pos      int
	forloop  *drop.ForLoop
	tablerow *drop.TableRow
	// saved is the context to restore when the loop ends.
	saved *render.Context
	// exit is the instruction after the loop and its else block.
	exit int
	// outDepth is the output stack height when the loop began.
	outDepth int
}

func (f *loopFrame) done() bool { return f.pos >= len(f.items) }

// next moves the loop state to the next item.
func (f *loopFrame) next() error {
	if f.done() {
		return errIterationExhausted
	}
	item := f.items[f.pos]
	f.pos++
	if f.tablerow != nil {
		f.tablerow.Step(item)
	} else {
		f.forloop.Step(item)
	}
	return nil
}

// VM runs one program for one render. A VM is single-use; the program it
// runs may be shared.
type VM struct {
	program  *bytecode.Program
	maxSteps int

	stack []any
	sp    int

	frames []*loopFrame

	counters    []int
	countersSet []bool
	cycles      []int

	// outputs[0] is the render's writer; captures push buffers.
	outputs []io.Writer

	base *render.Context
	ctx  *render.Context

	ip    int
	steps int
}

// New creates a VM with fresh counters, cycle positions and output stack.
func New(program *bytecode.Program) *VM {
	return &VM{
		program:     program,
		stack:       make([]any, InitialStackSize),
		counters:    make([]int, len(program.Symbols.Counters)),
		countersSet: make([]bool, len(program.Symbols.Counters)),
		cycles:      make([]int, len(program.Symbols.Cycles)),
	}
}

// SetMaxSteps bounds the number of instructions Run may execute. Zero means
// no limit.
func (vm *VM) SetMaxSteps(n int) {
	vm.maxSteps = n
}

// Run executes program against ctx, writing to w.
func Run(program *bytecode.Program, ctx *render.Context, w io.Writer) error {
	return New(program).Run(ctx, w)
}

// Run executes the program. Errors raised by a top-level statement are
// handed to the context's error policy; when it swallows them execution
// resumes at the next top-level statement.
func (vm *VM) Run(ctx *render.Context, w io.Writer) error {
	vm.base = ctx
	vm.ctx = ctx
	vm.outputs = []io.Writer{w}
	vm.ip = 0

	n := vm.program.Instructions.Len()
	for vm.ip < n {
		vm.steps++
		if vm.maxSteps > 0 && vm.steps > vm.maxSteps {
			return fmt.Errorf("%w (%d)", ErrStepLimit, vm.maxSteps)
		}
		if vm.steps%checkInterval == 0 {
			if err := ctx.Done(); err != nil {
				return err
			}
		}

		pc := vm.ip
		if err := vm.step(); err != nil {
			if err := vm.base.Error(err); err != nil {
				return err
			}
			vm.resume(pc)
		}
	}
	return nil
}

// resume drops all runtime state and moves to the first top-level
// statement after pc.
func (vm *VM) resume(pc int) {
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.ctx = vm.base
	vm.outputs = vm.outputs[:1]

	stmts := vm.program.Statements
	i := sort.SearchInts(stmts, pc+1)
	if i < len(stmts) {
		vm.ip = stmts[i]
	} else {
		vm.ip = vm.program.Instructions.Len()
	}
	vm.base.Logger().Debugf("%s: resuming at %d after error at %d", vm.program.Name, vm.ip, pc)
}

// step executes one instruction.
func (vm *VM) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errStackUnderflow || r == errInvalidConstantIndex {
				err = r.(error)
				return
			}
			panic(r)
		}
	}()

	ins := vm.program.Instructions.At(vm.ip)
	vm.ip++
	ops := ins.Operands

	switch ins.Op {
	case bytecode.OpConstant:
		vm.push(vm.constant(ops[0]))

	case bytecode.OpNil:
		vm.push(nil)

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpWrite:
		return vm.write(value.ToString(vm.pop()))

	case bytecode.OpResolve:
		v, _ := vm.ctx.Resolve(vm.name(ops[0]))
		vm.push(v)

	case bytecode.OpGetItem:
		key := vm.pop()
		obj := vm.pop()
		v, _ := value.GetItem(obj, key)
		vm.push(v)

	case bytecode.OpFilter:
		args := vm.popN(ops[1])
		input := vm.pop()
		out, err := ast.ApplyFilter(vm.ctx, vm.name(ops[0]), input, args)
		if err != nil {
			return err
		}
		vm.push(out)

	case bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpLess, bytecode.OpGreater,
		bytecode.OpLessEqual, bytecode.OpGreaterEqual, bytecode.OpContains,
		bytecode.OpAnd, bytecode.OpOr:
		right := vm.pop()
		left := vm.pop()
		operator, _ := ast.OperatorFor(ins.Op)
		out, err := ast.Binary(operator, left, right)
		if err != nil {
			return err
		}
		vm.push(out)

	case bytecode.OpNegate:
		vm.push(!value.Truthy(vm.pop()))

	case bytecode.OpRange:
		stop := vm.pop()
		start := vm.pop()
		r, err := ast.MakeRange(start, stop)
		if err != nil {
			return err
		}
		vm.push(r)

	case bytecode.OpJump:
		vm.ip = ops[0]

	case bytecode.OpJumpIfFalse:
		if !value.Truthy(vm.pop()) {
			vm.ip = ops[0]
		}

	case bytecode.OpJumpIfTrue:
		if value.Truthy(vm.pop()) {
			vm.ip = ops[0]
		}

	case bytecode.OpLoopItems:
		offset := vm.pop()
		limit := vm.pop()
		iterable := vm.pop()
		items, err := drop.Items(iterable, limit, offset, ops[0] != 0)
		if err != nil {
			return err
		}
		vm.push(items)

	case bytecode.OpFor, bytecode.OpTableRow:
		return vm.beginLoop(ins)

	case bytecode.OpJumpIfStop:
		// The loop's exit lives here for OpStep and OpBreak to find.

	case bytecode.OpStep:
		return vm.stepLoop(ops[0])

	case bytecode.OpBreak:
		frame, err := vm.loop(ops[0])
		if err != nil {
			return err
		}
		vm.outputs = vm.outputs[:frame.outDepth]
		if frame.tablerow != nil {
			if err := vm.write("</td></tr>"); err != nil {
				return err
			}
		}
		vm.endLoop(frame)
		vm.ip = ops[1]

	case bytecode.OpContinue:
		frame, err := vm.loop(ops[0])
		if err != nil {
			return err
		}
		vm.outputs = vm.outputs[:frame.outDepth]
		vm.ip = ops[1]

	case bytecode.OpAssign:
		vm.ctx.Assign(vm.name(ops[0]), vm.pop())

	case bytecode.OpCaptureBegin:
		vm.outputs = append(vm.outputs, &bytes.Buffer{})

	case bytecode.OpCaptureEnd:
		if len(vm.outputs) < 2 {
			return fmt.Errorf("end capture without capture")
		}
		buf := vm.outputs[len(vm.outputs)-1].(*bytes.Buffer)
		vm.outputs = vm.outputs[:len(vm.outputs)-1]
		vm.ctx.Assign(vm.name(ops[0]), buf.String())

	case bytecode.OpIncrement:
		slot := ops[0]
		v := vm.counters[slot]
		if !vm.countersSet[slot] {
			v = -1
		}
		v++
		vm.counters[slot] = v
		vm.countersSet[slot] = true
		return vm.write(value.ToString(v))

	case bytecode.OpDecrement:
		slot := ops[0]
		v := vm.counters[slot] - 1
		vm.counters[slot] = v
		vm.countersSet[slot] = true
		return vm.write(value.ToString(v))

	case bytecode.OpCycle:
		slot := ops[0]
		args := vm.popN(ops[1])
		if len(args) == 0 {
			return nil
		}
		pos := vm.cycles[slot]
		vm.cycles[slot] = pos + 1
		return vm.write(value.ToString(args[pos%len(args)]))

	default:
		return fmt.Errorf("unknown opcode %s at %d", ins.Op, vm.ip-1)
	}
	return nil
}

// beginLoop starts a for or tablerow loop, or jumps to its else target when
// there is nothing to iterate.
func (vm *VM) beginLoop(ins bytecode.Instruction) error {
	slot, start, empty := ins.Operands[0], ins.Operands[1], ins.Operands[2]
	items, _ := vm.pop().([]any)

	ncols := 0
	if ins.Op == bytecode.OpTableRow {
		var err error
		if ncols, err = drop.Columns(vm.pop()); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		vm.ip = empty
		return nil
	}

	name := vm.program.LoopVars[vm.ip-1]
	frame := &loopFrame{
		slot:     slot,
		items:    items,
		saved:    vm.ctx,
		exit:     vm.program.Instructions.At(start).Operands[0],
		outDepth: len(vm.outputs),
	}
	var ns render.Namespace
	if ins.Op == bytecode.OpTableRow {
		frame.tablerow = drop.NewTableRow(name, len(items), ncols)
		ns = drop.NewTableRowDrop(frame.tablerow)
	} else {
		frame.forloop = drop.NewForLoop(name, len(items))
		ns = drop.NewForLoopDrop(frame.forloop)
	}
	inner, err := vm.ctx.Extend(ns)
	if err != nil {
		return err
	}
	vm.ctx = inner
	vm.frames = append(vm.frames, frame)

	if err := frame.next(); err != nil {
		return err
	}
	if frame.tablerow != nil {
		return vm.write(`<tr class="row1"><td class="col1">`)
	}
	return nil
}

// stepLoop advances the innermost loop, leaving it when exhausted.
func (vm *VM) stepLoop(slot int) error {
	frame, err := vm.loop(slot)
	if err != nil {
		return err
	}
	if frame.tablerow != nil {
		if err := vm.write("</td>"); err != nil {
			return err
		}
	}

	if err := frame.next(); err != nil {
		if !errors.Is(err, errIterationExhausted) {
			return err
		}
		if frame.tablerow != nil {
			if err := vm.write("</tr>"); err != nil {
				return err
			}
		}
		vm.endLoop(frame)
		vm.ip = frame.exit
		return nil
	}

	if t := frame.tablerow; t != nil {
		if t.ColFirst() {
			if err := vm.write(fmt.Sprintf(`</tr><tr class="row%d">`, t.Row())); err != nil {
				return err
			}
		}
		return vm.write(fmt.Sprintf(`<td class="col%d">`, t.Col()))
	}
	return nil
}

// loop returns the innermost loop frame, which must be bound to slot.
func (vm *VM) loop(slot int) (*loopFrame, error) {
	if len(vm.frames) == 0 {
		return nil, errNoLoop
	}
	frame := vm.frames[len(vm.frames)-1]
	if frame.slot != slot {
		return nil, fmt.Errorf("%w: innermost loop binds slot %d, not %d", errNoLoop, frame.slot, slot)
	}
	return frame, nil
}

func (vm *VM) endLoop(frame *loopFrame) {
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.ctx = frame.saved
}

func (vm *VM) write(s string) error {
	_, err := io.WriteString(vm.outputs[len(vm.outputs)-1], s)
	return err
}

func (vm *VM) constant(idx int) any {
	if idx < 0 || idx >= len(vm.program.Constants) {
		panic(errInvalidConstantIndex)
	}
	return vm.program.Constants[idx]
}

func (vm *VM) name(idx int) string {
	s, _ := vm.constant(idx).(string)
	return s
}

func (vm *VM) push(v any) {
	if vm.sp >= len(vm.stack) {
		grown := make([]any, len(vm.stack)*2)
		copy(grown, vm.stack)
		vm.stack = grown
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() any {
	if vm.sp <= 0 {
		panic(errStackUnderflow)
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = nil
	return v
}

// popN pops n values and returns them in push order.
func (vm *VM) popN(n int) []any {
	if n > vm.sp {
		panic(errStackUnderflow)
	}
	out := make([]any, n)
	copy(out, vm.stack[vm.sp-n:vm.sp])
	for i := vm.sp - n; i < vm.sp; i++ {
		vm.stack[i] = nil
	}
	vm.sp -= n
	return out
}
