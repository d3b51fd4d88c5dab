package ast

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/render"
	"github.com/funvibe/liquid/internal/symbol"
	"github.com/funvibe/liquid/internal/value"
)

// Text is literal template text.
type Text struct {
	Value string
}

func (t *Text) Render(_ *render.Context, w io.Writer) error {
	_, err := io.WriteString(w, t.Value)
	return err
}

func (t *Text) Compile(c Compiler) error {
	c.Emit(bytecode.OpConstant, c.AddConstant(t.Value))
	c.Emit(bytecode.OpWrite)
	return nil
}

func (t *Text) String() string { return t.Value }

// Raw is the verbatim body of a raw block.
type Raw struct {
	Value string
}

func (r *Raw) Render(ctx *render.Context, w io.Writer) error {
	_, err := io.WriteString(w, r.Value)
	return err
}

func (r *Raw) Compile(c Compiler) error {
	c.Emit(bytecode.OpConstant, c.AddConstant(r.Value))
	c.Emit(bytecode.OpWrite)
	return nil
}

func (r *Raw) String() string { return "raw{" + r.Value + "}" }

// Comment produces no output.
type Comment struct {
	Text string
}

func (*Comment) Render(*render.Context, io.Writer) error { return nil }
func (*Comment) Compile(Compiler) error                  { return nil }
func (*Comment) String() string                          { return "" }

// Output is `{{ expression }}`.
type Output struct {
	Expression Expression
}

func (o *Output) Render(ctx *render.Context, w io.Writer) error {
	v, err := o.Expression.Evaluate(ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, value.ToString(v))
	return err
}

func (o *Output) Compile(c Compiler) error {
	if err := o.Expression.Compile(c); err != nil {
		return err
	}
	c.Emit(bytecode.OpWrite)
	return nil
}

func (o *Output) String() string { return "`" + o.Expression.String() + "`" }

// Conditional is one `if`/`elsif` arm.
type Conditional struct {
	Condition Expression
	Block     *Block
}

// If is `if`/`elsif`/`else`.
type If struct {
	Branches []Conditional
	Else     *Block
}

func (n *If) Render(ctx *render.Context, w io.Writer) error {
	for _, br := range n.Branches {
		cond, err := br.Condition.Evaluate(ctx)
		if err != nil {
			return err
		}
		if value.Truthy(cond) {
			return br.Block.Render(ctx, w)
		}
	}
	if n.Else != nil {
		return n.Else.Render(ctx, w)
	}
	return nil
}

func (n *If) Compile(c Compiler) error {
	var exits []int
	for _, br := range n.Branches {
		if err := br.Condition.Compile(c); err != nil {
			return err
		}
		next := c.Emit(bytecode.OpJumpIfFalse, Placeholder)
		if err := br.Block.Compile(c); err != nil {
			return err
		}
		exits = append(exits, c.Emit(bytecode.OpJump, Placeholder))
		c.ChangeOperand(next, c.CurrentInstructions())
	}
	if n.Else != nil {
		if err := n.Else.Compile(c); err != nil {
			return err
		}
	}
	end := c.CurrentInstructions()
	for _, pos := range exits {
		c.ChangeOperand(pos, end)
	}
	return nil
}

func (n *If) String() string {
	var sb strings.Builder
	for i, br := range n.Branches {
		kw := "if"
		if i > 0 {
			kw = " elsif"
		}
		sb.WriteString(fmt.Sprintf("%s %s { %s }", kw, br.Condition, br.Block))
	}
	if n.Else != nil {
		sb.WriteString(" else { " + n.Else.String() + " }")
	}
	return sb.String()
}

// Unless renders its block when the condition is falsy.
type Unless struct {
	Condition Expression
	Block     *Block
	Else      *Block
}

func (n *Unless) Render(ctx *render.Context, w io.Writer) error {
	cond, err := n.Condition.Evaluate(ctx)
	if err != nil {
		return err
	}
	if !value.Truthy(cond) {
		return n.Block.Render(ctx, w)
	}
	if n.Else != nil {
		return n.Else.Render(ctx, w)
	}
	return nil
}

func (n *Unless) Compile(c Compiler) error {
	if err := n.Condition.Compile(c); err != nil {
		return err
	}
	skip := c.Emit(bytecode.OpJumpIfTrue, Placeholder)
	if err := n.Block.Compile(c); err != nil {
		return err
	}
	if n.Else == nil {
		c.ChangeOperand(skip, c.CurrentInstructions())
		return nil
	}
	exit := c.Emit(bytecode.OpJump, Placeholder)
	c.ChangeOperand(skip, c.CurrentInstructions())
	if err := n.Else.Compile(c); err != nil {
		return err
	}
	c.ChangeOperand(exit, c.CurrentInstructions())
	return nil
}

func (n *Unless) String() string {
	s := fmt.Sprintf("unless %s { %s }", n.Condition, n.Block)
	if n.Else != nil {
		s += " else { " + n.Else.String() + " }"
	}
	return s
}

// Assign binds the value of an expression to a name.
type Assign struct {
	Name       string
	Expression Expression
}

func (n *Assign) Render(ctx *render.Context, _ io.Writer) error {
	v, err := n.Expression.Evaluate(ctx)
	if err != nil {
		return err
	}
	ctx.Assign(n.Name, v)
	return nil
}

func (n *Assign) Compile(c Compiler) error {
	if err := n.Expression.Compile(c); err != nil {
		return err
	}
	c.Emit(bytecode.OpAssign, c.AddConstant(n.Name))
	return nil
}

func (n *Assign) String() string { return "var " + n.Name + " = " + n.Expression.String() }

// Capture renders its block into a string and assigns it.
type Capture struct {
	Name  string
	Block *Block
}

func (n *Capture) Render(ctx *render.Context, _ io.Writer) error {
	var buf bytes.Buffer
	if err := n.Block.Render(ctx, &buf); err != nil {
		return err
	}
	ctx.Assign(n.Name, buf.String())
	return nil
}

func (n *Capture) Compile(c Compiler) error {
	c.Emit(bytecode.OpCaptureBegin)
	if err := n.Block.Compile(c); err != nil {
		return err
	}
	c.Emit(bytecode.OpCaptureEnd, c.AddConstant(n.Name))
	return nil
}

func (n *Capture) String() string { return "var " + n.Name + " = { " + n.Block.String() + " }" }

// Increment writes a counter's value then adds one.
type Increment struct {
	Name string
}

func (n *Increment) Render(ctx *render.Context, w io.Writer) error {
	_, err := io.WriteString(w, value.ToString(ctx.Increment(n.Name)))
	return err
}

func (n *Increment) Compile(c Compiler) error {
	sym := c.Symbols().DefineCounter(n.Name)
	c.Emit(bytecode.OpIncrement, sym.Index)
	return nil
}

func (n *Increment) String() string { return "increment(" + n.Name + ")" }

// Decrement subtracts one then writes the counter's value.
type Decrement struct {
	Name string
}

func (n *Decrement) Render(ctx *render.Context, w io.Writer) error {
	_, err := io.WriteString(w, value.ToString(ctx.Decrement(n.Name)))
	return err
}

func (n *Decrement) Compile(c Compiler) error {
	sym := c.Symbols().DefineCounter(n.Name)
	c.Emit(bytecode.OpDecrement, sym.Index)
	return nil
}

func (n *Decrement) String() string { return "decrement(" + n.Name + ")" }

// Cycle writes the next of its arguments each time it renders. Cycles with
// the same group and arguments share a position.
type Cycle struct {
	Group string
	Args  []Expression
}

// Key identifies the cycle's shared position.
func (n *Cycle) Key() string {
	return symbol.CycleKey(n.Group, n.argStrings())
}

func (n *Cycle) argStrings() []string {
	out := make([]string, len(n.Args))
	for i, a := range n.Args {
		out[i] = a.String()
	}
	return out
}

func (n *Cycle) Render(ctx *render.Context, w io.Writer) error {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := a.Evaluate(ctx)
		if err != nil {
			return err
		}
		args[i] = v
	}
	_, err := io.WriteString(w, value.ToString(ctx.Cycle(n.Key(), args)))
	return err
}

func (n *Cycle) Compile(c Compiler) error {
	sym := c.Symbols().DefineCycle(n.Group, n.argStrings())
	for _, a := range n.Args {
		if err := a.Compile(c); err != nil {
			return err
		}
	}
	c.Emit(bytecode.OpCycle, sym.Index, len(n.Args))
	return nil
}

func (n *Cycle) String() string {
	return "cycle(" + strings.Join(n.argStrings(), ", ") + ")"
}

// Break leaves the innermost loop.
type Break struct{}

func (*Break) Render(*render.Context, io.Writer) error { return errBreak }

func (*Break) Compile(c Compiler) error {
	loop := c.CurrentLoop()
	if loop == nil {
		return errBreak
	}
	loop.Breaks = append(loop.Breaks, c.Emit(bytecode.OpBreak, loop.Slot, Placeholder))
	return nil
}

func (*Break) String() string { return "break" }

// Continue skips to the next iteration of the innermost loop.
type Continue struct{}

func (*Continue) Render(*render.Context, io.Writer) error { return errContinue }

func (*Continue) Compile(c Compiler) error {
	loop := c.CurrentLoop()
	if loop == nil {
		return errContinue
	}
	loop.Continues = append(loop.Continues, c.Emit(bytecode.OpContinue, loop.Slot, Placeholder))
	return nil
}

func (*Continue) String() string { return "continue" }

// loopSignal classifies an error returned by a loop body.
func loopSignal(err error) (brk, cont bool) {
	return errors.Is(err, errBreak), errors.Is(err, errContinue)
}
