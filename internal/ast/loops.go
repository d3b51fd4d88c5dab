package ast

import (
	"fmt"
	"io"

	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/drop"
	"github.com/funvibe/liquid/internal/render"
)

// For iterates a block over the items of a loop expression, rendering Else
// when there are none.
type For struct {
	Expression *LoopExpression
	Block      *Block
	Else       *Block
}

func (n *For) Render(ctx *render.Context, w io.Writer) error {
	iterable, limit, offset, err := n.Expression.Modifiers(ctx)
	if err != nil {
		return err
	}
	items, err := drop.Items(iterable, limit, offset, n.Expression.Reversed)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		if n.Else != nil {
			return n.Else.Render(ctx, w)
		}
		return nil
	}

	loop := drop.NewForLoop(n.Expression.Name, len(items))
	inner, err := ctx.Extend(drop.NewForLoopDrop(loop))
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := ctx.Done(); err != nil {
			return err
		}
		loop.Step(item)
		if err := n.Block.Render(inner, w); err != nil {
			brk, cont := loopSignal(err)
			if brk {
				break
			}
			if !cont {
				return err
			}
		}
	}
	return nil
}

func (n *For) Compile(c Compiler) error {
	if err := n.Expression.Compile(c); err != nil {
		return err
	}
	return compileLoop(c, bytecode.OpFor, n.Expression.Name, n.Block, n.Else)
}

func (n *For) String() string {
	s := fmt.Sprintf("for (%s) { %s }", n.Expression, n.Block)
	if n.Else != nil {
		s += " else { " + n.Else.String() + " }"
	}
	return s
}

// TableRow renders its block once per item inside HTML table rows and
// cells, starting a new row every Cols items.
type TableRow struct {
	Expression *LoopExpression
	Block      *Block
}

func (n *TableRow) Render(ctx *render.Context, w io.Writer) error {
	var cols any
	if n.Expression.Cols != nil {
		var err error
		if cols, err = n.Expression.Cols.Evaluate(ctx); err != nil {
			return err
		}
	}
	iterable, limit, offset, err := n.Expression.Modifiers(ctx)
	if err != nil {
		return err
	}
	items, err := drop.Items(iterable, limit, offset, n.Expression.Reversed)
	if err != nil {
		return err
	}
	ncols, err := drop.Columns(cols)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tablerow := drop.NewTableRow(n.Expression.Name, len(items), ncols)
	inner, err := ctx.Extend(drop.NewTableRowDrop(tablerow))
	if err != nil {
		return err
	}

	for i, row := range drop.Group(items, ncols) {
		if _, err := fmt.Fprintf(w, `<tr class="row%d">`, i+1); err != nil {
			return err
		}
		for j, item := range row {
			if err := ctx.Done(); err != nil {
				return err
			}
			tablerow.Step(item)
			if _, err := fmt.Fprintf(w, `<td class="col%d">`, j+1); err != nil {
				return err
			}
			if err := n.Block.Render(inner, w); err != nil {
				brk, cont := loopSignal(err)
				if brk {
					_, err = io.WriteString(w, "</td></tr>")
					return err
				}
				if !cont {
					return err
				}
			}
			if _, err := io.WriteString(w, "</td>"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tr>"); err != nil {
			return err
		}
	}
	return nil
}

// Compile emits the cols modifier (or nil) beneath the loop items, then the
// shared loop skeleton.
func (n *TableRow) Compile(c Compiler) error {
	if n.Expression.Cols != nil {
		if err := n.Expression.Cols.Compile(c); err != nil {
			return err
		}
	} else {
		c.Emit(bytecode.OpNil)
	}
	if err := n.Expression.Compile(c); err != nil {
		return err
	}
	return compileLoop(c, bytecode.OpTableRow, n.Expression.Name, n.Block, nil)
}

func (n *TableRow) String() string {
	return fmt.Sprintf("tablerow(%s) { %s }", n.Expression, n.Block)
}

// compileLoop emits a loop whose inputs are already on the stack:
//
//	begin  OP slot <loop start> <empty target>
//	start  JSI <after loop>
//	       body
//	step   STE slot
//	       JMP start
//	empty  else body
//	after
//
// Jump targets are unknown until the body is compiled, so they are emitted
// as placeholders and patched at the end.
func compileLoop(c Compiler, op bytecode.Opcode, name string, body, elseBlock *Block) error {
	c.EnterScope()
	sym := c.Symbols().Define(name)

	begin := c.Emit(op, sym.Index, Placeholder, Placeholder)
	c.NameLoop(begin, name)
	start := c.Emit(bytecode.OpJumpIfStop, Placeholder)

	c.EnterLoop(sym.Index)
	if err := body.Compile(c); err != nil {
		c.LeaveLoop()
		c.LeaveScope()
		return err
	}
	step := c.Emit(bytecode.OpStep, sym.Index)
	c.Emit(bytecode.OpJump, start)
	loop := c.LeaveLoop()
	c.LeaveScope()

	empty := c.CurrentInstructions()
	if elseBlock != nil {
		if err := elseBlock.Compile(c); err != nil {
			return err
		}
	}
	after := c.CurrentInstructions()

	c.ChangeOperand(start, after)
	c.ChangeOperand(begin, sym.Index, start, empty)
	for _, pos := range loop.Breaks {
		c.ChangeOperand(pos, sym.Index, after)
	}
	for _, pos := range loop.Continues {
		c.ChangeOperand(pos, sym.Index, step)
	}
	return nil
}
