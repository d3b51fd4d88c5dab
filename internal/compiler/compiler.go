// Package compiler lowers an ast.Template into a bytecode.Program.
package compiler

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/funvibe/liquid/internal/ast"
	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/symbol"
)

var log = commonlog.GetLogger("liquid.compiler")

// ErrLoopControl is returned for a break or continue outside any loop.
var ErrLoopControl = errors.New("loop control outside of a loop")

// Compiler implements ast.Compiler. A Compiler is single-use.
type Compiler struct {
	program *bytecode.Program
	symbols *symbol.Table
	loops   []*ast.LoopContext
}

func New(name string) *Compiler {
	return &Compiler{
		program: bytecode.NewProgram(name),
		symbols: symbol.NewTable(),
	}
}

// Compile compiles tmpl into a fresh program.
func Compile(tmpl *ast.Template) (*bytecode.Program, error) {
	return New(tmpl.Name).Compile(tmpl)
}

// Compile emits every top-level node, recording where each one starts.
func (c *Compiler) Compile(tmpl *ast.Template) (*bytecode.Program, error) {
	for _, node := range tmpl.Nodes {
		c.program.Statements = append(c.program.Statements, c.CurrentInstructions())
		if err := node.Compile(c); err != nil {
			if ast.IsLoopSignal(err) {
				err = fmt.Errorf("%w: %v", ErrLoopControl, err)
			}
			return nil, fmt.Errorf("compile %s: %w", tmpl.Name, err)
		}
	}
	if len(c.loops) != 0 {
		return nil, fmt.Errorf("compile %s: %d unterminated loops", tmpl.Name, len(c.loops))
	}
	c.program.Symbols = c.symbols.Metadata()

	log.Debugf("compiled %q: %d instructions, %d constants, %d counters, %d cycles",
		tmpl.Name, c.program.Instructions.Len(), len(c.program.Constants),
		c.symbols.NumCounters(), c.symbols.NumCycles())
	return c.program, nil
}

func (c *Compiler) Emit(op bytecode.Opcode, operands ...int) int {
	return c.program.Instructions.Append(op, operands...)
}

func (c *Compiler) AddConstant(v any) int {
	return c.program.AddConstant(v)
}

func (c *Compiler) ChangeOperand(pos int, operands ...int) {
	c.program.Instructions.ChangeOperands(pos, operands...)
}

func (c *Compiler) CurrentInstructions() int {
	return c.program.Instructions.Len()
}

func (c *Compiler) Symbols() *symbol.Table { return c.symbols }

// EnterScope opens a block scope for loop variables.
func (c *Compiler) EnterScope() {
	c.symbols = symbol.NewEnclosed(c.symbols)
}

func (c *Compiler) LeaveScope() {
	if c.symbols.Outer == nil {
		panic("compiler: leave scope at root")
	}
	c.symbols = c.symbols.Outer
}

func (c *Compiler) NameLoop(pos int, name string) {
	c.program.SetLoopVar(pos, name)
}

func (c *Compiler) EnterLoop(slot int) {
	c.loops = append(c.loops, &ast.LoopContext{Slot: slot})
}

func (c *Compiler) LeaveLoop() *ast.LoopContext {
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	return loop
}

func (c *Compiler) CurrentLoop() *ast.LoopContext {
	if len(c.loops) == 0 {
		return nil
	}
	return c.loops[len(c.loops)-1]
}
