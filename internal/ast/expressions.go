package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/render"
	"github.com/funvibe/liquid/internal/token"
	"github.com/funvibe/liquid/internal/value"
)

// Literal is a constant value: string, int, float64, bool, nil or empty.
type Literal struct {
	Value any
}

func (l *Literal) Evaluate(*render.Context) (any, error) { return l.Value, nil }

func (l *Literal) Compile(c Compiler) error {
	if l.Value == nil {
		c.Emit(bytecode.OpNil)
		return nil
	}
	c.Emit(bytecode.OpConstant, c.AddConstant(l.Value))
	return nil
}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case value.EmptyValue:
		return "empty"
	}
	return value.ToString(l.Value)
}

// Path is a variable reference followed by dot or bracket lookups.
type Path struct {
	Name  string
	Items []Expression
}

func (p *Path) Evaluate(ctx *render.Context) (any, error) {
	obj, _ := ctx.Resolve(p.Name)
	for _, item := range p.Items {
		key, err := item.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		obj, _ = value.GetItem(obj, key)
	}
	return obj, nil
}

func (p *Path) Compile(c Compiler) error {
	c.Emit(bytecode.OpResolve, c.AddConstant(p.Name))
	for _, item := range p.Items {
		if err := item.Compile(c); err != nil {
			return err
		}
		c.Emit(bytecode.OpGetItem)
	}
	return nil
}

func (p *Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Name)
	for _, item := range p.Items {
		if lit, ok := item.(*Literal); ok {
			if s, isStr := lit.Value.(string); isStr {
				sb.WriteString("." + s)
				continue
			}
		}
		sb.WriteString("[" + item.String() + "]")
	}
	return sb.String()
}

// RangeLiteral is `(start..stop)`.
type RangeLiteral struct {
	Start Expression
	Stop  Expression
}

func (r *RangeLiteral) Evaluate(ctx *render.Context) (any, error) {
	start, err := r.Start.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	stop, err := r.Stop.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return MakeRange(start, stop)
}

// MakeRange builds an inclusive range from two integral values.
func MakeRange(start, stop any) (value.Range, error) {
	a, err := value.ToInt(start)
	if err != nil {
		return value.Range{}, fmt.Errorf("range start: %w", err)
	}
	b, err := value.ToInt(stop)
	if err != nil {
		return value.Range{}, fmt.Errorf("range stop: %w", err)
	}
	return value.Range{Start: a, Stop: b}, nil
}

func (r *RangeLiteral) Compile(c Compiler) error {
	if err := r.Start.Compile(c); err != nil {
		return err
	}
	if err := r.Stop.Compile(c); err != nil {
		return err
	}
	c.Emit(bytecode.OpRange)
	return nil
}

func (r *RangeLiteral) String() string {
	return "(" + r.Start.String() + ".." + r.Stop.String() + ")"
}

// Infix is a comparison or boolean operator. Both operands are always
// evaluated.
type Infix struct {
	Operator token.Type
	Left     Expression
	Right    Expression
}

func (i *Infix) Evaluate(ctx *render.Context) (any, error) {
	left, err := i.Left.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	right, err := i.Right.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return Binary(i.Operator, left, right)
}

// Binary applies an infix operator to two evaluated operands.
func Binary(op token.Type, left, right any) (any, error) {
	switch op {
	case token.EQ:
		return value.Equal(left, right), nil
	case token.NE:
		return !value.Equal(left, right), nil
	case token.CONTAINS:
		return value.Contains(left, right), nil
	case token.AND:
		return value.Truthy(left) && value.Truthy(right), nil
	case token.OR:
		return value.Truthy(left) || value.Truthy(right), nil
	case token.LT, token.GT, token.LE, token.GE:
		cmp, err := value.Compare(left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case token.LT:
			return cmp < 0, nil
		case token.GT:
			return cmp > 0, nil
		case token.LE:
			return cmp <= 0, nil
		}
		return cmp >= 0, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

var infixOpcodes = map[token.Type]bytecode.Opcode{
	token.EQ:       bytecode.OpEqual,
	token.NE:       bytecode.OpNotEqual,
	token.LT:       bytecode.OpLess,
	token.GT:       bytecode.OpGreater,
	token.LE:       bytecode.OpLessEqual,
	token.GE:       bytecode.OpGreaterEqual,
	token.CONTAINS: bytecode.OpContains,
	token.AND:      bytecode.OpAnd,
	token.OR:       bytecode.OpOr,
}

var infixOperators = func() map[bytecode.Opcode]token.Type {
	m := make(map[bytecode.Opcode]token.Type, len(infixOpcodes))
	for tok, code := range infixOpcodes {
		m[code] = tok
	}
	return m
}()

// OperatorFor maps an opcode back to its infix operator.
func OperatorFor(op bytecode.Opcode) (token.Type, bool) {
	tok, ok := infixOperators[op]
	if !ok {
		return token.ILLEGAL, false
	}
	return tok, true
}

func (i *Infix) Compile(c Compiler) error {
	op, ok := infixOpcodes[i.Operator]
	if !ok {
		return fmt.Errorf("unknown operator %s", i.Operator)
	}
	if err := i.Left.Compile(c); err != nil {
		return err
	}
	if err := i.Right.Compile(c); err != nil {
		return err
	}
	c.Emit(op)
	return nil
}

func (i *Infix) String() string {
	return "(" + i.Left.String() + " " + i.Operator.String() + " " + i.Right.String() + ")"
}

// Filter is one `| name: args` application.
type Filter struct {
	Name string
	Args []Expression
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + ": " + strings.Join(args, ", ")
}

// Filtered is an expression followed by a filter chain.
type Filtered struct {
	Left    Expression
	Filters []Filter
}

func (f *Filtered) Evaluate(ctx *render.Context) (any, error) {
	v, err := f.Left.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	for _, flt := range f.Filters {
		args := make([]any, len(flt.Args))
		for i, a := range flt.Args {
			if args[i], err = a.Evaluate(ctx); err != nil {
				return nil, err
			}
		}
		if v, err = ApplyFilter(ctx, flt.Name, v, args); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ApplyFilter looks up and calls a filter.
func ApplyFilter(ctx *render.Context, name string, input any, args []any) (any, error) {
	fn, err := ctx.Filter(name)
	if err != nil {
		return nil, err
	}
	out, err := fn(input, args...)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", name, err)
	}
	return out, nil
}

func (f *Filtered) Compile(c Compiler) error {
	if err := f.Left.Compile(c); err != nil {
		return err
	}
	for _, flt := range f.Filters {
		for _, a := range flt.Args {
			if err := a.Compile(c); err != nil {
				return err
			}
		}
		c.Emit(bytecode.OpFilter, c.AddConstant(flt.Name), len(flt.Args))
	}
	return nil
}

func (f *Filtered) String() string {
	var sb strings.Builder
	sb.WriteString(f.Left.String())
	for _, flt := range f.Filters {
		sb.WriteString(" | " + flt.String())
	}
	return sb.String()
}

// LoopExpression is the header of a for or tablerow tag.
type LoopExpression struct {
	Name     string
	Iterable Expression
	Limit    Expression
	Offset   Expression
	Cols     Expression
	Reversed bool
}

// Modifiers evaluates the iterable, limit and offset in that order.
func (l *LoopExpression) Modifiers(ctx *render.Context) (iterable, limit, offset any, err error) {
	if iterable, err = l.Iterable.Evaluate(ctx); err != nil {
		return
	}
	if l.Limit != nil {
		if limit, err = l.Limit.Evaluate(ctx); err != nil {
			return
		}
	}
	if l.Offset != nil {
		offset, err = l.Offset.Evaluate(ctx)
	}
	return
}

// Compile pushes the iterable, limit and offset and leaves the item list
// on the stack.
func (l *LoopExpression) Compile(c Compiler) error {
	if err := l.Iterable.Compile(c); err != nil {
		return err
	}
	for _, mod := range []Expression{l.Limit, l.Offset} {
		if mod == nil {
			c.Emit(bytecode.OpNil)
			continue
		}
		if err := mod.Compile(c); err != nil {
			return err
		}
	}
	c.Emit(bytecode.OpLoopItems, boolOperand(l.Reversed))
	return nil
}

func (l *LoopExpression) String() string {
	var sb strings.Builder
	sb.WriteString(l.Name + " in " + l.Iterable.String())
	if l.Limit != nil {
		sb.WriteString(" limit:" + l.Limit.String())
	}
	if l.Offset != nil {
		sb.WriteString(" offset:" + l.Offset.String())
	}
	if l.Cols != nil {
		sb.WriteString(" cols:" + l.Cols.String())
	}
	if l.Reversed {
		sb.WriteString(" reversed")
	}
	return sb.String()
}
