package parser

import (
	"fmt"
	"strconv"

	"github.com/funvibe/liquid/internal/ast"
	"github.com/funvibe/liquid/internal/token"
	"github.com/funvibe/liquid/internal/value"
)

// exprParser is a recursive descent parser over expression tokens.
type exprParser struct {
	name   string
	tokens []token.Token
	pos    int
}

func newExprParser(name string, tokens []token.Token) *exprParser {
	return &exprParser{name: name, tokens: tokens}
}

func (e *exprParser) current() token.Token { return e.tokens[e.pos] }

func (e *exprParser) peek() token.Token {
	if e.pos+1 < len(e.tokens) {
		return e.tokens[e.pos+1]
	}
	return e.tokens[len(e.tokens)-1]
}

func (e *exprParser) next() token.Token {
	tok := e.tokens[e.pos]
	if tok.Type != token.EOF {
		e.pos++
	}
	return tok
}

func (e *exprParser) errorf(tok token.Token, format string, args ...any) error {
	return &SyntaxError{Name: e.name, Line: tok.Line, Msg: fmt.Sprintf(format, args...)}
}

func (e *exprParser) unexpected(tok token.Token) error {
	if tok.Type == token.ILLEGAL {
		return e.errorf(tok, "illegal token %q", tok.Literal)
	}
	if tok.Type == token.EOF {
		return e.errorf(tok, "unexpected end of expression")
	}
	return e.errorf(tok, "unexpected %s %q", tok.Type, tok.Literal)
}

func (e *exprParser) expect(typ token.Type) (token.Token, error) {
	tok := e.current()
	if tok.Type != typ {
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			return tok, e.unexpected(tok)
		}
		return tok, e.errorf(tok, "expected %s, found %s %q", typ, tok.Type, tok.Literal)
	}
	return e.next(), nil
}

func (e *exprParser) expectEOF() error {
	if tok := e.current(); tok.Type != token.EOF {
		return e.unexpected(tok)
	}
	return nil
}

// parseFiltered reads `primary (| name (: arg (, arg)*)?)*`.
func (e *exprParser) parseFiltered() (ast.Expression, error) {
	left, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	if e.current().Type != token.PIPE {
		return left, nil
	}

	out := &ast.Filtered{Left: left}
	for e.current().Type == token.PIPE {
		e.next()
		name, err := e.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		flt := ast.Filter{Name: name.Literal}
		if e.current().Type == token.COLON {
			e.next()
			for {
				arg, err := e.parsePrimary()
				if err != nil {
					return nil, err
				}
				flt.Args = append(flt.Args, arg)
				if e.current().Type != token.COMMA {
					break
				}
				e.next()
			}
		}
		out.Filters = append(out.Filters, flt)
	}
	return out, nil
}

// parseBoolean reads comparisons joined by `and`/`or`. Both operators bind
// equally and associate to the right.
func (e *exprParser) parseBoolean() (ast.Expression, error) {
	left, err := e.parseComparison()
	if err != nil {
		return nil, err
	}
	switch op := e.current().Type; op {
	case token.AND, token.OR:
		e.next()
		right, err := e.parseBoolean()
		if err != nil {
			return nil, err
		}
		return &ast.Infix{Operator: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (e *exprParser) parseComparison() (ast.Expression, error) {
	left, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch op := e.current().Type; op {
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE, token.CONTAINS:
		e.next()
		right, err := e.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.Infix{Operator: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// parsePrimary reads a literal, a range or a path.
func (e *exprParser) parsePrimary() (ast.Expression, error) {
	tok := e.current()
	switch tok.Type {
	case token.STRING:
		e.next()
		return &ast.Literal{Value: tok.Literal}, nil
	case token.INTEGER:
		e.next()
		n, err := strconv.Atoi(tok.Literal)
		if err != nil {
			return nil, e.errorf(tok, "invalid integer %q", tok.Literal)
		}
		return &ast.Literal{Value: n}, nil
	case token.FLOAT:
		e.next()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, e.errorf(tok, "invalid float %q", tok.Literal)
		}
		return &ast.Literal{Value: f}, nil
	case token.TRUE, token.FALSE:
		e.next()
		return &ast.Literal{Value: tok.Type == token.TRUE}, nil
	case token.NIL:
		e.next()
		return &ast.Literal{Value: nil}, nil
	case token.EMPTY:
		e.next()
		return &ast.Literal{Value: value.Empty}, nil
	case token.LPAREN:
		return e.parseRange()
	case token.IDENT:
		return e.parsePath()
	}
	return nil, e.unexpected(tok)
}

func (e *exprParser) parseRange() (ast.Expression, error) {
	if _, err := e.expect(token.LPAREN); err != nil {
		return nil, err
	}
	start, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, err := e.expect(token.RANGE); err != nil {
		return nil, err
	}
	stop, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, err := e.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.RangeLiteral{Start: start, Stop: stop}, nil
}

func (e *exprParser) parsePath() (ast.Expression, error) {
	name, err := e.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	path := &ast.Path{Name: name.Literal}
	for {
		switch e.current().Type {
		case token.DOT:
			e.next()
			tok := e.next()
			// Keywords are plain keys after a dot: `x.first`, `x.empty`.
			if tok.Type != token.IDENT && !isKeyword(tok.Type) {
				return nil, e.unexpected(tok)
			}
			path.Items = append(path.Items, &ast.Literal{Value: tok.Literal})
		case token.LBRACKET:
			e.next()
			item, err := e.parsePrimary()
			if err != nil {
				return nil, err
			}
			if _, err := e.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			path.Items = append(path.Items, item)
		default:
			return path, nil
		}
	}
}

func isKeyword(t token.Type) bool {
	return t >= token.AND && t <= token.REVERSED
}

// parseLoop reads `name in iterable` followed by limit:, offset:, cols:
// (tablerow only) and reversed, in any order.
func (e *exprParser) parseLoop(allowCols bool) (*ast.LoopExpression, error) {
	name, err := e.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := e.expect(token.IN); err != nil {
		return nil, err
	}
	iterable, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	loop := &ast.LoopExpression{Name: name.Literal, Iterable: iterable}

	for {
		tok := e.current()
		switch tok.Type {
		case token.EOF:
			return loop, nil
		case token.REVERSED:
			e.next()
			loop.Reversed = true
			continue
		case token.COMMA:
			e.next()
			continue
		case token.IDENT:
			if e.peek().Type != token.COLON {
				return nil, e.unexpected(tok)
			}
		default:
			return nil, e.unexpected(tok)
		}

		e.next()
		e.next()
		arg, err := e.parsePrimary()
		if err != nil {
			return nil, err
		}
		switch tok.Literal {
		case "limit":
			loop.Limit = arg
		case "offset":
			loop.Offset = arg
		case "cols":
			if !allowCols {
				return nil, e.errorf(tok, "unknown loop argument %q", tok.Literal)
			}
			loop.Cols = arg
		default:
			return nil, e.errorf(tok, "unknown loop argument %q", tok.Literal)
		}
	}
}
