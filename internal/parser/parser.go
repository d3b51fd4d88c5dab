// Package parser builds an ast.Template from template source.
package parser

import (
	"fmt"

	"github.com/funvibe/liquid/internal/ast"
	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/lexer"
	"github.com/funvibe/liquid/internal/token"
)

// SyntaxError reports malformed template source.
type SyntaxError struct {
	Name string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%d: syntax error: %s", e.Name, e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: syntax error: %s", e.Line, e.Msg)
}

// Parser consumes template-level tokens.
type Parser struct {
	name      string
	tokens    []token.Token
	pos       int
	loopDepth int
}

func New(name string, tokens []token.Token) *Parser {
	return &Parser{name: name, tokens: tokens}
}

// Parse lexes and parses source in one step.
func Parse(name, source string) (*ast.Template, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		if lexErr, ok := err.(*lexer.Error); ok {
			return nil, &SyntaxError{Name: name, Line: lexErr.Line, Msg: lexErr.Msg}
		}
		return nil, err
	}
	return New(name, tokens).ParseTemplate()
}

func (p *Parser) current() token.Token { return p.tokens[p.pos] }

func (p *Parser) next() token.Token {
	tok := p.tokens[p.pos]
	if tok.Type != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(line int, format string, args ...any) error {
	return &SyntaxError{Name: p.name, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ParseTemplate parses every token up to EOF.
func (p *Parser) ParseTemplate() (*ast.Template, error) {
	block, end, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if end.Type != token.EOF {
		return nil, p.errorf(end.Line, "unexpected tag %q", end.Literal)
	}
	return &ast.Template{Name: p.name, Nodes: block.Nodes}, nil
}

// parseBlock parses nodes until EOF or one of the given closing tags,
// which is consumed and returned.
func (p *Parser) parseBlock(ends ...string) (*ast.Block, token.Token, error) {
	block := &ast.Block{}
	for {
		tok := p.current()
		switch tok.Type {
		case token.EOF:
			if len(ends) > 0 {
				return nil, tok, p.errorf(tok.Line, "expected tag %s, found end of template", ends[0])
			}
			return block, tok, nil
		case token.TEXT:
			p.next()
			block.Nodes = append(block.Nodes, &ast.Text{Value: tok.Literal})
		case token.RAW:
			p.next()
			block.Nodes = append(block.Nodes, &ast.Raw{Value: tok.Literal})
		case token.COMMENT:
			p.next()
			block.Nodes = append(block.Nodes, &ast.Comment{Text: tok.Literal})
		case token.OUTPUT:
			p.next()
			expr, err := p.expression(tok, func(e *exprParser) (ast.Expression, error) { return e.parseFiltered() })
			if err != nil {
				return nil, tok, err
			}
			block.Nodes = append(block.Nodes, &ast.Output{Expression: expr})
		case token.TAG:
			for _, end := range ends {
				if tok.Literal == end {
					p.next()
					return block, tok, nil
				}
			}
			node, err := p.parseTag()
			if err != nil {
				return nil, tok, err
			}
			block.Nodes = append(block.Nodes, node)
		default:
			return nil, tok, p.errorf(tok.Line, "unexpected token %s", tok.Type)
		}
	}
}

// expression runs fn over the tag's expression source and requires that it
// consumes every token.
func (p *Parser) expression(tok token.Token, fn func(*exprParser) (ast.Expression, error)) (ast.Expression, error) {
	e, err := p.exprParser(tok)
	if err != nil {
		return nil, err
	}
	expr, err := fn(e)
	if err != nil {
		return nil, err
	}
	return expr, e.expectEOF()
}

func (p *Parser) exprParser(tok token.Token) (*exprParser, error) {
	src := tok.Value
	if src == "" {
		return nil, p.errorf(tok.Line, "missing expression")
	}
	return newExprParser(p.name, lexer.New(src, tok.Line).Tokenize()), nil
}

func (p *Parser) parseTag() (ast.Node, error) {
	tok := p.next()
	switch tok.Literal {
	case config.TagIf:
		return p.parseIf(tok)
	case config.TagUnless:
		return p.parseUnless(tok)
	case config.TagFor:
		return p.parseFor(tok)
	case config.TagTableRow:
		return p.parseTableRow(tok)
	case config.TagAssign:
		return p.parseAssign(tok)
	case config.TagCapture:
		return p.parseCapture(tok)
	case config.TagIncrement, config.TagDecrement:
		return p.parseCounter(tok)
	case config.TagCycle:
		return p.parseCycle(tok)
	case config.TagBreak, config.TagContinue:
		if p.loopDepth == 0 {
			return nil, p.errorf(tok.Line, "unexpected %q outside of a loop", tok.Literal)
		}
		if tok.Value != "" {
			return nil, p.errorf(tok.Line, "%s takes no arguments", tok.Literal)
		}
		if tok.Literal == config.TagBreak {
			return &ast.Break{}, nil
		}
		return &ast.Continue{}, nil
	}
	return nil, p.errorf(tok.Line, "unknown tag %q", tok.Literal)
}
