package parser

import (
	"github.com/funvibe/liquid/internal/ast"
	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/token"
)

func condition(e *exprParser) (ast.Expression, error) { return e.parseBoolean() }

func (p *Parser) parseIf(tok token.Token) (ast.Node, error) {
	node := &ast.If{}
	for {
		cond, err := p.expression(tok, condition)
		if err != nil {
			return nil, err
		}
		block, end, err := p.parseBlock(config.TagElsif, config.TagElse, config.TagEndIf)
		if err != nil {
			return nil, err
		}
		node.Branches = append(node.Branches, ast.Conditional{Condition: cond, Block: block})

		switch end.Literal {
		case config.TagElsif:
			tok = end
			continue
		case config.TagElse:
			elseBlock, _, err := p.parseBlock(config.TagEndIf)
			if err != nil {
				return nil, err
			}
			node.Else = elseBlock
		}
		return node, nil
	}
}

func (p *Parser) parseUnless(tok token.Token) (ast.Node, error) {
	cond, err := p.expression(tok, condition)
	if err != nil {
		return nil, err
	}
	block, end, err := p.parseBlock(config.TagElse, config.TagEndUnless)
	if err != nil {
		return nil, err
	}
	node := &ast.Unless{Condition: cond, Block: block}
	if end.Literal == config.TagElse {
		if node.Else, _, err = p.parseBlock(config.TagEndUnless); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Parser) loopExpression(tok token.Token, allowCols bool) (*ast.LoopExpression, error) {
	e, err := p.exprParser(tok)
	if err != nil {
		return nil, err
	}
	expr, err := e.parseLoop(allowCols)
	if err != nil {
		return nil, err
	}
	return expr, e.expectEOF()
}

func (p *Parser) parseFor(tok token.Token) (ast.Node, error) {
	expr, err := p.loopExpression(tok, false)
	if err != nil {
		return nil, err
	}

	p.loopDepth++
	block, end, err := p.parseBlock(config.TagElse, config.TagEndFor)
	p.loopDepth--
	if err != nil {
		return nil, err
	}

	node := &ast.For{Expression: expr, Block: block}
	if end.Literal == config.TagElse {
		if node.Else, _, err = p.parseBlock(config.TagEndFor); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Parser) parseTableRow(tok token.Token) (ast.Node, error) {
	expr, err := p.loopExpression(tok, true)
	if err != nil {
		return nil, err
	}

	p.loopDepth++
	block, _, err := p.parseBlock(config.TagEndTable)
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	return &ast.TableRow{Expression: expr, Block: block}, nil
}

func (p *Parser) parseAssign(tok token.Token) (ast.Node, error) {
	e, err := p.exprParser(tok)
	if err != nil {
		return nil, err
	}
	name, err := e.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := e.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	expr, err := e.parseFiltered()
	if err != nil {
		return nil, err
	}
	if err := e.expectEOF(); err != nil {
		return nil, err
	}
	return &ast.Assign{Name: name.Literal, Expression: expr}, nil
}

func (p *Parser) identifier(tok token.Token) (string, error) {
	e, err := p.exprParser(tok)
	if err != nil {
		return "", err
	}
	name, err := e.expect(token.IDENT)
	if err != nil {
		return "", err
	}
	return name.Literal, e.expectEOF()
}

func (p *Parser) parseCapture(tok token.Token) (ast.Node, error) {
	name, err := p.identifier(tok)
	if err != nil {
		return nil, err
	}
	block, _, err := p.parseBlock(config.TagEndCapture)
	if err != nil {
		return nil, err
	}
	return &ast.Capture{Name: name, Block: block}, nil
}

func (p *Parser) parseCounter(tok token.Token) (ast.Node, error) {
	name, err := p.identifier(tok)
	if err != nil {
		return nil, err
	}
	if tok.Literal == config.TagIncrement {
		return &ast.Increment{Name: name}, nil
	}
	return &ast.Decrement{Name: name}, nil
}

// parseCycle reads `cycle [group:] arg, arg, ...`.
func (p *Parser) parseCycle(tok token.Token) (ast.Node, error) {
	e, err := p.exprParser(tok)
	if err != nil {
		return nil, err
	}
	node := &ast.Cycle{}

	first, err := e.parsePrimary()
	if err != nil {
		return nil, err
	}
	if e.current().Type == token.COLON {
		e.next()
		node.Group = first.String()
		if lit, ok := first.(*ast.Literal); ok {
			if s, isStr := lit.Value.(string); isStr {
				node.Group = s
			}
		}
		if first, err = e.parsePrimary(); err != nil {
			return nil, err
		}
	}
	node.Args = append(node.Args, first)
	for e.current().Type == token.COMMA {
		e.next()
		arg, err := e.parsePrimary()
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)
	}
	return node, e.expectEOF()
}
