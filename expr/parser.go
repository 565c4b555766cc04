package expr

import (
	"fmt"
	"strconv"
)

// parser builds an AST from expression input using precedence climbing.
type parser struct {
	lexer *lexer
	cur   token
	peek  token
	err   error
}

func newParser(input string) *parser {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *parser) nextToken() {
	p.cur = p.peek
	tok, err := p.lexer.next()
	if err != nil && p.err == nil {
		p.err = err
	}
	p.peek = tok
}

func (p *parser) parse() (Node, error) {
	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.typ != tokenEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", p.cur.lit, p.cur.pos)
	}
	return node, nil
}

func comparisonOp(t tokenType) (string, bool) {
	switch t {
	case tokenLT:
		return "<", true
	case tokenGT:
		return ">", true
	case tokenLE:
		return "<=", true
	case tokenGE:
		return ">=", true
	case tokenEQ:
		return "==", true
	case tokenNE:
		return "!=", true
	}
	return "", false
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOp(p.cur.typ)
		if !ok {
			return left, nil
		}
		p.nextToken()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokenPlus || p.cur.typ == tokenMinus {
		op := p.cur.lit
		p.nextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokenStar || p.cur.typ == tokenSlash {
		op := p.cur.lit
		p.nextToken()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur.typ == tokenMinus {
		p.nextToken()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "-", X: x}, nil
	}
	if p.cur.typ == tokenPlus {
		p.nextToken()
		return p.parseUnary()
	}
	return p.parsePower()
}

// parsePower handles ^ and ** with right associativity: a^b^c = a^(b^c).
func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokenCaret {
		return base, nil
	}
	p.nextToken()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: "^", Left: base, Right: exp}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.cur.typ {
	case tokenNumber:
		v, err := strconv.ParseFloat(p.cur.lit, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at position %d", p.cur.lit, p.cur.pos)
		}
		p.nextToken()
		return &Num{Value: v}, nil

	case tokenIdent:
		name := p.cur.lit
		p.nextToken()
		if p.cur.typ != tokenLParen {
			return &Ident{Name: name}, nil
		}
		p.nextToken()
		var args []Node
		if p.cur.typ != tokenRParen {
			for {
				arg, err := p.parseComparison()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.cur.typ != tokenComma {
					break
				}
				p.nextToken()
			}
		}
		if p.cur.typ != tokenRParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.cur.pos)
		}
		p.nextToken()
		return &Call{Func: name, Args: args}, nil

	case tokenLParen:
		p.nextToken()
		node, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokenRParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.cur.pos)
		}
		p.nextToken()
		return node, nil
	}
	return nil, fmt.Errorf("unexpected %q at position %d", p.cur.lit, p.cur.pos)
}
