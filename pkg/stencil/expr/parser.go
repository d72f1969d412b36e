package expr

import (
	"fmt"
	"strconv"
)

// Parse parses src into an expression tree. Trailing tokens are an error.
func Parse(src string) (Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.current().Type == TokenEOF {
		return nil, fmt.Errorf("empty expression")
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected trailing token %q at position %d", tok.Value, tok.Pos)
	}
	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// acceptOp consumes the current token if it is one of ops.
func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.current()
	if tok.Type != TokenOperator {
		return "", false
	}
	for _, op := range ops {
		if tok.Value == op {
			p.advance()
			return op, true
		}
	}
	return "", false
}

// binaryLevel parses a left-associative chain of ops over next.
func (p *parser) binaryLevel(next func() (Node, error), ops ...string) (Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Operator: op, Right: right}
	}
}

func (p *parser) parseOr() (Node, error) {
	return p.binaryLevel(p.parseAnd, "||", "|")
}

func (p *parser) parseAnd() (Node, error) {
	return p.binaryLevel(p.parseEquality, "&&", "&")
}

func (p *parser) parseEquality() (Node, error) {
	return p.binaryLevel(p.parseComparison, "==", "!=")
}

func (p *parser) parseComparison() (Node, error) {
	return p.binaryLevel(p.parseTerm, "<", ">", "<=", ">=")
}

func (p *parser) parseTerm() (Node, error) {
	return p.binaryLevel(p.parseFactor, "+", "-")
}

func (p *parser) parseFactor() (Node, error) {
	return p.binaryLevel(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseUnary() (Node, error) {
	if op, ok := p.acceptOp("!", "-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("."); ok {
			tok := p.current()
			if tok.Type != TokenIdentifier {
				return nil, fmt.Errorf("expected identifier after '.' at position %d", tok.Pos)
			}
			p.advance()
			left = &FieldAccess{Object: left, Field: tok.Value}
			continue
		}
		if _, ok := p.acceptOp("["); ok {
			index, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.acceptOp("]"); !ok {
				return nil, fmt.Errorf("expected ']' at position %d", p.current().Pos)
			}
			left = &IndexAccess{Object: left, Index: index}
			continue
		}
		return left, nil
	}
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		if i, err := strconv.Atoi(tok.Value); err == nil {
			return &Literal{Value: i}, nil
		}
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", tok.Value, err)
		}
		return &Literal{Value: f}, nil

	case TokenString:
		p.advance()
		return &Literal{Value: tok.Value}, nil

	case TokenIdentifier:
		p.advance()
		switch tok.Value {
		case "true":
			return &Literal{Value: true}, nil
		case "false":
			return &Literal{Value: false}, nil
		case "null", "nil":
			return &Literal{Value: nil}, nil
		}
		if p.current().Type == TokenLeftParen {
			return p.parseCall(tok.Value)
		}
		return &Variable{Name: tok.Value}, nil

	case TokenLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRightParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.current().Pos)
		}
		p.advance()
		return inner, nil

	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", tok.Value, tok.Pos)
	}
}

func (p *parser) parseCall(name string) (Node, error) {
	p.advance() // (
	call := &Call{Name: name}
	if p.current().Type == TokenRightParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.current().Type {
		case TokenComma:
			p.advance()
		case TokenRightParen:
			p.advance()
			return call, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' in arguments of %s at position %d", name, p.current().Pos)
		}
	}
}
