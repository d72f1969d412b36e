package stencil

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/ast"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
)

// Parse tokenizes and parses template source into an element tree. The root is
// always a MixedContent holding the top-level elements.
func Parse(name, content string) (*ast.MixedContent, error) {
	p := &templateParser{
		name:   name,
		tokens: Tokenize(content),
	}
	root := ast.NewMixedContent()
	if len(p.tokens) > 0 {
		first, last := p.tokens[0], p.tokens[len(p.tokens)-1]
		root.SetLocation(ast.Location{
			Template:    name,
			BeginLine:   first.Line,
			BeginColumn: first.Column,
			EndLine:     last.EndLine,
			EndColumn:   last.EndColumn,
		})
	} else {
		root.SetLocation(ast.Location{Template: name})
	}

	elems, stop, err := p.parseBodyUntil()
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, p.errorAt(*stop, "unexpected {{%s}} without matching block", stop.Type)
	}
	for _, e := range elems {
		root.AddElement(e)
	}
	return root, nil
}

type templateParser struct {
	name   string
	tokens []Token
	pos    int
}

func (p *templateParser) current() Token {
	return p.tokens[p.pos]
}

func (p *templateParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *templateParser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *templateParser) errorAt(tok Token, format string, args ...any) error {
	return &TemplateError{
		Template: p.name,
		Message:  fmt.Sprintf(format, args...),
		Line:     tok.Line,
		Column:   tok.Column,
	}
}

// location spans from the first character of begin to the last of end.
func (p *templateParser) location(begin, end Token) ast.Location {
	return ast.Location{
		Template:    p.name,
		BeginLine:   begin.Line,
		BeginColumn: begin.Column,
		EndLine:     end.EndLine,
		EndColumn:   end.EndColumn,
	}
}

func (p *templateParser) parseExpr(tok Token, src, what string) (expr.Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, p.errorAt(tok, "missing %s", what)
	}
	node, err := expr.Parse(src)
	if err != nil {
		return nil, p.errorAt(tok, "failed to parse %s %q: %v", what, src, err)
	}
	return node, nil
}

// parseBodyUntil parses elements until one of the stop token types is found or
// the input ends. The stop token, if any, is returned without being consumed.
func (p *templateParser) parseBodyUntil(stopTokens ...TokenType) ([]ast.Element, *Token, error) {
	var body []ast.Element
	for !p.done() {
		tok := p.current()
		for _, stop := range stopTokens {
			if tok.Type == stop {
				return body, &tok, nil
			}
		}

		var elem ast.Element
		var err error
		switch tok.Type {
		case TokenText:
			text := &ast.TextBlock{Content: tok.Value}
			text.SetLocation(p.location(tok, tok))
			elem = text
			p.advance()

		case TokenComment:
			p.advance()
			continue

		case TokenVariable:
			var node expr.Node
			node, err = p.parseExpr(tok, tok.Value, "expression")
			if err == nil {
				interp := &ast.Interpolation{Source: tok.Value, Expression: node}
				interp.SetLocation(p.location(tok, tok))
				elem = interp
			}
			p.advance()

		case TokenIf, TokenUnless:
			elem, err = p.parseIf()

		case TokenFor:
			elem, err = p.parseFor()

		case TokenWhile:
			elem, err = p.parseWhile()

		case TokenInclude:
			var node expr.Node
			node, err = p.parseExpr(tok, tok.Value, "include name")
			if err == nil {
				inc := &ast.Include{Source: tok.Value, Name: node}
				inc.SetLocation(p.location(tok, tok))
				elem = inc
			}
			p.advance()

		default:
			return body, &tok, nil
		}
		if err != nil {
			return nil, nil, err
		}
		body = append(body, elem)
	}
	return body, nil, nil
}

// nestedBlock turns a parsed body into the value stored as a nested block:
// nothing for an empty body, the element itself for a single one, and a
// MixedContent otherwise.
func (p *templateParser) nestedBlock(body []ast.Element) ast.Element {
	switch len(body) {
	case 0:
		return nil
	case 1:
		return body[0]
	}
	m := ast.NewMixedContent(body...)
	first, last := body[0].Location(), body[len(body)-1].Location()
	m.SetLocation(ast.Location{
		Template:    p.name,
		BeginLine:   first.BeginLine,
		BeginColumn: first.BeginColumn,
		EndLine:     last.EndLine,
		EndColumn:   last.EndColumn,
	})
	return m
}

// expectEnd consumes the {{end}} closing the block opened by open.
func (p *templateParser) expectEnd(open Token, stop *Token, what string) (Token, error) {
	if stop == nil || stop.Type != TokenEnd {
		return Token{}, p.errorAt(open, "expected {{end}} to close %s", what)
	}
	end := p.current()
	p.advance()
	return end, nil
}

func (p *templateParser) parseIf() (ast.Element, error) {
	open := p.current()
	block := &ast.IfBlock{}

	kind := ast.BranchIf
	stops := []TokenType{TokenElse, TokenElsif, TokenEnd}
	if open.Type == TokenUnless {
		kind = ast.BranchUnless
		stops = []TokenType{TokenElse, TokenEnd}
	}

	branchTok := open
	for {
		var cond expr.Node
		if kind != ast.BranchElse {
			var err error
			if cond, err = p.parseExpr(branchTok, branchTok.Value, kind.String()+" condition"); err != nil {
				return nil, err
			}
		}
		p.advance()

		body, stop, err := p.parseBodyUntil(stops...)
		if err != nil {
			return nil, err
		}
		branch := &ast.ConditionalBlock{Kind: kind, Source: branchTok.Value, Condition: cond}
		branch.SetNestedBlock(p.nestedBlock(body))
		if stop == nil {
			return nil, p.errorAt(open, "expected {{end}} to close %s", open.Type)
		}
		branch.SetLocation(p.location(branchTok, *stop))
		block.AddBranch(branch)

		switch stop.Type {
		case TokenElsif:
			if open.Type == TokenUnless || kind == ast.BranchElse {
				return nil, p.errorAt(*stop, "unexpected {{elsif}} in %s block", open.Type)
			}
			kind, branchTok = ast.BranchElsIf, *stop
		case TokenElse:
			if kind == ast.BranchElse {
				return nil, p.errorAt(*stop, "duplicate {{else}}")
			}
			kind, branchTok = ast.BranchElse, *stop
			stops = []TokenType{TokenElse, TokenEnd}
		case TokenEnd:
			end := p.current()
			p.advance()
			block.SetLocation(p.location(open, end))
			return block, nil
		default:
			return nil, p.errorAt(*stop, "unexpected {{%s}} in %s block", stop.Type, open.Type)
		}
	}
}

func (p *templateParser) parseFor() (ast.Element, error) {
	open := p.current()
	loop, err := p.parseForSyntax(open)
	if err != nil {
		return nil, err
	}
	p.advance()

	body, stop, err := p.parseBodyUntil(TokenEnd)
	if err != nil {
		return nil, err
	}
	end, err := p.expectEnd(open, stop, "for loop")
	if err != nil {
		return nil, err
	}
	loop.SetNestedBlock(p.nestedBlock(body))
	loop.SetLocation(p.location(open, end))
	return loop, nil
}

// parseForSyntax parses "item in items" or "i, item in items".
func (p *templateParser) parseForSyntax(tok Token) (*ast.ForEach, error) {
	forStr := strings.TrimSpace(tok.Value)
	inIndex := strings.Index(forStr, " in ")
	if inIndex == -1 {
		return nil, p.errorAt(tok, "invalid for loop syntax: missing 'in' keyword")
	}
	varsStr := strings.TrimSpace(forStr[:inIndex])
	collectionStr := strings.TrimSpace(forStr[inIndex+4:])

	collection, err := p.parseExpr(tok, collectionStr, "collection expression")
	if err != nil {
		return nil, err
	}
	loop := &ast.ForEach{Source: collectionStr, Collection: collection}

	vars := strings.Split(varsStr, ",")
	switch len(vars) {
	case 1:
		loop.Variable = strings.TrimSpace(vars[0])
	case 2:
		loop.IndexVar = strings.TrimSpace(vars[0])
		loop.Variable = strings.TrimSpace(vars[1])
	default:
		return nil, p.errorAt(tok, "invalid indexed for loop syntax")
	}
	for _, v := range []string{loop.Variable, loop.IndexVar} {
		if strings.ContainsAny(v, " \t.[]()") {
			return nil, p.errorAt(tok, "invalid loop variable %q", v)
		}
	}
	if loop.Variable == "" {
		return nil, p.errorAt(tok, "missing loop variable")
	}
	return loop, nil
}

func (p *templateParser) parseWhile() (ast.Element, error) {
	open := p.current()
	cond, err := p.parseExpr(open, open.Value, "while condition")
	if err != nil {
		return nil, err
	}
	p.advance()

	body, stop, err := p.parseBodyUntil(TokenEnd)
	if err != nil {
		return nil, err
	}
	end, err := p.expectEnd(open, stop, "while loop")
	if err != nil {
		return nil, err
	}
	loop := &ast.While{Source: open.Value, Condition: cond}
	loop.SetNestedBlock(p.nestedBlock(body))
	loop.SetLocation(p.location(open, end))
	return loop, nil
}
