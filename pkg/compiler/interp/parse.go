package interp

import (
	"fmt"

	"github.com/goliatone/go-tplengine/pkg/template"
)

const (
	rootIdent    = "model"
	partialIdent = "partial"
)

type parser struct {
	name   string
	tokens []token
	pos    int
	nodes  executeList
	diags  []template.Diagnostic
}

func parse(name, source string) (executeList, []template.Diagnostic) {
	p := &parser{
		name:   name,
		tokens: lex(source),
	}
	p.run()
	return p.nodes, p.diags
}

func (p *parser) next() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) errorf(pos position, format string, args ...any) {
	p.diags = append(p.diags, template.Diagnostic{
		Location: fmt.Sprintf("%s:%s", p.name, pos),
		Message:  fmt.Sprintf(format, args...),
	})
}

// unexpected reports tok, preferring the lexer's own message when tok is an
// error token.
func (p *parser) unexpected(tok token, format string, args ...any) {
	if tok.typ == tokenError {
		p.errorf(tok.pos, "%s", tok.val)
		return
	}
	p.errorf(tok.pos, format, args...)
}

// sync drops tokens until the current expression is closed so parsing can
// continue with the next piece of text.
func (p *parser) sync() {
	for {
		switch p.peek().typ {
		case tokenClose:
			p.next()
			return
		case tokenText, tokenOpen, tokenEOF, tokenError:
			return
		}
		p.next()
	}
}

func (p *parser) run() {
	for {
		tok := p.next()
		switch tok.typ {
		case tokenEOF:
			return
		case tokenText:
			p.nodes.push(textNode(tok.val))
		case tokenOpen:
			node, ok := p.expression(tok)
			if !ok {
				p.sync()
				continue
			}
			p.nodes.push(node)
		case tokenError:
			p.errorf(tok.pos, "%s", tok.val)
		default:
			p.errorf(tok.pos, "unexpected %s outside of an expression", tok.typ)
		}
	}
}

func (p *parser) expression(open token) (executer, bool) {
	first := p.next()
	switch first.typ {
	case tokenClose:
		p.errorf(open.pos, "empty expression")
		return nil, false
	case tokenIdent:
	default:
		p.unexpected(first, "expected identifier, got %s", first.typ)
		return nil, false
	}

	var node executer
	if p.peek().typ == tokenLParen {
		call, ok := p.call(first)
		if !ok {
			return nil, false
		}
		node = call
	} else {
		sel, ok := p.selector(first)
		if !ok {
			return nil, false
		}
		node = sel
	}

	if closing := p.next(); closing.typ != tokenClose {
		p.unexpected(closing, "expected %s, got %s", tokenClose, closing.typ)
		return nil, false
	}
	return node, true
}

func (p *parser) selector(first token) (selectorNode, bool) {
	path := []string{first.val}
	for p.peek().typ == tokenDot {
		p.next()
		ident := p.next()
		if ident.typ != tokenIdent {
			p.unexpected(ident, "expected field name after '.', got %s", ident.typ)
			return selectorNode{}, false
		}
		path = append(path, ident.val)
	}
	return newSelector(path), true
}

func (p *parser) call(fn token) (executer, bool) {
	if fn.val != partialIdent {
		p.errorf(fn.pos, "unknown function %q", fn.val)
		return nil, false
	}
	p.next() // (

	nameTok := p.next()
	if nameTok.typ != tokenString {
		p.unexpected(nameTok, "%s expects a quoted template name, got %s", partialIdent, nameTok.typ)
		return nil, false
	}
	if nameTok.val == "" {
		p.errorf(nameTok.pos, "%s template name is empty", partialIdent)
		return nil, false
	}

	node := partialNode{name: nameTok.val}
	if p.peek().typ == tokenComma {
		p.next()
		argTok := p.next()
		if argTok.typ != tokenIdent {
			p.unexpected(argTok, "%s expects a model selector, got %s", partialIdent, argTok.typ)
			return nil, false
		}
		sel, ok := p.selector(argTok)
		if !ok {
			return nil, false
		}
		node.model = &sel
	}

	if closing := p.next(); closing.typ != tokenRParen {
		p.unexpected(closing, "expected %s, got %s", tokenRParen, closing.typ)
		return nil, false
	}
	return node, true
}
