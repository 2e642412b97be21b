// Package parse turns ASN.1 module text into a concrete syntax tree. The
// parser is recursive descent over a pre-scanned token slice, stops at the
// first error and does not attempt recovery.
package parse

import (
	"strings"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
)

type parser struct {
	file string
	toks []cst.Token
	pos  int
}

// File parses every module definition in src. name is used only for error
// positions and should be the path the caller wants reported.
func File(name string, src []byte) (*cst.File, error) {
	toks, err := Tokens(name, src)
	if err != nil {
		return nil, err
	}
	p := &parser{file: name, toks: toks}
	f := &cst.File{Name: name}
	for p.peek().Kind != cst.TokEOF {
		m, err := p.module()
		if err != nil {
			return nil, err
		}
		f.Modules = append(f.Modules, m)
	}
	if len(f.Modules) == 0 {
		return nil, p.fail("module definition")
	}
	return f, nil
}

func (p *parser) peek() cst.Token { return p.peekN(0) }

func (p *parser) peekN(n int) cst.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() cst.Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// is reports whether the current token is a keyword or symbol spelled text.
func (p *parser) is(text string) bool { return p.isAt(0, text) }

func (p *parser) isAt(n int, text string) bool {
	t := p.peekN(n)
	return t.Text == text && (t.Kind == cst.TokKeyword || t.Kind == cst.TokSymbol)
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) (cst.Token, error) {
	if !p.is(text) {
		return cst.Token{}, p.fail(`"` + text + `"`)
	}
	return p.next(), nil
}

func (p *parser) expectKind(kind cst.TokenKind) (cst.Token, error) {
	if p.peek().Kind != kind {
		return cst.Token{}, p.fail(kind.String())
	}
	return p.next(), nil
}

// fail builds a ParseError at the current token.
func (p *parser) fail(expected ...string) error {
	return failAt(p.peek(), expected...)
}

func failAt(t cst.Token, expected ...string) error {
	return &diag.ParseError{
		File:     t.Pos.File,
		Line:     t.Pos.Line,
		Column:   t.Pos.Column,
		Expected: expected,
		Found:    describe(t),
	}
}

func describe(t cst.Token) string {
	switch t.Kind {
	case cst.TokEOF:
		return "end of input"
	case cst.TokCString:
		return `string "` + t.Text + `"`
	case cst.TokBString:
		return "'" + t.Text + "'B"
	case cst.TokHString:
		return "'" + t.Text + "'H"
	}
	return `"` + t.Text + `"`
}

// skipBalanced consumes a brace-delimited block starting at the current "{"
// and returns the tokens strictly between the braces.
func (p *parser) skipBalanced() ([]cst.Token, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	start := p.pos
	depth := 1
	for {
		t := p.peek()
		switch {
		case t.Kind == cst.TokEOF:
			return nil, p.fail(`"}"`)
		case t.Kind == cst.TokSymbol && t.Text == "{":
			depth++
		case t.Kind == cst.TokSymbol && t.Text == "}":
			depth--
			if depth == 0 {
				inner := p.toks[start:p.pos]
				p.next()
				return inner, nil
			}
		}
		p.next()
	}
}

// matchingBrace returns the index of the "}" closing the "{" at index i, or
// -1 when the input ends first.
func (p *parser) matchingBrace(i int) int {
	depth := 0
	for j := i; j < len(p.toks); j++ {
		t := p.toks[j]
		if t.Kind != cst.TokSymbol {
			continue
		}
		switch t.Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func joinTokens(toks []cst.Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		switch t.Kind {
		case cst.TokCString:
			parts[i] = `"` + strings.ReplaceAll(t.Text, `"`, `""`) + `"`
		case cst.TokBString:
			parts[i] = "'" + t.Text + "'B"
		case cst.TokHString:
			parts[i] = "'" + t.Text + "'H"
		default:
			parts[i] = t.Text
		}
	}
	return strings.Join(parts, " ")
}

func (p *parser) module() (*cst.Module, error) {
	name, err := p.expectKind(cst.TokTypeRef)
	if err != nil {
		return nil, err
	}
	m := &cst.Module{Name: name.Text, Pos: name.Pos}
	if p.is("{") {
		if m.OID, err = p.value(); err != nil {
			return nil, err
		}
	}
	if p.peek().Kind == cst.TokCString {
		p.next() // IRI value
	}
	if _, err := p.expect("DEFINITIONS"); err != nil {
		return nil, err
	}
	if p.peek().Kind == cst.TokTypeRef && p.isAt(1, "INSTRUCTIONS") {
		p.next()
		p.next()
	}
	switch {
	case p.accept("EXPLICIT"):
		m.TagDefault = cst.TagDefaultExplicit
	case p.accept("IMPLICIT"):
		m.TagDefault = cst.TagDefaultImplicit
	case p.accept("AUTOMATIC"):
		m.TagDefault = cst.TagDefaultAutomatic
	}
	if m.TagDefault != cst.TagDefaultUnspecified {
		if _, err := p.expect("TAGS"); err != nil {
			return nil, err
		}
	}
	if p.accept("EXTENSIBILITY") {
		if _, err := p.expect("IMPLIED"); err != nil {
			return nil, err
		}
		m.ExtensibilityImplied = true
	}
	if _, err := p.expect("::="); err != nil {
		return nil, err
	}
	if _, err := p.expect("BEGIN"); err != nil {
		return nil, err
	}
	if p.is("EXPORTS") {
		if m.Exports, err = p.exports(); err != nil {
			return nil, err
		}
	}
	if p.is("IMPORTS") {
		if m.Imports, err = p.imports(); err != nil {
			return nil, err
		}
	}
	for !p.is("END") {
		if p.peek().Kind == cst.TokEOF {
			return nil, p.fail(`"END"`)
		}
		a, err := p.assignment()
		if err != nil {
			return nil, err
		}
		m.Assignments = append(m.Assignments, a)
	}
	p.next()
	return m, nil
}

func (p *parser) exports() (*cst.Exports, error) {
	p.next()
	ex := &cst.Exports{}
	if p.accept("ALL") {
		ex.All = true
		_, err := p.expect(";")
		return ex, err
	}
	for !p.is(";") {
		sym, err := p.symbol()
		if err != nil {
			return nil, err
		}
		ex.Symbols = append(ex.Symbols, sym)
		if !p.accept(",") {
			break
		}
	}
	_, err := p.expect(";")
	return ex, err
}

func (p *parser) symbol() (cst.Symbol, error) {
	t := p.peek()
	switch t.Kind {
	case cst.TokTypeRef, cst.TokValueRef:
	case cst.TokKeyword:
		if t.Text != "TYPE-IDENTIFIER" && t.Text != "ABSTRACT-SYNTAX" {
			return cst.Symbol{}, p.fail("symbol")
		}
	default:
		return cst.Symbol{}, p.fail("symbol")
	}
	p.next()
	sym := cst.Symbol{Name: t.Text, Pos: t.Pos}
	if p.is("{") && p.isAt(1, "}") {
		p.next()
		p.next()
		sym.Parameterized = true
	}
	return sym, nil
}

func (p *parser) imports() ([]*cst.Import, error) {
	p.next()
	var out []*cst.Import
	for !p.is(";") {
		imp := &cst.Import{}
		for {
			sym, err := p.symbol()
			if err != nil {
				return nil, err
			}
			imp.Symbols = append(imp.Symbols, sym)
			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect("FROM"); err != nil {
			return nil, err
		}
		mod, err := p.expectKind(cst.TokTypeRef)
		if err != nil {
			return nil, err
		}
		imp.Module, imp.Pos = mod.Text, mod.Pos
		switch {
		case p.is("{"):
			if imp.OID, err = p.value(); err != nil {
				return nil, err
			}
		case p.peek().Kind == cst.TokValueRef && !p.isAt(1, ",") && !p.isAt(1, "FROM") && !p.isAt(1, "{"):
			// A lone identifier is the assigned identifier unless it begins
			// the next symbol list.
			imp.OIDRef = p.next().Text
		}
		if p.is("WITH") {
			p.next()
			w, err := p.expectKind(cst.TokTypeRef)
			if err != nil {
				return nil, err
			}
			imp.With = w.Text
		}
		out = append(out, imp)
		if p.peek().Kind == cst.TokEOF {
			return nil, p.fail(`";"`)
		}
	}
	p.next()
	return out, nil
}

func (p *parser) assignment() (*cst.Assignment, error) {
	name := p.peek()
	if name.Kind != cst.TokTypeRef && name.Kind != cst.TokValueRef {
		return nil, p.fail("assignment")
	}
	p.next()
	a := &cst.Assignment{Name: name.Text, Pos: name.Pos}
	if p.is("{") {
		params, err := p.parameters()
		if err != nil {
			return nil, err
		}
		a.Params = params
	}

	if name.Kind == cst.TokValueRef {
		gov, err := p.typ()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("::="); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		a.Kind, a.Type, a.Value = cst.AssignValue, gov, v
		return a, nil
	}

	if p.accept("::=") {
		if p.is("CLASS") {
			c, err := p.class()
			if err != nil {
				return nil, err
			}
			a.Kind, a.Class = cst.AssignClass, c
			return a, nil
		}
		if t := p.peek(); t.Kind == cst.TokKeyword && (t.Text == "TYPE-IDENTIFIER" || t.Text == "ABSTRACT-SYNTAX") && !p.isAt(1, ".") {
			p.next()
			a.Kind = cst.AssignClass
			a.Class = &cst.Class{Pos: t.Pos, Ref: &cst.Reference{Name: t.Text, Pos: t.Pos}}
			return a, nil
		}
		t, err := p.typ()
		if err != nil {
			return nil, err
		}
		a.Kind, a.Type = cst.AssignType, t
		return a, nil
	}

	gov, err := p.typ()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("::="); err != nil {
		return nil, err
	}
	set, err := p.bracedElementSet()
	if err != nil {
		return nil, err
	}
	a.Kind, a.Type, a.Set = cst.AssignValueSet, gov, set
	return a, nil
}

// parameters parses "{ [Governor :] Dummy, ... }" of a parameterized
// assignment.
func (p *parser) parameters() ([]*cst.Parameter, error) {
	p.next()
	var out []*cst.Parameter
	for {
		t := p.peek()
		if (t.Kind == cst.TokTypeRef || t.Kind == cst.TokValueRef) && (p.isAt(1, ",") || p.isAt(1, "}")) {
			p.next()
			out = append(out, &cst.Parameter{Name: t.Text, Pos: t.Pos})
		} else {
			gov, err := p.typ()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
			d := p.peek()
			if d.Kind != cst.TokTypeRef && d.Kind != cst.TokValueRef {
				return nil, p.fail("parameter name")
			}
			p.next()
			out = append(out, &cst.Parameter{Name: d.Text, Governor: gov, Pos: d.Pos})
		}
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}
