package parse

import (
	"github.com/phobologic/asn1ir/internal/cst"
)

// class parses "CLASS { FieldSpec, ... } [WITH SYNTAX { ... }]".
func (p *parser) class() (*cst.Class, error) {
	kw := p.next()
	c := &cst.Class{Pos: kw.Pos}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for {
		f, err := p.fieldSpec()
		if err != nil {
			return nil, err
		}
		c.Fields = append(c.Fields, f)
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		break
	}
	if p.is("WITH") && p.isAt(1, "SYNTAX") {
		p.next()
		p.next()
		syn, err := p.syntaxList()
		if err != nil {
			return nil, err
		}
		c.Syntax = syn
	}
	return c, nil
}

func (p *parser) fieldSpec() (*cst.FieldSpec, error) {
	t := p.peek()
	if t.Kind != cst.TokTypeField && t.Kind != cst.TokValueField {
		return nil, p.fail("field name")
	}
	p.next()
	f := &cst.FieldSpec{Name: t.Text, Pos: t.Pos}
	var err error

	if t.Kind == cst.TokTypeField && (p.is(",") || p.is("}") || p.is("OPTIONAL") || p.is("DEFAULT")) {
		switch {
		case p.accept("OPTIONAL"):
			f.Optional = true
		case p.accept("DEFAULT"):
			if f.DefaultType, err = p.typ(); err != nil {
				return nil, err
			}
		}
		return f, nil
	}

	if p.peek().Kind == cst.TokTypeField {
		// Variable-type value field: the type is another field of this class.
		ft := p.next()
		f.Type = &cst.Type{Form: cst.FormReference, Pos: ft.Pos, Ref: &cst.Reference{Pos: ft.Pos, Fields: []string{ft.Text}}}
	} else if f.Type, err = p.typ(); err != nil {
		return nil, err
	}

	if t.Kind == cst.TokValueField && p.accept("UNIQUE") {
		f.Unique = true
	}
	switch {
	case p.accept("OPTIONAL"):
		f.Optional = true
	case p.accept("DEFAULT"):
		if t.Kind == cst.TokTypeField {
			if f.DefaultSet, err = p.bracedElementSet(); err != nil {
				return nil, err
			}
		} else if f.DefaultValue, err = p.value(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// syntaxList reads the WITH SYNTAX body. Words and commas are literals,
// field references are placeholders and brackets delimit optional groups.
func (p *parser) syntaxList() ([]cst.SyntaxToken, error) {
	body, err := p.skipBalanced()
	if err != nil {
		return nil, err
	}
	out := make([]cst.SyntaxToken, 0, len(body))
	for _, t := range body {
		switch {
		case t.Kind == cst.TokTypeField || t.Kind == cst.TokValueField:
			out = append(out, cst.SyntaxToken{Kind: cst.SyntaxField, Text: t.Text})
		case t.Kind == cst.TokSymbol && t.Text == "[":
			out = append(out, cst.SyntaxToken{Kind: cst.SyntaxOptionalStart})
		case t.Kind == cst.TokSymbol && t.Text == "[[":
			out = append(out, cst.SyntaxToken{Kind: cst.SyntaxOptionalStart}, cst.SyntaxToken{Kind: cst.SyntaxOptionalStart})
		case t.Kind == cst.TokSymbol && t.Text == "]":
			out = append(out, cst.SyntaxToken{Kind: cst.SyntaxOptionalEnd})
		case t.Kind == cst.TokSymbol && t.Text == "]]":
			out = append(out, cst.SyntaxToken{Kind: cst.SyntaxOptionalEnd}, cst.SyntaxToken{Kind: cst.SyntaxOptionalEnd})
		case t.Kind == cst.TokTypeRef || t.Kind == cst.TokKeyword || (t.Kind == cst.TokSymbol && t.Text == ","):
			out = append(out, cst.SyntaxToken{Kind: cst.SyntaxLiteral, Text: t.Text})
		default:
			return nil, failAt(t, "syntax word")
		}
	}
	return out, nil
}
