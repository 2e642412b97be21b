package parse

import (
	"github.com/phobologic/asn1ir/internal/cst"
)

// value parses a Value. Values are read without a governing type; braced
// values are decomposed into atoms when possible and always keep their raw
// tokens.
func (p *parser) value() (*cst.Value, error) {
	t := p.peek()
	switch t.Kind {
	case cst.TokNumber:
		p.next()
		return &cst.Value{Form: cst.ValueNumber, Pos: t.Pos, Text: t.Text}, nil
	case cst.TokReal:
		p.next()
		return &cst.Value{Form: cst.ValueReal, Pos: t.Pos, Text: t.Text}, nil
	case cst.TokCString:
		p.next()
		return &cst.Value{Form: cst.ValueCString, Pos: t.Pos, Text: t.Text}, nil
	case cst.TokBString:
		p.next()
		return &cst.Value{Form: cst.ValueBString, Pos: t.Pos, Text: t.Text}, nil
	case cst.TokHString:
		p.next()
		return &cst.Value{Form: cst.ValueHString, Pos: t.Pos, Text: t.Text}, nil
	case cst.TokValueRef:
		if p.isAt(1, ":") {
			p.next()
			p.next()
			inner, err := p.value()
			if err != nil {
				return nil, err
			}
			return &cst.Value{Form: cst.ValueChoice, Pos: t.Pos, Name: t.Text, Inner: inner}, nil
		}
		return p.definedValue()
	case cst.TokTypeRef:
		if p.isAt(1, ".") && p.peekN(2).Kind == cst.TokValueRef {
			return p.definedValue()
		}
	case cst.TokKeyword:
		form, ok := map[string]cst.ValueForm{
			"TRUE":           cst.ValueBoolean,
			"FALSE":          cst.ValueBoolean,
			"NULL":           cst.ValueNull,
			"MIN":            cst.ValueMin,
			"MAX":            cst.ValueMax,
			"PLUS-INFINITY":  cst.ValuePlusInfinity,
			"MINUS-INFINITY": cst.ValueMinusInfinity,
			"NOT-A-NUMBER":   cst.ValueNotANumber,
		}[t.Text]
		if ok {
			p.next()
			return &cst.Value{Form: form, Pos: t.Pos, Bool: t.Text == "TRUE", Text: t.Text}, nil
		}
	case cst.TokSymbol:
		switch t.Text {
		case "-":
			n := p.peekN(1)
			if n.Kind == cst.TokNumber || n.Kind == cst.TokReal {
				p.next()
				p.next()
				form := cst.ValueNumber
				if n.Kind == cst.TokReal {
					form = cst.ValueReal
				}
				return &cst.Value{Form: form, Pos: t.Pos, Text: "-" + n.Text}, nil
			}
		case "{":
			return p.braced()
		}
	}
	return nil, p.fail("value")
}

// definedValue parses valuereference or modulereference.valuereference.
func (p *parser) definedValue() (*cst.Value, error) {
	t := p.peek()
	ref := &cst.Reference{Pos: t.Pos}
	switch {
	case t.Kind == cst.TokTypeRef && p.isAt(1, ".") && p.peekN(2).Kind == cst.TokValueRef:
		p.next()
		p.next()
		ref.Module, ref.Name = t.Text, p.next().Text
	case t.Kind == cst.TokValueRef:
		p.next()
		ref.Name = t.Text
	default:
		return nil, p.fail("value reference")
	}
	return &cst.Value{Form: cst.ValueRef, Pos: t.Pos, Ref: ref}, nil
}

// braced parses "{ ... }". The contents are first read as groups of atoms
// separated by commas; if that fails the block is kept opaque.
func (p *parser) braced() (*cst.Value, error) {
	open := p.peek()
	start := p.pos
	end := p.matchingBrace(start)
	if end < 0 {
		p.pos = len(p.toks) - 1
		return nil, p.fail(`"}"`)
	}
	v := &cst.Value{Form: cst.ValueBraced, Pos: open.Pos, Tokens: p.toks[start+1 : end]}

	p.next()
	groups, ok := p.atomGroups(end)
	if ok {
		v.Groups = groups
	} else {
		v.Opaque = true
	}
	p.pos = end + 1
	return v, nil
}

func (p *parser) atomGroups(end int) ([][]*cst.Value, bool) {
	var groups [][]*cst.Value
	if p.pos == end {
		return nil, true
	}
	var cur []*cst.Value
	for {
		a, err := p.atom()
		if err != nil || p.pos > end {
			return nil, false
		}
		cur = append(cur, a)
		switch {
		case p.pos == end:
			return append(groups, cur), true
		case p.is(","):
			p.next()
			groups = append(groups, cur)
			cur = nil
		}
	}
}

// atom is a value inside braces, where "name(number)" also appears.
func (p *parser) atom() (*cst.Value, error) {
	t := p.peek()
	if t.Kind == cst.TokValueRef && p.isAt(1, "(") {
		p.next()
		p.next()
		inner, err := p.signedOrDefined()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return &cst.Value{Form: cst.ValueNamedNumber, Pos: t.Pos, Name: t.Text, Inner: inner}, nil
	}
	return p.value()
}
