package parse

import (
	"github.com/phobologic/asn1ir/internal/cst"
)

// simpleBuiltins are built-in types spelled with a single keyword.
var simpleBuiltins = map[string]bool{
	"BOOLEAN": true, "NULL": true, "REAL": true, "EXTERNAL": true,
	"RELATIVE-OID": true, "OID-IRI": true, "RELATIVE-OID-IRI": true,
	"UTCTime": true, "GeneralizedTime": true, "ObjectDescriptor": true,
	"DATE": true, "TIME-OF-DAY": true, "DATE-TIME": true, "DURATION": true,
	"TIME": true,
	"BMPString": true, "GeneralString": true, "GraphicString": true,
	"IA5String": true, "ISO646String": true, "NumericString": true,
	"PrintableString": true, "T61String": true, "TeletexString": true,
	"UniversalString": true, "UTF8String": true, "VideotexString": true,
	"VisibleString": true,
}

// typeKeywords are the keywords that can start a Type.
var typeKeywords = map[string]bool{
	"INTEGER": true, "BIT": true, "OCTET": true, "OBJECT": true,
	"CHARACTER": true, "EMBEDDED": true, "ENUMERATED": true, "SEQUENCE": true,
	"SET": true, "CHOICE": true, "ANY": true, "INSTANCE": true,
	"TYPE-IDENTIFIER": true, "ABSTRACT-SYNTAX": true,
}

// startsType reports whether the token at offset n can begin a Type.
func (p *parser) startsType(n int) bool {
	t := p.peekN(n)
	switch t.Kind {
	case cst.TokTypeRef:
		return true
	case cst.TokKeyword:
		return simpleBuiltins[t.Text] || typeKeywords[t.Text]
	case cst.TokSymbol:
		return t.Text == "["
	case cst.TokValueRef:
		return p.isAt(n+1, "<")
	}
	return false
}

// typ parses a Type followed by any serially applied constraints.
func (p *parser) typ() (*cst.Type, error) {
	t, err := p.bareType()
	if err != nil {
		return nil, err
	}
	for p.is("(") {
		c, err := p.constraint()
		if err != nil {
			return nil, err
		}
		t.Constraints = append(t.Constraints, c)
	}
	return t, nil
}

func (p *parser) bareType() (*cst.Type, error) {
	tok := p.peek()
	pos := tok.Pos
	switch tok.Kind {
	case cst.TokSymbol:
		if tok.Text == "[" {
			return p.taggedType()
		}
	case cst.TokTypeRef:
		ref, err := p.reference()
		if err != nil {
			return nil, err
		}
		return &cst.Type{Form: cst.FormReference, Pos: pos, Ref: ref}, nil
	case cst.TokValueRef:
		if p.isAt(1, "<") {
			p.next()
			p.next()
			inner, err := p.bareType()
			if err != nil {
				return nil, err
			}
			return &cst.Type{Form: cst.FormSelection, Pos: pos, Selection: tok.Text, Inner: inner}, nil
		}
	case cst.TokKeyword:
		if simpleBuiltins[tok.Text] {
			p.next()
			return &cst.Type{Form: cst.FormBuiltin, Pos: pos, Builtin: tok.Text}, nil
		}
		return p.keywordType()
	}
	return nil, p.fail("type")
}

func (p *parser) keywordType() (*cst.Type, error) {
	tok := p.next()
	pos := tok.Pos
	two := func(second, builtin string) (*cst.Type, error) {
		if _, err := p.expect(second); err != nil {
			return nil, err
		}
		return &cst.Type{Form: cst.FormBuiltin, Pos: pos, Builtin: builtin}, nil
	}
	switch tok.Text {
	case "INTEGER":
		t := &cst.Type{Form: cst.FormBuiltin, Pos: pos, Builtin: "INTEGER"}
		if p.is("{") {
			nn, err := p.namedNumbers()
			if err != nil {
				return nil, err
			}
			t.NamedNumbers = nn
		}
		return t, nil
	case "BIT":
		t, err := two("STRING", "BIT STRING")
		if err != nil {
			return nil, err
		}
		if p.is("{") {
			if t.NamedNumbers, err = p.namedNumbers(); err != nil {
				return nil, err
			}
		}
		return t, nil
	case "OCTET":
		return two("STRING", "OCTET STRING")
	case "OBJECT":
		return two("IDENTIFIER", "OBJECT IDENTIFIER")
	case "CHARACTER":
		return two("STRING", "CHARACTER STRING")
	case "EMBEDDED":
		return two("PDV", "EMBEDDED PDV")
	case "ENUMERATED":
		items, err := p.enumItems()
		if err != nil {
			return nil, err
		}
		return &cst.Type{Form: cst.FormEnumerated, Pos: pos, Items: items}, nil
	case "SEQUENCE", "SET":
		return p.sequenceOrSet(tok)
	case "CHOICE":
		comps, err := p.components(true)
		if err != nil {
			return nil, err
		}
		return &cst.Type{Form: cst.FormChoice, Pos: pos, Components: comps}, nil
	case "ANY":
		t := &cst.Type{Form: cst.FormAny, Pos: pos}
		if p.accept("DEFINED") {
			if _, err := p.expect("BY"); err != nil {
				return nil, err
			}
			id, err := p.expectKind(cst.TokValueRef)
			if err != nil {
				return nil, err
			}
			t.DefinedBy = id.Text
		}
		return t, nil
	case "INSTANCE":
		if _, err := p.expect("OF"); err != nil {
			return nil, err
		}
		ref, err := p.reference()
		if err != nil {
			return nil, err
		}
		return &cst.Type{Form: cst.FormBuiltin, Pos: pos, Builtin: "INSTANCE OF", Ref: ref}, nil
	case "TYPE-IDENTIFIER", "ABSTRACT-SYNTAX":
		p.pos--
		ref, err := p.reference()
		if err != nil {
			return nil, err
		}
		return &cst.Type{Form: cst.FormReference, Pos: pos, Ref: ref}, nil
	}
	p.pos--
	return nil, p.fail("type")
}

func (p *parser) sequenceOrSet(tok cst.Token) (*cst.Type, error) {
	pos := tok.Pos
	if p.is("{") {
		comps, err := p.components(false)
		if err != nil {
			return nil, err
		}
		form := cst.FormSequence
		if tok.Text == "SET" {
			form = cst.FormSet
		}
		return &cst.Type{Form: form, Pos: pos, Components: comps}, nil
	}

	form := cst.FormSequenceOf
	if tok.Text == "SET" {
		form = cst.FormSetOf
	}
	t := &cst.Type{Form: form, Pos: pos}
	switch {
	case p.is("SIZE"):
		sizePos := p.peek().Pos
		p.next()
		inner, err := p.constraint()
		if err != nil {
			return nil, err
		}
		elem := &cst.Element{Form: cst.ElemSize, Pos: sizePos, Constraint: inner}
		t.Constraints = append(t.Constraints, &cst.Constraint{
			Form: cst.ConstraintSubtype,
			Pos:  sizePos,
			Set:  &cst.ElementSet{Root: &cst.SetExpr{Op: cst.OpElement, Elem: elem, Pos: sizePos}, Pos: sizePos},
		})
	case p.is("("):
		c, err := p.constraint()
		if err != nil {
			return nil, err
		}
		t.Constraints = append(t.Constraints, c)
	}
	if _, err := p.expect("OF"); err != nil {
		return nil, err
	}
	if p.peek().Kind == cst.TokValueRef && !p.isAt(1, "<") {
		t.ElementName = p.next().Text
	}
	elem, err := p.typ()
	if err != nil {
		return nil, err
	}
	t.Element = elem
	return t, nil
}

func (p *parser) taggedType() (*cst.Type, error) {
	open := p.next()
	tag := &cst.TagSpec{Pos: open.Pos}
	switch {
	case p.accept("UNIVERSAL"):
		tag.Class = cst.TagUniversal
	case p.accept("APPLICATION"):
		tag.Class = cst.TagApplication
	case p.accept("PRIVATE"):
		tag.Class = cst.TagPrivate
	}
	num, err := p.classNumber()
	if err != nil {
		return nil, err
	}
	tag.Number = num
	if _, err := p.expect("]"); err != nil {
		return nil, err
	}
	switch {
	case p.accept("IMPLICIT"):
		tag.Mode = cst.TagModeImplicit
	case p.accept("EXPLICIT"):
		tag.Mode = cst.TagModeExplicit
	}
	inner, err := p.typ()
	if err != nil {
		return nil, err
	}
	return &cst.Type{Form: cst.FormTagged, Pos: open.Pos, Tag: tag, Inner: inner}, nil
}

// classNumber is a tag number: a number or a defined value.
func (p *parser) classNumber() (*cst.Value, error) {
	t := p.peek()
	switch t.Kind {
	case cst.TokNumber:
		p.next()
		return &cst.Value{Form: cst.ValueNumber, Pos: t.Pos, Text: t.Text}, nil
	case cst.TokValueRef, cst.TokTypeRef:
		return p.definedValue()
	}
	return nil, p.fail("tag number")
}

// reference parses [Module "."] name [actual parameters] ["." &field ...].
func (p *parser) reference() (*cst.Reference, error) {
	first := p.next()
	ref := &cst.Reference{Name: first.Text, Pos: first.Pos}
	if p.is(".") {
		if n := p.peekN(1); n.Kind == cst.TokTypeRef || (n.Kind == cst.TokKeyword && (n.Text == "TYPE-IDENTIFIER" || n.Text == "ABSTRACT-SYNTAX")) {
			p.next()
			p.next()
			ref.Module, ref.Name = first.Text, n.Text
		}
	}
	if p.is("{") {
		actuals, err := p.actuals()
		if err != nil {
			return nil, err
		}
		ref.Actuals = actuals
	}
	for p.is(".") && (p.peekN(1).Kind == cst.TokTypeField || p.peekN(1).Kind == cst.TokValueField) {
		p.next()
		ref.Fields = append(ref.Fields, p.next().Text)
	}
	return ref, nil
}

func (p *parser) actuals() ([]*cst.Actual, error) {
	p.next()
	var out []*cst.Actual
	for {
		a, err := p.actual()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// actual parses one actual parameter. A braced actual is read as an object
// or value set when its contents form an element set, otherwise as a value.
func (p *parser) actual() (*cst.Actual, error) {
	pos := p.peek().Pos
	if p.is("{") {
		mark := p.pos
		if set, err := p.bracedElementSet(); err == nil && (p.is(",") || p.is("}")) {
			return &cst.Actual{Set: set, Pos: pos}, nil
		}
		p.pos = mark
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		return &cst.Actual{Value: v, Pos: pos}, nil
	}
	if p.startsType(0) {
		t, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &cst.Actual{Type: t, Pos: pos}, nil
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	return &cst.Actual{Value: v, Pos: pos}, nil
}

func (p *parser) namedNumbers() ([]*cst.NamedNumber, error) {
	p.next()
	var out []*cst.NamedNumber
	for {
		id, err := p.expectKind(cst.TokValueRef)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		v, err := p.signedOrDefined()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		out = append(out, &cst.NamedNumber{Name: id.Text, Value: v, Pos: id.Pos})
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *parser) signedOrDefined() (*cst.Value, error) {
	t := p.peek()
	switch {
	case t.Kind == cst.TokNumber:
		p.next()
		return &cst.Value{Form: cst.ValueNumber, Pos: t.Pos, Text: t.Text}, nil
	case p.is("-") && p.peekN(1).Kind == cst.TokNumber:
		p.next()
		n := p.next()
		return &cst.Value{Form: cst.ValueNumber, Pos: t.Pos, Text: "-" + n.Text}, nil
	case t.Kind == cst.TokValueRef || t.Kind == cst.TokTypeRef:
		return p.definedValue()
	}
	return nil, p.fail("number")
}

func (p *parser) enumItems() ([]*cst.EnumItem, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var out []*cst.EnumItem
	for {
		t := p.peek()
		if p.is("...") {
			p.next()
			item := &cst.EnumItem{Marker: true, Pos: t.Pos}
			if p.is("!") {
				ex, err := p.exception()
				if err != nil {
					return nil, err
				}
				item.Exception = ex
			}
			out = append(out, item)
		} else {
			id, err := p.expectKind(cst.TokValueRef)
			if err != nil {
				return nil, err
			}
			item := &cst.EnumItem{Name: id.Text, Pos: id.Pos}
			if p.accept("(") {
				if item.Number, err = p.signedOrDefined(); err != nil {
					return nil, err
				}
				if _, err := p.expect(")"); err != nil {
					return nil, err
				}
			}
			out = append(out, item)
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

// components parses the body of SEQUENCE, SET and CHOICE. Alternatives of a
// CHOICE may not be OPTIONAL, have a DEFAULT or use COMPONENTS OF.
func (p *parser) components(choice bool) ([]*cst.Component, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	if p.accept("}") {
		return nil, nil
	}
	var out []*cst.Component
	for {
		c, err := p.componentEntry(choice, false)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *parser) componentEntry(choice, inGroup bool) (*cst.Component, error) {
	t := p.peek()
	switch {
	case p.is("...") && !inGroup:
		p.next()
		c := &cst.Component{Kind: cst.ComponentMarker, Pos: t.Pos}
		if p.is("!") {
			ex, err := p.exception()
			if err != nil {
				return nil, err
			}
			c.Exception = ex
		}
		return c, nil
	case p.is("[[") && !inGroup:
		return p.extensionGroup(choice)
	case p.is("COMPONENTS") && !choice:
		p.next()
		if _, err := p.expect("OF"); err != nil {
			return nil, err
		}
		typ, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &cst.Component{Kind: cst.ComponentsOf, Pos: t.Pos, Type: typ}, nil
	}
	id, err := p.expectKind(cst.TokValueRef)
	if err != nil {
		return nil, err
	}
	typ, err := p.typ()
	if err != nil {
		return nil, err
	}
	c := &cst.Component{Kind: cst.ComponentNamed, Name: id.Text, Pos: id.Pos, Type: typ}
	if choice {
		return c, nil
	}
	switch {
	case p.accept("OPTIONAL"):
		c.Optional = true
	case p.accept("DEFAULT"):
		if c.Default, err = p.value(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (p *parser) extensionGroup(choice bool) (*cst.Component, error) {
	open := p.next()
	g := &cst.Component{Kind: cst.ComponentGroup, Pos: open.Pos}
	if n := p.peek(); n.Kind == cst.TokNumber && p.isAt(1, ":") {
		p.next()
		p.next()
		g.GroupVersion = &cst.Value{Form: cst.ValueNumber, Pos: n.Pos, Text: n.Text}
	}
	for {
		c, err := p.componentEntry(choice, true)
		if err != nil {
			return nil, err
		}
		g.Group = append(g.Group, c)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect("]]"); err != nil {
		return nil, err
	}
	return g, nil
}
