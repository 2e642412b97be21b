package parse

import (
	"github.com/phobologic/asn1ir/internal/cst"
)

// constraint parses "( ConstraintSpec [ExceptionSpec] )".
func (p *parser) constraint() (*cst.Constraint, error) {
	open, err := p.expect("(")
	if err != nil {
		return nil, err
	}
	c := &cst.Constraint{Pos: open.Pos}
	switch {
	case p.is("CONTAINING"):
		p.next()
		c.Form = cst.ConstraintContents
		if c.Containing, err = p.typ(); err != nil {
			return nil, err
		}
		if p.accept("ENCODED") {
			if _, err := p.expect("BY"); err != nil {
				return nil, err
			}
			if c.EncodedBy, err = p.value(); err != nil {
				return nil, err
			}
		}
	case p.is("ENCODED"):
		p.next()
		c.Form = cst.ConstraintContents
		if _, err := p.expect("BY"); err != nil {
			return nil, err
		}
		if c.EncodedBy, err = p.value(); err != nil {
			return nil, err
		}
	case p.is("CONSTRAINED"):
		p.next()
		if _, err := p.expect("BY"); err != nil {
			return nil, err
		}
		body, err := p.skipBalanced()
		if err != nil {
			return nil, err
		}
		c.Form, c.UserText = cst.ConstraintUser, joinTokens(body)
	case p.isTableConstraint():
		c.Form = cst.ConstraintTable
		if c.ObjectSet, err = p.bracedElementSet(); err != nil {
			return nil, err
		}
		if p.is("{") {
			if c.AtNotes, err = p.atNotations(); err != nil {
				return nil, err
			}
		}
	default:
		c.Form = cst.ConstraintSubtype
		if c.Set, err = p.elementSetSpecs(); err != nil {
			return nil, err
		}
	}
	if p.is("!") {
		if c.Exception, err = p.exception(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return c, nil
}

// isTableConstraint reports whether the constraint body at the current "{"
// is "{ObjectSet}" alone or "{ObjectSet}{@...}". A braced value such as a
// SEQUENCE value is a single value constraint instead.
func (p *parser) isTableConstraint() bool {
	if !p.is("{") {
		return false
	}
	end := p.matchingBrace(p.pos)
	if end < 0 || end+1 >= len(p.toks) {
		return false
	}
	after := p.toks[end+1]
	if after.Kind == cst.TokSymbol && after.Text == "{" && end+2 < len(p.toks) && p.toks[end+2].Text == "@" {
		return true
	}
	if after.Kind == cst.TokSymbol && (after.Text == ")" || after.Text == "!") {
		inner := p.toks[p.pos+1 : end]
		return len(inner) == 1 && inner[0].Kind == cst.TokTypeRef ||
			len(inner) == 3 && inner[0].Kind == cst.TokTypeRef && inner[1].Text == "." && inner[2].Kind == cst.TokTypeRef
	}
	return false
}

func (p *parser) atNotations() ([]*cst.AtNotation, error) {
	p.next()
	var out []*cst.AtNotation
	for {
		at, err := p.expect("@")
		if err != nil {
			return nil, err
		}
		n := &cst.AtNotation{Pos: at.Pos}
		for p.is(".") || p.is("..") || p.is("...") {
			n.Level += len(p.next().Text)
		}
		for {
			id, err := p.expectKind(cst.TokValueRef)
			if err != nil {
				return nil, err
			}
			n.Path = append(n.Path, id.Text)
			if !p.accept(".") {
				break
			}
		}
		out = append(out, n)
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// bracedElementSet parses "{ ElementSetSpecs }", the form used by value set
// and object set assignments and by table constraints.
func (p *parser) bracedElementSet() (*cst.ElementSet, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	set, err := p.elementSetSpecs()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return set, nil
}

// elementSetSpecs parses Root [, ... [, Additional]] and the forms with an
// empty root ("...", "..., Additional").
func (p *parser) elementSetSpecs() (*cst.ElementSet, error) {
	set := &cst.ElementSet{Pos: p.peek().Pos}
	if !p.is("...") {
		root, err := p.elementSetSpec()
		if err != nil {
			return nil, err
		}
		set.Root = root
		if !p.is(",") || !p.isAt(1, "...") {
			return set, nil
		}
		p.next()
	}
	p.next()
	set.Extensible = true
	if p.is("!") {
		ex, err := p.exception()
		if err != nil {
			return nil, err
		}
		set.Exception = ex
	}
	if p.accept(",") {
		add, err := p.elementSetSpec()
		if err != nil {
			return nil, err
		}
		set.Additional = add
	}
	return set, nil
}

// elementSetSpec parses ALL EXCEPT or a union expression. EXCEPT binds
// tighter than intersection, which binds tighter than union.
func (p *parser) elementSetSpec() (*cst.SetExpr, error) {
	if p.is("ALL") {
		t := p.next()
		if _, err := p.expect("EXCEPT"); err != nil {
			return nil, err
		}
		e, err := p.elements()
		if err != nil {
			return nil, err
		}
		return &cst.SetExpr{Op: cst.OpAllExcept, Operands: []*cst.SetExpr{e}, Pos: t.Pos}, nil
	}
	return p.unions()
}

func (p *parser) unions() (*cst.SetExpr, error) {
	first, err := p.intersections()
	if err != nil {
		return nil, err
	}
	ops := []*cst.SetExpr{first}
	for p.is("|") || p.is("UNION") {
		p.next()
		e, err := p.intersections()
		if err != nil {
			return nil, err
		}
		ops = append(ops, e)
	}
	if len(ops) == 1 {
		return first, nil
	}
	return &cst.SetExpr{Op: cst.OpUnion, Operands: ops, Pos: first.Pos}, nil
}

func (p *parser) intersections() (*cst.SetExpr, error) {
	first, err := p.intersectionElements()
	if err != nil {
		return nil, err
	}
	ops := []*cst.SetExpr{first}
	for p.is("^") || p.is("INTERSECTION") {
		p.next()
		e, err := p.intersectionElements()
		if err != nil {
			return nil, err
		}
		ops = append(ops, e)
	}
	if len(ops) == 1 {
		return first, nil
	}
	return &cst.SetExpr{Op: cst.OpIntersection, Operands: ops, Pos: first.Pos}, nil
}

func (p *parser) intersectionElements() (*cst.SetExpr, error) {
	e, err := p.elements()
	if err != nil {
		return nil, err
	}
	if !p.accept("EXCEPT") {
		return e, nil
	}
	ex, err := p.elements()
	if err != nil {
		return nil, err
	}
	return &cst.SetExpr{Op: cst.OpExcept, Operands: []*cst.SetExpr{e, ex}, Pos: e.Pos}, nil
}

func (p *parser) elements() (*cst.SetExpr, error) {
	t := p.peek()
	if p.is("(") {
		p.next()
		inner, err := p.elementSetSpec()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return &cst.SetExpr{Op: cst.OpElement, Pos: t.Pos, Elem: &cst.Element{Form: cst.ElemNested, Pos: t.Pos, Nested: inner}}, nil
	}
	el, err := p.subtypeElement()
	if err != nil {
		return nil, err
	}
	return &cst.SetExpr{Op: cst.OpElement, Elem: el, Pos: t.Pos}, nil
}

func (p *parser) subtypeElement() (*cst.Element, error) {
	t := p.peek()
	el := &cst.Element{Pos: t.Pos}
	var err error
	switch {
	case p.is("SIZE"):
		p.next()
		el.Form = cst.ElemSize
		el.Constraint, err = p.constraint()
		return el, err
	case p.is("FROM"):
		p.next()
		el.Form = cst.ElemFrom
		el.Constraint, err = p.constraint()
		return el, err
	case p.is("PATTERN"):
		p.next()
		el.Form = cst.ElemPattern
		el.Value, err = p.value()
		return el, err
	case p.is("SETTINGS"):
		p.next()
		s, err := p.expectKind(cst.TokCString)
		if err != nil {
			return nil, err
		}
		el.Form, el.Settings = cst.ElemSettings, s.Text
		return el, nil
	case p.is("WITH"):
		return p.innerType()
	case p.is("INCLUDES"):
		p.next()
		el.Form, el.Includes = cst.ElemContained, true
		el.Type, err = p.typ()
		return el, err
	case p.is("MIN"):
		p.next()
		el.Lower = &cst.Value{Form: cst.ValueMin, Pos: t.Pos, Text: "MIN"}
		return p.rangeRest(el)
	case p.isContainedType():
		el.Form = cst.ElemContained
		el.Type, err = p.typ()
		return el, err
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.is("..") || p.is("<") {
		el.Lower = v
		return p.rangeRest(el)
	}
	el.Form, el.Value = cst.ElemValue, v
	return el, nil
}

// isContainedType reports whether the element at the current token is a
// type rather than a value. NULL is read as a value.
func (p *parser) isContainedType() bool {
	t := p.peek()
	switch t.Kind {
	case cst.TokTypeRef:
		return !(p.isAt(1, ".") && p.peekN(2).Kind == cst.TokValueRef)
	case cst.TokKeyword:
		if t.Text == "NULL" {
			return false
		}
		return simpleBuiltins[t.Text] || typeKeywords[t.Text]
	case cst.TokSymbol:
		return t.Text == "["
	}
	return false
}

func (p *parser) rangeRest(el *cst.Element) (*cst.Element, error) {
	el.Form = cst.ElemRange
	if p.accept("<") {
		el.LowerOpen = true
	}
	if _, err := p.expect(".."); err != nil {
		return nil, err
	}
	if p.accept("<") {
		el.UpperOpen = true
	}
	if t := p.peek(); p.is("MAX") {
		p.next()
		el.Upper = &cst.Value{Form: cst.ValueMax, Pos: t.Pos, Text: "MAX"}
		return el, nil
	}
	up, err := p.value()
	if err != nil {
		return nil, err
	}
	el.Upper = up
	return el, nil
}

// innerType parses WITH COMPONENT and WITH COMPONENTS.
func (p *parser) innerType() (*cst.Element, error) {
	t := p.next()
	el := &cst.Element{Pos: t.Pos}
	if p.accept("COMPONENT") {
		el.Form = cst.ElemInnerSingle
		c, err := p.constraint()
		if err != nil {
			return nil, err
		}
		el.Constraint = c
		return el, nil
	}
	if _, err := p.expect("COMPONENTS"); err != nil {
		return nil, err
	}
	el.Form = cst.ElemInnerMultiple
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	if p.is("...") {
		p.next()
		el.Partial = true
		if _, err := p.expect(","); err != nil {
			return nil, err
		}
	}
	for {
		id, err := p.expectKind(cst.TokValueRef)
		if err != nil {
			return nil, err
		}
		nc := &cst.NamedConstraint{Name: id.Text, Pos: id.Pos}
		if p.is("(") {
			if nc.Constraint, err = p.constraint(); err != nil {
				return nil, err
			}
		}
		switch {
		case p.accept("PRESENT"):
			nc.Presence = cst.PresencePresent
		case p.accept("ABSENT"):
			nc.Presence = cst.PresenceAbsent
		case p.accept("OPTIONAL"):
			nc.Presence = cst.PresenceOptional
		}
		el.Named = append(el.Named, nc)
		if p.accept(",") {
			continue
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
		return el, nil
	}
}

// exception consumes "! ..." up to the closing delimiter of the enclosing
// construct and keeps its text.
func (p *parser) exception() (*cst.Exception, error) {
	bang := p.next()
	start := p.pos
	depth := 0
	for {
		t := p.peek()
		if t.Kind == cst.TokEOF {
			return nil, p.fail("exception identification")
		}
		if t.Kind == cst.TokSymbol {
			switch t.Text {
			case "(", "{", "[":
				depth++
			case ")", "}", "]", "]]":
				if depth == 0 {
					return p.exceptionText(bang, start)
				}
				depth--
			case ",":
				if depth == 0 {
					return p.exceptionText(bang, start)
				}
			}
		}
		p.next()
	}
}

func (p *parser) exceptionText(bang cst.Token, start int) (*cst.Exception, error) {
	if p.pos == start {
		return nil, p.fail("exception identification")
	}
	return &cst.Exception{Text: joinTokens(p.toks[start:p.pos]), Pos: bang.Pos}, nil
}
