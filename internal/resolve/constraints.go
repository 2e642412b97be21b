package resolve

import (
	"fmt"
	"strings"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/registry"
)

// realComponents are the components of the associated type of REAL that
// WITH COMPONENTS may constrain.
var realComponents = map[string]bool{"mantissa": true, "base": true, "exponent": true}

func (r *resolver) resolveConstraints(cl registry.ConstraintLink) {
	owner := r.p.Type(cl.Owner)
	for _, c := range cl.Constraints {
		if mc := r.constraint(c, owner.ID, cl.Scope, owner.Path); mc != nil {
			owner.Constraints = append(owner.Constraints, mc)
		}
	}
}

// constraint converts one written constraint applied to gov.
func (r *resolver) constraint(c *cst.Constraint, gov model.TypeID, scope registry.Scope, path string) *model.Constraint {
	var mc *model.Constraint
	switch c.Form {
	case cst.ConstraintSubtype:
		mc = r.elementSet(c.Set, gov, scope, path)
	case cst.ConstraintTable:
		mc = &model.Constraint{Kind: model.Table, Pos: c.Pos, Type: model.NoType, ObjectSet: r.tableSet(c.ObjectSet, gov, scope, path)}
		for _, at := range c.AtNotes {
			mc.AtNotation = append(mc.AtNotation, model.AtNotation{Level: at.Level, Path: at.Path})
		}
	case cst.ConstraintContents:
		mc = &model.Constraint{Kind: model.Contents, Pos: c.Pos, Type: model.NoType}
		if c.Containing != nil {
			mc.Type = r.typeOf(c.Containing, scope, path+"<contents>")
		}
		if c.EncodedBy != nil {
			mc.EncodedBy = r.value(c.EncodedBy, model.BuiltinID(model.KindObjectIdentifier), scope, path)
		}
	case cst.ConstraintUser:
		mc = &model.Constraint{Kind: model.UserDefined, Pos: c.Pos, Type: model.NoType, Text: c.UserText}
	}
	if mc != nil && c.Exception != nil {
		mc.Exception = c.Exception.Text
	}
	return mc
}

// tableSet names the object set of a table constraint. Inline sets are
// recorded as anonymous object sets and named by their elements.
func (r *resolver) tableSet(set *cst.ElementSet, gov model.TypeID, scope registry.Scope, path string) string {
	if ref := singleRef(set); ref != nil {
		ent, ok := r.entityOf(scope, ref)
		if !ok {
			return ref.Name
		}
		if ent.kind != entObjectSet {
			r.errs.Add(&diag.ConstraintError{Module: scope.Module, Type: path, Reason: fmt.Sprintf("%s is a %s, not an object set", ref.Name, ent.kind), Pos: ref.Pos})
			return ref.Name
		}
		os := r.p.ObjectSets[ent.index]
		if os.Name == "" {
			return setText(r.p, os)
		}
		return os.Module + "." + os.Name
	}
	cls := -1
	if u := r.p.Underlying(gov); u != nil && u.Class != "" {
		cls = r.classIndex(u.Class)
	}
	if t := r.p.Type(gov); cls < 0 && t != nil && t.Class != "" {
		cls = r.classIndex(t.Class)
	}
	idx := r.objectSet(cls, set, scope, path)
	return setText(r.p, r.p.ObjectSets[idx])
}

func setText(p *model.Program, os *model.ObjectSet) string {
	names := make([]string, len(os.Objects))
	for i, o := range os.Objects {
		names[i] = p.Objects[o].Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("#%d", o)
		}
	}
	return "{" + strings.Join(names, " | ") + "}"
}

// elementSet converts ElementSetSpecs. The node returned carries the
// extensibility of the written constraint.
func (r *resolver) elementSet(set *cst.ElementSet, gov model.TypeID, scope registry.Scope, path string) *model.Constraint {
	var mc *model.Constraint
	if set.Root == nil {
		mc = &model.Constraint{Kind: model.Union, Pos: set.Pos, Type: model.NoType}
	} else if mc = r.setExpr(set.Root, gov, scope, path); mc == nil {
		return nil
	}
	mc.Extensible = set.Extensible
	if set.Additional != nil {
		mc.Additional = r.setExpr(set.Additional, gov, scope, path)
	}
	if set.Exception != nil {
		mc.Exception = set.Exception.Text
	}
	return mc
}

func (r *resolver) setExpr(e *cst.SetExpr, gov model.TypeID, scope registry.Scope, path string) *model.Constraint {
	if e.Op == cst.OpElement {
		return r.element(e.Elem, gov, scope, path)
	}
	mc := &model.Constraint{
		Kind: map[cst.SetOp]model.ConstraintKind{
			cst.OpUnion:        model.Union,
			cst.OpIntersection: model.Intersection,
			cst.OpExcept:       model.Except,
			cst.OpAllExcept:    model.AllExcept,
		}[e.Op],
		Pos:  e.Pos,
		Type: model.NoType,
	}
	for _, op := range e.Operands {
		oc := r.setExpr(op, gov, scope, path)
		if oc == nil {
			return nil
		}
		mc.Operands = append(mc.Operands, oc)
	}
	return mc
}

func (r *resolver) element(el *cst.Element, gov model.TypeID, scope registry.Scope, path string) *model.Constraint {
	fail := func(format string, args ...any) *model.Constraint {
		r.errs.Add(&diag.ConstraintError{Module: scope.Module, Type: path, Reason: fmt.Sprintf(format, args...), Pos: el.Pos})
		return nil
	}
	mc := &model.Constraint{Pos: el.Pos, Type: model.NoType}
	switch el.Form {
	case cst.ElemValue:
		mc.Kind = model.SingleValue
		if mc.Value = r.value(el.Value, gov, scope, path); mc.Value == nil {
			return nil
		}
	case cst.ElemRange:
		mc.Kind = model.ValueRange
		mc.Lower = r.value(el.Lower, gov, scope, path)
		mc.Upper = r.value(el.Upper, gov, scope, path)
		if mc.Lower == nil || mc.Upper == nil {
			return nil
		}
		mc.LowerOpen, mc.UpperOpen = el.LowerOpen, el.UpperOpen
	case cst.ElemContained:
		mc.Kind = model.Contained
		mc.Includes = el.Includes
		if mc.Type = r.typeOf(el.Type, scope, path+"<includes>"); mc.Type == model.NoType {
			return nil
		}
	case cst.ElemSize:
		mc.Kind = model.SizeConstraint
		if mc.Inner = r.constraint(el.Constraint, model.BuiltinID(model.KindInteger), scope, path); mc.Inner == nil {
			return nil
		}
	case cst.ElemFrom:
		mc.Kind = model.Alphabet
		if mc.Inner = r.constraint(el.Constraint, gov, scope, path); mc.Inner == nil {
			return nil
		}
	case cst.ElemPattern:
		mc.Kind = model.Pattern
		v := r.value(el.Value, model.BuiltinID(model.KindUniversalString), scope, path)
		if v == nil {
			return nil
		}
		if v.Kind != model.StringValue {
			return fail("PATTERN needs a character string, got %s", v)
		}
		mc.Value, mc.Text = v, v.Text
	case cst.ElemSettings:
		mc.Kind = model.Settings
		mc.Text = el.Settings
	case cst.ElemInnerSingle:
		mc.Kind = model.InnerType
		u := r.p.Underlying(gov)
		if u == nil || !u.Kind.IsCollection() {
			return fail("WITH COMPONENT on a type that is not SEQUENCE OF or SET OF")
		}
		if mc.Inner = r.constraint(el.Constraint, u.Element, scope, path+"[]"); mc.Inner == nil {
			return nil
		}
	case cst.ElemInnerMultiple:
		return r.innerTypes(el, gov, scope, path)
	case cst.ElemNested:
		inner := r.setExpr(el.Nested, gov, scope, path)
		if inner == nil {
			return nil
		}
		// Parentheses only group.
		return inner
	}
	return mc
}

// innerTypes converts WITH COMPONENTS. REAL exposes the mantissa, base and
// exponent of its associated type.
func (r *resolver) innerTypes(el *cst.Element, gov model.TypeID, scope registry.Scope, path string) *model.Constraint {
	u := r.p.Underlying(gov)
	if u == nil {
		return nil
	}
	r.ensureExpanded(u.ID)
	mc := &model.Constraint{Kind: model.InnerTypes, Pos: el.Pos, Type: model.NoType, Partial: el.Partial}
	for _, nc := range el.Named {
		ctype := model.NoType
		switch {
		case u.Kind == model.KindReal:
			if !realComponents[nc.Name] {
				r.errs.Add(&diag.ConstraintError{Module: scope.Module, Type: path, Reason: fmt.Sprintf("REAL has no component %q", nc.Name), Pos: nc.Pos})
				return nil
			}
			ctype = model.BuiltinID(model.KindInteger)
		case u.Kind.IsStructured():
			var comp *model.Component
			for _, c := range u.Components {
				if c.Name == nc.Name {
					comp = c
				}
			}
			if comp == nil {
				r.errs.Add(&diag.ConstraintError{Module: scope.Module, Type: path, Reason: fmt.Sprintf("%s has no component %q", u.DisplayName(), nc.Name), Pos: nc.Pos})
				return nil
			}
			ctype = comp.Type
		case u.Kind == model.KindExternal || u.Kind == model.KindEmbeddedPDV || u.Kind == model.KindCharacterString:
		default:
			r.errs.Add(&diag.ConstraintError{Module: scope.Module, Type: path, Reason: fmt.Sprintf("WITH COMPONENTS on %s", u.Kind), Pos: el.Pos})
			return nil
		}
		cc := model.ComponentConstraint{
			Name: nc.Name,
			Presence: map[cst.Presence]model.Presence{
				cst.PresencePresent:  model.PresencePresent,
				cst.PresenceAbsent:   model.PresenceAbsent,
				cst.PresenceOptional: model.PresenceOptional,
			}[nc.Presence],
		}
		if nc.Constraint != nil {
			if cc.Constraint = r.constraint(nc.Constraint, ctype, scope, path+"."+nc.Name); cc.Constraint == nil {
				return nil
			}
		}
		mc.Components = append(mc.Components, cc)
	}
	return mc
}
