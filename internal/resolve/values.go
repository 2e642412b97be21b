package resolve

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/extension"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/registry"
)

// Well-known object identifier arcs that may be written by name alone.
var (
	rootArcs = map[string]int64{
		"itu-t": 0, "ccitt": 0, "iso": 1, "joint-iso-itu-t": 2, "joint-iso-ccitt": 2,
	}
	secondArcs = map[int64]map[string]int64{
		0: {"recommendation": 0, "question": 1, "administration": 2, "network-operator": 3, "identified-organization": 4},
		1: {"standard": 0, "registration-authority": 1, "member-body": 2, "identified-organization": 3},
	}
)

type valueSym struct {
	ms  *moduleScope
	sym *registry.Symbol
}

// flushValues processes every pending value link.
func (r *resolver) flushValues() bool {
	progress := false
	for r.valueNext < len(r.deferred.Values) {
		vl := r.deferred.Values[r.valueNext]
		r.valueNext++
		r.resolveValueLink(vl)
		progress = true
	}
	return progress
}

func (r *resolver) resolveValueLink(vl registry.ValueLink) {
	owner := r.p.Type(vl.Owner)
	switch vl.Site {
	case registry.ValueTypeTag:
		if n, ok := r.tagNumber(vl, owner, ""); ok {
			owner.SourceTag.Number = n
		}
	case registry.ValueComponentTag:
		c := owner.Components[vl.Index]
		if n, ok := r.tagNumber(vl, owner, c.Name); ok {
			c.SourceTag.Number = n
		}
	case registry.ValueNamedNumber:
		nn := &owner.NamedNumbers[vl.Index]
		v := r.value(vl.Value, model.BuiltinID(model.KindInteger), vl.Scope, owner.Path+"."+nn.Name)
		if v.IsInteger() {
			nn.Value = v.Int
		} else if v != nil {
			r.errs.Add(&diag.ValueError{Module: vl.Scope.Module, Name: owner.Path + "." + nn.Name, Reason: "named number is not an integer", Pos: vl.Value.Pos})
		}
	case registry.ValueEnumNumber:
		c := owner.Components[vl.Index]
		v := r.value(vl.Value, model.BuiltinID(model.KindInteger), vl.Scope, owner.Path+"."+c.Name)
		switch {
		case v == nil:
		case !v.IsInteger() || !v.Int.IsInt64():
			r.errs.Add(&diag.EnumerationError{Module: vl.Scope.Module, Type: owner.Path, Reason: fmt.Sprintf("number of %q is not a 64-bit integer", c.Name), Pos: vl.Value.Pos})
		default:
			c.Number = v.Int.Int64()
		}
	case registry.ValueDefault:
		c := owner.Components[vl.Index]
		c.Default = r.value(vl.Value, c.Type, vl.Scope, owner.Path+"."+c.Name)
	}
}

func (r *resolver) tagNumber(vl registry.ValueLink, owner *model.TypeDescriptor, comp string) (int64, bool) {
	v := r.value(vl.Value, model.BuiltinID(model.KindInteger), vl.Scope, owner.Path)
	if v == nil {
		return 0, false
	}
	if !v.IsInteger() || v.Int.Sign() < 0 || !v.Int.IsInt64() {
		r.errs.Add(&diag.TagError{Module: vl.Scope.Module, Type: owner.Path, Component: comp, Reason: fmt.Sprintf("tag number %s is not a non-negative integer", v), Pos: vl.Value.Pos})
		return 0, false
	}
	return v.Int.Int64(), true
}

// valueDef returns the index of a value assignment's ValueDef, creating an
// unevaluated one on first use.
func (r *resolver) valueDef(ms *moduleScope, sym *registry.Symbol) int {
	if idx, ok := ms.values[sym.Name]; ok {
		return idx
	}
	idx := len(r.p.Values)
	r.p.Values = append(r.p.Values, &model.ValueDef{
		Module: ms.mod.Name,
		Name:   sym.Name,
		Pos:    sym.Syntax.Pos,
		Type:   model.NoType,
		Syntax: sym.Syntax.Value,
	})
	r.valueSyms = append(r.valueSyms, valueSym{ms: ms, sym: sym})
	ms.values[sym.Name] = idx
	return idx
}

// evalDef evaluates a value assignment against its governor once.
func (r *resolver) evalDef(idx int) *model.ValueDef {
	def := r.p.Values[idx]
	if r.valueDone[idx] {
		return def
	}
	vs := r.valueSyms[idx]
	key := "value " + def.Name
	if vs.ms.pending[key] {
		r.errs.Add(&diag.ValueError{Module: def.Module, Name: def.Name, Reason: "value is defined in terms of itself", Pos: def.Pos})
		return def
	}
	vs.ms.pending[key] = true
	defer delete(vs.ms.pending, key)

	scope := registry.Scope{Module: def.Module}
	def.Type = r.typeOf(vs.sym.Syntax.Type, scope, def.Name)
	def.Value = r.value(vs.sym.Syntax.Value, def.Type, scope, def.Name)
	r.valueDone[idx] = true
	return def
}

// value evaluates v against the governing type gov. It returns nil after
// reporting an error.
func (r *resolver) value(v *cst.Value, gov model.TypeID, scope registry.Scope, name string) *model.Value {
	if v == nil {
		return nil
	}
	fail := func(format string, args ...any) *model.Value {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: fmt.Sprintf(format, args...), Pos: v.Pos})
		return nil
	}
	u := r.p.Underlying(gov)
	kind := model.KindReference
	if u != nil {
		kind = u.Kind
	}
	switch v.Form {
	case cst.ValueNumber:
		n, ok := new(big.Int).SetString(v.Text, 10)
		if !ok {
			return fail("bad number %q", v.Text)
		}
		if kind == model.KindReal {
			f, _ := new(big.Float).SetInt(n).Float64()
			return &model.Value{Kind: model.RealValue, Real: f}
		}
		return &model.Value{Kind: model.IntegerValue, Int: n}
	case cst.ValueReal:
		f, err := strconv.ParseFloat(v.Text, 64)
		if err != nil {
			return fail("bad real %q", v.Text)
		}
		return &model.Value{Kind: model.RealValue, Real: f}
	case cst.ValueBoolean:
		return &model.Value{Kind: model.BooleanValue, Bool: v.Bool}
	case cst.ValueNull:
		return &model.Value{Kind: model.NullValue}
	case cst.ValueCString:
		return &model.Value{Kind: model.StringValue, Text: v.Text}
	case cst.ValueBString:
		return &model.Value{Kind: model.BitsValue, Text: v.Text}
	case cst.ValueHString:
		return &model.Value{Kind: model.HexValue, Text: v.Text}
	case cst.ValueMin:
		return &model.Value{Kind: model.MinValue}
	case cst.ValueMax:
		return &model.Value{Kind: model.MaxValue}
	case cst.ValuePlusInfinity:
		return &model.Value{Kind: model.PlusInfinityValue}
	case cst.ValueMinusInfinity:
		return &model.Value{Kind: model.MinusInfinityValue}
	case cst.ValueNotANumber:
		return &model.Value{Kind: model.NotANumberValue}
	case cst.ValueRef:
		return r.refValue(v.Ref, u, scope, name)
	case cst.ValueNamedNumber:
		inner := r.value(v.Inner, model.BuiltinID(model.KindInteger), scope, name)
		if inner == nil {
			return nil
		}
		return &model.Value{Kind: model.IdentifierValue, Text: v.Name, Int: inner.Int}
	case cst.ValueChoice:
		if kind != model.KindChoice {
			return fail("choice value %s for %s", v.Name, kind)
		}
		for _, c := range u.Components {
			if c.Name == v.Name {
				inner := r.value(v.Inner, c.Type, scope, name+"."+c.Name)
				if inner == nil {
					return nil
				}
				return &model.Value{Kind: model.ChoiceValue, Text: v.Name, Inner: inner}
			}
		}
		return fail("%s has no alternative %q", u.DisplayName(), v.Name)
	case cst.ValueBraced:
		if v.Opaque {
			return fail("cannot read braced value without a class")
		}
		return r.braced(v, u, scope, name)
	}
	return fail("unsupported value")
}

// refValue evaluates a reference in value position: a value parameter, a
// name defined by the governor, or a value assignment.
func (r *resolver) refValue(ref *cst.Reference, gov *model.TypeDescriptor, scope registry.Scope, name string) *model.Value {
	if ref.Module == "" && len(ref.Fields) == 0 {
		if b := scope.Lookup(ref.Name); b != nil {
			return r.boundValue(b, gov, name)
		}
		if v := r.governorName(gov, ref.Name); v != nil {
			return v
		}
	}
	ent, ok := r.entityOf(scope, ref)
	if !ok {
		return nil
	}
	if len(ref.Fields) > 0 {
		return r.fieldValue(ent, ref, scope, name)
	}
	switch ent.kind {
	case entValue:
		def := r.evalDef(ent.index)
		if def.Value == nil {
			return nil
		}
		out := *def.Value
		out.Ref = def.Module + "." + def.Name
		return &out
	case entBound:
		return r.boundValue(ent.binding, gov, name)
	}
	r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: fmt.Sprintf("%s is a %s, not a value", ref.Name, ent.kind), Pos: ref.Pos})
	return nil
}

func (r *resolver) boundValue(b *registry.Binding, gov *model.TypeDescriptor, name string) *model.Value {
	if b.Actual.Value == nil {
		r.errs.Add(&diag.ValueError{Module: b.Scope.Module, Name: name, Reason: fmt.Sprintf("parameter %s is not a value", b.Param.Name), Pos: b.Actual.Pos})
		return nil
	}
	id := model.NoType
	if gov != nil {
		id = gov.ID
	}
	if b.Param.Governor != nil {
		if g := r.typeOf(b.Param.Governor, registry.Scope{Module: b.Home}, b.Param.Name); g != model.NoType {
			id = g
		}
	}
	return r.value(b.Actual.Value, id, b.Scope, name)
}

// governorName resolves an identifier defined by the governing type itself:
// a named number, an enumeration literal or a named bit.
func (r *resolver) governorName(gov *model.TypeDescriptor, name string) *model.Value {
	if gov == nil {
		return nil
	}
	if gov.Kind == model.KindEnumerated {
		for i, c := range gov.Components {
			if c.Name != name {
				continue
			}
			r.flushValues()
			v := &model.Value{Kind: model.IdentifierValue, Text: name}
			if nums, err := extension.Numbers(gov); err == nil {
				v.Int = big.NewInt(nums[i])
			}
			return v
		}
		return nil
	}
	for i := range gov.NamedNumbers {
		nn := &gov.NamedNumbers[i]
		if nn.Name != name {
			continue
		}
		if nn.Value == nil {
			r.flushValues()
		}
		v := &model.Value{Kind: model.IdentifierValue, Text: name}
		if nn.Value != nil {
			v.Int = new(big.Int).Set(nn.Value)
		}
		return v
	}
	return nil
}

// fieldValue evaluates "object.&field".
func (r *resolver) fieldValue(ent entity, ref *cst.Reference, scope registry.Scope, name string) *model.Value {
	fail := func(reason string) *model.Value {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: reason, Pos: ref.Pos})
		return nil
	}
	if ent.kind != entObject {
		return fail(fmt.Sprintf("%s is a %s, not an object", ref.Name, ent.kind))
	}
	obj := r.p.Objects[ent.index]
	for i, f := range ref.Fields {
		s := obj.Setting(f)
		if s == nil {
			return fail(fmt.Sprintf("object %s does not set %s", ref.Name, f))
		}
		if i == len(ref.Fields)-1 {
			if s.Value == nil {
				return fail(fmt.Sprintf("field %s of %s is not a value", f, ref.Name))
			}
			return s.Value
		}
		if s.Objects != nil || s.Value != nil || s.Type != model.NoType {
			return fail(fmt.Sprintf("field %s of %s is not an object", f, ref.Name))
		}
		obj = r.p.Objects[s.Object]
	}
	return nil
}

// braced interprets a braced value by the kind of its governor, falling back
// to its shape when the governor is unknown.
func (r *resolver) braced(v *cst.Value, gov *model.TypeDescriptor, scope registry.Scope, name string) *model.Value {
	fail := func(format string, args ...any) *model.Value {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: fmt.Sprintf(format, args...), Pos: v.Pos})
		return nil
	}
	kind := model.KindReference
	if gov != nil {
		kind = gov.Kind
	}
	switch kind {
	case model.KindObjectIdentifier, model.KindRelativeOID:
		return r.oid(v, scope, name, kind == model.KindObjectIdentifier)
	case model.KindSequence, model.KindSet:
		r.ensureExpanded(gov.ID)
		out := &model.Value{Kind: model.SequenceValue}
		for _, g := range v.Groups {
			if len(g) != 2 || g[0].Form != cst.ValueRef || g[0].Ref.Module != "" {
				return fail("expected \"name value\" in %s value", kind)
			}
			field := g[0].Ref.Name
			var comp *model.Component
			for _, c := range gov.Components {
				if c.Name == field {
					comp = c
				}
			}
			if comp == nil {
				return fail("%s has no component %q", gov.DisplayName(), field)
			}
			fv := r.value(g[1], comp.Type, scope, name+"."+field)
			if fv == nil {
				return nil
			}
			out.Fields = append(out.Fields, model.NamedValue{Name: field, Value: fv})
		}
		return out
	case model.KindSequenceOf, model.KindSetOf:
		out := &model.Value{Kind: model.ListValue, Items: []*model.Value{}}
		for i, g := range v.Groups {
			item := g[len(g)-1]
			if len(g) > 2 || len(g) == 2 && g[0].Form != cst.ValueRef {
				return fail("bad element %d of %s value", i, kind)
			}
			iv := r.value(item, gov.Element, scope, fmt.Sprintf("%s[%d]", name, i))
			if iv == nil {
				return nil
			}
			out.Items = append(out.Items, iv)
		}
		return out
	case model.KindBitString:
		out := &model.Value{Kind: model.ListValue, Items: []*model.Value{}}
		for _, g := range v.Groups {
			if len(g) != 1 || g[0].Form != cst.ValueRef {
				return fail("expected named bits in BIT STRING value")
			}
			bit := r.governorName(gov, g[0].Ref.Name)
			if bit == nil {
				return fail("%s has no named bit %q", gov.DisplayName(), g[0].Ref.Name)
			}
			out.Items = append(out.Items, bit)
		}
		return out
	case model.KindReference:
		return r.shaped(v, scope, name)
	}
	return fail("braced value for %s", kind)
}

// shaped reads a braced value without a known governor.
func (r *resolver) shaped(v *cst.Value, scope registry.Scope, name string) *model.Value {
	switch {
	case len(v.Groups) == 1 && len(v.Groups[0]) > 1 && v.Groups[0][0].Form != cst.ValueRef ||
		len(v.Groups) == 1 && len(v.Groups[0]) > 2:
		return r.oid(v, scope, name, true)
	case allPairs(v.Groups):
		out := &model.Value{Kind: model.SequenceValue}
		for _, g := range v.Groups {
			fv := r.value(g[1], model.NoType, scope, name+"."+g[0].Ref.Name)
			if fv == nil {
				return nil
			}
			out.Fields = append(out.Fields, model.NamedValue{Name: g[0].Ref.Name, Value: fv})
		}
		return out
	}
	out := &model.Value{Kind: model.ListValue, Items: []*model.Value{}}
	for i, g := range v.Groups {
		if len(g) != 1 {
			r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: "cannot read braced value", Pos: v.Pos})
			return nil
		}
		iv := r.value(g[0], model.NoType, scope, fmt.Sprintf("%s[%d]", name, i))
		if iv == nil {
			return nil
		}
		out.Items = append(out.Items, iv)
	}
	return out
}

func allPairs(groups [][]*cst.Value) bool {
	if len(groups) == 0 {
		return false
	}
	for _, g := range groups {
		if len(g) != 2 || g[0].Form != cst.ValueRef || g[0].Ref.Module != "" {
			return false
		}
	}
	return true
}

// oid reads the arcs of an object identifier or relative OID value. A
// leading reference to another OID value is spliced in.
func (r *resolver) oid(v *cst.Value, scope registry.Scope, name string, absolute bool) *model.Value {
	fail := func(format string, args ...any) *model.Value {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: fmt.Sprintf(format, args...), Pos: v.Pos})
		return nil
	}
	if len(v.Groups) > 1 {
		return fail("object identifier arcs are not separated by commas")
	}
	out := &model.Value{Kind: model.OIDValue, Arcs: []model.OIDArc{}}
	var atoms []*cst.Value
	if len(v.Groups) == 1 {
		atoms = v.Groups[0]
	}
	for i, a := range atoms {
		switch a.Form {
		case cst.ValueNumber:
			n, _ := registry.LiteralInt(a)
			if n == nil || n.Sign() < 0 {
				return fail("bad arc %q", a.Text)
			}
			out.Arcs = append(out.Arcs, model.OIDArc{Number: n})
		case cst.ValueNamedNumber:
			n := r.value(a.Inner, model.BuiltinID(model.KindInteger), scope, name)
			if n == nil || !n.IsInteger() || n.Int.Sign() < 0 {
				return fail("bad arc %s", a.Name)
			}
			out.Arcs = append(out.Arcs, model.OIDArc{Name: a.Name, Number: n.Int})
		case cst.ValueRef:
			if arc, ok := wellKnownArc(out.Arcs, a.Ref, absolute); ok {
				out.Arcs = append(out.Arcs, arc)
				continue
			}
			rv := r.refValue(a.Ref, nil, scope, name)
			switch {
			case rv == nil:
				return nil
			case rv.Kind == model.OIDValue && i == 0:
				out.Arcs = append(out.Arcs, rv.Arcs...)
			case rv.IsInteger():
				out.Arcs = append(out.Arcs, model.OIDArc{Name: a.Ref.Name, Number: rv.Int})
			default:
				return fail("%s is not an arc", a.Ref.Name)
			}
		default:
			return fail("bad arc")
		}
	}
	return out
}

func wellKnownArc(prefix []model.OIDArc, ref *cst.Reference, absolute bool) (model.OIDArc, bool) {
	if !absolute || ref.Module != "" {
		return model.OIDArc{}, false
	}
	switch len(prefix) {
	case 0:
		if n, ok := rootArcs[ref.Name]; ok {
			return model.OIDArc{Name: ref.Name, Number: big.NewInt(n)}, true
		}
	case 1:
		if prefix[0].Number.IsInt64() {
			if n, ok := secondArcs[prefix[0].Number.Int64()][ref.Name]; ok {
				return model.OIDArc{Name: ref.Name, Number: big.NewInt(n)}, true
			}
		}
	}
	return model.OIDArc{}, false
}

// valueText renders a value for instance names and memo keys.
func valueText(v *cst.Value) string {
	switch v.Form {
	case cst.ValueRef:
		if v.Ref.Module != "" {
			return v.Ref.Module + "." + v.Ref.Name
		}
		return v.Ref.Name
	case cst.ValueCString:
		return strconv.Quote(v.Text)
	case cst.ValueBString:
		return "'" + v.Text + "'B"
	case cst.ValueHString:
		return "'" + v.Text + "'H"
	case cst.ValueBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case cst.ValueNull:
		return "NULL"
	case cst.ValueBraced:
		parts := make([]string, len(v.Tokens))
		for i, t := range v.Tokens {
			parts[i] = t.Text
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return v.Text
}
