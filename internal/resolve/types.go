package resolve

import (
	"fmt"
	"strings"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/registry"
)

type entKind int

const (
	entNone entKind = iota
	entType
	entValue
	entClass
	entObject
	entObjectSet
	entGeneric
	entBound // a value actual parameter, evaluated against its governor
)

func (k entKind) String() string {
	return [...]string{"nothing", "type", "value", "class", "object", "object set", "parameterized assignment", "value"}[k]
}

// entity is a resolved name.
type entity struct {
	kind    entKind
	t       target
	typ     model.TypeID
	index   int
	binding *registry.Binding
}

// maxInstances bounds the distinct instantiations of one parameterized
// assignment, which catches definitions that expand forever.
const maxInstances = 256

type selection struct {
	owner  model.TypeID
	name   string
	choice model.TypeID
	pos    diag.Pos
	module string
	retry  bool
}

func (r *resolver) builder(scope registry.Scope) *registry.Builder {
	return registry.NewBuilder(scope, r.add, &r.deferred, &r.errs)
}

// entityOf resolves ref in scope. Names bound to actual parameters resolve to
// the actual.
func (r *resolver) entityOf(scope registry.Scope, ref *cst.Reference) (entity, bool) {
	if ref.Module == "" {
		if b := scope.Lookup(ref.Name); b != nil {
			return r.bindingEntity(b)
		}
	}
	t, ok := r.lookup(scope, ref)
	if !ok {
		return entity{}, false
	}
	return r.classify(t), true
}

func (r *resolver) classify(t target) entity {
	if t.sym == nil {
		return entity{kind: entClass, t: t, index: t.builtin}
	}
	home := registry.Scope{Module: t.ms.mod.Name}
	switch t.sym.Kind {
	case registry.SymType:
		if r.aliasesClass(t.ms, t.sym) {
			return entity{kind: entClass, t: t, index: r.classAliasIndex(t.ms, t.sym)}
		}
		return entity{kind: entType, t: t, typ: t.ms.types[t.sym.Name]}
	case registry.SymValue:
		if r.governingClass(home, t.sym.Syntax.Type) >= 0 {
			return entity{kind: entObject, t: t, index: r.namedObject(t.ms, t.sym)}
		}
		return entity{kind: entValue, t: t, index: r.valueDef(t.ms, t.sym)}
	case registry.SymValueSet:
		if r.governingClass(home, t.sym.Syntax.Type) >= 0 {
			return entity{kind: entObjectSet, t: t, index: r.namedObjectSet(t.ms, t.sym)}
		}
		return entity{kind: entType, t: t, typ: r.valueSetType(t.ms, t.sym)}
	case registry.SymClass:
		return entity{kind: entClass, t: t, index: r.class(t.ms, t.sym)}
	}
	return entity{kind: entGeneric, t: t}
}

// aliasesClass reports whether a type assignment is a plain reference that
// ends at a class.
func (r *resolver) aliasesClass(ms *moduleScope, sym *registry.Symbol) bool {
	key := "alias " + sym.Name
	if ms.pending[key] {
		return false
	}
	ms.pending[key] = true
	defer delete(ms.pending, key)

	ref := plainRef(sym.Syntax.Type)
	if ref == nil || ref.Module == "" && r.builtinCl[ref.Name] < 0 {
		return false
	}
	t, ok := r.quietFind(ms.mod.Name, ref)
	if !ok {
		return false
	}
	switch {
	case t.sym == nil:
		return true
	case t.sym.Kind == registry.SymClass:
		return true
	case t.sym.Kind == registry.SymType:
		return r.aliasesClass(t.ms, t.sym)
	}
	return false
}

// quietFind is find without error reporting, for classification questions
// whose errors surface later through ordinary resolution.
func (r *resolver) quietFind(from string, ref *cst.Reference) (target, bool) {
	saved := r.errs
	r.errs = diag.Collector{}
	t, ok := r.find(from, ref.Module, ref.Name, ref.Pos)
	r.errs = saved
	return t, ok
}

func (r *resolver) classAliasIndex(ms *moduleScope, sym *registry.Symbol) int {
	if idx, ok := ms.classes[sym.Name]; ok {
		return idx
	}
	ent, ok := r.entityOf(registry.Scope{Module: ms.mod.Name}, plainRef(sym.Syntax.Type))
	if !ok || ent.kind != entClass {
		return -1
	}
	ms.classes[sym.Name] = ent.index
	return ent.index
}

// plainRef returns the reference of an untagged, unconstrained reference type
// without actual parameters or field names.
func plainRef(t *cst.Type) *cst.Reference {
	if t == nil || t.Form != cst.FormReference || len(t.Constraints) > 0 ||
		len(t.Ref.Actuals) > 0 || len(t.Ref.Fields) > 0 {
		return nil
	}
	return t.Ref
}

// governingClass returns the class a governor names, or -1 when it names a
// type.
func (r *resolver) governingClass(scope registry.Scope, gov *cst.Type) int {
	ref := plainRef(gov)
	if ref == nil {
		return -1
	}
	if ref.Module == "" {
		if b := scope.Lookup(ref.Name); b != nil {
			ent, ok := r.bindingEntity(b)
			if ok && ent.kind == entClass {
				return ent.index
			}
			return -1
		}
	}
	t, ok := r.quietFind(scope.Module, ref)
	if !ok {
		return -1
	}
	if t.sym == nil {
		return t.builtin
	}
	switch t.sym.Kind {
	case registry.SymClass:
		return r.class(t.ms, t.sym)
	case registry.SymType:
		if r.aliasesClass(t.ms, t.sym) {
			return r.classAliasIndex(t.ms, t.sym)
		}
	}
	return -1
}

// typeOf returns the handle of a type written in scope, creating an
// anonymous descriptor when it is not a plain built-in or reference.
func (r *resolver) typeOf(t *cst.Type, scope registry.Scope, path string) model.TypeID {
	if t == nil {
		return model.NoType
	}
	if len(t.Constraints) == 0 {
		switch t.Form {
		case cst.FormBuiltin:
			if k, ok := model.KeywordKind(t.Builtin); ok && len(t.NamedNumbers) == 0 {
				if id := model.BuiltinID(k); id != model.NoType {
					return id
				}
			}
		case cst.FormReference:
			return r.refType(t.Ref, scope)
		case cst.FormAny:
			if t.DefinedBy == "" {
				return model.BuiltinID(model.KindOpenType)
			}
		}
	}
	d := r.builder(scope).Anonymous(path, t)
	r.settle()
	return d.ID
}

// refType resolves a reference used as a type.
func (r *resolver) refType(ref *cst.Reference, scope registry.Scope) model.TypeID {
	ent, ok := r.entityOf(scope, ref)
	if !ok {
		return model.NoType
	}
	if len(ref.Fields) > 0 {
		return r.fieldType(ent, ref, scope)
	}
	switch ent.kind {
	case entType:
		if len(ref.Actuals) > 0 {
			r.errs.Add(&diag.TypeError{Module: scope.Module, Reason: fmt.Sprintf("%s takes no parameters", ref.Name), Pos: ref.Pos})
			return model.NoType
		}
		return ent.typ
	case entGeneric:
		return r.instantiate(ent.t, ref, scope)
	}
	r.errs.Add(&diag.TypeError{Module: scope.Module, Reason: fmt.Sprintf("%s is a %s, not a type", ref.Name, ent.kind), Pos: ref.Pos})
	return model.NoType
}

func (r *resolver) resolveLink(l registry.Link) {
	owner := r.p.Type(l.Owner)
	if l.Target.Form == cst.FormSelection {
		choice := r.typeOf(l.Target.Inner, l.Scope, owner.Path+"<")
		r.selections = append(r.selections, selection{
			owner: l.Owner, name: l.Target.Selection, choice: choice, pos: l.Target.Pos, module: l.Scope.Module,
		})
		return
	}
	var c *model.Component
	if l.Site == registry.SiteComponent {
		c = owner.Components[l.Index]
	}
	var id model.TypeID
	if l.Target.Form == cst.FormReference {
		id = r.refType(l.Target.Ref, l.Scope)
	} else {
		id = r.typeOf(l.Target, l.Scope, owner.Path+".COMPONENTS")
	}
	switch l.Site {
	case registry.SiteBase:
		owner.Base = id
	case registry.SiteElement:
		owner.Element = id
	case registry.SiteComponent:
		c.Type = id
		if c.ComponentsOf && !r.compsSeen[owner.ID] {
			r.compsSeen[owner.ID] = true
			r.compsOf = append(r.compsOf, owner.ID)
		}
	}
}

func (r *resolver) resolveSelection(s selection) {
	owner := r.p.Type(s.owner)
	if s.choice == model.NoType {
		return
	}
	u := r.p.Underlying(s.choice)
	if u.Kind == model.KindReference && !s.retry {
		s.retry = true
		r.selections = append(r.selections, s)
		return
	}
	if u.Kind != model.KindChoice {
		r.errs.Add(&diag.TypeError{Module: s.module, Type: owner.Path, Reason: fmt.Sprintf("selection %q from %s, which is not a CHOICE", s.name, u.DisplayName()), Pos: s.pos})
		return
	}
	for _, c := range u.Components {
		if c.Name == s.name {
			owner.Base = c.Type
			return
		}
	}
	r.errs.Add(&diag.TypeError{Module: s.module, Type: owner.Path, Reason: fmt.Sprintf("%s has no alternative %q", u.DisplayName(), s.name), Pos: s.pos})
}

// instantiate returns the descriptor of a parameterized type applied to the
// actual parameters of ref, creating it on first use.
func (r *resolver) instantiate(t target, ref *cst.Reference, scope registry.Scope) model.TypeID {
	a := t.sym.Syntax
	if len(ref.Actuals) != len(a.Params) {
		r.errs.Add(&diag.TypeError{Module: scope.Module, Reason: fmt.Sprintf("%s takes %d parameters, got %d", a.Name, len(a.Params), len(ref.Actuals)), Pos: ref.Pos})
		return model.NoType
	}
	var body *cst.Type
	switch a.Kind {
	case cst.AssignType:
		body = a.Type
	case cst.AssignValueSet:
		body = withSet(a.Type, a.Set)
	default:
		r.errs.Add(&diag.TypeError{Module: scope.Module, Reason: fmt.Sprintf("parameterized %s %s is not a type", a.Kind, a.Name), Pos: ref.Pos})
		return model.NoType
	}

	home := t.ms.mod.Name
	env := make(registry.Env, len(a.Params))
	keys := make([]string, len(a.Params))
	names := make([]string, len(a.Params))
	for i, p := range a.Params {
		b := &registry.Binding{Param: p, Actual: ref.Actuals[i], Scope: scope, Home: home}
		env[p.Name] = b
		keys[i], names[i] = r.bindingKey(b)
	}
	key := home + "." + a.Name + "{" + strings.Join(keys, ",") + "}"
	if id, ok := r.instances[key]; ok {
		return id
	}
	if r.instCount[home+"."+a.Name]++; r.instCount[home+"."+a.Name] > maxInstances {
		r.errs.Add(&diag.TypeError{Module: scope.Module, Reason: fmt.Sprintf("%s is instantiated without end", a.Name), Pos: ref.Pos})
		return model.NoType
	}
	name := a.Name + "{" + strings.Join(names, ", ") + "}"
	d := r.builder(registry.Scope{Module: home, Env: env}).Named(name, a.Pos, body)
	d.Generic = a.Name
	d.Actuals = names
	r.instances[key] = d.ID
	r.log.Trace("instantiated", "generic", home+"."+a.Name, "instance", name, "id", d.ID)
	r.settle()
	return d.ID
}

// withSet returns gov constrained by a value set, the type a value set
// assignment defines.
func withSet(gov *cst.Type, set *cst.ElementSet) *cst.Type {
	c := &cst.Constraint{Form: cst.ConstraintSubtype, Pos: set.Pos, Set: set}
	if gov.Form == cst.FormTagged {
		out := *gov
		out.Inner = withSet(gov.Inner, set)
		return &out
	}
	out := *gov
	out.Constraints = append(append([]*cst.Constraint(nil), gov.Constraints...), c)
	return &out
}

// bindingKey identifies an actual parameter for memoization and names it for
// display.
func (r *resolver) bindingKey(b *registry.Binding) (key, name string) {
	if k, ok := r.bindKeys[b]; ok {
		return k, r.bindNames[b]
	}
	key, name = r.actualKey(b)
	r.bindKeys[b], r.bindNames[b] = key, name
	return key, name
}

func (r *resolver) actualKey(b *registry.Binding) (string, string) {
	act := b.Actual
	var ref *cst.Reference
	switch {
	case act.Type != nil:
		ref = plainRef(act.Type)
	case act.Value != nil && act.Value.Form == cst.ValueRef:
		ref = act.Value.Ref
	case act.Set != nil:
		ref = singleRef(act.Set)
	}
	if ref != nil {
		if ref.Module == "" {
			if outer := b.Scope.Lookup(ref.Name); outer != nil {
				return r.bindingKey(outer)
			}
		}
		ent, ok := r.entityOf(b.Scope, ref)
		if !ok {
			return "?" + ref.Name, ref.Name
		}
		switch ent.kind {
		case entType:
			return fmt.Sprintf("t%d", ent.typ), ref.Name
		case entClass:
			return fmt.Sprintf("c%d", ent.index), ref.Name
		case entObject:
			return fmt.Sprintf("o%d", ent.index), ref.Name
		case entObjectSet:
			return fmt.Sprintf("s%d", ent.index), ref.Name
		case entValue:
			return fmt.Sprintf("v%d", ent.index), ref.Name
		}
		return "g" + ref.Name, ref.Name
	}
	switch {
	case act.Type != nil:
		id := r.bindingType(b)
		name := string(model.KindReference)
		if t := r.p.Type(id); t != nil {
			name = t.Path
		}
		return fmt.Sprintf("t%d", id), name
	case act.Value != nil:
		text := valueText(act.Value)
		return "v:" + text, text
	}
	return fmt.Sprintf("s:%p", act.Set), "{...}"
}

// bindingType returns the type an actual parameter denotes.
func (r *resolver) bindingType(b *registry.Binding) model.TypeID {
	if id, ok := r.bindTypes[b]; ok {
		return id
	}
	r.bindTypes[b] = model.NoType
	var id model.TypeID
	switch act := b.Actual; {
	case act.Type != nil:
		id = r.typeOf(act.Type, b.Scope, b.Param.Name)
	case act.Set != nil && b.Param.Governor != nil:
		id = r.typeOf(withSet(b.Param.Governor, act.Set), registry.Scope{Module: b.Home}, b.Param.Name)
	default:
		r.errs.Add(&diag.TypeError{Module: b.Scope.Module, Reason: fmt.Sprintf("parameter %s needs a type", b.Param.Name), Pos: act.Pos})
		id = model.NoType
	}
	r.bindTypes[b] = id
	return id
}

// bindingEntity resolves what an actual parameter denotes.
func (r *resolver) bindingEntity(b *registry.Binding) (entity, bool) {
	act := b.Actual
	home := registry.Scope{Module: b.Home}
	switch {
	case act.Type != nil:
		if ref := plainRef(act.Type); ref != nil {
			return r.entityOf(b.Scope, ref)
		}
		return entity{kind: entType, typ: r.bindingType(b)}, true
	case act.Set != nil:
		if ref := singleRef(act.Set); ref != nil {
			return r.entityOf(b.Scope, ref)
		}
		if cl := r.governingClass(home, b.Param.Governor); cl >= 0 {
			return entity{kind: entObjectSet, index: r.boundObjectSet(b, cl)}, true
		}
		return entity{kind: entType, typ: r.bindingType(b)}, true
	case act.Value != nil && act.Value.Form == cst.ValueRef:
		return r.entityOf(b.Scope, act.Value.Ref)
	case act.Value != nil:
		if cl := r.governingClass(home, b.Param.Governor); cl >= 0 {
			return entity{kind: entObject, index: r.boundObject(b, cl)}, true
		}
	}
	return entity{kind: entBound, binding: b}, true
}

// singleRef returns the reference when a set consists of exactly one named
// element, as in "{ObjectSet}".
func singleRef(set *cst.ElementSet) *cst.Reference {
	if set == nil || set.Root == nil || set.Additional != nil || set.Root.Op != cst.OpElement {
		return nil
	}
	el := set.Root.Elem
	switch {
	case el.Form == cst.ElemContained && !el.Includes:
		return plainRef(el.Type)
	case el.Form == cst.ElemValue && el.Value.Form == cst.ValueRef:
		return el.Value.Ref
	}
	return nil
}

// fieldType resolves "X.&a.&b" used as a type.
func (r *resolver) fieldType(ent entity, ref *cst.Reference, scope registry.Scope) model.TypeID {
	fail := func(reason string) model.TypeID {
		r.errs.Add(&diag.TypeError{Module: scope.Module, Reason: reason, Pos: ref.Pos})
		return model.NoType
	}
	cls, obj := -1, -1
	switch ent.kind {
	case entClass:
		cls = ent.index
	case entObjectSet:
		cls = r.classIndex(r.p.ObjectSets[ent.index].Class)
	case entObject:
		obj = ent.index
		cls = r.classIndex(r.p.Objects[obj].Class)
	default:
		return fail(fmt.Sprintf("%s is a %s and has no fields", ref.Name, ent.kind))
	}
	for i, name := range ref.Fields {
		if cls < 0 {
			return model.NoType
		}
		c := r.p.Classes[cls]
		f := c.Field(name)
		if f == nil {
			return fail(fmt.Sprintf("class %s has no field %s", c.Name, name))
		}
		last := i == len(ref.Fields)-1
		var set *model.FieldSetting
		if obj >= 0 {
			set = r.p.Objects[obj].Setting(name)
		}
		if !last {
			if f.Kind != model.ObjectField && f.Kind != model.ObjectSetField {
				return fail(fmt.Sprintf("field %s of %s is not an object field", name, c.Name))
			}
			cls = r.classIndex(f.Class)
			if obj >= 0 && set != nil && f.Kind == model.ObjectField {
				obj = set.Object
			} else {
				obj = -1
			}
			continue
		}
		switch f.Kind {
		case model.TypeField:
			if obj >= 0 {
				if set == nil {
					return fail(fmt.Sprintf("object %s does not set %s", r.p.Objects[obj].Name, name))
				}
				return set.Type
			}
			return r.openType(cls, name)
		case model.FixedTypeValueField, model.FixedTypeValueSetField:
			return f.Type
		case model.VariableTypeValueField:
			if obj >= 0 {
				if ts := r.p.Objects[obj].Setting(f.TypeFrom); ts != nil {
					return ts.Type
				}
			}
			return r.openType(cls, f.TypeFrom)
		}
		return fail(fmt.Sprintf("field %s of %s is not a type", name, c.Name))
	}
	return model.NoType
}

// openType returns the open type descriptor for a type field of a class.
func (r *resolver) openType(cls int, field string) model.TypeID {
	c := r.p.Classes[cls]
	key := fmt.Sprintf("%d%s", cls, field)
	if id, ok := r.openTypes[key]; ok {
		return id
	}
	id := r.add(&model.TypeDescriptor{
		Module:          c.Module,
		Path:            c.Name + "." + field,
		Pos:             c.Pos,
		Kind:            model.KindOpenType,
		Element:         model.NoType,
		Base:            model.BuiltinID(model.KindOpenType),
		ExtensionMarker: -1,
		Class:           c.Name,
		Field:           field,
	})
	r.openTypes[key] = id
	return id
}

// expandComponentsOf replaces COMPONENTS OF placeholders of a SEQUENCE or
// SET with copies of the root components of the referenced type.
func (r *resolver) expandComponentsOf(id model.TypeID, stack []model.TypeID) {
	if r.compsDone[id] {
		return
	}
	r.settle()
	r.flushValues()
	if r.compsDone[id] {
		return
	}
	t := r.p.Types[id]
	for _, s := range stack {
		if s == id {
			r.errs.Add(&diag.TypeError{Module: t.Module, Type: t.Path, Reason: "COMPONENTS OF refers back to this type", Pos: t.Pos})
			return
		}
	}
	stack = append(stack, id)

	var out []*model.Component
	marker := -1
	copied := make(map[string]bool)
	for i, c := range t.Components {
		if i == t.ExtensionMarker {
			marker = len(out)
		}
		if !c.ComponentsOf {
			out = append(out, c)
			continue
		}
		if c.Type == model.NoType {
			continue
		}
		src := r.p.Underlying(c.Type)
		if src.Kind != t.Kind {
			r.errs.Add(&diag.TypeError{Module: t.Module, Type: t.Path, Reason: fmt.Sprintf("COMPONENTS OF %s in a %s", src.DisplayName(), t.Kind), Pos: c.Pos})
			continue
		}
		r.expandComponentsOf(src.ID, stack)
		for _, sc := range src.Components {
			if sc.Extension || sc.ComponentsOf {
				continue
			}
			cp := *sc
			cp.FromComponentsOf = true
			cp.Extension, cp.Group, cp.Version = c.Extension, c.Group, c.Version
			copied[cp.Name] = true
			out = append(out, &cp)
		}
	}
	if t.ExtensionMarker >= len(t.Components) {
		marker = len(out)
	}
	if t.ExtensionMarker >= 0 {
		t.ExtensionMarker = marker
	}
	t.Components = out
	r.compsDone[id] = true

	seen := make(map[string]diag.Pos)
	for _, c := range out {
		if prev, ok := seen[c.Name]; ok && copied[c.Name] {
			r.errs.Add(&diag.DuplicateDefinition{Module: t.Module, Container: t.Path, Name: c.Name, Pos: c.Pos, Previous: prev})
		}
		seen[c.Name] = c.Pos
	}
}

// ensureExpanded expands COMPONENTS OF in the structure behind id before its
// components are read.
func (r *resolver) ensureExpanded(id model.TypeID) {
	u := r.p.Underlying(id)
	if u != nil && r.compsSeen[u.ID] {
		r.expandComponentsOf(u.ID, nil)
	}
}
