package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/parse"
	"github.com/phobologic/asn1ir/internal/registry"
)

// classKey is the name under which a class is recorded in field specs,
// objects and open types.
func classKey(c *model.Class) string {
	if c.Module == "" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

func (r *resolver) classIndex(key string) int {
	if idx, ok := r.classByKey[key]; ok {
		return idx
	}
	return -1
}

// class resolves a class assignment.
func (r *resolver) class(ms *moduleScope, sym *registry.Symbol) int {
	if idx, ok := ms.classes[sym.Name]; ok {
		return idx
	}
	a := sym.Syntax
	scope := registry.Scope{Module: ms.mod.Name}
	if a.Class.Ref != nil {
		key := "class " + sym.Name
		if ms.pending[key] {
			r.errs.Add(&diag.TypeError{Module: ms.mod.Name, Type: sym.Name, Reason: "class is defined in terms of itself", Pos: a.Pos})
			return -1
		}
		ms.pending[key] = true
		defer delete(ms.pending, key)
		ent, ok := r.entityOf(scope, a.Class.Ref)
		if !ok {
			return -1
		}
		if ent.kind != entClass {
			r.errs.Add(&diag.TypeError{Module: ms.mod.Name, Type: sym.Name, Reason: fmt.Sprintf("%s is a %s, not a class", a.Class.Ref.Name, ent.kind), Pos: a.Pos})
			return -1
		}
		ms.classes[sym.Name] = ent.index
		return ent.index
	}

	c := &model.Class{Module: ms.mod.Name, Name: sym.Name, Pos: a.Pos, Syntax: a.Class.Syntax}
	idx := len(r.p.Classes)
	r.p.Classes = append(r.p.Classes, c)
	ms.classes[sym.Name] = idx
	r.classByKey[classKey(c)] = idx

	seen := make(map[string]diag.Pos)
	for _, f := range a.Class.Fields {
		if prev, ok := seen[f.Name]; ok {
			r.errs.Add(&diag.DuplicateDefinition{Module: ms.mod.Name, Container: sym.Name, Name: f.Name, Pos: f.Pos, Previous: prev})
			continue
		}
		seen[f.Name] = f.Pos
		c.Fields = append(c.Fields, r.fieldSpec(c, f, scope))
	}
	for _, f := range c.Fields {
		if f.Kind != model.VariableTypeValueField {
			continue
		}
		if tf := c.Field(f.TypeFrom); tf == nil || tf.Kind != model.TypeField {
			r.errs.Add(&diag.TypeError{Module: ms.mod.Name, Type: sym.Name, Reason: fmt.Sprintf("field %s takes its type from %s, which is not a type field", f.Name, f.TypeFrom), Pos: a.Pos})
		}
	}
	for _, t := range c.Syntax {
		if t.Kind == cst.SyntaxField && c.Field(t.Text) == nil {
			r.errs.Add(&diag.TypeError{Module: ms.mod.Name, Type: sym.Name, Reason: fmt.Sprintf("WITH SYNTAX names unknown field %s", t.Text), Pos: a.Pos})
		}
	}
	r.log.Trace("resolved class", "class", classKey(c), "fields", len(c.Fields))
	return idx
}

func (r *resolver) fieldSpec(c *model.Class, f *cst.FieldSpec, scope registry.Scope) *model.FieldSpec {
	fs := &model.FieldSpec{
		Name:        f.Name,
		Type:        model.NoType,
		DefaultType: model.NoType,
		Unique:      f.Unique,
		Optional:    f.Optional,
	}
	path := c.Name + "." + f.Name
	def := &model.FieldSetting{Field: f.Name, Type: model.NoType}
	hasDefault := f.DefaultType != nil || f.DefaultValue != nil || f.DefaultSet != nil

	switch {
	case f.Type == nil:
		fs.Kind = model.TypeField
		if f.DefaultType != nil {
			fs.DefaultType = r.typeOf(f.DefaultType, scope, path)
			def.Type = fs.DefaultType
		}
	case f.Type.Form == cst.FormReference && f.Type.Ref.Name == "" && len(f.Type.Ref.Fields) == 1:
		fs.Kind = model.VariableTypeValueField
		fs.TypeFrom = f.Type.Ref.Fields[0]
		if f.DefaultValue != nil {
			fs.DefaultValue = r.value(f.DefaultValue, model.NoType, scope, path)
			def.Value = fs.DefaultValue
		}
	default:
		if cls := r.governingClass(scope, f.Type); cls >= 0 {
			fs.Class = classKey(r.p.Classes[cls])
			if f.IsTypeField() {
				fs.Kind = model.ObjectSetField
				if f.DefaultSet != nil {
					def.Objects = r.p.ObjectSets[r.objectSet(cls, f.DefaultSet, scope, path)].Objects
				}
			} else {
				fs.Kind = model.ObjectField
				if f.DefaultValue != nil {
					def.Object = r.objectValue(cls, f.DefaultValue, scope, "")
				}
			}
			break
		}
		fs.Type = r.typeOf(f.Type, scope, path)
		if f.IsTypeField() {
			fs.Kind = model.FixedTypeValueSetField
			if f.DefaultSet != nil {
				def.Values = r.elementSet(f.DefaultSet, fs.Type, scope, path)
			}
		} else {
			fs.Kind = model.FixedTypeValueField
			if f.DefaultValue != nil {
				fs.DefaultValue = r.value(f.DefaultValue, fs.Type, scope, path)
				def.Value = fs.DefaultValue
			}
		}
	}
	if hasDefault {
		fs.HasDefault = true
		r.fieldDefaults[fs] = def
	}
	return fs
}

// namedObject resolves an object assignment.
func (r *resolver) namedObject(ms *moduleScope, sym *registry.Symbol) int {
	if idx, ok := ms.objects[sym.Name]; ok {
		return idx
	}
	scope := registry.Scope{Module: ms.mod.Name}
	cls := r.governingClass(scope, sym.Syntax.Type)
	idx := r.newObject(cls, scope.Module, sym.Name, sym.Syntax.Pos)
	ms.objects[sym.Name] = idx
	r.defineObject(r.p.Objects[idx], cls, sym.Syntax.Value, scope)
	return idx
}

func (r *resolver) newObject(cls int, module, name string, pos diag.Pos) int {
	o := &model.Object{Module: module, Name: name, Pos: pos}
	if cls >= 0 {
		o.Class = classKey(r.p.Classes[cls])
	}
	r.p.Objects = append(r.p.Objects, o)
	return len(r.p.Objects) - 1
}

// objectValue returns the object a value denotes: a reference to an object
// or an inline object definition.
func (r *resolver) objectValue(cls int, v *cst.Value, scope registry.Scope, name string) int {
	switch v.Form {
	case cst.ValueRef:
		ent, ok := r.entityOf(scope, v.Ref)
		if !ok {
			return -1
		}
		if len(v.Ref.Fields) > 0 {
			return r.fieldObject(ent, v.Ref, scope)
		}
		if ent.kind != entObject {
			r.errs.Add(&diag.ValueError{Module: scope.Module, Name: v.Ref.Name, Reason: fmt.Sprintf("%s is a %s, not an object", v.Ref.Name, ent.kind), Pos: v.Pos})
			return -1
		}
		return ent.index
	case cst.ValueBraced:
		if cls < 0 {
			r.errs.Add(&diag.ValueError{Module: scope.Module, Name: valueText(v), Reason: "object definition without a governing class", Pos: v.Pos})
			return -1
		}
		idx := r.newObject(cls, scope.Module, name, v.Pos)
		r.defineObject(r.p.Objects[idx], cls, v, scope)
		return idx
	}
	r.errs.Add(&diag.ValueError{Module: scope.Module, Name: valueText(v), Reason: "not an object", Pos: v.Pos})
	return -1
}

// fieldObject resolves "object.&field" naming an object.
func (r *resolver) fieldObject(ent entity, ref *cst.Reference, scope registry.Scope) int {
	if ent.kind != entObject {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: ref.Name, Reason: fmt.Sprintf("%s is a %s, not an object", ref.Name, ent.kind), Pos: ref.Pos})
		return -1
	}
	obj := ent.index
	for _, f := range ref.Fields {
		cls := r.classIndex(r.p.Objects[obj].Class)
		if cls < 0 {
			return -1
		}
		s := r.p.Objects[obj].Setting(f)
		if fs := r.p.Classes[cls].Field(f); s == nil || fs == nil || fs.Kind != model.ObjectField || s.Object < 0 {
			r.errs.Add(&diag.ValueError{Module: scope.Module, Name: ref.Name, Reason: fmt.Sprintf("%s does not set object field %s", ref.Name, f), Pos: ref.Pos})
			return -1
		}
		obj = s.Object
	}
	return obj
}

// defineObject reads the settings of an object definition, using the class's
// WITH SYNTAX when it has one and "&field setting, ..." otherwise.
func (r *resolver) defineObject(o *model.Object, cls int, v *cst.Value, scope registry.Scope) {
	name := o.Name
	if name == "" {
		name = valueText(v)
	}
	fail := func(reason string) {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: reason, Pos: v.Pos})
	}
	if cls < 0 {
		return
	}
	if v.Form != cst.ValueBraced {
		fail("object definition must be braced")
		return
	}
	c := r.p.Classes[cls]
	end := cst.Token{Pos: v.Pos}
	if n := len(v.Tokens); n > 0 {
		end.Pos = v.Tokens[n-1].Pos
	}
	frag := parse.NewFragmentParser(v.Tokens, end)
	written := make(map[string]*cst.Actual)
	var err error
	if c.Syntax != nil {
		err = matchSyntax(frag, c.Syntax, written)
		if err == nil && !frag.AtEnd() {
			err = frag.Fail("end of object definition")
		}
	} else {
		err = defaultSyntax(frag, c, written)
	}
	if err != nil {
		fail("bad object definition: " + syntaxReason(err))
		return
	}

	byField := make(map[string]*model.FieldSetting)
	types := make(map[string]model.TypeID)
	for pass := 0; pass < 2; pass++ {
		for _, fs := range c.Fields {
			if (fs.Kind == model.TypeField) != (pass == 0) {
				continue
			}
			act, ok := written[fs.Name]
			if !ok {
				if def, ok := r.fieldDefaults[fs]; ok {
					cp := *def
					byField[fs.Name] = &cp
					types[fs.Name] = cp.Type
				} else if !fs.Optional {
					fail(fmt.Sprintf("required field %s of %s is not set", fs.Name, c.Name))
				}
				continue
			}
			s := r.setting(fs, act, types, scope, name)
			if s != nil {
				byField[fs.Name] = s
				types[fs.Name] = s.Type
			}
		}
	}
	for _, fs := range c.Fields {
		if s, ok := byField[fs.Name]; ok {
			o.Settings = append(o.Settings, s)
		}
	}
}

func (r *resolver) setting(fs *model.FieldSpec, act *cst.Actual, types map[string]model.TypeID, scope registry.Scope, name string) *model.FieldSetting {
	path := name + "." + fs.Name
	s := &model.FieldSetting{Field: fs.Name, Type: model.NoType}
	mismatch := func() *model.FieldSetting {
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: name, Reason: fmt.Sprintf("setting of %s field %s has the wrong form", fs.Kind, fs.Name), Pos: act.Pos})
		return nil
	}
	switch fs.Kind {
	case model.TypeField:
		if act.Type == nil {
			return mismatch()
		}
		s.Type = r.typeOf(act.Type, scope, path)
	case model.FixedTypeValueField, model.VariableTypeValueField:
		if act.Value == nil {
			return mismatch()
		}
		gov := fs.Type
		if fs.Kind == model.VariableTypeValueField {
			gov = types[fs.TypeFrom]
		}
		if s.Value = r.value(act.Value, gov, scope, path); s.Value == nil {
			return nil
		}
	case model.FixedTypeValueSetField:
		switch {
		case act.Set != nil:
			s.Values = r.elementSet(act.Set, fs.Type, scope, path)
		case act.Type != nil:
			s.Values = &model.Constraint{Kind: model.Contained, Pos: act.Pos, Type: r.typeOf(act.Type, scope, path)}
		default:
			return mismatch()
		}
	case model.ObjectField:
		if act.Value == nil {
			return mismatch()
		}
		s.Object = r.objectValue(r.classIndex(fs.Class), act.Value, scope, "")
	case model.ObjectSetField:
		cls := r.classIndex(fs.Class)
		switch {
		case act.Set != nil:
			s.Objects = r.p.ObjectSets[r.objectSet(cls, act.Set, scope, path)].Objects
		case plainRef(act.Type) != nil:
			ent, ok := r.entityOf(scope, act.Type.Ref)
			if !ok {
				return nil
			}
			if ent.kind != entObjectSet {
				return mismatch()
			}
			s.Objects = r.p.ObjectSets[ent.index].Objects
		default:
			return mismatch()
		}
	}
	return s
}

// matchSyntax reads an object definition against WITH SYNTAX tokens. An
// optional group is present when its first literal is.
func matchSyntax(f *parse.Fragment, toks []cst.SyntaxToken, out map[string]*cst.Actual) error {
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case cst.SyntaxLiteral:
			if !literalNext(f, t.Text) {
				return f.Fail(`"` + t.Text + `"`)
			}
			f.Next()
		case cst.SyntaxField:
			act, err := f.Setting(t.Text)
			if err != nil {
				return err
			}
			out[t.Text] = act
		case cst.SyntaxOptionalStart:
			end := groupEnd(toks, i)
			group := toks[i+1 : end]
			if groupPresent(f, group) {
				if err := matchSyntax(f, group, out); err != nil {
					return err
				}
			}
			i = end
		}
	}
	return nil
}

func literalNext(f *parse.Fragment, text string) bool {
	t := f.Peek()
	return t.Text == text && t.Kind != cst.TokCString && t.Kind != cst.TokEOF
}

func groupEnd(toks []cst.SyntaxToken, start int) int {
	depth := 0
	for i := start; i < len(toks); i++ {
		switch toks[i].Kind {
		case cst.SyntaxOptionalStart:
			depth++
		case cst.SyntaxOptionalEnd:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

func groupPresent(f *parse.Fragment, group []cst.SyntaxToken) bool {
	for _, t := range group {
		switch t.Kind {
		case cst.SyntaxLiteral:
			return literalNext(f, t.Text)
		case cst.SyntaxField:
			return !f.AtEnd()
		}
	}
	return false
}

// defaultSyntax reads "&field setting, ...".
func defaultSyntax(f *parse.Fragment, c *model.Class, out map[string]*cst.Actual) error {
	for !f.AtEnd() {
		t := f.Peek()
		if t.Kind != cst.TokTypeField && t.Kind != cst.TokValueField {
			return f.Fail("field reference")
		}
		if c.Field(t.Text) == nil {
			return fmt.Errorf("class %s has no field %s", c.Name, t.Text)
		}
		f.Next()
		act, err := f.Setting(t.Text)
		if err != nil {
			return err
		}
		out[t.Text] = act
		if f.AtEnd() {
			break
		}
		if !literalNext(f, ",") {
			return f.Fail(`","`)
		}
		f.Next()
	}
	return nil
}

func syntaxReason(err error) string {
	var pe *diag.ParseError
	if !errors.As(err, &pe) {
		return err.Error()
	}
	if len(pe.Expected) == 0 {
		return "unexpected " + pe.Found
	}
	return fmt.Sprintf("expected %s, found %s", strings.Join(pe.Expected, " or "), pe.Found)
}

// namedObjectSet resolves an object set assignment.
func (r *resolver) namedObjectSet(ms *moduleScope, sym *registry.Symbol) int {
	if idx, ok := ms.objectSets[sym.Name]; ok {
		return idx
	}
	scope := registry.Scope{Module: ms.mod.Name}
	cls := r.governingClass(scope, sym.Syntax.Type)
	os := &model.ObjectSet{Module: ms.mod.Name, Name: sym.Name, Pos: sym.Syntax.Pos}
	idx := len(r.p.ObjectSets)
	r.p.ObjectSets = append(r.p.ObjectSets, os)
	ms.objectSets[sym.Name] = idx
	r.fillObjectSet(os, cls, sym.Syntax.Set, scope)
	return idx
}

// objectSet records an anonymous object set written inline.
func (r *resolver) objectSet(cls int, set *cst.ElementSet, scope registry.Scope, path string) int {
	os := &model.ObjectSet{Module: scope.Module, Pos: set.Pos}
	idx := len(r.p.ObjectSets)
	r.p.ObjectSets = append(r.p.ObjectSets, os)
	r.fillObjectSet(os, cls, set, scope)
	r.log.Trace("inline object set", "at", path, "objects", len(os.Objects))
	return idx
}

func (r *resolver) boundObjectSet(b *registry.Binding, cls int) int {
	if idx, ok := r.boundSets[b]; ok {
		return idx
	}
	idx := r.objectSet(cls, b.Actual.Set, b.Scope, b.Param.Name)
	r.boundSets[b] = idx
	return idx
}

func (r *resolver) boundObject(b *registry.Binding, cls int) int {
	if idx, ok := r.boundObjs[b]; ok {
		return idx
	}
	idx := r.objectValue(cls, b.Actual.Value, b.Scope, "")
	r.boundObjs[b] = idx
	return idx
}

func (r *resolver) fillObjectSet(os *model.ObjectSet, cls int, set *cst.ElementSet, scope registry.Scope) {
	if cls >= 0 {
		os.Class = classKey(r.p.Classes[cls])
	}
	os.Extensible = set.Extensible
	if set.Root != nil {
		os.Objects = r.collectObjects(set.Root, cls, scope)
	}
	if set.Additional != nil {
		os.Objects = appendNew(os.Objects, r.collectObjects(set.Additional, cls, scope)...)
	}
	if os.Class == "" && len(os.Objects) > 0 {
		os.Class = r.p.Objects[os.Objects[0]].Class
	}
	if os.Objects == nil {
		os.Objects = []int{}
	}
}

// collectObjects flattens an object set expression into object indices.
func (r *resolver) collectObjects(e *cst.SetExpr, cls int, scope registry.Scope) []int {
	switch e.Op {
	case cst.OpUnion:
		var out []int
		for _, op := range e.Operands {
			out = appendNew(out, r.collectObjects(op, cls, scope)...)
		}
		return out
	case cst.OpIntersection:
		out := r.collectObjects(e.Operands[0], cls, scope)
		for _, op := range e.Operands[1:] {
			out = keepOnly(out, r.collectObjects(op, cls, scope), true)
		}
		return out
	case cst.OpExcept:
		return keepOnly(r.collectObjects(e.Operands[0], cls, scope), r.collectObjects(e.Operands[1], cls, scope), false)
	case cst.OpAllExcept:
		r.errs.Add(&diag.ValueError{Module: scope.Module, Name: "ALL EXCEPT", Reason: "object sets cannot be complemented", Pos: e.Pos})
		return nil
	}

	el := e.Elem
	switch el.Form {
	case cst.ElemNested:
		return r.collectObjects(el.Nested, cls, scope)
	case cst.ElemValue:
		if el.Value.Form == cst.ValueRef {
			return r.objectsNamed(el.Value.Ref, scope)
		}
		if idx := r.objectValue(cls, el.Value, scope, ""); idx >= 0 {
			return []int{idx}
		}
		return nil
	case cst.ElemContained:
		if ref := plainRef(el.Type); ref != nil {
			return r.objectsNamed(ref, scope)
		}
	}
	r.errs.Add(&diag.ValueError{Module: scope.Module, Name: "object set", Reason: "element is not an object or object set", Pos: el.Pos})
	return nil
}

func (r *resolver) objectsNamed(ref *cst.Reference, scope registry.Scope) []int {
	ent, ok := r.entityOf(scope, ref)
	if !ok {
		return nil
	}
	if len(ref.Fields) > 0 {
		if idx := r.fieldObject(ent, ref, scope); idx >= 0 {
			return []int{idx}
		}
		return nil
	}
	switch ent.kind {
	case entObject:
		if ent.index >= 0 {
			return []int{ent.index}
		}
		return nil
	case entObjectSet:
		return append([]int(nil), r.p.ObjectSets[ent.index].Objects...)
	}
	r.errs.Add(&diag.ValueError{Module: scope.Module, Name: ref.Name, Reason: fmt.Sprintf("%s is a %s, not an object or object set", ref.Name, ent.kind), Pos: ref.Pos})
	return nil
}

func appendNew(dst []int, src ...int) []int {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// keepOnly filters a by membership in b.
func keepOnly(a, b []int, member bool) []int {
	in := make(map[int]bool, len(b))
	for _, x := range b {
		in[x] = true
	}
	var out []int
	for _, x := range a {
		if in[x] == member {
			out = append(out, x)
		}
	}
	return out
}

// valueSetType returns the type defined by a value set assignment.
func (r *resolver) valueSetType(ms *moduleScope, sym *registry.Symbol) model.TypeID {
	if id, ok := ms.valueSets[sym.Name]; ok {
		return id
	}
	a := sym.Syntax
	d := r.builder(registry.Scope{Module: ms.mod.Name}).Named(sym.Name, a.Pos, withSet(a.Type, a.Set))
	ms.valueSets[sym.Name] = d.ID
	r.settle()
	return d.ID
}

// declare resolves every module-level value, value set, class, object and
// object set in declaration order. Value assignments are numbered first so
// that Program.Values follows the source.
func (r *resolver) declare() {
	for _, ms := range r.byRank {
		scope := registry.Scope{Module: ms.mod.Name}
		for _, sym := range ms.reg.Order {
			if sym.Kind == registry.SymValue && r.governingClass(scope, sym.Syntax.Type) < 0 {
				r.valueDef(ms, sym)
			}
		}
	}
	for _, ms := range r.byRank {
		scope := registry.Scope{Module: ms.mod.Name}
		for _, sym := range ms.reg.Order {
			switch sym.Kind {
			case registry.SymType:
				if r.aliasesClass(ms, sym) {
					r.classAliasIndex(ms, sym)
				}
			case registry.SymValue:
				if idx, ok := ms.values[sym.Name]; ok {
					r.evalDef(idx)
				} else {
					r.namedObject(ms, sym)
				}
			case registry.SymValueSet:
				if r.governingClass(scope, sym.Syntax.Type) >= 0 {
					r.namedObjectSet(ms, sym)
				} else {
					r.valueSetType(ms, sym)
				}
			case registry.SymClass:
				r.class(ms, sym)
			}
		}
	}
}

// assignment records sym in the resolved module.
func (r *resolver) assignment(ms *moduleScope, sym *registry.Symbol) model.Assignment {
	a := model.Assignment{Name: sym.Name, Index: -1}
	index := func(m map[string]int) int {
		if idx, ok := m[sym.Name]; ok {
			return idx
		}
		return -1
	}
	switch sym.Kind {
	case registry.SymType:
		if id, ok := ms.types[sym.Name]; ok {
			a.Kind, a.Index = model.TypeAssignment, int(id)
		} else {
			a.Kind, a.Index = model.ClassAssignment, index(ms.classes)
		}
	case registry.SymValue:
		if idx, ok := ms.objects[sym.Name]; ok {
			a.Kind, a.Index = model.ObjectAssignment, idx
		} else {
			a.Kind, a.Index = model.ValueAssignment, index(ms.values)
		}
	case registry.SymValueSet:
		if idx, ok := ms.objectSets[sym.Name]; ok {
			a.Kind, a.Index = model.ObjectSetAssignment, idx
		} else if id, ok := ms.valueSets[sym.Name]; ok {
			a.Kind, a.Index = model.TypeAssignment, int(id)
		} else {
			a.Kind = model.TypeAssignment
		}
	case registry.SymClass:
		a.Kind, a.Index = model.ClassAssignment, index(ms.classes)
	case registry.SymGeneric:
		a.Kind = model.GenericAssignment
	}
	return a
}
