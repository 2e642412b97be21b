package registry

import (
	"math/big"
	"strconv"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

// Scope is the naming context of a piece of syntax: the module it was written
// in and, inside an instantiation, the actual parameters bound to its dummies.
type Scope struct {
	Module string
	Env    Env
}

// Env binds dummy parameter names to actual parameters.
type Env map[string]*Binding

// Binding is one actual parameter together with the scope it was written in.
// Home is the module defining the parameter, where its governor is read.
type Binding struct {
	Param  *cst.Parameter
	Actual *cst.Actual
	Scope  Scope
	Home   string
}

// Lookup returns the binding of name, or nil.
func (s Scope) Lookup(name string) *Binding {
	if s.Env == nil {
		return nil
	}
	return s.Env[name]
}

// Site says which handle of the owning descriptor a link fills in.
type Site int

const (
	SiteBase Site = iota
	SiteComponent
	SiteElement
)

// Link is a type reference to resolve. Target is the referencing syntax;
// Index selects the component for SiteComponent.
type Link struct {
	Owner  model.TypeID
	Site   Site
	Index  int
	Target *cst.Type
	Scope  Scope
}

// ValueSite says which number or value of the owning descriptor a value
// link fills in.
type ValueSite int

const (
	ValueTypeTag ValueSite = iota
	ValueComponentTag
	ValueNamedNumber
	ValueEnumNumber
	ValueDefault
)

// ValueLink is a value that can only be computed once names are resolved.
type ValueLink struct {
	Owner model.TypeID
	Site  ValueSite
	Index int
	Value *cst.Value
	Scope Scope
}

// ConstraintLink records the written constraints of a descriptor.
type ConstraintLink struct {
	Owner       model.TypeID
	Constraints []*cst.Constraint
	Scope       Scope
}

// Deferred collects the work a builder leaves for the resolver.
type Deferred struct {
	Links       []Link
	Values      []ValueLink
	Constraints []ConstraintLink
}

// Builder creates descriptors for CST types. The registry uses one per
// module; the resolver uses one per instantiation against the Program
// arena.
type Builder struct {
	scope Scope
	add   func(*model.TypeDescriptor) model.TypeID
	out   *Deferred
	errs  *diag.Collector
}

// NewBuilder returns a builder that stores descriptors through add and
// deferred work in out.
func NewBuilder(scope Scope, add func(*model.TypeDescriptor) model.TypeID, out *Deferred, errs *diag.Collector) *Builder {
	return &Builder{scope: scope, add: add, out: out, errs: errs}
}

// Named creates the descriptor of a type assignment.
func (b *Builder) Named(name string, pos diag.Pos, t *cst.Type) *model.TypeDescriptor {
	return b.describe(name, name, pos, t)
}

// Anonymous creates a descriptor for an inline type, identified by path.
func (b *Builder) Anonymous(path string, t *cst.Type) *model.TypeDescriptor {
	return b.describe("", path, t.Pos, t)
}

// Inline returns the handle for a type written inside another one. Plain
// built-ins use their canonical handle and plain references are deferred as a
// link at site, in which case the result is NoType.
func (b *Builder) Inline(path string, t *cst.Type, owner model.TypeID, site Site, index int) model.TypeID {
	if len(t.Constraints) == 0 {
		switch t.Form {
		case cst.FormBuiltin:
			if k, ok := model.KeywordKind(t.Builtin); ok && len(t.NamedNumbers) == 0 {
				if id := model.BuiltinID(k); id != model.NoType {
					return id
				}
			}
		case cst.FormReference:
			b.link(owner, site, index, t)
			return model.NoType
		case cst.FormAny:
			if t.DefinedBy == "" {
				return model.BuiltinID(model.KindOpenType)
			}
		}
	}
	return b.Anonymous(path, t).ID
}

// IsDummy reports whether t is a bare reference to a parameter of the
// current instantiation.
func (b *Builder) IsDummy(t *cst.Type) bool {
	return t != nil && t.Form == cst.FormReference && t.Ref.Module == "" &&
		len(t.Ref.Fields) == 0 && len(t.Ref.Actuals) == 0 && b.scope.Lookup(t.Ref.Name) != nil
}

func (b *Builder) link(owner model.TypeID, site Site, index int, t *cst.Type) {
	b.out.Links = append(b.out.Links, Link{Owner: owner, Site: site, Index: index, Target: t, Scope: b.scope})
}

func (b *Builder) valueLink(owner model.TypeID, site ValueSite, index int, v *cst.Value) {
	b.out.Values = append(b.out.Values, ValueLink{Owner: owner, Site: site, Index: index, Value: v, Scope: b.scope})
}

func (b *Builder) describe(name, path string, pos diag.Pos, t *cst.Type) *model.TypeDescriptor {
	d := &model.TypeDescriptor{
		Module:          b.scope.Module,
		Name:            name,
		Path:            path,
		Pos:             pos,
		Kind:            model.KindReference,
		Element:         model.NoType,
		Base:            model.NoType,
		ExtensionMarker: -1,
		Syntax:          t,
	}
	id := b.add(d)

	body := t
	if t.Form == cst.FormTagged {
		d.SourceTag = b.tag(t.Tag, id, ValueTypeTag, 0)
		body = t.Inner
	}
	if len(body.Constraints) > 0 {
		b.out.Constraints = append(b.out.Constraints, ConstraintLink{Owner: id, Constraints: body.Constraints, Scope: b.scope})
	}

	switch body.Form {
	case cst.FormBuiltin:
		k, _ := model.KeywordKind(body.Builtin)
		d.Kind = k
		d.Base = model.BuiltinID(k)
		if k == model.KindInstanceOf && body.Ref != nil {
			d.Class = body.Ref.Name
		}
		d.NamedNumbers = b.namedNumbers(d, body.NamedNumbers)
	case cst.FormEnumerated:
		d.Kind = model.KindEnumerated
		b.enumItems(d, body.Items)
	case cst.FormSequence, cst.FormSet, cst.FormChoice:
		d.Kind = map[cst.TypeForm]model.Kind{
			cst.FormSequence: model.KindSequence,
			cst.FormSet:      model.KindSet,
			cst.FormChoice:   model.KindChoice,
		}[body.Form]
		b.components(d, body.Components)
	case cst.FormSequenceOf, cst.FormSetOf:
		d.Kind = model.KindSequenceOf
		if body.Form == cst.FormSetOf {
			d.Kind = model.KindSetOf
		}
		d.ElementName = body.ElementName
		d.Element = b.Inline(path+"[]", body.Element, id, SiteElement, 0)
	case cst.FormReference, cst.FormSelection:
		b.link(id, SiteBase, 0, body)
	case cst.FormAny:
		d.Kind = model.KindOpenType
		d.Base = model.BuiltinID(model.KindOpenType)
		d.DefinedBy = body.DefinedBy
	case cst.FormTagged:
		d.Base = b.Anonymous(path+"'", body).ID
	}
	return d
}

// tag converts a written tag. A tag number given as a defined value is left
// zero and deferred.
func (b *Builder) tag(spec *cst.TagSpec, owner model.TypeID, site ValueSite, index int) *model.Tag {
	tag := &model.Tag{
		Class: map[cst.TagClass]model.TagClass{
			cst.TagContext:     model.ClassContext,
			cst.TagUniversal:   model.ClassUniversal,
			cst.TagApplication: model.ClassApplication,
			cst.TagPrivate:     model.ClassPrivate,
		}[spec.Class],
	}
	switch spec.Mode {
	case cst.TagModeImplicit:
		tag.Mode = model.Implicit
	case cst.TagModeExplicit:
		tag.Mode = model.Explicit
	}
	if n, ok := smallInt(spec.Number); ok {
		tag.Number = n
	} else {
		b.valueLink(owner, site, index, spec.Number)
	}
	return tag
}

func (b *Builder) namedNumbers(d *model.TypeDescriptor, in []*cst.NamedNumber) []model.NamedNumber {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.NamedNumber, len(in))
	seen := make(map[string]diag.Pos, len(in))
	for i, nn := range in {
		if prev, ok := seen[nn.Name]; ok {
			b.errs.Add(&diag.DuplicateDefinition{Module: d.Module, Container: d.Path, Name: nn.Name, Pos: nn.Pos, Previous: prev})
		}
		seen[nn.Name] = nn.Pos
		out[i].Name = nn.Name
		if n, ok := LiteralInt(nn.Value); ok {
			out[i].Value = n
		} else {
			b.valueLink(d.ID, ValueNamedNumber, i, nn.Value)
		}
	}
	return out
}

func (b *Builder) enumItems(d *model.TypeDescriptor, items []*cst.EnumItem) {
	seen := make(map[string]diag.Pos, len(items))
	ext := false
	for _, it := range items {
		if it.Marker {
			if !ext {
				d.ExtensionMarker = len(d.Components)
			}
			ext, d.Extensible = true, true
			continue
		}
		if prev, ok := seen[it.Name]; ok {
			b.errs.Add(&diag.DuplicateDefinition{Module: d.Module, Container: d.Path, Name: it.Name, Pos: it.Pos, Previous: prev})
		}
		seen[it.Name] = it.Pos
		c := &model.Component{Name: it.Name, Type: model.NoType, Pos: it.Pos, Group: -1, Extension: ext}
		if it.Number != nil {
			c.Numbered = true
			if n, ok := smallInt(it.Number); ok {
				c.Number = n
			} else {
				b.valueLink(d.ID, ValueEnumNumber, len(d.Components), it.Number)
			}
		}
		d.Components = append(d.Components, c)
	}
}

// components flattens the body of a SEQUENCE, SET or CHOICE. Components
// between the first and a second extension marker are additions; everything
// else is root. Each lone addition or bracketed group is one extension
// group.
func (b *Builder) components(d *model.TypeDescriptor, in []*cst.Component) {
	seen := make(map[string]diag.Pos)
	markers, group := 0, -1
	add := func(c *cst.Component, ext bool, g, version int) {
		mc := b.component(d, c)
		if ext {
			mc.Extension, mc.Group, mc.Version = true, g, version
		}
		if c.Kind == cst.ComponentNamed {
			if prev, ok := seen[c.Name]; ok {
				b.errs.Add(&diag.DuplicateDefinition{Module: d.Module, Container: d.Path, Name: c.Name, Pos: c.Pos, Previous: prev})
			}
			seen[c.Name] = c.Pos
		}
	}
	for _, c := range in {
		ext := markers == 1
		switch c.Kind {
		case cst.ComponentMarker:
			markers++
			if markers == 1 {
				d.ExtensionMarker = len(d.Components)
			}
			d.Extensible = true
		case cst.ComponentGroup:
			version := 0
			if n, ok := smallInt(c.GroupVersion); ok {
				version = int(n)
			}
			if ext {
				group++
			}
			for _, gc := range c.Group {
				add(gc, ext, group, version)
			}
		default:
			if ext {
				group++
			}
			add(c, ext, group, 0)
		}
	}
}

func (b *Builder) component(d *model.TypeDescriptor, c *cst.Component) *model.Component {
	idx := len(d.Components)
	mc := &model.Component{
		Name:         c.Name,
		Type:         model.NoType,
		Pos:          c.Pos,
		Optional:     c.Optional,
		Group:        -1,
		ComponentsOf: c.Kind == cst.ComponentsOf,
		Syntax:       c,
	}
	d.Components = append(d.Components, mc)

	t := c.Type
	if mc.ComponentsOf {
		b.link(d.ID, SiteComponent, idx, t)
		return mc
	}
	if t.Form == cst.FormTagged {
		mc.SourceTag = b.tag(t.Tag, d.ID, ValueComponentTag, idx)
		t = t.Inner
	}
	mc.FromDummy = b.IsDummy(t)
	mc.Type = b.Inline(d.Path+"."+c.Name, t, d.ID, SiteComponent, idx)
	if c.Default != nil {
		b.valueLink(d.ID, ValueDefault, idx, c.Default)
	}
	return mc
}

// LiteralInt returns the integer written by a number value.
func LiteralInt(v *cst.Value) (*big.Int, bool) {
	if v == nil || v.Form != cst.ValueNumber {
		return nil, false
	}
	return new(big.Int).SetString(v.Text, 10)
}

func smallInt(v *cst.Value) (int64, bool) {
	if v == nil || v.Form != cst.ValueNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Text, 10, 64)
	return n, err == nil
}
