// Package tagging computes the effective tag of every type and of every
// component of every SEQUENCE, SET and CHOICE under the tagging environment
// of its module.
package tagging

import (
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

type engine struct {
	p    *model.Program
	env  map[string]model.TagDefault
	memo map[model.TypeID]model.Tag
	busy map[model.TypeID]bool
	errs diag.Collector
}

// AssignTags fills Tag on every type and structured component of p. Tags are
// always recomputed from the written ones, so running it again yields the
// same assignment.
func AssignTags(p *model.Program) error {
	e := &engine{
		p:    p,
		env:  make(map[string]model.TagDefault, len(p.Modules)),
		memo: make(map[model.TypeID]model.Tag),
		busy: make(map[model.TypeID]bool),
	}
	for _, m := range p.Modules {
		e.env[m.Name] = m.TagDefault
	}
	for _, t := range p.Types {
		if !t.Builtin {
			t.Tag = e.typeTag(t.ID)
		}
	}
	var structured []*model.TypeDescriptor
	for _, t := range p.Types {
		if t.Owns() && t.Kind.IsStructured() {
			e.components(t)
			structured = append(structured, t)
		}
	}
	for _, t := range structured {
		e.collisions(t)
	}
	return e.errs.Err()
}

func (e *engine) envOf(module string) model.TagDefault {
	if env := e.env[module]; env != "" {
		return env
	}
	return model.ExplicitTags
}

// typeTag is the tag of a type: its written tag, else the tag of its base,
// else the universal tag of its kind.
func (e *engine) typeTag(id model.TypeID) model.Tag {
	t := e.p.Type(id)
	if t == nil {
		return model.Untagged
	}
	if t.Builtin {
		return t.Tag
	}
	if tag, ok := e.memo[id]; ok {
		return tag
	}
	if e.busy[id] {
		// A base cycle; the grapher reports it.
		return model.Untagged
	}
	e.busy[id] = true
	defer delete(e.busy, id)

	var tag model.Tag
	switch {
	case t.SourceTag != nil:
		tag = e.written(t, "", *t.SourceTag, e.innerTag(t).IsUntagged())
	case t.Base != model.NoType:
		tag = e.typeTag(t.Base)
	default:
		tag, _ = model.UniversalTag(t.Kind)
	}
	e.memo[id] = tag
	return tag
}

// innerTag is the tag of t with its own written tag removed.
func (e *engine) innerTag(t *model.TypeDescriptor) model.Tag {
	if t.Base == model.NoType {
		tag, _ := model.UniversalTag(t.Kind)
		return tag
	}
	return e.typeTag(t.Base)
}

// written settles the mode of a written tag. An untagged inner type can only
// be wrapped.
func (e *engine) written(owner *model.TypeDescriptor, comp string, tag model.Tag, untaggedInner bool) model.Tag {
	if untaggedInner {
		if tag.Mode == model.Implicit {
			e.errs.Add(&diag.TagError{
				Module:    owner.Module,
				Type:      owner.Path,
				Component: comp,
				Reason:    "IMPLICIT tag on an untagged CHOICE, open type or parameter",
				Pos:       owner.Pos,
			})
		}
		tag.Mode = model.Explicit
		return tag
	}
	if tag.Mode == "" {
		tag.Mode = model.Implicit
		if e.envOf(owner.Module) == model.ExplicitTags {
			tag.Mode = model.Explicit
		}
	}
	return tag
}

// positions lists component indices in tag numbering order: root
// components first, then extension additions, each in declaration order.
func positions(t *model.TypeDescriptor) []int {
	out := make([]int, 0, len(t.Components))
	for i, c := range t.Components {
		if !c.Extension {
			out = append(out, i)
		}
	}
	for i, c := range t.Components {
		if c.Extension {
			out = append(out, i)
		}
	}
	return out
}

// automatic reports whether automatic tagging applies to t: no component
// other than a COMPONENTS OF copy has a written tag.
func automatic(t *model.TypeDescriptor) bool {
	for _, c := range t.Components {
		if c.SourceTag != nil && !c.FromComponentsOf {
			return false
		}
	}
	return true
}

func (e *engine) components(t *model.TypeDescriptor) {
	env := e.envOf(t.Module)
	auto := env == model.AutomaticTags && automatic(t)
	for n, i := range positions(t) {
		c := t.Components[i]
		inner := e.typeTag(c.Type)
		untagged := inner.IsUntagged() || c.FromDummy
		switch {
		case auto:
			c.Tag = positional(n, model.Implicit, untagged)
		case c.SourceTag != nil:
			c.Tag = e.written(t, c.Name, *c.SourceTag, untagged)
		case env == model.ExplicitTags:
			c.Tag = positional(n, model.Explicit, untagged)
		case env == model.ImplicitTags:
			c.Tag = positional(n, model.Implicit, untagged)
		default:
			c.Tag = inner
		}
	}
}

func positional(n int, mode model.TagMode, untaggedInner bool) model.Tag {
	if untaggedInner {
		mode = model.Explicit
	}
	return model.Tag{Class: model.ClassContext, Number: int64(n), Mode: mode}
}

type tagged struct {
	comp string
	tag  model.Tag
}

// collisions reports components of t sharing an outer tag. An untagged
// CHOICE component contributes the tags of its alternatives.
func (e *engine) collisions(t *model.TypeDescriptor) {
	var seen []tagged
	for _, i := range positions(t) {
		c := t.Components[i]
		for _, tag := range e.outerTags(c.Tag, c.Type, map[model.TypeID]bool{}) {
			for _, s := range seen {
				if s.tag.Same(tag) {
					e.errs.Add(&diag.TagCollision{
						Module:     t.Module,
						Type:       t.Path,
						ComponentA: s.comp,
						ComponentB: c.Name,
						TagA:       s.tag.String(),
						TagB:       tag.String(),
						Pos:        c.Pos,
					})
				}
			}
			seen = append(seen, tagged{comp: c.Name, tag: tag})
		}
	}
}

// outerTags returns the tags a value of typ can start with when tag is its
// tag. Untagged open types can carry any tag and contribute none.
func (e *engine) outerTags(tag model.Tag, typ model.TypeID, visiting map[model.TypeID]bool) []model.Tag {
	if !tag.IsUntagged() {
		return []model.Tag{tag}
	}
	u := e.p.Underlying(typ)
	if u == nil || u.Kind != model.KindChoice || visiting[u.ID] {
		return nil
	}
	visiting[u.ID] = true
	var out []model.Tag
	for _, alt := range u.Components {
		out = append(out, e.outerTags(alt.Tag, alt.Type, visiting)...)
	}
	return out
}
