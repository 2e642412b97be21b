// Package registry turns one parsed module into type descriptors. Everything
// that names another definition is recorded as a deferred link for the
// resolver; nothing here looks beyond the module itself.
package registry

import (
	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

// SymbolKind classifies a module-level definition.
type SymbolKind int

const (
	SymType SymbolKind = iota
	SymValue
	SymValueSet
	SymClass
	SymGeneric
)

func (k SymbolKind) String() string {
	switch k {
	case SymType:
		return "type"
	case SymValue:
		return "value"
	case SymValueSet:
		return "value set"
	case SymClass:
		return "class"
	case SymGeneric:
		return "parameterized assignment"
	}
	return "symbol"
}

// Symbol is one assignment of the module. Type is the local handle of a type
// assignment and NoType otherwise.
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Type   model.TypeID
	Syntax *cst.Assignment
}

// Registry holds the descriptors of one module. Local descriptors have
// handles starting at model.NumBuiltins so that built-in handles stay valid
// across the merge into a Program.
type Registry struct {
	Module *model.Module
	Syntax *cst.Module
	Types  []*model.TypeDescriptor

	Deferred

	Symbols map[string]*Symbol
	Order   []*Symbol
}

// Type returns the local descriptor for id, or nil if id is not local.
func (r *Registry) Type(id model.TypeID) *model.TypeDescriptor {
	i := int(id) - model.NumBuiltins
	if i < 0 || i >= len(r.Types) {
		return nil
	}
	return r.Types[i]
}

func (r *Registry) add(t *model.TypeDescriptor) model.TypeID {
	t.ID = model.TypeID(model.NumBuiltins + len(r.Types))
	r.Types = append(r.Types, t)
	return t.ID
}

// Register walks every assignment of mod once. Duplicate assignment, component,
// named number and enumeration names are reported together.
func Register(mod *cst.Module, file string) (*Registry, error) {
	r := &Registry{
		Module:  newModule(mod, file),
		Syntax:  mod,
		Symbols: make(map[string]*Symbol),
	}
	var errs diag.Collector
	b := NewBuilder(Scope{Module: mod.Name}, r.add, &r.Deferred, &errs)

	for _, a := range mod.Assignments {
		if prev, ok := r.Symbols[a.Name]; ok {
			errs.Add(&diag.DuplicateDefinition{Module: mod.Name, Name: a.Name, Pos: a.Pos, Previous: prev.Syntax.Pos})
			continue
		}
		sym := &Symbol{Name: a.Name, Type: model.NoType, Syntax: a}
		switch {
		case len(a.Params) > 0:
			sym.Kind = SymGeneric
		case a.Kind == cst.AssignType:
			sym.Kind = SymType
			sym.Type = b.Named(a.Name, a.Pos, a.Type).ID
		case a.Kind == cst.AssignValue:
			sym.Kind = SymValue
		case a.Kind == cst.AssignValueSet:
			sym.Kind = SymValueSet
		case a.Kind == cst.AssignClass:
			sym.Kind = SymClass
		}
		r.Symbols[a.Name] = sym
		r.Order = append(r.Order, sym)
	}
	return r, errs.Err()
}

func newModule(mod *cst.Module, file string) *model.Module {
	m := &model.Module{
		Name:                 mod.Name,
		File:                 file,
		Pos:                  mod.Pos,
		TagDefault:           TagDefault(mod.TagDefault),
		ExtensibilityImplied: mod.ExtensibilityImplied,
		ExportsAll:           mod.Exports == nil || mod.Exports.All,
	}
	if mod.Exports != nil {
		for _, s := range mod.Exports.Symbols {
			m.Exports = append(m.Exports, s.Name)
		}
	}
	for _, imp := range mod.Imports {
		mi := model.Import{Module: imp.Module}
		for _, s := range imp.Symbols {
			mi.Symbols = append(mi.Symbols, s.Name)
		}
		m.Imports = append(m.Imports, mi)
	}
	return m
}

// TagDefault maps a written TAGS clause to the module environment. A module
// without one uses explicit tagging.
func TagDefault(t cst.TagDefault) model.TagDefault {
	switch t {
	case cst.TagDefaultImplicit:
		return model.ImplicitTags
	case cst.TagDefaultAutomatic:
		return model.AutomaticTags
	}
	return model.ExplicitTags
}
