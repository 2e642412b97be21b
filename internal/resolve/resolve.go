// Package resolve merges module registries into one Program and resolves
// every deferred reference: types, values, classes, objects and object sets.
package resolve

import (
	"github.com/hashicorp/go-hclog"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/graph"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/registry"
)

// Options tunes resolution.
type Options struct {
	// ModuleOrder lists module names that go first, in this order, when
	// arena and import order leave a choice. Other modules follow in input
	// order.
	ModuleOrder []string

	Logger hclog.Logger
}

type resolver struct {
	p    *model.Program
	log  hclog.Logger
	errs diag.Collector

	mods   map[string]*moduleScope
	byRank []*moduleScope

	deferred   registry.Deferred
	linkNext   int
	valueNext  int
	consNext   int
	selections []selection
	selNext    int
	compsOf    []model.TypeID
	compsNext  int
	compsSeen  map[model.TypeID]bool
	compsDone  map[model.TypeID]bool

	instances map[string]model.TypeID
	instCount map[string]int
	openTypes map[string]model.TypeID
	builtinCl map[string]int

	bindKeys  map[*registry.Binding]string
	bindNames map[*registry.Binding]string
	bindTypes map[*registry.Binding]model.TypeID
	boundSets map[*registry.Binding]int
	boundObjs map[*registry.Binding]int

	valueSyms     []valueSym
	valueDone     map[int]bool
	classByKey    map[string]int
	fieldDefaults map[*model.FieldSpec]*model.FieldSetting
}

// Resolve merges regs into a Program. Symbol errors are batched; on error
// the returned Program is incomplete and must not be used further.
func Resolve(regs []*registry.Registry, opts Options) (*model.Program, error) {
	r := &resolver{
		p:             model.NewProgram(),
		log:           opts.Logger,
		mods:          make(map[string]*moduleScope),
		compsSeen:     make(map[model.TypeID]bool),
		compsDone:     make(map[model.TypeID]bool),
		instances:     make(map[string]model.TypeID),
		instCount:     make(map[string]int),
		openTypes:     make(map[string]model.TypeID),
		builtinCl:     make(map[string]int),
		bindKeys:      make(map[*registry.Binding]string),
		bindNames:     make(map[*registry.Binding]string),
		bindTypes:     make(map[*registry.Binding]model.TypeID),
		boundSets:     make(map[*registry.Binding]int),
		boundObjs:     make(map[*registry.Binding]int),
		valueDone:     make(map[int]bool),
		classByKey:    make(map[string]int),
		fieldDefaults: make(map[*model.FieldSpec]*model.FieldSetting),
	}
	if r.log == nil {
		r.log = hclog.NewNullLogger()
	}
	for _, c := range model.BuiltinClasses() {
		r.builtinCl[c.Name] = len(r.p.Classes)
		r.classByKey[c.Name] = len(r.p.Classes)
		r.p.Classes = append(r.p.Classes, c)
	}

	r.rank(regs, opts.ModuleOrder)
	r.checkImports()
	r.moduleOrder()
	r.merge()
	r.declare()
	r.drain()
	r.finish()

	r.log.Debug("resolved modules", "modules", len(r.byRank), "types", len(r.p.Types)-model.NumBuiltins,
		"values", len(r.p.Values), "objects", len(r.p.Objects), "instances", len(r.instances))
	return r.p, r.errs.Err()
}

// rank orders the modules, detecting duplicate module names.
func (r *resolver) rank(regs []*registry.Registry, first []string) {
	var all []*moduleScope
	for _, reg := range regs {
		name := reg.Module.Name
		if prev, ok := r.mods[name]; ok {
			r.errs.Add(&diag.DuplicateDefinition{Module: name, Name: name, Pos: reg.Module.Pos, Previous: prev.mod.Pos})
			continue
		}
		ms := newModuleScope(reg)
		r.mods[name] = ms
		all = append(all, ms)
	}
	placed := make(map[string]bool)
	for _, name := range first {
		if ms, ok := r.mods[name]; ok && !placed[name] {
			placed[name] = true
			r.byRank = append(r.byRank, ms)
		}
	}
	for _, ms := range all {
		if !placed[ms.mod.Name] {
			r.byRank = append(r.byRank, ms)
		}
	}
	for i, ms := range r.byRank {
		ms.rank = i
	}
}

// moduleOrder computes Program.ModuleOrder: imported modules first, modules
// that import each other kept together.
func (r *resolver) moduleOrder() {
	succ := func(v int) []int {
		var out []int
		for _, imp := range r.byRank[v].mod.Imports {
			if ms, ok := r.mods[imp.Module]; ok && ms.rank != v {
				out = append(out, ms.rank)
			}
		}
		return out
	}
	for _, v := range graph.Schedule(len(r.byRank), succ) {
		r.p.ModuleOrder = append(r.p.ModuleOrder, r.byRank[v].mod.Name)
	}
}

// merge copies every registry arena into the Program, relocating local
// handles. Type assignments that turned out to alias a class are dropped.
func (r *resolver) merge() {
	for _, ms := range r.byRank {
		reg := ms.reg
		reloc := make([]model.TypeID, len(reg.Types))
		skip := make(map[model.TypeID]bool)
		for _, sym := range reg.Order {
			if sym.Kind == registry.SymType && r.aliasesClass(ms, sym) {
				skip[sym.Type] = true
			}
		}
		for i, t := range reg.Types {
			if skip[t.ID] {
				reloc[i] = model.NoType
				continue
			}
			reloc[i] = model.TypeID(len(r.p.Types))
			r.p.Types = append(r.p.Types, t)
		}
		move := func(id model.TypeID) model.TypeID {
			if int(id) < model.NumBuiltins {
				return id
			}
			return reloc[int(id)-model.NumBuiltins]
		}
		for i, t := range reg.Types {
			if reloc[i] == model.NoType {
				continue
			}
			t.ID = reloc[i]
			t.Base = move(t.Base)
			t.Element = move(t.Element)
			for _, c := range t.Components {
				c.Type = move(c.Type)
			}
		}
		for _, sym := range reg.Order {
			if sym.Kind == registry.SymType {
				if id := move(sym.Type); id != model.NoType {
					ms.types[sym.Name] = id
				}
			}
		}
		for _, l := range reg.Links {
			if l.Owner = move(l.Owner); l.Owner != model.NoType {
				r.deferred.Links = append(r.deferred.Links, l)
			}
		}
		for _, v := range reg.Values {
			if v.Owner = move(v.Owner); v.Owner != model.NoType {
				r.deferred.Values = append(r.deferred.Values, v)
			}
		}
		for _, c := range reg.Constraints {
			if c.Owner = move(c.Owner); c.Owner != model.NoType {
				r.deferred.Constraints = append(r.deferred.Constraints, c)
			}
		}
		r.p.Modules = append(r.p.Modules, ms.mod)
	}
}

// add appends a descriptor created during resolution.
func (r *resolver) add(t *model.TypeDescriptor) model.TypeID {
	return r.p.Add(t)
}

// drain processes deferred work until none is left. Work items may create
// further descriptors, whose own deferred work is picked up by the same
// loops.
func (r *resolver) drain() {
	for {
		r.settle()
		progress := r.flushValues()
		for r.compsNext < len(r.compsOf) {
			id := r.compsOf[r.compsNext]
			r.compsNext++
			r.expandComponentsOf(id, nil)
			progress = true
		}
		for r.consNext < len(r.deferred.Constraints) {
			cl := r.deferred.Constraints[r.consNext]
			r.consNext++
			r.resolveConstraints(cl)
			progress = true
		}
		if !progress && r.linkNext == len(r.deferred.Links) && r.selNext == len(r.selections) {
			return
		}
	}
}

// settle resolves pending type links and selection types. It is safe to call
// while another settle is running.
func (r *resolver) settle() {
	for r.linkNext < len(r.deferred.Links) || r.selNext < len(r.selections) {
		for r.linkNext < len(r.deferred.Links) {
			l := r.deferred.Links[r.linkNext]
			r.linkNext++
			r.resolveLink(l)
		}
		for r.selNext < len(r.selections) {
			s := r.selections[r.selNext]
			r.selNext++
			r.resolveSelection(s)
		}
	}
}

// finish settles kinds, derivation chains and the assignment lists.
func (r *resolver) finish() {
	for _, t := range r.p.Types[model.NumBuiltins:] {
		if t.Kind != model.KindReference {
			continue
		}
		u := r.p.Underlying(t.ID)
		if u != nil && u.Kind != model.KindReference {
			t.Kind = u.Kind
			if t.Class == "" {
				t.Class, t.Field = u.Class, u.Field
			}
		}
	}
	for _, t := range r.p.Types[model.NumBuiltins:] {
		t.Derivation = t.Derivation[:0]
		seen := make(map[model.TypeID]bool)
		for id := t.ID; id != model.NoType && !seen[id]; id = r.p.Types[id].Base {
			seen[id] = true
			t.Derivation = append(t.Derivation, id)
		}
	}
	for _, ms := range r.byRank {
		ms.mod.Assignments = ms.mod.Assignments[:0]
		for _, sym := range ms.reg.Order {
			ms.mod.Assignments = append(ms.mod.Assignments, r.assignment(ms, sym))
		}
	}
}
