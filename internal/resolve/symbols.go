package resolve

import (
	"sort"

	"github.com/agext/levenshtein"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/registry"
)

// moduleScope is the resolver's view of one module: its registry and the
// Program handles of everything it defines.
type moduleScope struct {
	reg  *registry.Registry
	mod  *model.Module
	rank int

	exports map[string]bool
	imports map[string][]string // symbol -> modules it is imported from

	types      map[string]model.TypeID
	values     map[string]int
	objects    map[string]int
	objectSets map[string]int
	classes    map[string]int
	valueSets  map[string]model.TypeID

	pending map[string]bool // definitions being resolved, to catch cycles
}

func newModuleScope(reg *registry.Registry) *moduleScope {
	ms := &moduleScope{
		reg:        reg,
		mod:        reg.Module,
		exports:    make(map[string]bool),
		imports:    make(map[string][]string),
		types:      make(map[string]model.TypeID),
		values:     make(map[string]int),
		objects:    make(map[string]int),
		objectSets: make(map[string]int),
		classes:    make(map[string]int),
		valueSets:  make(map[string]model.TypeID),
		pending:    make(map[string]bool),
	}
	for _, name := range reg.Module.Exports {
		ms.exports[name] = true
	}
	for _, imp := range reg.Module.Imports {
		for _, s := range imp.Symbols {
			ms.imports[s] = append(ms.imports[s], imp.Module)
		}
	}
	return ms
}

func (ms *moduleScope) exported(name string) bool {
	return ms.mod.ExportsAll || ms.exports[name]
}

// target is what a name resolves to: a symbol of some module, or one of the
// predefined classes.
type target struct {
	ms      *moduleScope
	sym     *registry.Symbol
	builtin int // index of a predefined class, or -1
}

// find resolves name as seen from module from. A non-empty qualifier names
// the defining module directly. Errors are recorded and reported as ok
// false.
func (r *resolver) find(from, qualifier, name string, pos diag.Pos) (target, bool) {
	if qualifier != "" {
		ms, ok := r.mods[qualifier]
		if !ok {
			r.errs.Add(&diag.UnresolvedSymbol{Module: from, Name: qualifier, Pos: pos, Suggestion: r.suggestModule(qualifier)})
			return target{}, false
		}
		if !ms.exported(name) && qualifier != from {
			r.errs.Add(&diag.NotExported{Module: from, Name: name, From: qualifier, Pos: pos})
			return target{}, false
		}
		return r.follow(ms, name, pos, []string{from})
	}
	ms, ok := r.mods[from]
	if !ok {
		r.errs.Add(&diag.UnresolvedSymbol{Module: from, Name: name, Pos: pos})
		return target{}, false
	}
	return r.follow(ms, name, pos, nil)
}

// follow looks name up in ms, walking import clauses until a defining
// module is reached. chain holds the modules already visited.
func (r *resolver) follow(ms *moduleScope, name string, pos diag.Pos, chain []string) (target, bool) {
	for _, seen := range chain {
		if seen == ms.mod.Name && len(chain) > 1 {
			r.errs.Add(&diag.ImportCycle{Name: name, Modules: append(chain, ms.mod.Name)})
			return target{}, false
		}
	}
	chain = append(chain, ms.mod.Name)

	if sym, ok := ms.reg.Symbols[name]; ok {
		return target{ms: ms, sym: sym, builtin: -1}, true
	}
	sources := distinct(ms.imports[name])
	switch len(sources) {
	case 0:
		if idx, ok := r.builtinCl[name]; ok {
			return target{builtin: idx}, true
		}
		r.errs.Add(&diag.UnresolvedSymbol{Module: ms.mod.Name, Name: name, Pos: pos, Suggestion: r.suggest(ms, name)})
		return target{}, false
	case 1:
	default:
		r.errs.Add(&diag.AmbiguousSymbol{Module: ms.mod.Name, Name: name, Pos: pos, Candidates: sources})
		return target{}, false
	}
	src, ok := r.mods[sources[0]]
	if !ok {
		r.errs.Add(&diag.UnresolvedSymbol{Module: ms.mod.Name, Name: sources[0], Pos: pos, Suggestion: r.suggestModule(sources[0])})
		return target{}, false
	}
	if !src.exported(name) {
		r.errs.Add(&diag.NotExported{Module: ms.mod.Name, Name: name, From: src.mod.Name, Pos: pos})
		return target{}, false
	}
	return r.follow(src, name, pos, chain)
}

// lookup resolves a reference in scope. Names bound to actual parameters are
// handled by the callers.
func (r *resolver) lookup(scope registry.Scope, ref *cst.Reference) (target, bool) {
	return r.find(scope.Module, ref.Module, ref.Name, ref.Pos)
}

// checkImports resolves every imported symbol once so that bad imports are
// reported even when unused.
func (r *resolver) checkImports() {
	for _, ms := range r.byRank {
		ambiguous := make(map[string]bool)
		for _, imp := range ms.reg.Syntax.Imports {
			src, ok := r.mods[imp.Module]
			if !ok {
				r.errs.Add(&diag.UnresolvedSymbol{Module: ms.mod.Name, Name: imp.Module, Pos: imp.Pos, Suggestion: r.suggestModule(imp.Module)})
				continue
			}
			for _, s := range imp.Symbols {
				if _, ok := r.builtinCl[s.Name]; ok && src.reg.Symbols[s.Name] == nil {
					continue
				}
				if !src.exported(s.Name) {
					r.errs.Add(&diag.NotExported{Module: ms.mod.Name, Name: s.Name, From: src.mod.Name, Pos: s.Pos})
					continue
				}
				if d := distinct(ms.imports[s.Name]); len(d) > 1 {
					if !ambiguous[s.Name] {
						ambiguous[s.Name] = true
						r.errs.Add(&diag.AmbiguousSymbol{Module: ms.mod.Name, Name: s.Name, Pos: s.Pos, Candidates: d})
					}
					continue
				}
				r.follow(src, s.Name, s.Pos, []string{ms.mod.Name})
			}
		}
		if ex := ms.reg.Syntax.Exports; ex != nil {
			for _, s := range ex.Symbols {
				if ms.reg.Symbols[s.Name] == nil && len(ms.imports[s.Name]) == 0 {
					r.errs.Add(&diag.UnresolvedSymbol{Module: ms.mod.Name, Name: s.Name, Pos: s.Pos, Suggestion: r.suggest(ms, s.Name)})
				}
			}
		}
	}
}

// suggest returns the visible name closest to name, or "".
func (r *resolver) suggest(ms *moduleScope, name string) string {
	var names []string
	for n := range ms.reg.Symbols {
		names = append(names, n)
	}
	for n := range ms.imports {
		names = append(names, n)
	}
	return nameSuggestion(name, names)
}

func (r *resolver) suggestModule(name string) string {
	var names []string
	for n := range r.mods {
		names = append(names, n)
	}
	return nameSuggestion(name, names)
}

// nameSuggestion picks the candidate within edit distance 2 of given,
// preferring the closest and then the alphabetically first.
func nameSuggestion(given string, candidates []string) string {
	sort.Strings(candidates)
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := levenshtein.Distance(given, c, nil); d < bestDist && c != given {
			best, bestDist = c, d
		}
	}
	return best
}

func distinct(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
