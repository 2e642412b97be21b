// Package selection narrows a compiled Program to the types a caller asked
// for.
package selection

import (
	"fmt"
	"strings"

	"github.com/phobologic/asn1ir/internal/model"
)

// ByType returns a Program restricted to the types whose display name
// contains one of patterns (case-insensitive), together with every type they
// use directly or transitively. The type arena is shared with p so that
// handles stay valid; Order, Edges, Values and ModuleOrder are filtered and
// keep their relative order. An empty patterns list returns p.
func ByType(p *model.Program, patterns []string) (*model.Program, error) {
	if len(patterns) == 0 {
		return p, nil
	}

	keep := make(map[model.TypeID]struct{})
	var queue []model.TypeID
	for _, pattern := range patterns {
		lower := strings.ToLower(pattern)
		matched := false
		for _, t := range p.Types[model.NumBuiltins:] {
			if strings.Contains(strings.ToLower(t.DisplayName()), lower) {
				matched = true
				if _, ok := keep[t.ID]; !ok {
					keep[t.ID] = struct{}{}
					queue = append(queue, t.ID)
				}
			}
		}
		if !matched {
			return nil, fmt.Errorf("no type matches %q", pattern)
		}
	}

	uses := make(map[model.TypeID][]model.TypeID)
	for i := range p.Edges {
		e := &p.Edges[i]
		uses[e.From] = append(uses[e.From], e.To)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, to := range uses[id] {
			if _, ok := keep[to]; !ok {
				keep[to] = struct{}{}
				queue = append(queue, to)
			}
		}
	}

	return restrict(p, keep), nil
}

// ByModule returns a Program restricted to the types defined in modules
// whose name contains substr (case-insensitive), plus the edges leaving
// them. Types of other modules they use stay reachable through those edges
// but are not emitted.
func ByModule(p *model.Program, substr string) *model.Program {
	lower := strings.ToLower(substr)
	keep := make(map[model.TypeID]struct{})
	for _, t := range p.Types[model.NumBuiltins:] {
		if strings.Contains(strings.ToLower(t.Module), lower) {
			keep[t.ID] = struct{}{}
		}
	}
	out := restrict(p, keep)

	out.Edges = nil
	for i := range p.Edges {
		if _, ok := keep[p.Edges[i].From]; ok {
			out.Edges = append(out.Edges, p.Edges[i])
		}
	}
	return out
}

func restrict(p *model.Program, keep map[model.TypeID]struct{}) *model.Program {
	out := &model.Program{
		Modules:    p.Modules,
		Types:      p.Types,
		Classes:    p.Classes,
		Objects:    p.Objects,
		ObjectSets: p.ObjectSets,
	}

	modules := make(map[string]struct{})
	for _, id := range p.Order {
		if _, ok := keep[id]; ok {
			out.Order = append(out.Order, id)
			modules[p.Types[id].Module] = struct{}{}
		}
	}
	for _, name := range p.ModuleOrder {
		if _, ok := modules[name]; ok {
			out.ModuleOrder = append(out.ModuleOrder, name)
		}
	}

	for i := range p.Edges {
		e := &p.Edges[i]
		_, fromOK := keep[e.From]
		_, toOK := keep[e.To]
		if fromOK && toOK {
			out.Edges = append(out.Edges, *e)
		}
	}

	for _, v := range p.Values {
		if _, ok := modules[v.Module]; !ok {
			continue
		}
		if _, ok := keep[v.Type]; ok || int(v.Type) < model.NumBuiltins {
			out.Values = append(out.Values, v)
		}
	}
	return out
}
