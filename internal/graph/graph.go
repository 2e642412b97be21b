// Package graph builds the uses graph of a Program, classifies its cycles and
// computes the emission order.
package graph

import (
	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

// Edges returns the uses relations of p: base types, collection elements and
// component or alternative types. Uses of built-in types and types named
// only inside constraints are not edges.
func Edges(p *model.Program) []model.Edge {
	var edges []model.Edge
	local := func(id model.TypeID) bool { return int(id) >= model.NumBuiltins && p.Type(id) != nil }
	for _, t := range p.Types[model.NumBuiltins:] {
		if local(t.Base) {
			edges = append(edges, model.Edge{From: t.ID, To: t.Base, Via: "base"})
		}
		if local(t.Element) {
			edges = append(edges, model.Edge{From: t.ID, To: t.Element, Via: "element", Collection: true})
		}
		if t.Kind == model.KindEnumerated {
			continue
		}
		for _, c := range t.Components {
			if !local(c.Type) {
				continue
			}
			edges = append(edges, model.Edge{
				From:        t.ID,
				To:          c.Type,
				Via:         c.Name,
				Optional:    c.Optional,
				Alternative: t.Kind == model.KindChoice,
			})
		}
	}
	return edges
}

// Order fills p.Edges and p.Order. Every cycle must pass through an
// indirection point, either an OPTIONAL component or a collection element.
// Those edges are flagged IndirectionRequired and ignored for ordering; any
// other cycle is an IllegalRecursion. CHOICE alternatives are never
// indirection points. Types are ordered dependencies first, ties
// going to the type created first.
func Order(p *model.Program) error {
	edges := Edges(p)
	n := len(p.Types) - model.NumBuiltins
	node := func(id model.TypeID) int { return int(id) - model.NumBuiltins }

	out := make([][]int, n)
	for i, e := range edges {
		out[node(e.From)] = append(out[node(e.From)], i)
	}
	succ := func(v int) []int {
		s := make([]int, len(out[v]))
		for i, ei := range out[v] {
			s[i] = node(edges[ei].To)
		}
		return s
	}

	var errs diag.Collector
	for _, comp := range StronglyConnected(n, succ) {
		if len(comp) == 1 && !selfLoop(edges, out[comp[0]]) {
			continue
		}
		in := make(map[int]bool, len(comp))
		for _, v := range comp {
			in[v] = true
		}
		for _, v := range comp {
			for _, ei := range out[v] {
				e := &edges[ei]
				if !in[node(e.To)] {
					continue
				}
				if e.Optional || e.Collection {
					e.IndirectionRequired = true
				}
			}
		}
		if cycle := findCycle(comp, out, edges, node); cycle != nil {
			path := make([]string, len(cycle))
			for i, v := range cycle {
				path[i] = p.Types[v+model.NumBuiltins].DisplayName()
			}
			errs.Add(&diag.IllegalRecursion{Cycle: path, Pos: p.Types[cycle[0]+model.NumBuiltins].Pos})
		}
	}
	p.Edges = edges
	if err := errs.Err(); err != nil {
		return err
	}

	direct := func(v int) []int {
		var s []int
		for _, ei := range out[v] {
			if !edges[ei].IndirectionRequired {
				s = append(s, node(edges[ei].To))
			}
		}
		return s
	}
	p.Order = p.Order[:0]
	for _, v := range Schedule(n, direct) {
		p.Order = append(p.Order, model.TypeID(v+model.NumBuiltins))
	}
	return nil
}

func selfLoop(edges []model.Edge, out []int) bool {
	for _, ei := range out {
		if edges[ei].From == edges[ei].To {
			return true
		}
	}
	return false
}

// findCycle returns a cycle of direct edges inside comp as a node path that
// starts and ends at the same node, or nil.
func findCycle(comp []int, out [][]int, edges []model.Edge, node func(model.TypeID) int) []int {
	const (
		unseen = iota
		active
		done
	)
	in := make(map[int]bool, len(comp))
	for _, v := range comp {
		in[v] = true
	}
	state := make(map[int]int, len(comp))
	var stack []int
	var cycle []int

	var visit func(v int) bool
	visit = func(v int) bool {
		state[v] = active
		stack = append(stack, v)
		for _, ei := range out[v] {
			e := edges[ei]
			w := node(e.To)
			if e.IndirectionRequired || !in[w] {
				continue
			}
			switch state[w] {
			case active:
				for i, s := range stack {
					if s == w {
						cycle = append(append(cycle, stack[i:]...), w)
						return true
					}
				}
			case unseen:
				if visit(w) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[v] = done
		return false
	}
	for _, v := range comp {
		if state[v] == unseen && visit(v) {
			return cycle
		}
	}
	return nil
}
