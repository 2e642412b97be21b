package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

func adjacency(edges map[int][]int) func(int) []int {
	return func(v int) []int { return edges[v] }
}

func TestStronglyConnected(t *testing.T) {
	t.Parallel()

	// 0 -> 1 -> 2 -> 0, 2 -> 3, 4 alone, 5 -> 5
	comps := StronglyConnected(6, adjacency(map[int][]int{0: {1}, 1: {2}, 2: {0, 3}, 5: {5}}))
	want := [][]int{{3}, {0, 1, 2}, {4}, {5}}
	if diff := cmp.Diff(want, comps); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleDependenciesFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     int
		edges map[int][]int
		want  []int
	}{
		{"independent nodes keep their order", 3, nil, []int{0, 1, 2}},
		{"chain", 3, map[int][]int{0: {1}, 1: {2}}, []int{2, 1, 0}},
		{"ties go to the smaller node", 4, map[int][]int{3: {0}, 1: {2}}, []int{0, 2, 1, 3}},
		{"cycle kept together", 4, map[int][]int{0: {2}, 2: {3}, 3: {2}}, []int{1, 2, 3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Schedule(tt.n, adjacency(tt.edges))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// program is a hand-built arena for graph tests.
type program struct {
	p *model.Program
}

func newProgram() *program { return &program{p: model.NewProgram()} }

func (b *program) add(name string, kind model.Kind, comps ...*model.Component) model.TypeID {
	return b.p.Add(&model.TypeDescriptor{
		Module:          "M",
		Name:            name,
		Path:            name,
		Kind:            kind,
		Components:      comps,
		Element:         model.NoType,
		Base:            model.NoType,
		ExtensionMarker: -1,
	})
}

func comp(name string, typ model.TypeID, optional bool) *model.Component {
	return &model.Component{Name: name, Type: typ, Optional: optional, Group: -1}
}

func (b *program) edge(from, to model.TypeID, via string) model.Edge {
	for _, e := range b.p.Edges {
		if e.From == from && e.To == to && e.Via == via {
			return e
		}
	}
	return model.Edge{}
}

func TestEdges(t *testing.T) {
	t.Parallel()

	b := newProgram()
	integer := model.BuiltinID(model.KindInteger)
	leaf := b.add("Leaf", model.KindSequence, comp("x", integer, false))
	list := b.add("List", model.KindSequenceOf)
	b.p.Types[list].Element = leaf
	alias := b.add("Alias", model.KindSequence)
	b.p.Types[alias].Base = leaf
	choice := b.add("C", model.KindChoice, comp("l", leaf, false), comp("n", integer, false))
	b.add("E", model.KindEnumerated, comp("red", model.NoType, false))

	got := Edges(b.p)
	want := []model.Edge{
		{From: list, To: leaf, Via: "element", Collection: true},
		{From: alias, To: leaf, Via: "base"},
		{From: choice, To: leaf, Via: "l", Alternative: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderAcyclic(t *testing.T) {
	t.Parallel()

	b := newProgram()
	outer := b.add("Outer", model.KindSequence)
	inner := b.add("Inner", model.KindSequence, comp("x", model.BuiltinID(model.KindBoolean), false))
	other := b.add("Other", model.KindSequence)
	b.p.Types[outer].Components = []*model.Component{comp("i", inner, false)}

	if err := Order(b.p); err != nil {
		t.Fatalf("Order: %v", err)
	}
	want := []model.TypeID{inner, outer, other}
	if diff := cmp.Diff(want, b.p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderIndirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(b *program) (from, to model.TypeID, via string)
	}{
		{
			name: "optional self reference",
			build: func(b *program) (model.TypeID, model.TypeID, string) {
				node := b.add("Node", model.KindSequence)
				b.p.Types[node].Components = []*model.Component{comp("next", node, true)}
				return node, node, "next"
			},
		},
		{
			name: "collection element",
			build: func(b *program) (model.TypeID, model.TypeID, string) {
				tree := b.add("Tree", model.KindSequence)
				kids := b.add("Kids", model.KindSequenceOf)
				b.p.Types[kids].Element = tree
				b.p.Types[tree].Components = []*model.Component{comp("kids", kids, false)}
				return kids, tree, "element"
			},
		},
		{
			name: "choice through a collection",
			build: func(b *program) (model.TypeID, model.TypeID, string) {
				expr := b.add("Expr", model.KindChoice)
				args := b.add("Args", model.KindSequenceOf)
				b.p.Types[args].Element = expr
				b.p.Types[expr].Components = []*model.Component{
					comp("lit", model.BuiltinID(model.KindInteger), false),
					comp("call", args, false),
				}
				return args, expr, "element"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newProgram()
			from, to, via := tt.build(b)
			if err := Order(b.p); err != nil {
				t.Fatalf("Order: %v", err)
			}
			if !b.edge(from, to, via).IndirectionRequired {
				t.Errorf("edge %d -%s-> %d not flagged: %+v", from, via, to, b.p.Edges)
			}
			if len(b.p.Order) != len(b.p.Types)-model.NumBuiltins {
				t.Errorf("order has %d of %d types", len(b.p.Order), len(b.p.Types)-model.NumBuiltins)
			}
		})
	}
}

func TestOrderIllegalRecursion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(b *program)
	}{
		{
			name: "mandatory mutual recursion",
			build: func(b *program) {
				a := b.add("A", model.KindSequence)
				bb := b.add("B", model.KindSequence, comp("a", a, false))
				b.p.Types[a].Components = []*model.Component{comp("b", bb, false)}
			},
		},
		{
			name: "choice alternative with an exit",
			build: func(b *program) {
				expr := b.add("Expr", model.KindChoice)
				b.p.Types[expr].Components = []*model.Component{
					comp("lit", model.BuiltinID(model.KindInteger), false),
					comp("neg", expr, false),
				}
			},
		},
		{
			name: "choice without an exit",
			build: func(b *program) {
				c := b.add("Loop", model.KindChoice)
				b.p.Types[c].Components = []*model.Component{comp("again", c, false)}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newProgram()
			tt.build(b)
			err := Order(b.p)
			var ir *diag.IllegalRecursion
			if !errors.As(err, &ir) {
				t.Fatalf("err = %v, want IllegalRecursion", err)
			}
			if len(ir.Cycle) < 2 || ir.Cycle[0] != ir.Cycle[len(ir.Cycle)-1] {
				t.Errorf("cycle = %v, want a closed path", ir.Cycle)
			}
		})
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *model.Program {
		b := newProgram()
		a := b.add("A", model.KindSequence)
		c := b.add("C", model.KindChoice)
		d := b.add("D", model.KindSequenceOf)
		b.p.Types[d].Element = a
		b.p.Types[a].Components = []*model.Component{comp("c", c, false)}
		b.p.Types[c].Components = []*model.Component{comp("d", d, false), comp("n", model.BuiltinID(model.KindNull), false)}
		b.add("Z", model.KindSequence, comp("a", a, true))
		return b.p
	}
	first, second := build(), build()
	if err := Order(first); err != nil {
		t.Fatal(err)
	}
	if err := Order(second); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first.Order, second.Order); diff != "" {
		t.Errorf("orders differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Edges, second.Edges); diff != "" {
		t.Errorf("edges differ (-first +second):\n%s", diff)
	}
}
