package graph

import (
	"container/heap"
	"sort"
)

// StronglyConnected returns the strongly connected components of the graph
// over nodes 0..n-1, using Tarjan's algorithm. Components are returned
// dependencies first (a component follows every component it reaches) and
// the nodes of each component are sorted.
func StronglyConnected(n int, succ func(int) []int) [][]int {
	t := &tarjan{
		succ:    succ,
		index:   make([]int, n),
		low:     make([]int, n),
		onStack: make([]bool, n),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for v := 0; v < n; v++ {
		if t.index[v] < 0 {
			t.visit(v)
		}
	}
	return t.comps
}

type tarjan struct {
	succ    func(int) []int
	index   []int
	low     []int
	onStack []bool
	stack   []int
	next    int
	comps   [][]int
}

func (t *tarjan) visit(v int) {
	t.index[v], t.low[v] = t.next, t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.succ(v) {
		switch {
		case t.index[w] < 0:
			t.visit(w)
			t.low[v] = min(t.low[v], t.low[w])
		case t.onStack[w]:
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var comp []int
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		comp = append(comp, w)
		if w == v {
			break
		}
	}
	sort.Ints(comp)
	t.comps = append(t.comps, comp)
}

// Schedule orders nodes 0..n-1 so that every node comes after the nodes it
// reaches. Nodes of one strongly connected component are kept together in
// ascending order. Among components that are ready at the same time the one
// holding the smallest node goes first, so the result depends only on the
// graph.
func Schedule(n int, succ func(int) []int) []int {
	comps := StronglyConnected(n, succ)
	compOf := make([]int, n)
	for c, nodes := range comps {
		for _, v := range nodes {
			compOf[v] = c
		}
	}

	// pending counts the distinct components each component waits on;
	// users lists who waits on it.
	pending := make([]int, len(comps))
	users := make([][]int, len(comps))
	for c, nodes := range comps {
		seen := map[int]bool{c: true}
		for _, v := range nodes {
			for _, w := range succ(v) {
				d := compOf[w]
				if !seen[d] {
					seen[d] = true
					pending[c]++
					users[d] = append(users[d], c)
				}
			}
		}
	}

	ready := &compHeap{comps: comps}
	for c := range comps {
		if pending[c] == 0 {
			heap.Push(ready, c)
		}
	}
	order := make([]int, 0, n)
	for ready.Len() > 0 {
		c := heap.Pop(ready).(int)
		order = append(order, comps[c]...)
		for _, u := range users[c] {
			pending[u]--
			if pending[u] == 0 {
				heap.Push(ready, u)
			}
		}
	}
	return order
}

// compHeap is a min-heap of component indices keyed by their smallest node.
type compHeap struct {
	comps [][]int
	items []int
}

func (h *compHeap) Len() int           { return len(h.items) }
func (h *compHeap) Less(i, j int) bool { return h.comps[h.items[i]][0] < h.comps[h.items[j]][0] }
func (h *compHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *compHeap) Push(x any)         { h.items = append(h.items, x.(int)) }
func (h *compHeap) Pop() any {
	old := h.items
	x := old[len(old)-1]
	h.items = old[:len(old)-1]
	return x
}
