package model

import (
	"math/big"
	"sort"
	"strings"
)

// Interval is a closed integer interval. A nil Lo is unbounded below and a
// nil Hi is unbounded above.
type Interval struct {
	Lo, Hi *big.Int
}

// IntervalSet is a set of integers stored as sorted, disjoint, non-adjacent
// intervals. The zero value is the empty set.
type IntervalSet struct {
	Ranges []Interval
}

// FullSet returns the set of all integers.
func FullSet() IntervalSet { return IntervalSet{Ranges: []Interval{{}}} }

// RangeSet returns [lo, hi]. Either bound may be nil; lo > hi yields the empty
// set.
func RangeSet(lo, hi *big.Int) IntervalSet {
	if lo != nil && hi != nil && lo.Cmp(hi) > 0 {
		return IntervalSet{}
	}
	return IntervalSet{Ranges: []Interval{{Lo: lo, Hi: hi}}}
}

// PointSet returns {n}.
func PointSet(n *big.Int) IntervalSet { return RangeSet(n, n) }

// Int64Range returns [lo, hi] for machine integers.
func Int64Range(lo, hi int64) IntervalSet { return RangeSet(big.NewInt(lo), big.NewInt(hi)) }

// IsEmpty reports whether s has no members.
func (s IntervalSet) IsEmpty() bool { return len(s.Ranges) == 0 }

// IsFull reports whether s contains every integer.
func (s IntervalSet) IsFull() bool {
	return len(s.Ranges) == 1 && s.Ranges[0].Lo == nil && s.Ranges[0].Hi == nil
}

// Min returns the lower bound; ok is false when s is empty or unbounded below.
func (s IntervalSet) Min() (*big.Int, bool) {
	if s.IsEmpty() || s.Ranges[0].Lo == nil {
		return nil, false
	}
	return s.Ranges[0].Lo, true
}

// Max returns the upper bound; ok is false when s is empty or unbounded above.
func (s IntervalSet) Max() (*big.Int, bool) {
	if s.IsEmpty() || s.Ranges[len(s.Ranges)-1].Hi == nil {
		return nil, false
	}
	return s.Ranges[len(s.Ranges)-1].Hi, true
}

// Contains reports whether n is a member of s.
func (s IntervalSet) Contains(n *big.Int) bool {
	for _, r := range s.Ranges {
		if (r.Lo == nil || r.Lo.Cmp(n) <= 0) && (r.Hi == nil || n.Cmp(r.Hi) <= 0) {
			return true
		}
	}
	return false
}

// Union returns s ∪ o.
func (s IntervalSet) Union(o IntervalSet) IntervalSet {
	all := make([]Interval, 0, len(s.Ranges)+len(o.Ranges))
	all = append(all, s.Ranges...)
	all = append(all, o.Ranges...)
	return normalize(all)
}

// Intersect returns s ∩ o.
func (s IntervalSet) Intersect(o IntervalSet) IntervalSet {
	var out []Interval
	for _, a := range s.Ranges {
		for _, b := range o.Ranges {
			lo := maxLo(a.Lo, b.Lo)
			hi := minHi(a.Hi, b.Hi)
			if lo != nil && hi != nil && lo.Cmp(hi) > 0 {
				continue
			}
			out = append(out, Interval{Lo: lo, Hi: hi})
		}
	}
	return normalize(out)
}

// Complement returns the integers not in s.
func (s IntervalSet) Complement() IntervalSet {
	if s.IsEmpty() {
		return FullSet()
	}
	var out []Interval
	var cursor *big.Int // next candidate lower bound; nil is -inf
	open := true
	for _, r := range s.Ranges {
		if r.Lo != nil {
			hi := new(big.Int).Sub(r.Lo, big.NewInt(1))
			if cursor == nil && open || cursor != nil && cursor.Cmp(hi) <= 0 {
				out = append(out, Interval{Lo: cursor, Hi: hi})
			}
		}
		if r.Hi == nil {
			return IntervalSet{Ranges: out}
		}
		cursor = new(big.Int).Add(r.Hi, big.NewInt(1))
		open = false
	}
	out = append(out, Interval{Lo: cursor})
	return IntervalSet{Ranges: out}
}

// Except returns s minus o.
func (s IntervalSet) Except(o IntervalSet) IntervalSet { return s.Intersect(o.Complement()) }

// Equal reports whether s and o have the same members.
func (s IntervalSet) Equal(o IntervalSet) bool {
	if len(s.Ranges) != len(o.Ranges) {
		return false
	}
	for i := range s.Ranges {
		if !boundEq(s.Ranges[i].Lo, o.Ranges[i].Lo) || !boundEq(s.Ranges[i].Hi, o.Ranges[i].Hi) {
			return false
		}
	}
	return true
}

func (s IntervalSet) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	parts := make([]string, len(s.Ranges))
	for i, r := range s.Ranges {
		lo, hi := "MIN", "MAX"
		if r.Lo != nil {
			lo = r.Lo.String()
		}
		if r.Hi != nil {
			hi = r.Hi.String()
		}
		if r.Lo != nil && r.Hi != nil && r.Lo.Cmp(r.Hi) == 0 {
			parts[i] = lo
		} else {
			parts[i] = lo + ".." + hi
		}
	}
	return strings.Join(parts, " | ")
}

// MarshalText renders the set in constraint notation for dumps.
func (s IntervalSet) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func boundEq(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func maxLo(a, b *big.Int) *big.Int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Cmp(b) >= 0:
		return a
	}
	return b
}

func minHi(a, b *big.Int) *big.Int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Cmp(b) <= 0:
		return a
	}
	return b
}

// normalize sorts intervals and merges overlapping or adjacent ones.
func normalize(in []Interval) IntervalSet {
	if len(in) == 0 {
		return IntervalSet{}
	}
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i].Lo, in[j].Lo
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Cmp(b) < 0
	})
	out := []Interval{in[0]}
	for _, r := range in[1:] {
		last := &out[len(out)-1]
		if last.Hi == nil {
			break
		}
		next := new(big.Int).Add(last.Hi, big.NewInt(1))
		if r.Lo == nil || r.Lo.Cmp(next) <= 0 {
			if r.Hi == nil || r.Hi.Cmp(last.Hi) > 0 {
				last.Hi = r.Hi
			}
			continue
		}
		out = append(out, r)
	}
	return IntervalSet{Ranges: out}
}
