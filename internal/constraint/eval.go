package constraint

import (
	"math/big"

	"github.com/phobologic/asn1ir/internal/model"
)

// dims is the evaluated value set of a constraint along each dimension it
// can restrict. A nil set leaves its dimension unconstrained. Permitted
// applies only when restricted is set. Opaque marks constraints, such as
// PATTERN, whose value set is not computed; they restrict nothing here.
type dims struct {
	value      *model.IntervalSet
	size       *model.IntervalSet
	alphabet   *model.IntervalSet
	permitted  []*model.Value
	restricted bool
	opaque     bool
}

func setOf(s model.IntervalSet) *model.IntervalSet { return &s }

var nonNegative = model.RangeSet(big.NewInt(0), nil)

// eval computes the value set of c on a type whose structure is gov. In an
// alphabet evaluation, values are characters.
func (r *resolver) eval(c *model.Constraint, gov *model.TypeDescriptor, alphabet bool) dims {
	switch c.Kind {
	case model.SingleValue:
		switch {
		case alphabet:
			if c.Value.Kind == model.StringValue {
				return dims{alphabet: setOf(chars(c.Value.Text))}
			}
			return dims{opaque: true}
		case gov.Kind == model.KindInteger && c.Value.IsInteger():
			return dims{value: setOf(model.PointSet(c.Value.Int))}
		}
		return dims{permitted: []*model.Value{c.Value}, restricted: true}

	case model.ValueRange:
		if alphabet {
			lo, lok := charBound(c.Lower, c.LowerOpen, 1)
			hi, hok := charBound(c.Upper, c.UpperOpen, -1)
			if !lok || !hok {
				return dims{opaque: true}
			}
			return dims{alphabet: setOf(model.RangeSet(lo, hi))}
		}
		if gov.Kind != model.KindInteger {
			return dims{opaque: true}
		}
		lo, lok := intBound(c.Lower, c.LowerOpen, 1)
		hi, hok := intBound(c.Upper, c.UpperOpen, -1)
		if !lok || !hok {
			return dims{opaque: true}
		}
		return dims{value: setOf(model.RangeSet(lo, hi))}

	case model.SizeConstraint:
		inner := r.eval(c.Inner, r.p.Types[model.BuiltinID(model.KindInteger)], false)
		if inner.opaque {
			return inner
		}
		if inner.value == nil {
			return dims{}
		}
		return dims{size: setOf(inner.value.Intersect(nonNegative))}

	case model.Alphabet:
		inner := r.eval(c.Inner, gov, true)
		return dims{alphabet: inner.alphabet, opaque: inner.opaque}

	case model.Contained:
		e := r.effective(c.Type)
		if e == nil {
			return dims{}
		}
		if alphabet {
			return dims{alphabet: e.Alphabet}
		}
		out := dims{value: e.Value, size: e.Size, alphabet: e.Alphabet}
		if e.Permitted != nil {
			out.permitted, out.restricted = e.Permitted, true
		}
		return out

	case model.Union, model.Intersection:
		var out dims
		for i, op := range c.Operands {
			d := r.eval(op, gov, alphabet)
			switch {
			case i == 0:
				out = d
			case c.Kind == model.Union:
				out = out.union(d)
			default:
				out = out.intersect(d)
			}
		}
		return out

	case model.Except:
		var out dims
		for i, op := range c.Operands {
			d := r.eval(op, gov, alphabet)
			if i == 0 {
				out = d
				continue
			}
			out = out.except(d, primary(gov.Kind, alphabet))
		}
		return out

	case model.AllExcept:
		if len(c.Operands) == 0 {
			return dims{}
		}
		return dims{}.except(r.eval(c.Operands[0], gov, alphabet), primary(gov.Kind, alphabet))
	}
	return dims{opaque: true}
}

// dimension names one field of dims.
type dimension int

const (
	dimValue dimension = iota
	dimSize
	dimAlphabet
	dimPermitted
)

// primary is the dimension a constraint removing every value empties.
func primary(k model.Kind, alphabet bool) dimension {
	switch {
	case alphabet:
		return dimAlphabet
	case k == model.KindInteger:
		return dimValue
	case k.HasSize():
		return dimSize
	}
	return dimPermitted
}

func (d dims) constrained() []dimension {
	var out []dimension
	if d.value != nil {
		out = append(out, dimValue)
	}
	if d.size != nil {
		out = append(out, dimSize)
	}
	if d.alphabet != nil {
		out = append(out, dimAlphabet)
	}
	if d.restricted {
		out = append(out, dimPermitted)
	}
	return out
}

func (d dims) intersect(o dims) dims {
	out := dims{
		value:    meet(d.value, o.value),
		size:     meet(d.size, o.size),
		alphabet: meet(d.alphabet, o.alphabet),
		opaque:   d.opaque || o.opaque,
	}
	switch {
	case d.restricted && o.restricted:
		out.permitted, out.restricted = common(d.permitted, o.permitted), true
	case d.restricted:
		out.permitted, out.restricted = d.permitted, true
	case o.restricted:
		out.permitted, out.restricted = o.permitted, true
	}
	return out
}

// union keeps a dimension only when both sides constrain it; a side that
// leaves it open admits every value along it.
func (d dims) union(o dims) dims {
	out := dims{opaque: d.opaque || o.opaque}
	if d.value != nil && o.value != nil {
		out.value = setOf(d.value.Union(*o.value))
	}
	if d.size != nil && o.size != nil {
		out.size = setOf(d.size.Union(*o.size))
	}
	if d.alphabet != nil && o.alphabet != nil {
		out.alphabet = setOf(d.alphabet.Union(*o.alphabet))
	}
	if d.restricted && o.restricted {
		out.permitted, out.restricted = merged(d.permitted, o.permitted), true
	}
	return out
}

// except removes o from d. It is exact when o restricts a single dimension.
// An o restricting nothing removes every value; an o restricting several
// dimensions, or one that is not computed, removes nothing.
func (d dims) except(o dims, all dimension) dims {
	if o.opaque {
		return d
	}
	dd := o.constrained()
	switch len(dd) {
	case 0:
		return d.emptied(all)
	case 1:
	default:
		return d
	}
	out := d
	switch dd[0] {
	case dimValue:
		out.value = setOf(orFull(d.value, model.FullSet()).Except(*o.value))
	case dimSize:
		out.size = setOf(orFull(d.size, nonNegative).Except(*o.size))
	case dimAlphabet:
		out.alphabet = setOf(orFull(d.alphabet, model.RangeSet(big.NewInt(0), nil)).Except(*o.alphabet))
	case dimPermitted:
		if d.restricted {
			out.permitted = without(d.permitted, o.permitted)
		}
	}
	return out
}

func (d dims) emptied(dim dimension) dims {
	empty := model.IntervalSet{}
	switch dim {
	case dimValue:
		d.value = setOf(empty)
	case dimSize:
		d.size = setOf(empty)
	case dimAlphabet:
		d.alphabet = setOf(empty)
	default:
		d.permitted, d.restricted = nil, true
	}
	return d
}

func meet(a, b *model.IntervalSet) *model.IntervalSet {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return setOf(a.Intersect(*b))
}

func orFull(s *model.IntervalSet, full model.IntervalSet) model.IntervalSet {
	if s == nil {
		return full
	}
	return *s
}

func common(a, b []*model.Value) []*model.Value {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v.String()] = true
	}
	var out []*model.Value
	for _, v := range a {
		if in[v.String()] {
			out = append(out, v)
		}
	}
	return out
}

func merged(a, b []*model.Value) []*model.Value {
	out := append([]*model.Value(nil), a...)
	return append(out, without(b, a)...)
}

func without(a, b []*model.Value) []*model.Value {
	drop := make(map[string]bool, len(b))
	for _, v := range b {
		drop[v.String()] = true
	}
	var out []*model.Value
	for _, v := range a {
		if !drop[v.String()] {
			out = append(out, v)
		}
	}
	return out
}

// intBound returns an integer range bound. MIN and MAX are unbounded;
// an open bound moves by step.
func intBound(v *model.Value, open bool, step int64) (*big.Int, bool) {
	switch {
	case v == nil:
		return nil, false
	case v.Kind == model.MinValue || v.Kind == model.MaxValue:
		return nil, true
	case !v.IsInteger():
		return nil, false
	}
	n := new(big.Int).Set(v.Int)
	if open {
		n.Add(n, big.NewInt(step))
	}
	return n, true
}

// charBound returns the code point of a one-character range bound.
func charBound(v *model.Value, open bool, step int64) (*big.Int, bool) {
	switch {
	case v == nil:
		return nil, false
	case v.Kind == model.MinValue || v.Kind == model.MaxValue:
		return nil, true
	case v.Kind != model.StringValue:
		return nil, false
	}
	rs := []rune(v.Text)
	if len(rs) != 1 {
		return nil, false
	}
	n := big.NewInt(int64(rs[0]))
	if open {
		n.Add(n, big.NewInt(step))
	}
	return n, true
}

// chars returns the set of code points of s.
func chars(s string) model.IntervalSet {
	var out model.IntervalSet
	for _, c := range s {
		out = out.Union(model.PointSet(big.NewInt(int64(c))))
	}
	return out
}
