package model

import (
	"math/big"
	"testing"
)

func TestIntervalSetUnionMergesAdjacent(t *testing.T) {
	t.Parallel()

	s := Int64Range(1, 3).Union(Int64Range(4, 6)).Union(PointSet(big.NewInt(9)))
	if got, want := s.String(), "1..6 | 9"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIntervalSetIntersect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b IntervalSet
		want string
	}{
		{"overlap", Int64Range(0, 10), Int64Range(5, 20), "5..10"},
		{"disjoint", Int64Range(0, 3), Int64Range(5, 7), "{}"},
		{"full", FullSet(), Int64Range(-2, 2), "-2..2"},
		{"split", Int64Range(0, 3).Union(Int64Range(8, 9)), Int64Range(2, 8), "2..3 | 8"},
		{"half open", RangeSet(big.NewInt(0), nil), RangeSet(nil, big.NewInt(4)), "0..4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.Intersect(tt.b).String(); got != tt.want {
				t.Errorf("Intersect = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIntervalSetComplement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   IntervalSet
		want string
	}{
		{IntervalSet{}, "MIN..MAX"},
		{FullSet(), "{}"},
		{Int64Range(1, 3), "MIN..0 | 4..MAX"},
		{RangeSet(big.NewInt(0), nil), "MIN..-1"},
		{RangeSet(nil, big.NewInt(0)).Union(Int64Range(5, 5)), "1..4 | 6..MAX"},
	}
	for _, tt := range tests {
		if got := tt.in.Complement().String(); got != tt.want {
			t.Errorf("Complement(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIntervalSetExcept(t *testing.T) {
	t.Parallel()

	got := Int64Range(0, 10).Except(Int64Range(3, 4))
	if want := "0..2 | 5..10"; got.String() != want {
		t.Errorf("Except = %q, want %q", got, want)
	}
	if !got.Contains(big.NewInt(5)) || got.Contains(big.NewInt(3)) {
		t.Errorf("Contains mismatch for %s", got)
	}
	lo, ok := got.Min()
	if !ok || lo.Int64() != 0 {
		t.Errorf("Min() = %v, %v", lo, ok)
	}
	if _, ok := RangeSet(nil, big.NewInt(1)).Min(); ok {
		t.Error("Min() of a set unbounded below should not be ok")
	}
}

func TestIntervalSetEqual(t *testing.T) {
	t.Parallel()

	a := Int64Range(1, 2).Union(Int64Range(3, 4))
	if !a.Equal(Int64Range(1, 4)) {
		t.Errorf("%s should equal 1..4", a)
	}
	if a.Equal(Int64Range(1, 5)) {
		t.Errorf("%s should not equal 1..5", a)
	}
	if RangeSet(big.NewInt(5), big.NewInt(1)).IsEmpty() == false {
		t.Error("inverted range should be empty")
	}
}

func TestUniversalTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		num  int64
		ok   bool
	}{
		{KindBoolean, 1, true},
		{KindInteger, 2, true},
		{KindEnumerated, 10, true},
		{KindSequenceOf, 16, true},
		{KindSetOf, 17, true},
		{KindUTF8String, 12, true},
		{KindInstanceOf, 8, true},
		{KindChoice, 0, false},
		{KindOpenType, 0, false},
	}
	for _, tt := range tests {
		tag, ok := UniversalTag(tt.kind)
		if ok != tt.ok {
			t.Errorf("UniversalTag(%s) ok = %v, want %v", tt.kind, ok, tt.ok)
			continue
		}
		if !ok {
			if !tag.IsUntagged() {
				t.Errorf("UniversalTag(%s) = %s, want untagged", tt.kind, tag)
			}
			continue
		}
		if tag.Class != ClassUniversal || tag.Number != tt.num || tag.Mode != "" {
			t.Errorf("UniversalTag(%s) = %+v", tt.kind, tag)
		}
	}
}

func TestTagString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  Tag
		want string
	}{
		{Tag{Class: ClassContext, Number: 0, Mode: Implicit}, "[0] IMPLICIT"},
		{Tag{Class: ClassApplication, Number: 5}, "[APPLICATION 5]"},
		{Tag{Class: ClassUniversal, Number: 16}, "[UNIVERSAL 16]"},
		{Tag{Class: ClassPrivate, Number: 2, Mode: Explicit}, "[PRIVATE 2] EXPLICIT"},
		{Untagged, "untagged"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if !(Tag{Class: ClassContext, Number: 1, Mode: Implicit}).Same(Tag{Class: ClassContext, Number: 1, Mode: Explicit}) {
		t.Error("Same should ignore mode")
	}
}

func TestBuiltinsArena(t *testing.T) {
	t.Parallel()

	p := NewProgram()
	if len(p.Types) != NumBuiltins {
		t.Fatalf("len(Types) = %d, want %d", len(p.Types), NumBuiltins)
	}
	id := BuiltinID(KindInteger)
	if got := p.Type(id); got == nil || got.Kind != KindInteger || got.Tag.Number != 2 {
		t.Errorf("Type(BuiltinID(INTEGER)) = %+v", got)
	}
	if BuiltinID(KindSequence) != NoType {
		t.Error("SEQUENCE has no canonical descriptor")
	}
	if p.Type(NoType) != nil {
		t.Error("Type(NoType) should be nil")
	}
	if k, ok := KeywordKind("T61String"); !ok || k != KindTeletexString {
		t.Errorf("KeywordKind(T61String) = %s, %v", k, ok)
	}
}

func TestUnderlyingStopsOnCycle(t *testing.T) {
	t.Parallel()

	p := NewProgram()
	a := p.Add(&TypeDescriptor{Name: "A", Kind: KindReference, Element: NoType})
	b := p.Add(&TypeDescriptor{Name: "B", Kind: KindReference, Element: NoType, Base: a})
	p.Types[a].Base = b
	if got := p.Underlying(a); got == nil {
		t.Fatal("Underlying returned nil")
	}

	c := p.Add(&TypeDescriptor{Name: "C", Kind: KindInteger, Element: NoType, Base: BuiltinID(KindInteger)})
	if got := p.Underlying(c); got.ID != BuiltinID(KindInteger) {
		t.Errorf("Underlying(C) = %d, want built-in INTEGER", got.ID)
	}
}

func TestValueString(t *testing.T) {
	t.Parallel()

	oid := &Value{Kind: OIDValue, Arcs: []OIDArc{{Name: "iso", Number: big.NewInt(1)}, {Number: big.NewInt(3)}}}
	tests := []struct {
		v    *Value
		want string
	}{
		{Int(-7), "-7"},
		{&Value{Kind: BooleanValue, Bool: true}, "TRUE"},
		{&Value{Kind: StringValue, Text: "hi"}, `"hi"`},
		{&Value{Kind: BitsValue, Text: "0101"}, "'0101'B"},
		{oid, "{ iso(1) 3 }"},
		{&Value{Kind: ChoiceValue, Text: "a", Inner: Int(1)}, "a : 1"},
		{&Value{Kind: MaxValue}, "MAX"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
