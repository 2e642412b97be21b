package registry

import (
	"errors"
	"testing"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/parse"
)

func register(t *testing.T, body string) (*Registry, error) {
	t.Helper()
	f, err := parse.File("t.asn", []byte("M DEFINITIONS AUTOMATIC TAGS ::= BEGIN\n"+body+"\nEND\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Register(f.Modules[0], "t.asn")
}

func mustRegister(t *testing.T, body string) *Registry {
	t.Helper()
	r, err := register(t, body)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func named(t *testing.T, r *Registry, name string) *model.TypeDescriptor {
	t.Helper()
	sym, ok := r.Symbols[name]
	if !ok || sym.Kind != SymType {
		t.Fatalf("no type assignment %s", name)
	}
	return r.Type(sym.Type)
}

func TestRegisterHeader(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, "A ::= INTEGER")
	if r.Module.Name != "M" || r.Module.TagDefault != model.AutomaticTags {
		t.Errorf("module = %+v", r.Module)
	}
	if !r.Module.ExportsAll {
		t.Error("a module without EXPORTS exports everything")
	}
	if got := r.Types[0].ID; got != model.TypeID(model.NumBuiltins) {
		t.Errorf("first local handle = %d, want %d", got, model.NumBuiltins)
	}
}

func TestRegisterBuiltinAliases(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, `
A ::= INTEGER (1..5)
B ::= [APPLICATION 3] IMPLICIT OCTET STRING
C ::= BIT STRING { a(0), b(1) }`)

	a := named(t, r, "A")
	if a.Kind != model.KindInteger || a.Base != model.BuiltinID(model.KindInteger) {
		t.Errorf("A = kind %s base %d", a.Kind, a.Base)
	}
	if len(r.Constraints) != 1 || r.Constraints[0].Owner != a.ID {
		t.Errorf("constraints = %+v", r.Constraints)
	}

	b := named(t, r, "B")
	if b.SourceTag == nil || b.SourceTag.Class != model.ClassApplication || b.SourceTag.Number != 3 || b.SourceTag.Mode != model.Implicit {
		t.Errorf("B tag = %+v", b.SourceTag)
	}
	if b.Kind != model.KindOctetString {
		t.Errorf("B kind = %s", b.Kind)
	}

	c := named(t, r, "C")
	if len(c.NamedNumbers) != 2 || c.NamedNumbers[1].Name != "b" || c.NamedNumbers[1].Value.Int64() != 1 {
		t.Errorf("C named bits = %+v", c.NamedNumbers)
	}
}

func TestRegisterComponents(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, `
S ::= SEQUENCE {
	a INTEGER,
	b [5] Other OPTIONAL,
	...,
	c BOOLEAN,
	[[ 2: d IA5String, e NULL ]],
	...,
	f REAL DEFAULT 0
}`)
	s := named(t, r, "S")
	if s.Kind != model.KindSequence || !s.Extensible || s.ExtensionMarker != 2 {
		t.Fatalf("S = %+v", s)
	}
	type want struct {
		name    string
		ext     bool
		group   int
		version int
	}
	wants := []want{
		{"a", false, -1, 0},
		{"b", false, -1, 0},
		{"c", true, 0, 0},
		{"d", true, 1, 2},
		{"e", true, 1, 2},
		{"f", false, -1, 0},
	}
	if len(s.Components) != len(wants) {
		t.Fatalf("got %d components, want %d", len(s.Components), len(wants))
	}
	for i, w := range wants {
		c := s.Components[i]
		if c.Name != w.name || c.Extension != w.ext || c.Group != w.group || c.Version != w.version {
			t.Errorf("component %d = %s ext=%v group=%d version=%d, want %+v", i, c.Name, c.Extension, c.Group, c.Version, w)
		}
	}

	if got := s.Components[0].Type; got != model.BuiltinID(model.KindInteger) {
		t.Errorf("a type = %d, want built-in INTEGER", got)
	}
	b := s.Components[1]
	if b.Type != model.NoType || b.SourceTag == nil || b.SourceTag.Number != 5 || b.SourceTag.Mode != "" {
		t.Errorf("b = %+v", b)
	}
	var link *Link
	for i := range r.Links {
		if r.Links[i].Owner == s.ID && r.Links[i].Site == SiteComponent && r.Links[i].Index == 1 {
			link = &r.Links[i]
		}
	}
	if link == nil || link.Target.Ref.Name != "Other" || link.Scope.Module != "M" {
		t.Errorf("link for b = %+v", link)
	}
	if len(r.Values) != 1 || r.Values[0].Site != ValueDefault || r.Values[0].Index != 5 {
		t.Errorf("value links = %+v", r.Values)
	}
}

func TestRegisterAnonymousTypes(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, `
L ::= SEQUENCE SIZE (1..4) OF item INTEGER (0..9)
C ::= CHOICE { x SEQUENCE { y INTEGER }, z [1] [2] BOOLEAN }`)

	l := named(t, r, "L")
	if l.Kind != model.KindSequenceOf || l.ElementName != "item" {
		t.Fatalf("L = %+v", l)
	}
	elem := r.Type(l.Element)
	if elem == nil || elem.Name != "" || elem.Path != "L[]" || elem.Kind != model.KindInteger {
		t.Errorf("L element = %+v", elem)
	}

	c := named(t, r, "C")
	x := r.Type(c.Components[0].Type)
	if x == nil || x.Path != "C.x" || x.Kind != model.KindSequence {
		t.Errorf("C.x = %+v", x)
	}
	z := c.Components[1]
	inner := r.Type(z.Type)
	if z.SourceTag == nil || z.SourceTag.Number != 1 || inner == nil || inner.SourceTag == nil || inner.SourceTag.Number != 2 {
		t.Errorf("z = %+v inner %+v", z, inner)
	}
}

func TestRegisterComponentsOfPlaceholder(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, `
A ::= SEQUENCE { x INTEGER }
B ::= SEQUENCE { COMPONENTS OF A, y BOOLEAN }`)
	b := named(t, r, "B")
	if !b.Components[0].ComponentsOf || b.Components[1].Name != "y" {
		t.Errorf("B components = %+v %+v", b.Components[0], b.Components[1])
	}
}

func TestRegisterEnumerated(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, "E ::= ENUMERATED { a, b(5), ..., c }")
	e := named(t, r, "E")
	if e.Kind != model.KindEnumerated || e.ExtensionMarker != 2 || len(e.Components) != 3 {
		t.Fatalf("E = %+v", e)
	}
	if !e.Components[1].Numbered || e.Components[1].Number != 5 {
		t.Errorf("b = %+v", e.Components[1])
	}
	if !e.Components[2].Extension {
		t.Error("c should be an extension addition")
	}
}

func TestRegisterSymbols(t *testing.T) {
	t.Parallel()

	r := mustRegister(t, `
T ::= INTEGER
v INTEGER ::= 3
Set INTEGER ::= { 1 | 2 }
CLS ::= CLASS { &id INTEGER }
G { X } ::= SEQUENCE { x X }`)
	kinds := map[string]SymbolKind{"T": SymType, "v": SymValue, "Set": SymValueSet, "CLS": SymClass, "G": SymGeneric}
	for name, want := range kinds {
		if got := r.Symbols[name]; got == nil || got.Kind != want {
			t.Errorf("symbol %s = %+v, want %s", name, got, want)
		}
	}
	if len(r.Order) != 5 || r.Order[4].Name != "G" {
		t.Errorf("order = %v", r.Order)
	}
	if len(r.Types) != 1 {
		t.Errorf("only the plain type assignment creates a descriptor, got %d", len(r.Types))
	}
}

func TestRegisterDuplicates(t *testing.T) {
	t.Parallel()

	_, err := register(t, `
A ::= INTEGER
A ::= BOOLEAN
S ::= SEQUENCE { x INTEGER, x BOOLEAN }
E ::= ENUMERATED { r, r }`)
	errs := diag.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), err)
	}
	var dup *diag.DuplicateDefinition
	if !errors.As(errs[0], &dup) || dup.Name != "A" || dup.Container != "" || dup.Previous.Line != 3 {
		t.Errorf("first error = %v", errs[0])
	}
	if !errors.As(errs[1], &dup) || dup.Container != "S" || dup.Name != "x" {
		t.Errorf("second error = %v", errs[1])
	}
}

func TestTagDefault(t *testing.T) {
	t.Parallel()

	f, err := parse.File("t.asn", []byte("M DEFINITIONS ::= BEGIN END"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := Register(f.Modules[0], "t.asn")
	if err != nil {
		t.Fatal(err)
	}
	if r.Module.TagDefault != model.ExplicitTags {
		t.Errorf("TagDefault = %s, want EXPLICIT", r.Module.TagDefault)
	}
}
