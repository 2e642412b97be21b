package resolve

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/parse"
	"github.com/phobologic/asn1ir/internal/registry"
)

func resolveText(t *testing.T, src string, opts Options) (*model.Program, error) {
	t.Helper()
	f, err := parse.File("t.asn", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var regs []*registry.Registry
	for _, m := range f.Modules {
		reg, err := registry.Register(m, "t.asn")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		regs = append(regs, reg)
	}
	return Resolve(regs, opts)
}

func mustResolve(t *testing.T, body string) *model.Program {
	t.Helper()
	p, err := resolveText(t, "M DEFINITIONS AUTOMATIC TAGS ::= BEGIN\n"+body+"\nEND\n", Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return p
}

func typeNamed(t *testing.T, p *model.Program, module, name string) *model.TypeDescriptor {
	t.Helper()
	id := p.Lookup(module, name)
	if id == model.NoType {
		t.Fatalf("no type %s.%s", module, name)
	}
	return p.Types[id]
}

func valueNamed(t *testing.T, p *model.Program, name string) *model.ValueDef {
	t.Helper()
	for _, v := range p.Values {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("no value %s", name)
	return nil
}

func derivesFrom(p *model.Program, id, from model.TypeID) bool {
	t := p.Type(id)
	return t != nil && slices.Contains(t.Derivation, from)
}

func TestResolveImports(t *testing.T) {
	t.Parallel()

	p, err := resolveText(t, `
User DEFINITIONS ::= BEGIN
	IMPORTS Id FROM Common;
	Person ::= SEQUENCE { id Id, name UTF8String }
END
Common DEFINITIONS ::= BEGIN
	EXPORTS Id;
	Id ::= INTEGER
END`, Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	id := p.Lookup("Common", "Id")
	person := typeNamed(t, p, "User", "Person")
	if !derivesFrom(p, person.Components[0].Type, id) {
		t.Errorf("Person.id does not resolve to Common.Id: %v", p.Types[person.Components[0].Type].Derivation)
	}
	if got := p.Underlying(person.Components[1].Type).Kind; got != model.KindUTF8String {
		t.Errorf("Person.name kind = %s", got)
	}
	if diff := cmp.Diff([]string{"Common", "User"}, p.ModuleOrder); diff != "" {
		t.Errorf("module order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSymbolErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, err error)
	}{
		{
			name: "not exported",
			src: `
A DEFINITIONS ::= BEGIN EXPORTS X; X ::= INTEGER Y ::= BOOLEAN END
B DEFINITIONS ::= BEGIN IMPORTS Y FROM A; T ::= Y END`,
			check: func(t *testing.T, err error) {
				var ne *diag.NotExported
				if !errors.As(err, &ne) || ne.Name != "Y" || ne.From != "A" {
					t.Errorf("err = %v, want NotExported Y from A", err)
				}
			},
		},
		{
			name: "ambiguous",
			src: `
A DEFINITIONS ::= BEGIN X ::= INTEGER END
C DEFINITIONS ::= BEGIN X ::= BOOLEAN END
B DEFINITIONS ::= BEGIN IMPORTS X FROM A X FROM C; T ::= X END`,
			check: func(t *testing.T, err error) {
				var as *diag.AmbiguousSymbol
				if !errors.As(err, &as) {
					t.Fatalf("err = %v, want AmbiguousSymbol", err)
				}
				if diff := cmp.Diff([]string{"A", "C"}, as.Candidates); diff != "" {
					t.Errorf("candidates mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "import cycle",
			src: `
A DEFINITIONS ::= BEGIN IMPORTS X FROM B; T ::= X END
B DEFINITIONS ::= BEGIN IMPORTS X FROM A; U ::= X END`,
			check: func(t *testing.T, err error) {
				var ic *diag.ImportCycle
				if !errors.As(err, &ic) || ic.Name != "X" {
					t.Errorf("err = %v, want ImportCycle for X", err)
				}
			},
		},
		{
			name: "unknown module",
			src:  "A DEFINITIONS ::= BEGIN IMPORTS X FROM Commn; T ::= X END\nCommon DEFINITIONS ::= BEGIN X ::= INTEGER END",
			check: func(t *testing.T, err error) {
				var us *diag.UnresolvedSymbol
				if !errors.As(err, &us) || us.Name != "Commn" || us.Suggestion != "Common" {
					t.Errorf("err = %v, want UnresolvedSymbol Commn suggesting Common", err)
				}
			},
		},
		{
			name: "unresolved with suggestion",
			src:  "A DEFINITIONS ::= BEGIN Record ::= SEQUENCE { r Recrd } END",
			check: func(t *testing.T, err error) {
				var us *diag.UnresolvedSymbol
				if !errors.As(err, &us) || us.Name != "Recrd" || us.Suggestion != "Record" {
					t.Errorf("err = %v, want UnresolvedSymbol Recrd suggesting Record", err)
				}
			},
		},
		{
			name: "unresolved without a close name",
			src:  "A DEFINITIONS ::= BEGIN T ::= SEQUENCE { r Unrelated } END",
			check: func(t *testing.T, err error) {
				var us *diag.UnresolvedSymbol
				if !errors.As(err, &us) || us.Suggestion != "" {
					t.Errorf("err = %v, want UnresolvedSymbol without suggestion", err)
				}
			},
		},
		{
			name: "duplicate module",
			src:  "A DEFINITIONS ::= BEGIN T ::= INTEGER END\nA DEFINITIONS ::= BEGIN U ::= INTEGER END",
			check: func(t *testing.T, err error) {
				var dd *diag.DuplicateDefinition
				if !errors.As(err, &dd) || dd.Name != "A" {
					t.Errorf("err = %v, want DuplicateDefinition of module A", err)
				}
			},
		},
		{
			name: "class used as a type",
			src:  "A DEFINITIONS ::= BEGIN C ::= CLASS { &id INTEGER } T ::= SEQUENCE { c C } END",
			check: func(t *testing.T, err error) {
				var te *diag.TypeError
				if !errors.As(err, &te) {
					t.Errorf("err = %v, want TypeError", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveText(t, tt.src, Options{})
			if err == nil {
				t.Fatal("Resolve succeeded, want an error")
			}
			tt.check(t, err)
		})
	}
}

func TestResolveBatchesErrors(t *testing.T) {
	t.Parallel()

	_, err := resolveText(t, `
M DEFINITIONS ::= BEGIN
	A ::= SEQUENCE { x Nope1, y Nope2 }
	B ::= Nope3
END`, Options{})
	var names []string
	for _, e := range diag.Errors(err) {
		var us *diag.UnresolvedSymbol
		if errors.As(e, &us) {
			names = append(names, us.Name)
		}
	}
	if diff := cmp.Diff([]string{"Nope1", "Nope2", "Nope3"}, names); diff != "" {
		t.Errorf("unresolved names mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveModuleOrderOption(t *testing.T) {
	t.Parallel()

	p, err := resolveText(t, `
A DEFINITIONS ::= BEGIN X ::= INTEGER END
B DEFINITIONS ::= BEGIN Y ::= INTEGER END`, Options{ModuleOrder: []string{"B", "Missing"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"B", "A"}, p.ModuleOrder); diff != "" {
		t.Errorf("module order mismatch (-want +got):\n%s", diff)
	}
	if p.Lookup("B", "Y") > p.Lookup("A", "X") {
		t.Error("preferred module types should be laid out first")
	}
}

func TestInstantiationIsMemoized(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, `
Wrapper { Payload, INTEGER : max } ::= SEQUENCE { body Payload, n INTEGER (0..max) }
First ::= Wrapper { BOOLEAN, 10 }
Second ::= Wrapper { BOOLEAN, 10 }
Other ::= Wrapper { INTEGER, 10 }`)

	first, second, other := typeNamed(t, p, "M", "First"), typeNamed(t, p, "M", "Second"), typeNamed(t, p, "M", "Other")
	if first.Base != second.Base {
		t.Errorf("identical actuals instantiate twice: %d and %d", first.Base, second.Base)
	}
	if first.Base == other.Base {
		t.Error("different actuals share an instance")
	}

	inst := p.Types[first.Base]
	if inst.Generic != "Wrapper" || inst.Name != "Wrapper{BOOLEAN, 10}" {
		t.Errorf("instance = %q of %q", inst.Name, inst.Generic)
	}
	if diff := cmp.Diff([]string{"BOOLEAN", "10"}, inst.Actuals); diff != "" {
		t.Errorf("actuals mismatch (-want +got):\n%s", diff)
	}
	if got := p.Underlying(inst.Components[0].Type).Kind; got != model.KindBoolean {
		t.Errorf("body kind = %s, want BOOLEAN", got)
	}
	n := p.Types[inst.Components[1].Type]
	if len(n.Constraints) != 1 || n.Constraints[0].Upper == nil || n.Constraints[0].Upper.Int.Int64() != 10 {
		t.Errorf("n constraints = %+v, want 0..10", n.Constraints)
	}
	if got := p.Underlying(p.Types[other.Base].Components[0].Type).Kind; got != model.KindInteger {
		t.Errorf("Other body kind = %s, want INTEGER", got)
	}
}

func TestInstantiationArity(t *testing.T) {
	t.Parallel()

	_, err := resolveText(t, `
M DEFINITIONS ::= BEGIN
	Pair { A, B } ::= SEQUENCE { a A, b B }
	T ::= Pair { INTEGER }
END`, Options{})
	var te *diag.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TypeError", err)
	}
}

func TestComponentsOf(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, `
Base ::= SEQUENCE { a INTEGER, b BOOLEAN OPTIONAL, ..., x NULL }
S ::= SEQUENCE { COMPONENTS OF Base, c UTF8String }`)

	s := typeNamed(t, p, "M", "S")
	var names []string
	for _, c := range s.Components {
		names = append(names, c.Name)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
	if !s.Components[0].FromComponentsOf || !s.Components[1].FromComponentsOf || s.Components[2].FromComponentsOf {
		t.Errorf("copy flags = %v %v %v", s.Components[0].FromComponentsOf, s.Components[1].FromComponentsOf, s.Components[2].FromComponentsOf)
	}
	if !s.Components[1].Optional {
		t.Error("copied components keep OPTIONAL")
	}
	base := typeNamed(t, p, "M", "Base")
	if s.Components[0] == base.Components[0] {
		t.Error("copied component aliases the source")
	}
}

func TestComponentsOfErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want func(error) bool
	}{
		{
			name: "from a choice",
			body: "C ::= CHOICE { a INTEGER }\nS ::= SEQUENCE { COMPONENTS OF C }",
			want: func(err error) bool { var te *diag.TypeError; return errors.As(err, &te) },
		},
		{
			name: "from itself",
			body: "S ::= SEQUENCE { a INTEGER, COMPONENTS OF S }",
			want: func(err error) bool { var te *diag.TypeError; return errors.As(err, &te) },
		},
		{
			name: "duplicate name",
			body: "Base ::= SEQUENCE { a INTEGER }\nS ::= SEQUENCE { a BOOLEAN, COMPONENTS OF Base }",
			want: func(err error) bool {
				var dd *diag.DuplicateDefinition
				return errors.As(err, &dd) && dd.Container == "S" && dd.Name == "a"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveText(t, "M DEFINITIONS ::= BEGIN\n"+tt.body+"\nEND", Options{})
			if !tt.want(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestSelectionTypes(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, `
C ::= CHOICE { a INTEGER, b BOOLEAN }
Alias ::= C
T ::= b < Alias`)
	if got := p.Underlying(p.Lookup("M", "T")).Kind; got != model.KindBoolean {
		t.Errorf("T kind = %s, want BOOLEAN", got)
	}

	for name, body := range map[string]string{
		"missing alternative": "C ::= CHOICE { a INTEGER }\nT ::= z < C",
		"not a choice":        "S ::= SEQUENCE { a INTEGER }\nT ::= a < S",
	} {
		_, err := resolveText(t, "M DEFINITIONS ::= BEGIN\n"+body+"\nEND", Options{})
		var te *diag.TypeError
		if !errors.As(err, &te) || te.Type != "T" {
			t.Errorf("%s: err = %v, want TypeError on T", name, err)
		}
	}
}

func TestValuesAndDefaults(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, `
maxV INTEGER ::= 10
Colour ::= ENUMERATED { red, green(5), blue }
S ::= SEQUENCE { n INTEGER DEFAULT maxV, c Colour DEFAULT green, f BOOLEAN DEFAULT TRUE }
base OBJECT IDENTIFIER ::= { 1 2 }
child OBJECT IDENTIFIER ::= { base 3 }
named OBJECT IDENTIFIER ::= { iso member-body(2) 840 }`)

	s := typeNamed(t, p, "M", "S")
	n, c, f := s.Components[0].Default, s.Components[1].Default, s.Components[2].Default
	if n == nil || n.Int.Int64() != 10 || n.Ref != "M.maxV" {
		t.Errorf("n default = %+v", n)
	}
	if c == nil || c.Kind != model.IdentifierValue || c.Text != "green" || c.Int.Int64() != 5 {
		t.Errorf("c default = %+v", c)
	}
	if f == nil || f.Kind != model.BooleanValue || !f.Bool {
		t.Errorf("f default = %+v", f)
	}

	if got := valueNamed(t, p, "child").Value.String(); got != "{ 1 2 3 }" {
		t.Errorf("child = %s", got)
	}
	if got := valueNamed(t, p, "named").Value.String(); got != "{ iso(1) member-body(2) 840 }" {
		t.Errorf("named = %s", got)
	}
	var order []string
	for _, v := range p.Values {
		order = append(order, v.Name)
	}
	if diff := cmp.Diff([]string{"maxV", "base", "child", "named"}, order); diff != "" {
		t.Errorf("value order mismatch (-want +got):\n%s", diff)
	}
}

func TestValueErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"self reference":     "a INTEGER ::= b\nb INTEGER ::= a",
		"no such choice":     "C ::= CHOICE { x INTEGER }\nv C ::= y : 1",
		"object used as value": "OP ::= CLASS { &id INTEGER } WITH SYNTAX { CODE &id }\nop1 OP ::= { CODE 1 }\nv INTEGER ::= op1",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveText(t, "M DEFINITIONS ::= BEGIN\n"+body+"\nEND", Options{})
			var ve *diag.ValueError
			if !errors.As(err, &ve) {
				t.Errorf("err = %v, want ValueError", err)
			}
		})
	}
}

const operations = `
OPERATION ::= CLASS {
	&id   INTEGER UNIQUE,
	&Arg  OPTIONAL,
	&prio &Arg DEFAULT 0
} WITH SYNTAX { CODE &id [ARGUMENT &Arg] }

op1 OPERATION ::= { CODE 1 ARGUMENT INTEGER }
op2 OPERATION ::= { CODE 2 ARGUMENT BOOLEAN }
Ops OPERATION ::= { op1 | op2 | { CODE 3 }, ... }
Msg ::= SEQUENCE {
	code OPERATION.&id ({Ops}),
	arg  OPERATION.&Arg ({Ops}{@code})
}
Inline ::= SEQUENCE { code OPERATION.&id ({Ops}), arg OPERATION.&Arg ({op1 | op2}{@code}) }
`

func TestClassesAndObjects(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, operations)

	var cls *model.Class
	for _, c := range p.Classes {
		if c.Name == "OPERATION" {
			cls = c
		}
	}
	if cls == nil {
		t.Fatal("no class OPERATION")
	}
	kinds := make(map[string]model.FieldKind)
	for _, f := range cls.Fields {
		kinds[f.Name] = f.Kind
	}
	wantKinds := map[string]model.FieldKind{
		"&id":   model.FixedTypeValueField,
		"&Arg":  model.TypeField,
		"&prio": model.VariableTypeValueField,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("field kinds mismatch (-want +got):\n%s", diff)
	}

	var op1 *model.Object
	for _, o := range p.Objects {
		if o.Name == "op1" {
			op1 = o
		}
	}
	if op1 == nil || op1.Class != "M.OPERATION" {
		t.Fatalf("op1 = %+v", op1)
	}
	if s := op1.Setting("&id"); s == nil || s.Value.Int.Int64() != 1 {
		t.Errorf("op1 &id = %+v", s)
	}
	if s := op1.Setting("&Arg"); s == nil || p.Underlying(s.Type).Kind != model.KindInteger {
		t.Errorf("op1 &Arg = %+v", s)
	}
	if s := op1.Setting("&prio"); s == nil || s.Value.Int.Int64() != 0 {
		t.Errorf("op1 &prio default = %+v", s)
	}

	var ops *model.ObjectSet
	for _, os := range p.ObjectSets {
		if os.Name == "Ops" {
			ops = os
		}
	}
	if ops == nil || len(ops.Objects) != 3 || !ops.Extensible || ops.Class != "M.OPERATION" {
		t.Fatalf("Ops = %+v", ops)
	}
	if third := p.Objects[ops.Objects[2]]; third.Setting("&Arg") != nil {
		t.Errorf("inline object sets an optional field it omitted: %+v", third.Settings)
	}

	msg := typeNamed(t, p, "M", "Msg")
	code := p.Types[msg.Components[0].Type]
	if p.Underlying(code.ID).Kind != model.KindInteger {
		t.Errorf("code kind = %s", p.Underlying(code.ID).Kind)
	}
	if len(code.Constraints) != 1 || code.Constraints[0].Kind != model.Table || code.Constraints[0].ObjectSet != "M.Ops" {
		t.Errorf("code constraints = %+v", code.Constraints)
	}
	arg := p.Types[msg.Components[1].Type]
	if arg.Kind != model.KindOpenType {
		t.Errorf("arg kind = %s, want open type", arg.Kind)
	}
	var field string
	for _, id := range arg.Derivation {
		if f := p.Types[id].Field; f != "" {
			field = f
		}
	}
	if field != "&Arg" {
		t.Errorf("arg does not derive from the &Arg open type: %v", arg.Derivation)
	}
	if len(arg.Constraints) != 1 {
		t.Fatalf("arg constraints = %+v", arg.Constraints)
	}
	want := []model.AtNotation{{Level: 0, Path: []string{"code"}}}
	if diff := cmp.Diff(want, arg.Constraints[0].AtNotation); diff != "" {
		t.Errorf("component relation mismatch (-want +got):\n%s", diff)
	}

	inline := typeNamed(t, p, "M", "Inline")
	if got := p.Types[inline.Components[1].Type].Constraints[0].ObjectSet; got != "{op1 | op2}" {
		t.Errorf("inline object set = %q", got)
	}
}

func TestPredefinedClasses(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, `
MY-ID ::= TYPE-IDENTIFIER
obj MY-ID ::= { INTEGER IDENTIFIED BY { 1 2 } }`)
	if len(p.Objects) != 1 {
		t.Fatalf("objects = %+v", p.Objects)
	}
	o := p.Objects[0]
	if o.Class != "TYPE-IDENTIFIER" {
		t.Errorf("class = %q", o.Class)
	}
	if s := o.Setting("&Type"); s == nil || s.Type != model.BuiltinID(model.KindInteger) {
		t.Errorf("&Type = %+v", s)
	}
	if s := o.Setting("&id"); s == nil || s.Value.String() != "{ 1 2 }" {
		t.Errorf("&id = %+v", s)
	}
	assign := p.Module("M").Assignments
	if assign[0].Kind != model.ClassAssignment || assign[1].Kind != model.ObjectAssignment {
		t.Errorf("assignments = %+v", assign)
	}
}

func TestObjectErrors(t *testing.T) {
	t.Parallel()

	class := "OPERATION ::= CLASS { &id INTEGER UNIQUE, &Arg OPTIONAL } WITH SYNTAX { CODE &id [ARGUMENT &Arg] }\n"
	tests := []struct {
		name string
		body string
		want func(error) bool
	}{
		{
			name: "missing required field",
			body: class + "op OPERATION ::= { ARGUMENT INTEGER }",
			want: func(err error) bool { var ve *diag.ValueError; return errors.As(err, &ve) },
		},
		{
			name: "trailing tokens",
			body: class + "op OPERATION ::= { CODE 1 EXTRA }",
			want: func(err error) bool { var ve *diag.ValueError; return errors.As(err, &ve) },
		},
		{
			name: "unknown syntax field",
			body: "C ::= CLASS { &id INTEGER } WITH SYNTAX { ID &nope }",
			want: func(err error) bool { var te *diag.TypeError; return errors.As(err, &te) && te.Type == "C" },
		},
		{
			name: "complemented object set",
			body: class + "op OPERATION ::= { CODE 1 }\nOps OPERATION ::= { ALL EXCEPT op }",
			want: func(err error) bool { var ve *diag.ValueError; return errors.As(err, &ve) },
		},
		{
			name: "duplicate field",
			body: "C ::= CLASS { &id INTEGER, &id BOOLEAN }",
			want: func(err error) bool {
				var dd *diag.DuplicateDefinition
				return errors.As(err, &dd) && dd.Container == "C"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolveText(t, "M DEFINITIONS ::= BEGIN\n"+tt.body+"\nEND", Options{})
			if !tt.want(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestAssignmentsFollowDeclarationOrder(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, operations+`
limit INTEGER ::= 3
Small ::= INTEGER (0..limit)
Generic { T } ::= SEQUENCE { t T }`)

	var got []model.AssignmentKind
	for _, a := range p.Module("M").Assignments {
		got = append(got, a.Kind)
	}
	want := []model.AssignmentKind{
		model.ClassAssignment,
		model.ObjectAssignment,
		model.ObjectAssignment,
		model.ObjectSetAssignment,
		model.TypeAssignment,
		model.TypeAssignment,
		model.ValueAssignment,
		model.TypeAssignment,
		model.GenericAssignment,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assignment kinds mismatch (-want +got):\n%s", diff)
	}
	for _, a := range p.Module("M").Assignments {
		if a.Kind == model.GenericAssignment && a.Index != -1 {
			t.Errorf("generic %s has index %d", a.Name, a.Index)
		}
	}
}

func TestDerivationChains(t *testing.T) {
	t.Parallel()

	p := mustResolve(t, `
A ::= SEQUENCE { x INTEGER }
B ::= A
C ::= B`)
	a, b, c := p.Lookup("M", "A"), p.Lookup("M", "B"), p.Lookup("M", "C")
	if diff := cmp.Diff([]model.TypeID{c, b, a}, p.Types[c].Derivation); diff != "" {
		t.Errorf("derivation mismatch (-want +got):\n%s", diff)
	}
	if p.Types[c].Kind != model.KindSequence {
		t.Errorf("C kind = %s, want SEQUENCE", p.Types[c].Kind)
	}
}
