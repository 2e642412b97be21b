package compile

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"

	"github.com/phobologic/asn1ir/internal/diag"
	"github.com/phobologic/asn1ir/internal/model"
)

func src(name, text string) Source { return Source{Name: name, Text: []byte(text)} }

func mustCompile(t *testing.T, opts Options, sources ...Source) *model.Program {
	t.Helper()
	p, err := Compile(sources, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return p
}

func TestCompileWorkedExamples(t *testing.T) {
	t.Parallel()

	p := mustCompile(t, Options{}, src("foo.asn", `
Auto DEFINITIONS AUTOMATIC TAGS ::= BEGIN
	Foo ::= SEQUENCE { a INTEGER, b BOOLEAN }
	Bar ::= SEQUENCE { x INTEGER, ..., y BOOLEAN }
END`))

	foo := p.Types[p.Lookup("Auto", "Foo")]
	want := []model.Tag{
		{Class: model.ClassContext, Number: 0, Mode: model.Implicit},
		{Class: model.ClassContext, Number: 1, Mode: model.Implicit},
	}
	for i, c := range foo.Components {
		if c.Tag != want[i] {
			t.Errorf("Foo.%s = %s, want %s", c.Name, c.Tag, want[i])
		}
	}

	bar := p.Types[p.Lookup("Auto", "Bar")]
	wantExt := &model.Extension{RootCount: 1, Groups: []model.ExtensionGroup{{Index: 0, Components: []int{1}}}}
	if diff := cmp.Diff(wantExt, bar.Extension); diff != "" {
		t.Errorf("Bar extension mismatch (-want +got):\n%s", diff)
	}
	if len(p.Order) != 2 {
		t.Errorf("order = %v, want both types", p.Order)
	}
}

func TestCompileAcrossModules(t *testing.T) {
	t.Parallel()

	user := src("user.asn", `
User DEFINITIONS ::= BEGIN
	IMPORTS Id FROM Common;
	Person ::= SEQUENCE { id Id, name UTF8String }
END`)
	common := src("common.asn", `
Common DEFINITIONS ::= BEGIN
	Id ::= INTEGER (0..65535)
END`)
	p := mustCompile(t, Options{Workers: 2}, user, common)

	if diff := cmp.Diff([]string{"Common", "User"}, p.ModuleOrder); diff != "" {
		t.Errorf("module order mismatch (-want +got):\n%s", diff)
	}
	id, person := p.Lookup("Common", "Id"), p.Lookup("User", "Person")
	pos := make(map[model.TypeID]int)
	for i, tid := range p.Order {
		pos[tid] = i
	}
	if pos[id] >= pos[person] {
		t.Errorf("Id should be ordered before Person: %v", p.Order)
	}
	if got := p.Types[id].Effective.IntegerWidth; got != model.Uint16 {
		t.Errorf("Id width = %s, want uint16", got)
	}
}

func TestCompileCollectsParseErrors(t *testing.T) {
	t.Parallel()

	_, err := Compile([]Source{
		src("a.asn", "A DEFINITIONS ::= BEGIN T ::= END"),
		src("ok.asn", "Ok DEFINITIONS ::= BEGIN T ::= INTEGER END"),
		src("b.asn", "B DEFINITIONS ::= BEGIN T ::= SEQUENCE { END"),
	}, Options{})
	errs := diag.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), err)
	}
	for i, file := range []string{"a.asn", "b.asn"} {
		var pe *diag.ParseError
		if !errors.As(errs[i], &pe) || pe.File != file {
			t.Errorf("error %d = %v, want a parse error in %s", i, errs[i], file)
		}
	}
}

func TestCompileStopsAtFirstFailingStage(t *testing.T) {
	t.Parallel()

	p, err := Compile([]Source{src("m.asn", `
M DEFINITIONS AUTOMATIC TAGS ::= BEGIN
	S ::= SET { a [1] INTEGER, b INTEGER, c INTEGER }
	Loop ::= SEQUENCE { again Loop }
END`)}, Options{})
	if p != nil {
		t.Error("a failed compilation returns no Program")
	}
	var tc *diag.TagCollision
	if !errors.As(err, &tc) {
		t.Fatalf("err = %v, want TagCollision", err)
	}
	var ir *diag.IllegalRecursion
	if errors.As(err, &ir) {
		t.Error("the grapher ran after tagging failed")
	}
}

func TestCompileIllegalRecursionPosition(t *testing.T) {
	t.Parallel()

	_, err := Compile([]Source{src("m.asn", `M DEFINITIONS ::= BEGIN
	Loop ::= SEQUENCE { again Loop }
END`)}, Options{})
	var ir *diag.IllegalRecursion
	if !errors.As(err, &ir) {
		t.Fatalf("err = %v, want IllegalRecursion", err)
	}
	if ir.Pos.File != "m.asn" || ir.Pos.Line != 2 {
		t.Errorf("pos = %s, want m.asn line 2", ir.Pos)
	}
}

func TestCompileReportsUnresolvedSymbols(t *testing.T) {
	t.Parallel()

	_, err := Compile([]Source{src("m.asn", `
M DEFINITIONS ::= BEGIN
	A ::= SEQUENCE { x Integr, y Missing }
	Integer ::= INTEGER
END`)}, Options{})
	errs := diag.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), err)
	}
	var us *diag.UnresolvedSymbol
	if !errors.As(errs[0], &us) || us.Name != "Integr" || us.Suggestion != "Integer" {
		t.Errorf("first error = %v", errs[0])
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	t.Parallel()

	var sources []Source
	for i := range 8 {
		sources = append(sources, src(fmt.Sprintf("m%d.asn", i), fmt.Sprintf(`
M%d DEFINITIONS AUTOMATIC TAGS ::= BEGIN
	T ::= SEQUENCE { a INTEGER, b SEQUENCE OF T }
	U ::= CHOICE { t T, n NULL }
END`, i)))
	}
	first := mustCompile(t, Options{Workers: 1}, sources...)
	second := mustCompile(t, Options{Workers: 8}, sources...)
	if diff := cmp.Diff(first.Order, second.Order); diff != "" {
		t.Errorf("order depends on workers (-one +eight):\n%s", diff)
	}
	if diff := cmp.Diff(first.ModuleOrder, second.ModuleOrder); diff != "" {
		t.Errorf("module order depends on workers (-one +eight):\n%s", diff)
	}
}

func TestCompileModuleOrderOption(t *testing.T) {
	t.Parallel()

	a := src("a.asn", "A DEFINITIONS ::= BEGIN X ::= INTEGER END")
	b := src("b.asn", "B DEFINITIONS ::= BEGIN Y ::= INTEGER END")
	p := mustCompile(t, Options{ModuleOrder: []string{"B"}}, a, b)
	if diff := cmp.Diff([]string{"B", "A"}, p.ModuleOrder); diff != "" {
		t.Errorf("module order mismatch (-want +got):\n%s", diff)
	}
	if p.Types[p.Order[0]].Module != "B" {
		t.Errorf("first ordered type is from %s, want B", p.Types[p.Order[0]].Module)
	}
}

func TestCompileLogsStages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Debug})
	mustCompile(t, Options{Logger: logger}, src("m.asn", "M DEFINITIONS ::= BEGIN T ::= INTEGER END"))
	for _, name := range []string{"tagging", "extension", "constraint", "graph"} {
		if !strings.Contains(buf.String(), "stage="+name) {
			t.Errorf("log has no entry for stage %s:\n%s", name, buf.String())
		}
	}
}
