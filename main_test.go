package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "common.asn", `Common DEFINITIONS AUTOMATIC TAGS ::= BEGIN
	Id ::= INTEGER (0..65535)
	Other ::= BOOLEAN
END
`)
	writeTestFile(t, dir, "proto/user.asn1", `User DEFINITIONS AUTOMATIC TAGS ::= BEGIN
	IMPORTS Id FROM Common;
	Person ::= SEQUENCE { id Id, nick UTF8String OPTIONAL }
END
`)
	return dir
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "modules[2]{name,file,tagging,flags}:\n  Common,") {
		t.Errorf("Common should be listed first:\n%s", out)
	}
	for _, want := range []string{
		filepath.Join(dir, "proto", "user.asn1"),
		",User,Person,SEQUENCE,",
		"User.Person,id,Common.Id,CONTEXT 0 IMPLICIT",
		"Common.Id,0..65535",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestRunFormats(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)

	tests := []struct {
		format string
		check  func(string) bool
	}{
		{"json", func(s string) bool { return json.Valid([]byte(s)) }},
		{"yaml", func(s string) bool { return strings.HasPrefix(s, "modules:\n") }},
		{"dot", func(s string) bool { return strings.HasPrefix(s, "digraph {\n") }},
		{"TOON", func(s string) bool { return strings.HasPrefix(s, "modules[2]") }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			if err := run([]string{"--format", tt.format, dir}, &stdout, &stderr); err != nil {
				t.Fatalf("run: %v", err)
			}
			if !tt.check(stdout.String()) {
				t.Errorf("unexpected %s output:\n%s", tt.format, stdout.String())
			}
		})
	}
}

func TestRunUnknownFormat(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-f", "xml", createSampleTree(t)}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown format "xml"`) {
		t.Errorf("err = %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "asn1ir dev\n" {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for no schema files")
	}
	if !strings.Contains(err.Error(), "no schema files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunMissingRoot(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(t.TempDir(), "absent")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "root path") {
		t.Errorf("err = %v", err)
	}
}

func TestRunFileRoots(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)
	extra := filepath.Join(t.TempDir(), "extra.schema")
	if err := os.WriteFile(extra, []byte("Extra DEFINITIONS ::= BEGIN X ::= NULL END\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{extra, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "modules[3]") || !strings.Contains(stdout.String(), "Extra,"+extra) {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestRunCompileErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "bad.asn", `Bad DEFINITIONS ::= BEGIN
	A ::= Integr
	B ::= SEQUENCE { x Nope }
END
`)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected compile errors")
	}
	for _, want := range []string{`"Integr"`, `"Nope"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should be written on failure, got:\n%s", stdout.String())
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout1, &stderr1); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cacheData, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("cache not created: %v", err)
	}
	if string(cacheData) != stdout1.String() {
		t.Error("cache should hold the printed output")
	}

	// A fresh cache is printed as is.
	if err := os.WriteFile(cachePath, []byte("cached\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout2, stderr2 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout2, &stderr2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stdout2.String() != "cached\n" {
		t.Errorf("fresh cache was not used:\n%s", stdout2.String())
	}

	// A schema newer than the cache forces a recompile.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "common.asn"), future, future); err != nil {
		t.Fatal(err)
	}
	var stdout3, stderr3 bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout3, &stderr3); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if stdout3.String() != stdout1.String() {
		t.Errorf("stale cache was used:\n%s", stdout3.String())
	}
}

func TestRunSelectionSkipsCache(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--cache", cachePath, "--type", "Person", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(cachePath); err == nil {
		t.Error("a selection should not be cached")
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "small.asn", "Small DEFINITIONS ::= BEGIN S ::= BOOLEAN END\n")
	writeTestFile(t, dir, "big.asn", "Big DEFINITIONS ::= BEGIN\n"+strings.Repeat("-- filler\n", 50)+"END\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--max-file-size", "100", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Small,") {
		t.Error("missing module Small")
	}
	if strings.Contains(out, "Big,") {
		t.Error("big.asn should be filtered out")
	}
	if !strings.Contains(stderr.String(), "skipping large file") {
		t.Errorf("expected a warning about the skipped file, got %q", stderr.String())
	}
}

func TestRunTypeSelection(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir, "-t", "person"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, ",User,Person,") || !strings.Contains(out, ",Common,Id,") {
		t.Errorf("Person and the types it uses should be kept:\n%s", out)
	}
	if strings.Contains(out, ",Common,Other,") {
		t.Errorf("unrelated types should be dropped:\n%s", out)
	}
}

func TestRunTypeSelectionNoMatch(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"--type", "Missing", createSampleTree(t)}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `no type matches "Missing"`) {
		t.Errorf("err = %v", err)
	}
}

func TestRunModuleFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--module", "user", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "modules[1]{name,file,tagging,flags}:\n  User,") {
		t.Errorf("only User should be listed:\n%s", out)
	}
	if strings.Contains(out, ",Common,Id,") {
		t.Errorf("Common types should not be emitted:\n%s", out)
	}
}

func TestRunModuleOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "a.asn", "A DEFINITIONS ::= BEGIN T ::= BOOLEAN END\n")
	writeTestFile(t, dir, "b.asn", "B DEFINITIONS ::= BEGIN T ::= BOOLEAN END\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--module-order", "B", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "modules[2]{name,file,tagging,flags}:\n  B,") {
		t.Errorf("B should come first:\n%s", stdout.String())
	}
}

func TestRunLogLevel(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--log-level", "debug", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, stage := range []string{"tagging", "extension", "constraint", "graph"} {
		if !strings.Contains(stderr.String(), "stage="+stage) {
			t.Errorf("missing debug line for stage %s in:\n%s", stage, stderr.String())
		}
	}

	err := run([]string{"--log-level", "loud", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown log level "loud"`) {
		t.Errorf("err = %v", err)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleTree(t)
	cfg := filepath.Join(t.TempDir(), "asn1ir.yaml")
	if err := os.WriteFile(cfg, []byte("format: dot\nmodule-order: [User]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--config", cfg, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "digraph {") {
		t.Errorf("config format was not applied:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"--config", cfg, "--format", "toon", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "modules[2]") {
		t.Errorf("flag should override the config file:\n%s", stdout.String())
	}

	err := run([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("err = %v", err)
	}
}

// Not parallel: t.Setenv.
func TestRunEnvironment(t *testing.T) {
	dir := createSampleTree(t)
	t.Setenv("ASN1IR_FORMAT", "yaml")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "modules:\n") {
		t.Errorf("ASN1IR_FORMAT was not applied:\n%s", stdout.String())
	}
}
