package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestDiscoverSchemaFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.asn", "M DEFINITIONS ::= BEGIN END")
	writeFile(t, dir, "lib/common.ASN1", "C DEFINITIONS ::= BEGIN END")
	// Other files should be ignored
	writeFile(t, dir, "readme.txt", "hello")
	writeFile(t, dir, "gen.go", "package gen")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.asn", "secret")

	entries, err := Files(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	want := []string{filepath.Join("lib", "common.ASN1"), "main.asn"}
	if diff := cmp.Diff(want, paths(entries)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if entries[1].Size != int64(len("M DEFINITIONS ::= BEGIN END")) {
		t.Errorf("main.asn size = %d", entries[1].Size)
	}
	if entries[1].ModTime.IsZero() {
		t.Error("main.asn has no modification time")
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.asn", "")
	writeFile(t, dir, "node_modules/pkg.asn", "")
	writeFile(t, dir, "testdata/broken.asn", "")
	writeFile(t, dir, ".hidden/secret.asn", "")

	entries, err := Files(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if diff := cmp.Diff([]string{"main.asn"}, paths(entries)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "a.asn", "")
	writeFile(t, dir, "b.mib", "")
	writeFile(t, dir, "c.asn1", "")

	entries, err := Files(context.Background(), dir, Options{Extensions: []string{"mib", ".ASN"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if diff := cmp.Diff([]string{"a.asn", "b.mib"}, paths(entries)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "generated/\nscratch.asn\n")
	writeFile(t, dir, "keep.asn", "")
	writeFile(t, dir, "scratch.asn", "")
	writeFile(t, dir, "generated/out.asn", "")

	entries, err := Files(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if diff := cmp.Diff([]string{"keep.asn"}, paths(entries)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.asn", "")

	err := os.Symlink(filepath.Join(dir, "real.asn"), filepath.Join(dir, "link.asn"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if diff := cmp.Diff([]string{"real.asn"}, paths(entries)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.asn", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Files(ctx, dir, Options{}); err == nil {
		t.Error("expected an error from a canceled context")
	}
}

func writeFile(t *testing.T, root, rel, content string) {
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
