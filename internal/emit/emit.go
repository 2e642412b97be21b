// Package emit writes a compiled Program through a named dump backend.
package emit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/asn1ir/internal/model"
	"github.com/phobologic/asn1ir/internal/toon"
)

// Backend consumes an ordered Program. Implementations must not modify it.
type Backend interface {
	Emit(w io.Writer, p *model.Program) error
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(w io.Writer, p *model.Program) error

// Emit calls f(w, p).
func (f BackendFunc) Emit(w io.Writer, p *model.Program) error { return f(w, p) }

var backends = map[string]Backend{
	"toon": BackendFunc(Toon),
	"json": BackendFunc(JSON),
	"yaml": BackendFunc(YAML),
	"dot":  BackendFunc(DOT),
}

// Names returns the registered backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the backend registered as name.
func Lookup(name string) (Backend, error) {
	b, ok := backends[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return b, nil
}

// Toon writes the tabular TOON rendering.
func Toon(w io.Writer, p *model.Program) error {
	_, err := fmt.Fprintln(w, toon.Encode(p))
	return err
}

// JSON writes the whole Program as indented JSON.
func JSON(w io.Writer, p *model.Program) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// YAML writes the whole Program as a YAML document.
func YAML(w io.Writer, p *model.Program) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
