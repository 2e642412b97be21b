// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// a compiled Program.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/asn1ir/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Program into TOON format. Types, components and
// constraints are listed in emission order.
func Encode(p *model.Program) string {
	var parts []string

	var moduleRows [][]string
	for _, name := range p.ModuleOrder {
		m := p.Module(name)
		if m == nil {
			continue
		}
		moduleRows = append(moduleRows, []string{
			m.Name,
			m.File,
			string(m.TagDefault),
			flags(m.ExtensibilityImplied, "extensibility-implied"),
		})
	}
	parts = append(parts, formatTabular("modules", []string{"name", "file", "tagging", "flags"}, moduleRows))

	var typeRows, compRows, consRows [][]string
	for _, id := range p.Order {
		t := p.Types[id]
		typeRows = append(typeRows, []string{
			fmt.Sprintf("%d", t.ID),
			t.Module,
			t.Path,
			string(t.Kind),
			tagText(t.Tag),
			typeName(p, t.Base),
			flags(t.Extensible, "extensible", t.Generic != "", "instance"),
		})
		if t.Owns() {
			for _, c := range t.Components {
				compRows = append(compRows, componentRow(p, t, c))
			}
		}
		if e := t.Effective; e != nil {
			consRows = append(consRows, []string{
				t.DisplayName(),
				setText(e.Value),
				setText(e.Size),
				setText(e.Alphabet),
				width(e),
				flags(e.Extensible, "extensible", e.IsEmpty(), "empty"),
			})
		}
	}
	parts = append(parts, formatTabular("types", []string{"id", "module", "name", "kind", "tag", "base", "flags"}, typeRows))
	parts = append(parts, formatTabular("components", []string{"type", "name", "component", "tag", "value", "flags"}, compRows))
	parts = append(parts, formatTabular("constraints", []string{"type", "value", "size", "alphabet", "width", "flags"}, consRows))

	var edgeRows [][]string
	for i := range p.Edges {
		e := &p.Edges[i]
		edgeRows = append(edgeRows, []string{
			typeName(p, e.From),
			typeName(p, e.To),
			e.Via,
			flags(e.Optional, "optional", e.Collection, "collection", e.Alternative, "alternative",
				e.IndirectionRequired, "indirect"),
		})
	}
	parts = append(parts, formatTabular("edges", []string{"from", "to", "via", "flags"}, edgeRows))

	if len(p.Values) > 0 {
		var valueRows [][]string
		for _, v := range p.Values {
			valueRows = append(valueRows, []string{v.Module, v.Name, typeName(p, v.Type), v.Value.String()})
		}
		parts = append(parts, formatTabular("values", []string{"module", "name", "type", "value"}, valueRows))
	}

	return strings.Join(parts, "\n")
}

func componentRow(p *model.Program, t *model.TypeDescriptor, c *model.Component) []string {
	value := ""
	switch {
	case t.Kind == model.KindEnumerated:
		value = fmt.Sprintf("%d", c.Number)
	case c.Default != nil:
		value = c.Default.String()
	}
	return []string{
		t.DisplayName(),
		c.Name,
		typeName(p, c.Type),
		tagText(c.Tag),
		value,
		flags(c.Optional, "optional", c.Default != nil, "default", c.Extension, "extension",
			c.FromComponentsOf, "components-of", c.FromDummy, "dummy"),
	}
}

// typeName names a type handle; built-ins by their keyword.
func typeName(p *model.Program, id model.TypeID) string {
	t := p.Type(id)
	if t == nil {
		return ""
	}
	if t.Builtin {
		return string(t.Kind)
	}
	return t.DisplayName()
}

// tagText renders a tag without the brackets of ASN.1 notation so that cells
// stay unquoted.
func tagText(t model.Tag) string {
	if t.IsUntagged() {
		return "untagged"
	}
	s := fmt.Sprintf("%s %d", t.Class, t.Number)
	if t.Mode != "" {
		s += " " + string(t.Mode)
	}
	return s
}

func setText(s *model.IntervalSet) string {
	if s == nil {
		return ""
	}
	return s.String()
}

func width(e *model.Effective) string {
	if e.IntegerWidth != "" {
		return string(e.IntegerWidth)
	}
	return string(e.RealWidth)
}

// flags joins the names whose condition holds. It takes alternating
// condition and name arguments.
func flags(pairs ...any) string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if on, _ := pairs[i].(bool); on {
			out = append(out, pairs[i+1].(string))
		}
	}
	return strings.Join(out, " ")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
