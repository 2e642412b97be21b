package emit

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/phobologic/asn1ir/internal/model"
)

// DOT writes the dependency graph in the Graphviz language. Nodes follow the
// emission order; edges that need indirection are dashed.
func DOT(w io.Writer, p *model.Program) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("digraph {\n")
	bw.WriteString("  rankdir=BT;\n")
	bw.WriteString("  node [shape=box];\n")
	for _, id := range p.Order {
		t := p.Types[id]
		attrs := map[string]string{"label": t.DisplayName() + `\n` + string(t.Kind)}
		if t.Generic != "" {
			attrs["style"] = "rounded"
		}
		fmt.Fprintf(bw, "  %s [%s];\n", nodeID(id), attrList(attrs))
	}
	for _, e := range p.Edges {
		attrs := map[string]string{"label": e.Via}
		if e.IndirectionRequired {
			attrs["style"] = "dashed"
		}
		if e.Optional || e.Collection {
			attrs["arrowhead"] = "empty"
		}
		fmt.Fprintf(bw, "  %s -> %s [%s];\n", nodeID(e.From), nodeID(e.To), attrList(attrs))
	}
	bw.WriteString("}\n")

	// bufio keeps the first write error and reports it here.
	return bw.Flush()
}

func nodeID(id model.TypeID) string {
	return strconv.Quote(fmt.Sprintf("t%d", id))
}

// attrList renders attributes sorted by name so that output is stable.
func attrList(attrs map[string]string) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + quoteForGraphviz(attrs[name])
	}
	return strings.Join(parts, ",")
}

// quoteForGraphviz quotes s. Backslashes pass through so that labels can use
// the \n line break escape.
func quoteForGraphviz(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
