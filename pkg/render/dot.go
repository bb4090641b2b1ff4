// Package render turns query subgraphs into Graphviz output and hands the
// result to a viewer. Workspace members are drawn red, query targets
// green; dev-only edges are dotted and edges mixing dev with normal kinds
// dashed.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/unihack/pkg/featgraph"
	"github.com/matzehuels/unihack/pkg/query"
)

// ToDOT converts a query result to Graphviz DOT format. The resulting
// string can be rendered with [RenderSVG] or [RenderPNG], or piped to any
// Graphviz consumer.
func ToDOT(sg *query.Subgraph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph features {\n")
	buf.WriteString("  node [shape=box, style=rounded, fontsize=12];\n")
	buf.WriteString("\n")

	ids := make(map[featgraph.PackageID]string, len(sg.Nodes))
	for i, n := range sg.Nodes {
		id := fmt.Sprintf("n%d", i)
		ids[n.Pkg] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range sg.Edges {
		from, okF := ids[e.From]
		to, okT := ids[e.To]
		if !okF || !okT {
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", from, to, strings.Join(edgeAttrs(e), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n query.Node) []string {
	label := n.Pkg.Name
	if !n.Member {
		label += "\n" + n.Pkg.Version
	}
	if len(n.Features) > 0 {
		label += "\n[" + strings.Join(n.Features, ", ") + "]"
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Member:
		attrs = append(attrs, "color=red")
	case n.Target:
		attrs = append(attrs, "color=green")
	}
	return attrs
}

func edgeAttrs(e query.Edge) []string {
	var attrs []string
	if len(e.Features) > 0 {
		attrs = append(attrs, fmt.Sprintf("label=%q", strings.Join(e.Features, ", ")))
	}
	switch e.Style {
	case query.EdgeDevOnly:
		attrs = append(attrs, "style=dotted")
	case query.EdgeMixed:
		attrs = append(attrs, "style=dashed")
	default:
		attrs = append(attrs, "style=solid")
	}
	return attrs
}
