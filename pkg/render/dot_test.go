package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/unihack/pkg/featgraph"
	"github.com/matzehuels/unihack/pkg/query"
)

func TestToDOT(t *testing.T) {
	member := featgraph.PackageID{Name: "mega", Version: "1.0.0"}
	target := featgraph.PackageID{Name: "potatoer", Version: "0.2.0", Source: "registry"}
	mock := featgraph.PackageID{Name: "mock", Version: "0.5.0", Source: "registry"}

	sg := &query.Subgraph{
		Nodes: []query.Node{
			{Pkg: member, Member: true},
			{Pkg: mock},
			{Pkg: target, Target: true, Features: []string{"mega", "potato"}},
		},
		Edges: []query.Edge{
			{From: member, To: target, Style: query.EdgePlain, Features: []string{"mega"}},
			{From: member, To: mock, Style: query.EdgeDevOnly},
		},
	}

	dot := ToDOT(sg)
	for _, want := range []string{
		"digraph features {",
		"color=red",
		"color=green",
		`label="mega"`,
		"potatoer\\n0.2.0\\n[mega, potato]",
		"style=dotted",
		`label="mega", style=solid]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output misses %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "mega\\n1.0.0") {
		t.Errorf("member label should not carry a version:\n%s", dot)
	}
}

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT(&query.Subgraph{})
	if !strings.Contains(dot, "digraph features") {
		t.Errorf("empty subgraph did not render a digraph:\n%s", dot)
	}
	if strings.Contains(dot, "->") {
		t.Errorf("empty subgraph rendered edges:\n%s", dot)
	}
}
