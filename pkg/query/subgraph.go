// Package query implements read-only diagnostics over a feature graph:
// why a package is present (explain), what a package pulls in (tree), and
// which crate names resolve to several versions (dupes). Every query is an
// independent pure read; results are package-collapsed subgraphs handed to
// a renderer.
package query

import (
	"slices"

	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/featgraph"
)

// EdgeStyle classifies an aggregated edge for display.
type EdgeStyle int

const (
	// EdgePlain carries at least one normal or build dependency and no
	// dev dependency.
	EdgePlain EdgeStyle = iota
	// EdgeDevOnly carries dev dependencies exclusively.
	EdgeDevOnly
	// EdgeMixed carries both.
	EdgeMixed
)

// Node is one package of a query result, with every feature of it the
// traversal touched.
type Node struct {
	Pkg      featgraph.PackageID
	Member   bool
	Target   bool // matched the query target
	Features []string
}

// Edge aggregates all feature-level links between two packages. Features
// lists the non-default features requested across them.
type Edge struct {
	From     featgraph.PackageID
	To       featgraph.PackageID
	Style    EdgeStyle
	Features []string
}

// Subgraph is a package-collapsed query result. Empty is a valid result:
// it means the query matched nothing.
type Subgraph struct {
	Nodes []Node
	Edges []Edge
}

// Empty reports whether the query matched nothing.
func (s *Subgraph) Empty() bool { return len(s.Nodes) == 0 }

// NodeFor returns the node for a package identity, if present.
func (s *Subgraph) NodeFor(pkg featgraph.PackageID) (Node, bool) {
	for _, n := range s.Nodes {
		if n.Pkg == pkg {
			return n, true
		}
	}
	return Node{}, false
}

// HasEdge reports whether an aggregated edge exists between two packages.
func (s *Subgraph) HasEdge(from, to featgraph.PackageID) bool {
	for _, e := range s.Edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// collapse folds visited feature-level nodes and edges into per-package
// nodes. Intra-package edges (feature to feature, feature to base)
// disappear; parallel cross-package edges merge into one styled edge.
func collapse(g *featgraph.Graph, nodes, edges map[int]bool, targets map[featgraph.PackageID]bool) *Subgraph {
	type agg struct {
		total, dev int
		features   featgraph.FeatureSet
	}

	feats := make(map[featgraph.PackageID]featgraph.FeatureSet)
	members := make(map[featgraph.PackageID]bool)
	for ix := range nodes {
		n := g.NodeAt(ix)
		if n.Root {
			continue
		}
		if _, ok := feats[n.Pkg]; !ok {
			feats[n.Pkg] = featgraph.NewFeatureSet()
			members[n.Pkg] = n.Workspace
		}
		if n.Feature != "" {
			feats[n.Pkg].Add(n.Feature)
		}
	}

	type pair struct{ from, to featgraph.PackageID }
	crossed := make(map[pair]*agg)
	for ix := range edges {
		e := g.EdgeAt(ix)
		from, to := g.NodeAt(e.From), g.NodeAt(e.To)
		if from.Root || to.Root || from.Pkg == to.Pkg {
			continue
		}
		if !nodes[e.From] || !nodes[e.To] {
			continue
		}
		key := pair{from.Pkg, to.Pkg}
		a, ok := crossed[key]
		if !ok {
			a = &agg{features: featgraph.NewFeatureSet()}
			crossed[key] = a
		}
		a.total++
		if e.Link.DevOnly() {
			a.dev++
		}
		if to.Feature != "" && to.Feature != featgraph.DefaultFeature {
			a.features.Add(to.Feature)
		}
	}

	sg := &Subgraph{}
	for pkg, fs := range feats {
		sg.Nodes = append(sg.Nodes, Node{
			Pkg:      pkg,
			Member:   members[pkg],
			Target:   targets[pkg],
			Features: fs.Sorted(),
		})
	}
	slices.SortFunc(sg.Nodes, func(a, b Node) int { return a.Pkg.Compare(b.Pkg) })

	for key, a := range crossed {
		style := EdgePlain
		switch {
		case a.dev == a.total:
			style = EdgeDevOnly
		case a.dev > 0:
			style = EdgeMixed
		}
		sg.Edges = append(sg.Edges, Edge{
			From:     key.from,
			To:       key.to,
			Style:    style,
			Features: a.features.Sorted(),
		})
	}
	slices.SortFunc(sg.Edges, func(a, b Edge) int {
		if c := a.From.Compare(b.From); c != 0 {
			return c
		}
		return a.To.Compare(b.To)
	})
	return sg
}

// followForward reports whether a forward traversal takes the edge: dev
// links count only when they leave a workspace member.
func followForward(g *featgraph.Graph, e featgraph.Edge) bool {
	link := e.Link
	if link.Internal() {
		return true
	}
	for _, k := range link.Kinds {
		if k.Kind != cargo.KindDev {
			return true
		}
		if n := g.NodeAt(e.From); n.Root || n.Workspace {
			return true
		}
	}
	return false
}
