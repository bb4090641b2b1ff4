package query

import (
	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/unihack/pkg/featgraph"
)

// Filter narrows a query's entry points. Version accepts a semver
// constraint ("1.2.3", "^0.4", ">=2"); Feature pins the traversal to one
// feature node of the target instead of its whole package.
type Filter struct {
	Feature string
	Version string
}

// Options tunes a traversal.
type Options struct {
	Filter Filter
	// NoReduce keeps every direct edge instead of dropping edges already
	// implied by a longer path.
	NoReduce bool
	// WorkspaceOnly stops tree traversals at the workspace boundary.
	WorkspaceOnly bool
}

// Explain answers why a package is in the build: the portion of the graph
// between the target and the workspace boundary. The traversal runs
// against edge direction and does not continue through workspace members;
// a member appears as a terminal crossing point, its own dependents stay
// out. A target nothing matches yields an empty subgraph.
func Explain(g *featgraph.Graph, name string, opts Options) (*Subgraph, error) {
	starts, targets, err := selectTargets(g, name, opts.Filter)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int]bool)
	edges := make(map[int]bool)
	var stack []int
	for _, s := range starts {
		if !nodes[s] {
			nodes[s] = true
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		ix := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := g.NodeAt(ix)
		if n.Workspace && !targets[n.Pkg] {
			continue // crossing point, do not expand past the boundary
		}
		for _, eix := range g.Incoming(ix) {
			e := g.EdgeAt(eix)
			if g.NodeAt(e.From).Root {
				continue
			}
			edges[eix] = true
			if !nodes[e.From] {
				nodes[e.From] = true
				stack = append(stack, e.From)
			}
		}
	}

	sg := collapse(g, nodes, edges, targets)
	if !opts.NoReduce {
		Reduce(sg)
	}
	return sg, nil
}

// selectTargets resolves a query target to feature-graph start nodes. With
// a feature filter only that feature node starts the walk; otherwise every
// node of each matching package does, so the traversal sees all paths in.
func selectTargets(g *featgraph.Graph, name string, f Filter) ([]int, map[featgraph.PackageID]bool, error) {
	var constraint *semver.Constraints
	if f.Version != "" {
		c, err := semver.NewConstraint(f.Version)
		if err != nil {
			return nil, nil, err
		}
		constraint = c
	}

	var starts []int
	targets := make(map[featgraph.PackageID]bool)
	for _, pkg := range g.PackagesByName(name) {
		if constraint != nil {
			v, err := semver.NewVersion(pkg.Version)
			if err != nil || !constraint.Check(v) {
				continue
			}
		}
		if f.Feature != "" {
			if ix, ok := g.Lookup(pkg, f.Feature); ok {
				targets[pkg] = true
				starts = append(starts, ix)
			}
			continue
		}
		targets[pkg] = true
		if ix, ok := g.Lookup(pkg, ""); ok {
			starts = append(starts, ix)
		}
		for feat := range g.DeclaredFeatures(pkg) {
			if ix, ok := g.Lookup(pkg, feat); ok {
				starts = append(starts, ix)
			}
		}
	}
	return starts, targets, nil
}
