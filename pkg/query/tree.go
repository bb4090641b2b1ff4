package query

import (
	"github.com/matzehuels/unihack/pkg/featgraph"
)

// Tree answers what a package pulls in: a forward traversal from the
// target down to the leaves. An empty name walks the whole workspace from
// every member's entry point. WorkspaceOnly never leaves the member set,
// showing only intra-workspace structure.
func Tree(g *featgraph.Graph, name string, opts Options) (*Subgraph, error) {
	var starts []int
	targets := make(map[featgraph.PackageID]bool)

	if name == "" {
		for _, m := range g.Members() {
			targets[m] = true
			for _, eix := range g.Outgoing(g.Root()) {
				e := g.EdgeAt(eix)
				if g.NodeAt(e.To).Pkg == m {
					starts = append(starts, e.To)
				}
			}
		}
	} else {
		var err error
		starts, targets, err = treeStarts(g, name, opts.Filter)
		if err != nil {
			return nil, err
		}
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
		for _, eix := range g.Outgoing(ix) {
			e := g.EdgeAt(eix)
			if !followForward(g, e) {
				continue
			}
			if opts.WorkspaceOnly && !g.NodeAt(e.To).Workspace {
				continue
			}
			edges[eix] = true
			if !nodes[e.To] {
				nodes[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}

	sg := collapse(g, nodes, edges, targets)
	if !opts.NoReduce {
		Reduce(sg)
	}
	return sg, nil
}

// treeStarts picks forward entry points: the feature node under a feature
// filter, the package entry node otherwise.
func treeStarts(g *featgraph.Graph, name string, f Filter) ([]int, map[featgraph.PackageID]bool, error) {
	starts, targets, err := selectTargets(g, name, f)
	if err != nil || f.Feature != "" {
		return starts, targets, err
	}

	// Forward walks want the entry node, not every declared feature.
	starts = starts[:0]
	for pkg := range targets {
		if ix, ok := g.EntryNode(pkg); ok {
			starts = append(starts, ix)
		}
	}
	return starts, targets, nil
}
