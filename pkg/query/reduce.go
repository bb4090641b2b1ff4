package query

import (
	"github.com/matzehuels/unihack/pkg/featgraph"
)

// Reduce removes edges already implied by a longer path, in place. An edge
// is dropped only when its target stays reachable from its source without
// it, so the subgraph's reachability never changes; the check is repeated
// per edge because feature graphs may contain cycles.
func Reduce(sg *Subgraph) {
	adj := make(map[featgraph.PackageID][]featgraph.PackageID)
	for _, e := range sg.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	kept := sg.Edges[:0]
	for _, e := range sg.Edges {
		if reachableWithout(adj, e.From, e.To) {
			adj[e.From] = removeOne(adj[e.From], e.To)
			continue
		}
		kept = append(kept, e)
	}
	sg.Edges = kept
}

// reachableWithout reports whether to is reachable from from when the
// direct from->to edge is ignored.
func reachableWithout(adj map[featgraph.PackageID][]featgraph.PackageID, from, to featgraph.PackageID) bool {
	visited := map[featgraph.PackageID]bool{from: true}
	stack := []featgraph.PackageID{from}
	skipped := false
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[cur] {
			if cur == from && next == to && !skipped {
				skipped = true
				continue
			}
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func removeOne(list []featgraph.PackageID, target featgraph.PackageID) []featgraph.PackageID {
	for i, v := range list {
		if v == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
