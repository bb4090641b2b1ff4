package featgraph

import (
	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/errors"
)

// DevMode selects how dev-dependency edges participate in a resolution.
type DevMode int

const (
	// DevExclude ignores dev edges entirely. This is what a plain
	// `cargo build` of a single member sees.
	DevExclude DevMode = iota
	// DevAll follows dev edges leaving any workspace member. This is the
	// whole-workspace reference: `cargo build --workspace --all-targets`.
	DevAll
	// DevLocal follows dev edges leaving one designated member only, the
	// view `cargo test -p member` has.
	DevLocal
)

// FeatureRef names one feature of one package, used to force activations
// into a resolution beyond what the graph implies.
type FeatureRef struct {
	Pkg     PackageID
	Feature string // "" forces the base node only
}

// Context parameterizes one resolution pass over the graph.
type Context struct {
	// Roots are the members whose entry nodes seed the traversal. Empty
	// means the whole workspace, seeded from the synthetic root.
	Roots []PackageID

	// Dev selects dev-edge participation; DevMember designates the member
	// whose dev edges count under DevLocal.
	Dev       DevMode
	DevMember PackageID

	// Extra activations applied on top of the seeds, as if the roots had
	// requested them directly.
	Extra []FeatureRef
}

// Resolution is the outcome of one pass: the feature set each reachable
// package ends up compiled with. A package present with an empty set is
// built with no features at all; a package absent is not built.
type Resolution map[PackageID]FeatureSet

// FeaturesOf returns the resolved set for a package and whether the
// package is built at all.
func (r Resolution) FeaturesOf(pkg PackageID) (FeatureSet, bool) {
	s, ok := r[pkg]
	return s, ok
}

// Resolve walks the graph under the given context and returns the feature
// set every reachable package is compiled with. Weak optional references
// are settled by iterating to a fixed point: a weak target activates only
// once both its carrying feature and its dependency gate are reached.
func (g *Graph) Resolve(ctx Context) (Resolution, error) {
	visited := make([]bool, len(g.nodes))

	var seeds []int
	if len(ctx.Roots) == 0 {
		seeds = append(seeds, g.root)
	} else {
		for _, r := range ctx.Roots {
			if !g.IsMember(r) {
				return nil, errors.New(errors.ErrCodePackageNotFound,
					"%s is not a workspace member", r)
			}
			ix, ok := g.EntryNode(r)
			if !ok {
				return nil, errors.New(errors.ErrCodeInternal,
					"member %s has no entry node", r)
			}
			seeds = append(seeds, ix)
		}
	}
	for _, ref := range ctx.Extra {
		ix, ok := g.Lookup(ref.Pkg, ref.Feature)
		if !ok {
			return nil, errors.New(errors.ErrCodePackageNotFound,
				"no feature %q on %s", ref.Feature, ref.Pkg)
		}
		seeds = append(seeds, ix)
	}

	for _, s := range seeds {
		g.walk(ctx, s, visited)
	}

	// Weak references may unlock each other, so iterate until quiet.
	for changed := true; changed; {
		changed = false
		for _, t := range g.triggers {
			if visited[t.Target] || !visited[t.Feature] || !visited[t.Gate] {
				continue
			}
			g.walk(ctx, t.Target, visited)
			changed = true
		}
	}

	out := make(Resolution)
	for ix, seen := range visited {
		if !seen {
			continue
		}
		n := g.nodes[ix]
		if n.Root {
			continue
		}
		set, ok := out[n.Pkg]
		if !ok {
			set = NewFeatureSet()
			out[n.Pkg] = set
		}
		if n.Feature != "" {
			set.Add(n.Feature)
		}
	}
	return out, nil
}

func (g *Graph) walk(ctx Context, start int, visited []bool) {
	if visited[start] {
		return
	}
	stack := []int{start}
	visited[start] = true
	for len(stack) > 0 {
		ix := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.out[ix] {
			edge := g.edges[e]
			if visited[edge.To] || !g.linkActive(ctx, ix, edge.Link) {
				continue
			}
			visited[edge.To] = true
			stack = append(stack, edge.To)
		}
	}
}

// linkActive decides whether an edge participates under the context. An
// internal link always does. A dependency link does when at least one of
// its kinds is admissible from the edge's source node.
func (g *Graph) linkActive(ctx Context, from int, link Link) bool {
	if link.Internal() {
		return true
	}
	src := g.nodes[from]
	for _, k := range link.Kinds {
		if k.Kind != cargo.KindDev {
			return true
		}
		switch ctx.Dev {
		case DevAll:
			if src.Root || src.Workspace {
				return true
			}
		case DevLocal:
			if src.Pkg == ctx.DevMember {
				return true
			}
		}
	}
	return false
}
