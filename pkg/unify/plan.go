// Package unify computes feature-unification plans.
//
// The whole-workspace resolution is the reference: it is the feature set
// every dependency ends up with when the full workspace builds at once.
// Any member whose own resolution gives a dependency fewer features will
// recompile that dependency when built alone. A plan lists the synthetic
// manifest entries that force each such member up to the reference set.
package unify

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/featgraph"
)

// Entry is one synthetic dependency to add to a member's manifest: the
// dependency pinned to the feature set the whole workspace resolves.
type Entry struct {
	Member   featgraph.PackageID
	Dep      featgraph.PackageID
	Kind     cargo.DepKind // KindNormal or KindDev
	Features featgraph.FeatureSet
	// Rename marks entries whose dependency name collides with another
	// version reachable from the same member; the manifest writer must
	// declare it under an alias.
	Rename bool
}

// Plan is the full ordered changeset for one workspace.
type Plan struct {
	Entries []Entry
}

// Empty reports whether the workspace is already unified.
func (p *Plan) Empty() bool { return len(p.Entries) == 0 }

// Members returns the members receiving entries, in plan order.
func (p *Plan) Members() []featgraph.PackageID {
	var out []featgraph.PackageID
	for _, e := range p.Entries {
		if len(out) == 0 || out[len(out)-1] != e.Member {
			out = append(out, e.Member)
		}
	}
	return out
}

// ForMember returns the entries targeting one member, in plan order.
func (p *Plan) ForMember(m featgraph.PackageID) []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.Member == m {
			out = append(out, e)
		}
	}
	return out
}

// Options tunes plan computation.
type Options struct {
	// NoDev skips the dev-dependency pass entirely.
	NoDev bool
}

// Compute builds the unification plan. The reference pass runs once; every
// member's own passes are independent reads over the shared graph, so they
// run concurrently, one worker per member.
func Compute(ctx context.Context, g *featgraph.Graph, opts Options) (*Plan, error) {
	ref, err := g.Resolve(featgraph.Context{Dev: featgraph.DevAll})
	if err != nil {
		return nil, err
	}

	members := g.Members()
	perMember := make([][]Entry, len(members))

	eg, _ := errgroup.WithContext(ctx)
	for i, m := range members {
		eg.Go(func() error {
			entries, err := memberEntries(g, m, ref, opts.NoDev)
			if err != nil {
				return err
			}
			perMember[i] = entries
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, es := range perMember {
		entries = append(entries, es...)
	}
	markRenames(g, entries)
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.Member.Compare(b.Member); c != 0 {
			return c
		}
		if c := a.Dep.Compare(b.Dep); c != 0 {
			return c
		}
		return int(a.Kind) - int(b.Kind)
	})
	return &Plan{Entries: entries}, nil
}

type entryKey struct {
	dep  featgraph.PackageID
	kind cargo.DepKind
}

// memberEntries runs the per-member passes. Each pass iterates: resolve
// the member's context, find dependencies whose set falls short of the
// reference, force the reference set in, and resolve again, because the
// forced features may activate further optional dependencies. Termination
// is guaranteed: a dependency is forced at most once per pass.
func memberEntries(g *featgraph.Graph, m featgraph.PackageID, ref featgraph.Resolution, noDev bool) ([]Entry, error) {
	found := make(map[entryKey]featgraph.FeatureSet)

	forced, err := divergencePass(g, m, ref, cargo.KindNormal, featgraph.Context{
		Roots: []featgraph.PackageID{m},
		Dev:   featgraph.DevExclude,
	}, found, nil)
	if err != nil {
		return nil, err
	}

	if !noDev && hasDevDeps(g, m) {
		_, err = divergencePass(g, m, ref, cargo.KindDev, featgraph.Context{
			Roots:     []featgraph.PackageID{m},
			Dev:       featgraph.DevLocal,
			DevMember: m,
		}, found, forced)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(found))
	for key, feats := range found {
		entries = append(entries, Entry{
			Member:   m,
			Dep:      key.dep,
			Kind:     key.kind,
			Features: OptimizeFeatures(g.DeclaredFeatures(key.dep), feats),
		})
	}
	return entries, nil
}

func divergencePass(g *featgraph.Graph, m featgraph.PackageID, ref featgraph.Resolution, kind cargo.DepKind, base featgraph.Context, found map[entryKey]featgraph.FeatureSet, forced []featgraph.FeatureRef) ([]featgraph.FeatureRef, error) {
	for {
		ctx := base
		ctx.Extra = forced
		res, err := g.Resolve(ctx)
		if err != nil {
			return nil, err
		}

		changed := false
		for dep, got := range res {
			if g.IsMember(dep) || dep == m {
				continue
			}
			want, built := ref.FeaturesOf(dep)
			if !built || !missingAny(want, got) {
				continue
			}
			if kind == cargo.KindDev {
				// already covered by a normal entry from the first pass
				if _, ok := found[entryKey{dep, cargo.KindNormal}]; ok {
					continue
				}
			}
			found[entryKey{dep, kind}] = want.Clone()
			forced = append(forced, featureRefs(dep, want)...)
			changed = true
		}
		if !changed {
			return forced, nil
		}
	}
}

func missingAny(want, got featgraph.FeatureSet) bool {
	for f := range want {
		if !got.Has(f) {
			return true
		}
	}
	return false
}

func featureRefs(dep featgraph.PackageID, feats featgraph.FeatureSet) []featgraph.FeatureRef {
	if len(feats) == 0 {
		return []featgraph.FeatureRef{{Pkg: dep}}
	}
	out := make([]featgraph.FeatureRef, 0, len(feats))
	for _, f := range feats.Sorted() {
		out = append(out, featgraph.FeatureRef{Pkg: dep, Feature: f})
	}
	return out
}

func hasDevDeps(g *featgraph.Graph, m featgraph.PackageID) bool {
	for i := 0; i < g.EdgeCount(); i++ {
		e := g.EdgeAt(i)
		if g.NodeAt(e.From).Pkg == m && e.Link.HasKind(cargo.KindDev) {
			return true
		}
	}
	return false
}

// markRenames flags entries whose member can reach two or more versions of
// the dependency's crate name. Writing those without an alias would make
// the manifest declare the same key twice.
func markRenames(g *featgraph.Graph, entries []Entry) {
	counts := make(map[featgraph.PackageID]map[string]int)
	for i := range entries {
		e := &entries[i]
		byName, ok := counts[e.Member]
		if !ok {
			byName = versionsReachable(g, e.Member)
			counts[e.Member] = byName
		}
		if byName[nameFold(e.Dep.Name)] > 1 {
			e.Rename = true
		}
	}
}

func versionsReachable(g *featgraph.Graph, m featgraph.PackageID) map[string]int {
	out := make(map[string]int)
	res, err := g.Resolve(featgraph.Context{
		Roots:     []featgraph.PackageID{m},
		Dev:       featgraph.DevLocal,
		DevMember: m,
	})
	if err != nil {
		return out
	}
	for dep := range res {
		out[nameFold(dep.Name)]++
	}
	return out
}

func nameFold(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' {
			return '_'
		}
		return r
	}, strings.ToLower(s))
}
