package featgraph

import (
	"strings"

	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/errors"
)

// Build turns a metadata snapshot into a feature graph. It is a pure
// transform: the snapshot is not retained and never mutated.
//
// Platform filters on dependency edges are resolved here against the single
// given platform; entries that can never be active on it are discarded from
// edge kind lists, and edges left with nothing are dropped entirely.
//
// Build fails with MALFORMED_SNAPSHOT when the resolve graph references a
// package the snapshot does not declare, and with AMBIGUOUS_IDENTITY when
// two metadata entries collapse onto the same (name, version, source)
// identity.
func Build(snap *cargo.Snapshot, platform cargo.Platform) (*Graph, error) {
	g := newGraph(platform)

	ids := make(map[string]PackageID, len(snap.Packages))     // opaque ID -> identity
	byIdentity := make(map[PackageID]string, len(snap.Packages)) // identity -> opaque ID

	for i := range snap.Packages {
		p := &snap.Packages[i]
		id := PackageID{Name: p.Name, Version: p.Version, Source: p.Source}
		if prev, dup := byIdentity[id]; dup && prev != p.ID {
			return nil, errors.New(errors.ErrCodeAmbiguousIdentity,
				"packages %s and %s both resolve to %s from %q", prev, p.ID, id, p.Source)
		}
		byIdentity[id] = p.ID
		ids[p.ID] = id
		g.packages = append(g.packages, id)
		g.declared[id] = p.Features
	}

	for _, m := range snap.WorkspaceMembers {
		id, ok := ids[m]
		if !ok {
			return nil, errors.New(errors.ErrCodeMalformedSnapshot,
				"workspace member %s is not among the resolved packages", m)
		}
		g.members = append(g.members, id)
		if p := snap.PackageByID(m); p != nil {
			g.manifest[id] = p.ManifestPath
		}
	}

	resolved := make(map[string]*cargo.ResolveNode, len(snap.Resolve.Nodes))
	for i := range snap.Resolve.Nodes {
		n := &snap.Resolve.Nodes[i]
		if _, ok := ids[n.ID]; !ok {
			return nil, errors.New(errors.ErrCodeMalformedSnapshot,
				"resolve node %s references an unknown package", n.ID)
		}
		resolved[n.ID] = n
	}

	for i := range snap.Packages {
		p := &snap.Packages[i]
		node := resolved[p.ID]
		if node == nil {
			// cargo omits resolve nodes only in --no-deps mode, which this
			// tool never uses.
			return nil, errors.New(errors.ErrCodeMalformedSnapshot,
				"package %s has no resolve node", p.ID)
		}
		if err := g.addPackage(snap, ids, p, node); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// addPackage wires one package into the graph: the root link for members,
// one edge per resolved dependency, and the package's own feature table.
func (g *Graph) addPackage(snap *cargo.Snapshot, ids map[string]PackageID, p *cargo.Package, node *cargo.ResolveNode) error {
	self := ids[p.ID]
	isMember := g.IsMember(self)
	base := g.node(self, "", isMember)

	if isMember {
		entry := base
		if _, ok := p.Features[DefaultFeature]; ok {
			entry = g.node(self, DefaultFeature, true)
		}
		g.addEdge(g.root, entry, Link{})
	}

	// Resolved dependencies. An optional dependency hangs off a gate node
	// named after the dependency; a required one hangs off the base node.
	for i := range node.Deps {
		rd := &node.Deps[i]
		depID, ok := ids[rd.Pkg]
		if !ok {
			return errors.New(errors.ErrCodeMalformedSnapshot,
				"dependency of %s references unknown package %s", p.ID, rd.Pkg)
		}
		decl := findDeclaration(snap, p, rd)
		if decl == nil {
			return errors.New(errors.ErrCodeMalformedSnapshot,
				"package %s resolves %q without declaring it", p.ID, rd.Name)
		}

		kinds, any := activeKinds(rd.DepKinds, g.Platform)
		if !any {
			continue // never active on this platform
		}
		link := Link{Optional: decl.Optional, Kinds: kinds}

		from := base
		if decl.Optional {
			from = g.node(self, decl.EffectiveName(), isMember)
		}

		depMember := g.IsMember(depID)
		if len(decl.Features) == 0 && !(decl.UsesDefaultFeatures && declaresDefault(snap, rd.Pkg)) {
			g.addEdge(from, g.node(depID, "", depMember), link)
			continue
		}
		if decl.UsesDefaultFeatures && declaresDefault(snap, rd.Pkg) {
			g.addEdge(from, g.node(depID, DefaultFeature, depMember), link)
		}
		for _, f := range decl.Features {
			g.addEdge(from, g.node(depID, f, depMember), link)
		}
	}

	// The local feature table. Every declared feature implies the base
	// node; expansion entries may name sibling features, enable optional
	// dependencies, or reach into a dependency's features.
	for feat, expansion := range p.Features {
		local := g.node(self, feat, isMember)
		g.addEdge(local, base, Link{})

		for _, entry := range expansion {
			g.addFeatureEntry(snap, ids, p, node, self, isMember, local, entry)
		}
	}

	return nil
}

// addFeatureEntry wires one feature-expansion entry. Forms handled:
//
//	"name"       sibling feature or implicit optional-dependency feature
//	"dep:name"   enable optional dependency without exposing a feature
//	"name/feat"  enable dependency (optional ones via their gate) plus one
//	             of its features
//	"name?/feat" weak: the dependency feature activates only in contexts
//	             that already enabled the dependency; kept as a trigger,
//	             never flattened into a plain edge
func (g *Graph) addFeatureEntry(snap *cargo.Snapshot, ids map[string]PackageID, p *cargo.Package, node *cargo.ResolveNode, self PackageID, isMember bool, local int, entry string) {
	if name, ok := strings.CutPrefix(entry, "dep:"); ok {
		g.addEdge(local, g.node(self, name, isMember), Link{})
		return
	}

	depName, depFeat, slash := strings.Cut(entry, "/")
	if !slash {
		g.addEdge(local, g.node(self, entry, isMember), Link{})
		return
	}

	weak := strings.HasSuffix(depName, "?")
	depName = strings.TrimSuffix(depName, "?")

	rd := findResolvedByName(node, depName)
	decl := findDeclByName(p, depName)
	if rd == nil || decl == nil {
		// Feature names a dependency that did not resolve on this
		// platform; nothing can ever activate through it.
		return
	}
	depID := ids[rd.Pkg]
	depMember := g.IsMember(depID)
	target := g.node(depID, depFeat, depMember)
	gate := g.node(self, decl.EffectiveName(), isMember)

	if weak {
		g.triggers = append(g.triggers, Trigger{Feature: local, Gate: gate, Target: target})
		return
	}

	kinds, any := activeKinds(rd.DepKinds, g.Platform)
	if !any {
		return
	}
	link := Link{Optional: decl.Optional, Kinds: kinds}
	if decl.Optional {
		g.addEdge(local, gate, Link{})
	}
	g.addEdge(local, target, link)
}

// activeKinds filters a resolved dependency's kind list down to the entries
// whose platform filter matches. Cross-platform entries are discarded, not
// modeled.
func activeKinds(kinds []cargo.ResolveDepKind, platform cargo.Platform) ([]LinkKind, bool) {
	if len(kinds) == 0 {
		return nil, true
	}
	out := make([]LinkKind, 0, len(kinds))
	for _, k := range kinds {
		if platform.Matches(k.Target) {
			out = append(out, LinkKind{Kind: k.Kind, Target: k.Target})
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// findDeclaration locates the manifest declaration behind a resolved
// dependency, accounting for renames and renamed library targets.
func findDeclaration(snap *cargo.Snapshot, p *cargo.Package, rd *cargo.ResolveDep) *cargo.Dependency {
	if d := findDeclByName(p, rd.Name); d != nil {
		return d
	}
	// The resolve node names dependencies by their lib target, which may
	// differ from the package name.
	if dep := snap.PackageByID(rd.Pkg); dep != nil {
		if d := findDeclByName(p, dep.Name); d != nil {
			return d
		}
	}
	return nil
}

func findDeclByName(p *cargo.Package, name string) *cargo.Dependency {
	for i := range p.Dependencies {
		if nameEq(p.Dependencies[i].EffectiveName(), name) {
			return &p.Dependencies[i]
		}
	}
	return nil
}

func findResolvedByName(node *cargo.ResolveNode, name string) *cargo.ResolveDep {
	for i := range node.Deps {
		if nameEq(node.Deps[i].Name, name) {
			return &node.Deps[i]
		}
	}
	return nil
}

func declaresDefault(snap *cargo.Snapshot, pkgID string) bool {
	p := snap.PackageByID(pkgID)
	if p == nil {
		return false
	}
	_, ok := p.Features[DefaultFeature]
	return ok
}
