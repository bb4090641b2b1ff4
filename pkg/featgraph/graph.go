// Package featgraph models a resolved cargo workspace as a feature graph.
//
// Nodes are (package, feature) pairs plus one synthetic root; a package's
// "base" node is the pair with an empty feature name. Edges carry the
// dependency kinds and requested features that activate them. The graph is
// built once per command from an immutable metadata snapshot and is
// read-only afterwards, so traversals may run concurrently without locking.
package featgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/unihack/pkg/cargo"
)

// PackageID identifies one resolved package. It is immutable: a version
// bump or source change produces a different identity.
type PackageID struct {
	Name    string
	Version string
	Source  string // empty for workspace (path) packages
}

// String renders the identity as name@version.
func (p PackageID) String() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

// Compare orders identities by (name, version, source).
func (p PackageID) Compare(o PackageID) int {
	if c := strings.Compare(p.Name, o.Name); c != 0 {
		return c
	}
	if c := strings.Compare(p.Version, o.Version); c != 0 {
		return c
	}
	return strings.Compare(p.Source, o.Source)
}

// FeatureSet is a set of feature names. Membership is the only semantics;
// the default feature group is represented by the "default" member.
type FeatureSet map[string]struct{}

// DefaultFeature is the name cargo gives the default feature group.
const DefaultFeature = "default"

// NewFeatureSet builds a set from the given names.
func NewFeatureSet(names ...string) FeatureSet {
	s := make(FeatureSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts a feature name.
func (s FeatureSet) Add(name string) { s[name] = struct{}{} }

// Has reports membership.
func (s FeatureSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// HasDefault reports whether the default feature group is active.
func (s FeatureSet) HasDefault() bool { return s.Has(DefaultFeature) }

// Clone returns an independent copy.
func (s FeatureSet) Clone() FeatureSet {
	out := make(FeatureSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Union inserts every member of other into s.
func (s FeatureSet) Union(other FeatureSet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// Equal reports set equality.
func (s FeatureSet) Equal(other FeatureSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// StrictSubsetOf reports whether s ⊂ other (subset and not equal).
func (s FeatureSet) StrictSubsetOf(other FeatureSet) bool {
	if len(s) >= len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order.
func (s FeatureSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// String renders the set as a sorted list, for logs and tests.
func (s FeatureSet) String() string {
	return "{" + strings.Join(s.Sorted(), ",") + "}"
}

// Node is one vertex: the synthetic root, or a (package, feature) pair.
// A pair with an empty Feature is the package's base node.
type Node struct {
	Pkg       PackageID
	Feature   string // "" = base node
	Workspace bool   // package is a workspace member
	Root      bool   // synthetic workspace root
}

// IsBase reports whether the node is a package base node.
func (n Node) IsBase() bool { return !n.Root && n.Feature == "" }

// String renders the node for logs.
func (n Node) String() string {
	if n.Root {
		return "root"
	}
	if n.Feature == "" {
		return n.Pkg.String()
	}
	return n.Pkg.String() + ":" + n.Feature
}

// LinkKind is one (dependency kind, platform filter) pair under which an
// edge is active. By the time edges are in the graph the filter has already
// been checked against the build platform; the Target string is retained
// for display only.
type LinkKind struct {
	Kind   cargo.DepKind
	Target string
}

// Link annotates a dependency edge. An empty Kinds list marks an internal
// edge (feature to base, feature to feature inside one package) that is
// active in every context.
type Link struct {
	Optional bool
	Kinds    []LinkKind
}

// Internal reports whether the link is an always-active internal edge.
func (l Link) Internal() bool { return len(l.Kinds) == 0 }

// DevOnly reports whether every kind of the link is a dev dependency.
func (l Link) DevOnly() bool {
	if l.Internal() {
		return false
	}
	for _, k := range l.Kinds {
		if k.Kind != cargo.KindDev {
			return false
		}
	}
	return true
}

// HasKind reports whether the link carries the given dependency kind.
func (l Link) HasKind(kind cargo.DepKind) bool {
	for _, k := range l.Kinds {
		if k.Kind == kind {
			return true
		}
	}
	return false
}

// Edge is a directed edge between node indices. Multiple edges may exist
// between the same endpoints with different links; they are never merged.
type Edge struct {
	From int
	To   int
	Link Link
}

// Trigger records a weak optional-dependency activation ("dep?/feat"):
// Target activates only in contexts where both Feature and Gate are
// already active. Triggers drive the resolver's fixed-point pass.
type Trigger struct {
	Feature int // the feature node carrying the weak reference
	Gate    int // the optional-dependency gate node (pkg, depname)
	Target  int // the (dep, feature) node to activate
}

type featureKey struct {
	pkg     PackageID
	feature string
}

// Graph is the read-only feature graph of one workspace snapshot.
type Graph struct {
	Platform cargo.Platform

	nodes    []Node
	edges    []Edge
	out      [][]int // node index -> outgoing edge indices
	in       [][]int // node index -> incoming edge indices
	index    map[featureKey]int
	root     int
	members  []PackageID
	packages []PackageID // all resolved packages, members included
	triggers []Trigger

	// declared feature expansions per package, kept for plan optimization
	// and manifest emission
	declared map[PackageID]map[string][]string
	manifest map[PackageID]string // manifest path per workspace member
}

func newGraph(platform cargo.Platform) *Graph {
	g := &Graph{
		Platform: platform,
		index:    make(map[featureKey]int),
		declared: make(map[PackageID]map[string][]string),
		manifest: make(map[PackageID]string),
	}
	g.root = g.addNode(Node{Root: true})
	return g
}

func (g *Graph) addNode(n Node) int {
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return len(g.nodes) - 1
}

// node returns the index for a (package, feature) pair, creating it on
// first use.
func (g *Graph) node(pkg PackageID, feature string, workspace bool) int {
	key := featureKey{pkg, feature}
	if ix, ok := g.index[key]; ok {
		return ix
	}
	ix := g.addNode(Node{Pkg: pkg, Feature: feature, Workspace: workspace})
	g.index[key] = ix
	return ix
}

func (g *Graph) addEdge(from, to int, link Link) {
	e := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Link: link})
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
}

// Root returns the synthetic root node index.
func (g *Graph) Root() int { return g.root }

// NodeCount returns the number of nodes including the root.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeAt returns the node at the given index.
func (g *Graph) NodeAt(ix int) Node { return g.nodes[ix] }

// EdgeAt returns the edge at the given index.
func (g *Graph) EdgeAt(ix int) Edge { return g.edges[ix] }

// Outgoing returns the outgoing edge indices of a node.
func (g *Graph) Outgoing(ix int) []int { return g.out[ix] }

// Incoming returns the incoming edge indices of a node.
func (g *Graph) Incoming(ix int) []int { return g.in[ix] }

// Members returns the workspace member identities in snapshot order.
func (g *Graph) Members() []PackageID { return g.members }

// Packages returns every resolved package identity, members included.
func (g *Graph) Packages() []PackageID { return g.packages }

// IsMember reports whether the identity is a workspace member.
func (g *Graph) IsMember(pkg PackageID) bool {
	return slices.Contains(g.members, pkg)
}

// Lookup returns the node index for a (package, feature) pair.
func (g *Graph) Lookup(pkg PackageID, feature string) (int, bool) {
	ix, ok := g.index[featureKey{pkg, feature}]
	return ix, ok
}

// DeclaredFeatures returns the feature table a package declares in its
// manifest: feature name to expansion list.
func (g *Graph) DeclaredFeatures(pkg PackageID) map[string][]string {
	return g.declared[pkg]
}

// HasDefaultFeature reports whether the package declares a default group.
func (g *Graph) HasDefaultFeature(pkg PackageID) bool {
	_, ok := g.declared[pkg][DefaultFeature]
	return ok
}

// ManifestPath returns the manifest path of a workspace member, or "".
func (g *Graph) ManifestPath(member PackageID) string {
	return g.manifest[member]
}

// PackagesByName returns all resolved packages with the given name,
// matching cargo's loose comparison ('-' and '_' are interchangeable,
// case-insensitive).
func (g *Graph) PackagesByName(name string) []PackageID {
	var out []PackageID
	for _, p := range g.packages {
		if nameEq(p.Name, name) {
			out = append(out, p)
		}
	}
	return out
}

// EntryNode returns the node a package is entered through: its default
// feature node when one is declared, its base node otherwise.
func (g *Graph) EntryNode(pkg PackageID) (int, bool) {
	if g.HasDefaultFeature(pkg) {
		if ix, ok := g.Lookup(pkg, DefaultFeature); ok {
			return ix, true
		}
	}
	return g.Lookup(pkg, "")
}

// nameEq compares crate names the way cargo does: ASCII case-insensitive
// with '-' and '_' interchangeable.
func nameEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		l, r := lower(a[i]), lower(b[i])
		if l == r {
			continue
		}
		if (l == '-' || l == '_') && (r == '-' || r == '_') {
			continue
		}
		return false
	}
	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// debugString dumps nodes and edges for test failure output.
func (g *Graph) debugString() string {
	var b strings.Builder
	for i, n := range g.nodes {
		fmt.Fprintf(&b, "%d: %s\n", i, n)
		for _, e := range g.out[i] {
			fmt.Fprintf(&b, "   -> %s\n", g.nodes[g.edges[e].To])
		}
	}
	return b.String()
}
