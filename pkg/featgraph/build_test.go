package featgraph

import (
	"testing"

	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/errors"
)

const registry = "registry+https://github.com/rust-lang/crates.io-index"

var linux = cargo.Platform{
	Triple: "x86_64-unknown-linux-gnu",
	Arch:   "x86_64",
	OS:     "linux",
	Env:    "gnu",
	Family: "unix",
}

// testSnapshot assembles a metadata snapshot from packages and member
// names, deriving the resolve graph from the declared dependencies the way
// cargo would: each declaration matches the package with the same name,
// declarations of the same target collapse into one resolve edge with
// several kinds.
func testSnapshot(t *testing.T, members []string, pkgs ...cargo.Package) *cargo.Snapshot {
	t.Helper()
	snap := &cargo.Snapshot{Resolve: &cargo.Resolve{}}
	byName := make(map[string]string)
	for _, p := range pkgs {
		byName[p.Name] = p.ID
	}
	for _, p := range pkgs {
		snap.Packages = append(snap.Packages, p)
		node := cargo.ResolveNode{ID: p.ID}
		seen := make(map[string]int)
		for _, d := range p.Dependencies {
			target, ok := byName[d.Name]
			if !ok {
				t.Fatalf("declaration %q of %s matches no package", d.Name, p.Name)
			}
			kind := cargo.ResolveDepKind{Kind: d.Kind, Target: d.Target}
			if ix, ok := seen[d.Name]; ok {
				node.Deps[ix].DepKinds = append(node.Deps[ix].DepKinds, kind)
				continue
			}
			seen[d.Name] = len(node.Deps)
			node.Deps = append(node.Deps, cargo.ResolveDep{
				Name:     d.EffectiveName(),
				Pkg:      target,
				DepKinds: []cargo.ResolveDepKind{kind},
			})
		}
		snap.Resolve.Nodes = append(snap.Resolve.Nodes, node)
	}
	for _, m := range members {
		id, ok := byName[m]
		if !ok {
			t.Fatalf("member %q matches no package", m)
		}
		snap.WorkspaceMembers = append(snap.WorkspaceMembers, id)
	}
	return snap
}

func member(name string, deps ...cargo.Dependency) cargo.Package {
	return cargo.Package{
		ID:           name + "@1.0.0",
		Name:         name,
		Version:      "1.0.0",
		ManifestPath: "/ws/" + name + "/Cargo.toml",
		Dependencies: deps,
		Features:     map[string][]string{},
	}
}

func external(name, version string, features map[string][]string, deps ...cargo.Dependency) cargo.Package {
	if features == nil {
		features = map[string][]string{}
	}
	return cargo.Package{
		ID:           name + "@" + version,
		Name:         name,
		Version:      version,
		Source:       registry,
		Dependencies: deps,
		Features:     features,
	}
}

func dep(name string, features ...string) cargo.Dependency {
	return cargo.Dependency{Name: name, Req: "*", UsesDefaultFeatures: true, Features: features}
}

func id(name, version string) PackageID {
	return PackageID{Name: name, Version: version, Source: registry}
}

func memberID(name string) PackageID {
	return PackageID{Name: name, Version: "1.0.0"}
}

func mustBuild(t *testing.T, snap *cargo.Snapshot) *Graph {
	t.Helper()
	g, err := Build(snap, linux)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestBuildMembers(t *testing.T) {
	snap := testSnapshot(t, []string{"mega", "potato"},
		member("mega", dep("potatoer", "mega")),
		member("potato", dep("potatoer", "potato")),
		external("potatoer", "0.2.0", map[string][]string{
			"default": {},
			"mega":    {},
			"potato":  {},
		}),
	)
	g := mustBuild(t, snap)

	if got := len(g.Members()); got != 2 {
		t.Fatalf("len(Members()) = %d, want 2", got)
	}
	if !g.IsMember(memberID("mega")) || !g.IsMember(memberID("potato")) {
		t.Errorf("members not recognized: %v", g.Members())
	}
	if g.IsMember(id("potatoer", "0.2.0")) {
		t.Errorf("external package reported as member")
	}
	if got := g.ManifestPath(memberID("mega")); got != "/ws/mega/Cargo.toml" {
		t.Errorf("ManifestPath(mega) = %q", got)
	}
	if _, ok := g.Lookup(id("potatoer", "0.2.0"), "mega"); !ok {
		t.Errorf("feature node potatoer:mega missing\n%s", g.debugString())
	}
}

func TestBuildAmbiguousIdentity(t *testing.T) {
	a := external("dup", "1.0.0", nil)
	b := external("dup", "1.0.0", nil)
	b.ID = "dup@1.0.0#2"
	snap := testSnapshot(t, []string{"m"}, member("m"), a)
	snap.Packages = append(snap.Packages, b)
	snap.Resolve.Nodes = append(snap.Resolve.Nodes, cargo.ResolveNode{ID: b.ID})

	_, err := Build(snap, linux)
	if errors.GetCode(err) != errors.ErrCodeAmbiguousIdentity {
		t.Fatalf("Build() error = %v, want AMBIGUOUS_IDENTITY", err)
	}
}

func TestBuildUnknownPackageInResolve(t *testing.T) {
	snap := testSnapshot(t, []string{"m"}, member("m"))
	snap.Resolve.Nodes[0].Deps = append(snap.Resolve.Nodes[0].Deps, cargo.ResolveDep{
		Name: "ghost", Pkg: "ghost@9.9.9",
	})

	_, err := Build(snap, linux)
	if errors.GetCode(err) != errors.ErrCodeMalformedSnapshot {
		t.Fatalf("Build() error = %v, want MALFORMED_SNAPSHOT", err)
	}
}

func TestBuildUnknownMember(t *testing.T) {
	snap := testSnapshot(t, []string{"m"}, member("m"))
	snap.WorkspaceMembers = append(snap.WorkspaceMembers, "ghost@9.9.9")

	_, err := Build(snap, linux)
	if errors.GetCode(err) != errors.ErrCodeMalformedSnapshot {
		t.Fatalf("Build() error = %v, want MALFORMED_SNAPSHOT", err)
	}
}

func TestBuildPlatformFilteredEdge(t *testing.T) {
	win := cargo.Dependency{Name: "winapi", Req: "*", Target: `cfg(windows)`}
	snap := testSnapshot(t, []string{"m"},
		member("m", win),
		external("winapi", "0.3.9", nil),
	)
	g := mustBuild(t, snap)

	res, err := g.Resolve(Context{Dev: DevAll})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, built := res.FeaturesOf(id("winapi", "0.3.9")); built {
		t.Errorf("cfg(windows) dependency reached on linux")
	}
}

func TestBuildRenamedDependency(t *testing.T) {
	rename := "tokio1"
	snap := testSnapshot(t, []string{"m"},
		member("m", cargo.Dependency{
			Name: "tokio", Req: "*", Rename: &rename, UsesDefaultFeatures: true,
		}),
		external("tokio", "1.40.0", map[string][]string{"default": {}}),
	)
	g := mustBuild(t, snap)

	res, err := g.Resolve(Context{Dev: DevAll})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	feats, built := res.FeaturesOf(id("tokio", "1.40.0"))
	if !built {
		t.Fatalf("renamed dependency not reached\n%s", g.debugString())
	}
	if !feats.HasDefault() {
		t.Errorf("features = %s, want default", feats)
	}
}

func TestNameEq(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"serde", "serde", true},
		{"serde-json", "serde_json", true},
		{"Serde", "serde", true},
		{"serde", "serde2", false},
		{"serde", "serd", false},
	}
	for _, tc := range cases {
		if got := nameEq(tc.a, tc.b); got != tc.want {
			t.Errorf("nameEq(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFeatureSetOps(t *testing.T) {
	a := NewFeatureSet("x", "y")
	b := NewFeatureSet("x", "y", "z")

	if !a.StrictSubsetOf(b) {
		t.Errorf("%s should be a strict subset of %s", a, b)
	}
	if b.StrictSubsetOf(a) || a.StrictSubsetOf(a) {
		t.Errorf("strict subset must exclude equality and supersets")
	}
	if !a.Equal(NewFeatureSet("y", "x")) {
		t.Errorf("Equal should ignore order")
	}

	c := a.Clone()
	c.Add("w")
	if a.Has("w") {
		t.Errorf("Clone is not independent")
	}
	a.Union(b)
	if !a.Equal(b) {
		t.Errorf("Union(%s) = %s, want %s", b, a, b)
	}
	if got := NewFeatureSet("b", "a").String(); got != "{a,b}" {
		t.Errorf("String() = %q", got)
	}
}
