package unify

import (
	"context"
	"testing"

	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/featgraph"
)

const registry = "registry+https://github.com/rust-lang/crates.io-index"

var linux = cargo.Platform{
	Triple: "x86_64-unknown-linux-gnu",
	Arch:   "x86_64",
	OS:     "linux",
	Env:    "gnu",
	Family: "unix",
}

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
		for _, d := range p.Dependencies {
			target, ok := byName[d.Name]
			if !ok {
				t.Fatalf("declaration %q of %s matches no package", d.Name, p.Name)
			}
			node.Deps = append(node.Deps, cargo.ResolveDep{
				Name:     d.EffectiveName(),
				Pkg:      target,
				DepKinds: []cargo.ResolveDepKind{{Kind: d.Kind, Target: d.Target}},
			})
		}
		snap.Resolve.Nodes = append(snap.Resolve.Nodes, node)
	}
	for _, m := range members {
		snap.WorkspaceMembers = append(snap.WorkspaceMembers, byName[m])
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

func devDep(name string, features ...string) cargo.Dependency {
	return cargo.Dependency{Name: name, Req: "*", Kind: cargo.KindDev, UsesDefaultFeatures: true, Features: features}
}

func id(name, version string) featgraph.PackageID {
	return featgraph.PackageID{Name: name, Version: version, Source: registry}
}

func memberID(name string) featgraph.PackageID {
	return featgraph.PackageID{Name: name, Version: "1.0.0"}
}

func computePlan(t *testing.T, snap *cargo.Snapshot, opts Options) *Plan {
	t.Helper()
	g, err := featgraph.Build(snap, linux)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	plan, err := Compute(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	return plan
}

func megaPotato(t *testing.T) *cargo.Snapshot {
	return testSnapshot(t, []string{"mega", "potato"},
		member("mega", dep("potatoer", "mega")),
		member("potato", dep("potatoer", "potato")),
		external("potatoer", "0.2.0", map[string][]string{
			"mega":   {},
			"potato": {},
		}),
	)
}

func TestComputeDivergence(t *testing.T) {
	plan := computePlan(t, megaPotato(t), Options{})

	if len(plan.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2: %+v", len(plan.Entries), plan.Entries)
	}
	want := featgraph.NewFeatureSet("mega", "potato")
	for _, e := range plan.Entries {
		if e.Dep != id("potatoer", "0.2.0") {
			t.Errorf("entry dep = %s, want potatoer@0.2.0", e.Dep)
		}
		if e.Kind != cargo.KindNormal {
			t.Errorf("entry kind = %s, want normal", e.Kind)
		}
		if !e.Features.Equal(want) {
			t.Errorf("entry features = %s, want %s", e.Features, want)
		}
	}
	if plan.Entries[0].Member != memberID("mega") || plan.Entries[1].Member != memberID("potato") {
		t.Errorf("entries out of member order: %+v", plan.Entries)
	}
}

func TestComputeUnifiedWorkspace(t *testing.T) {
	snap := testSnapshot(t, []string{"a", "b"},
		member("a", dep("lib", "x")),
		member("b", dep("lib", "x")),
		external("lib", "1.0.0", map[string][]string{"x": {}}),
	)
	plan := computePlan(t, snap, Options{})
	if !plan.Empty() {
		t.Fatalf("unified workspace produced entries: %+v", plan.Entries)
	}
}

func TestComputeNeverWidens(t *testing.T) {
	// b does not depend on lib at all; forcing parity on it would add a
	// dependency b never had.
	snap := testSnapshot(t, []string{"a", "b"},
		member("a", dep("lib", "x")),
		member("b", dep("other")),
		external("lib", "1.0.0", map[string][]string{"x": {}}),
		external("other", "1.0.0", nil),
	)
	plan := computePlan(t, snap, Options{})
	for _, e := range plan.Entries {
		if e.Member == memberID("b") {
			t.Errorf("member b received entry for %s", e.Dep)
		}
	}
}

func TestComputeMinimality(t *testing.T) {
	g, err := featgraph.Build(megaPotato(t), linux)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ref, err := g.Resolve(featgraph.Context{Dev: featgraph.DevAll})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	plan, err := Compute(context.Background(), g, Options{})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	for _, e := range plan.Entries {
		solo, err := g.Resolve(featgraph.Context{Roots: []featgraph.PackageID{e.Member}})
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", e.Member, err)
		}
		got, _ := solo.FeaturesOf(e.Dep)
		want, _ := ref.FeaturesOf(e.Dep)
		if !got.StrictSubsetOf(want) {
			t.Errorf("entry (%s, %s): member set %s is not a strict subset of %s",
				e.Member, e.Dep, got, want)
		}
	}
}

func TestComputeForcedFeaturesCascade(t *testing.T) {
	// Forcing lib's full feature set onto a activates lib's optional
	// dependency extra, where a then diverges a second time: b requests
	// extra's x feature directly, a reaches extra bare.
	snap := testSnapshot(t, []string{"a", "b"},
		member("a", dep("lib")),
		member("b", dep("lib", "more"), dep("extra", "x")),
		external("lib", "1.0.0", map[string][]string{
			"more": {"dep:extra"},
		}, cargo.Dependency{Name: "extra", Req: "*", Optional: true}),
		external("extra", "0.4.0", map[string][]string{"x": {}}),
	)
	plan := computePlan(t, snap, Options{})

	entries := plan.ForMember(memberID("a"))
	if len(entries) != 2 {
		t.Fatalf("member a entries = %+v, want lib and extra", entries)
	}
	byDep := make(map[featgraph.PackageID]Entry)
	for _, e := range entries {
		byDep[e.Dep] = e
	}
	if e, ok := byDep[id("extra", "0.4.0")]; !ok {
		t.Fatalf("no cascaded entry for extra: %+v", entries)
	} else if !e.Features.Equal(featgraph.NewFeatureSet("x")) {
		t.Errorf("extra features = %s, want {x}", e.Features)
	}
}

func TestComputeDevPass(t *testing.T) {
	snap := testSnapshot(t, []string{"m", "n"},
		member("m", devDep("mock", "a")),
		member("n", devDep("mock", "b")),
		external("mock", "0.5.0", map[string][]string{"a": {}, "b": {}}),
	)
	plan := computePlan(t, snap, Options{})

	if len(plan.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2: %+v", len(plan.Entries), plan.Entries)
	}
	for _, e := range plan.Entries {
		if e.Kind != cargo.KindDev {
			t.Errorf("entry (%s, %s) kind = %s, want dev", e.Member, e.Dep, e.Kind)
		}
		if !e.Features.Equal(featgraph.NewFeatureSet("a", "b")) {
			t.Errorf("entry features = %s, want {a,b}", e.Features)
		}
	}
}

func TestComputeNoDev(t *testing.T) {
	snap := testSnapshot(t, []string{"m", "n"},
		member("m", devDep("mock", "a")),
		member("n", devDep("mock", "b")),
		external("mock", "0.5.0", map[string][]string{"a": {}, "b": {}}),
	)
	plan := computePlan(t, snap, Options{NoDev: true})
	if !plan.Empty() {
		t.Fatalf("NoDev plan produced entries: %+v", plan.Entries)
	}
}

func TestOptimizeFeatures(t *testing.T) {
	cases := []struct {
		name      string
		requested []string
		declared  map[string][]string
		want      []string
	}{
		{
			name:      "implied by default",
			requested: []string{"one", "default"},
			declared:  map[string][]string{"default": {"one"}},
			want:      []string{"default"},
		},
		{
			name:      "unrelated kept",
			requested: []string{"one", "default"},
			declared:  map[string][]string{"default": {"two"}},
			want:      []string{"default", "one"},
		},
		{
			name:      "several implied",
			requested: []string{"one", "two", "default"},
			declared:  map[string][]string{"default": {"one", "two"}},
			want:      []string{"default"},
		},
		{
			name:      "cross-package expansions do not imply",
			requested: []string{"json", "serde"},
			declared:  map[string][]string{"json": {"dep:serde", "serde/derive"}},
			want:      []string{"json", "serde"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := OptimizeFeatures(tc.declared, featgraph.NewFeatureSet(tc.requested...))
			if !got.Equal(featgraph.NewFeatureSet(tc.want...)) {
				t.Errorf("OptimizeFeatures() = %s, want %s", got, featgraph.NewFeatureSet(tc.want...))
			}
		})
	}
}

func TestFingerprintStability(t *testing.T) {
	a := Entry{Member: memberID("a"), Dep: id("lib", "1.0.0"), Features: featgraph.NewFeatureSet("x")}
	b := Entry{Member: memberID("b"), Dep: id("lib", "1.0.0"), Features: featgraph.NewFeatureSet("x", "y")}

	if Fingerprint([]Entry{a, b}) != Fingerprint([]Entry{b, a}) {
		t.Errorf("fingerprint depends on entry order")
	}

	changed := b
	changed.Features = featgraph.NewFeatureSet("x", "z")
	if Fingerprint([]Entry{a, b}) == Fingerprint([]Entry{a, changed}) {
		t.Errorf("fingerprint ignores feature change")
	}
	if !Verify(Fingerprint([]Entry{a, b}), []Entry{b, a}) {
		t.Errorf("Verify rejected a reordered plan")
	}
}
