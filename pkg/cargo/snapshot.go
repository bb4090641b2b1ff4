// Package cargo obtains and models resolved workspace metadata.
//
// The package shells out to `cargo metadata --format-version 1` exactly once
// per command invocation and decodes the result into an immutable Snapshot.
// Nothing here interprets feature semantics; that is featgraph's job. The
// snapshot is plain data: packages, declared dependencies, the resolver's
// node list, and the set of workspace members.
package cargo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/unihack/pkg/errors"
)

// DepKind classifies a declared dependency edge.
type DepKind int

const (
	// KindNormal is a regular [dependencies] entry.
	KindNormal DepKind = iota
	// KindDev is a [dev-dependencies] entry, active for tests and examples only.
	KindDev
	// KindBuild is a [build-dependencies] entry, active for build scripts.
	KindBuild
)

// String returns the cargo table name fragment for the kind.
func (k DepKind) String() string {
	switch k {
	case KindDev:
		return "dev"
	case KindBuild:
		return "build"
	default:
		return "normal"
	}
}

// TableName returns the Cargo.toml table a dependency of this kind lives in.
func (k DepKind) TableName() string {
	switch k {
	case KindDev:
		return "dev-dependencies"
	case KindBuild:
		return "build-dependencies"
	default:
		return "dependencies"
	}
}

// UnmarshalJSON decodes cargo's kind encoding: null or "" means normal.
func (k *DepKind) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*k = KindNormal
		return nil
	}
	switch *s {
	case "", "normal":
		*k = KindNormal
	case "dev":
		*k = KindDev
	case "build":
		*k = KindBuild
	default:
		return fmt.Errorf("unknown dependency kind %q", *s)
	}
	return nil
}

// Dependency is one declared dependency of a package, as written in its
// manifest. The same target package may be declared several times with
// different kinds or platform filters; declarations are never merged.
type Dependency struct {
	Name                string   `json:"name"`
	Source              string   `json:"source"`
	Req                 string   `json:"req"`
	Kind                DepKind  `json:"kind"`
	Rename              *string  `json:"rename"`
	Optional            bool     `json:"optional"`
	UsesDefaultFeatures bool     `json:"uses_default_features"`
	Features            []string `json:"features"`
	Target              string   `json:"target"` // cfg expression or triple, empty = unconditional
	Path                string   `json:"path"`
}

// EffectiveName returns the name the dependency is referred to by in the
// declaring package: the rename when present, the target name otherwise.
func (d *Dependency) EffectiveName() string {
	if d.Rename != nil && *d.Rename != "" {
		return *d.Rename
	}
	return d.Name
}

// BuildTarget is a compilation target of a package (lib, bin, test, ...).
type BuildTarget struct {
	Kind []string `json:"kind"`
	Name string   `json:"name"`
}

// Package is one resolved package, internal or external.
type Package struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Source       string              `json:"source"` // empty for path (workspace) packages
	ManifestPath string              `json:"manifest_path"`
	Dependencies []Dependency        `json:"dependencies"`
	Features     map[string][]string `json:"features"`
	Targets      []BuildTarget       `json:"targets"`
}

// LibName returns the name of the package's library target when it differs
// from the package name (cargo permits renamed lib targets), or "".
func (p *Package) LibName() string {
	for _, t := range p.Targets {
		for _, k := range t.Kind {
			if k == "lib" && t.Name != p.Name {
				return t.Name
			}
		}
	}
	return ""
}

// ResolveDepKind is one (kind, platform filter) pair under which a resolved
// dependency edge is active.
type ResolveDepKind struct {
	Kind   DepKind `json:"kind"`
	Target string  `json:"target"`
}

// ResolveDep is one resolved dependency edge of a resolve node.
type ResolveDep struct {
	Name     string           `json:"name"`
	Pkg      string           `json:"pkg"`
	DepKinds []ResolveDepKind `json:"dep_kinds"`
}

// ResolveNode pairs a package ID with its resolved dependency edges.
type ResolveNode struct {
	ID   string       `json:"id"`
	Deps []ResolveDep `json:"deps"`
}

// Resolve is cargo's resolved dependency graph.
type Resolve struct {
	Nodes []ResolveNode `json:"nodes"`
}

// Snapshot is the immutable metadata snapshot one command operates on.
// It is built once, never refreshed, and never mutated.
type Snapshot struct {
	Packages         []Package `json:"packages"`
	WorkspaceMembers []string  `json:"workspace_members"`
	Resolve          *Resolve  `json:"resolve"`
	WorkspaceRoot    string    `json:"workspace_root"`
}

// Decode reads a `cargo metadata --format-version 1` JSON document.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedSnapshot, err, "decode metadata")
	}
	if snap.Resolve == nil {
		return nil, errors.New(errors.ErrCodeMalformedSnapshot, "metadata carries no resolve graph")
	}
	return &snap, nil
}

// PackageByID returns the package with the given opaque ID, or nil.
func (s *Snapshot) PackageByID(id string) *Package {
	for i := range s.Packages {
		if s.Packages[i].ID == id {
			return &s.Packages[i]
		}
	}
	return nil
}

// IsMember reports whether the package ID names a workspace member.
func (s *Snapshot) IsMember(id string) bool {
	for _, m := range s.WorkspaceMembers {
		if m == id {
			return true
		}
	}
	return false
}
