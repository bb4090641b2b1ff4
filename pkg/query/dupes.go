package query

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/unihack/pkg/featgraph"
)

// Dupe is one crate name resolved at two or more versions.
type Dupe struct {
	Name     string
	Versions []string // ascending semver order
}

// Dupes lists every crate name the workspace resolves at more than one
// version. Each duplicated version is compiled separately, so the list is
// a direct readout of avoidable build work. A clean graph yields nil.
func Dupes(g *featgraph.Graph) []Dupe {
	byName := make(map[string][]string)
	for _, pkg := range g.Packages() {
		if g.IsMember(pkg) {
			continue
		}
		byName[pkg.Name] = append(byName[pkg.Name], pkg.Version)
	}

	var out []Dupe
	for name, versions := range byName {
		versions = dedup(versions)
		if len(versions) < 2 {
			continue
		}
		slices.SortFunc(versions, compareVersions)
		out = append(out, Dupe{Name: name, Versions: versions})
	}
	slices.SortFunc(out, func(a, b Dupe) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func dedup(versions []string) []string {
	slices.Sort(versions)
	return slices.Compact(versions)
}

// compareVersions orders semantic versions numerically, falling back to a
// string compare for anything semver cannot parse.
func compareVersions(a, b string) int {
	va, erra := semver.NewVersion(a)
	vb, errb := semver.NewVersion(b)
	if erra != nil || errb != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}
