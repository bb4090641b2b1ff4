package unify

import (
	"strings"

	"github.com/matzehuels/unihack/pkg/featgraph"
)

// OptimizeFeatures drops features already implied by another requested
// feature, using the dependency's declared feature table. Only plain named
// expansions imply; entries that reach into other packages ("dep:x",
// "x/feat", "x?/feat") do not, because they activate nothing locally.
func OptimizeFeatures(declared map[string][]string, requested featgraph.FeatureSet) featgraph.FeatureSet {
	implied := featgraph.NewFeatureSet()
	for req := range requested {
		for _, entry := range declared[req] {
			if name, ok := namedExpansion(entry); ok {
				implied.Add(name)
			}
		}
	}
	out := featgraph.NewFeatureSet()
	for f := range requested {
		if !implied.Has(f) {
			out.Add(f)
		}
	}
	return out
}

func namedExpansion(entry string) (string, bool) {
	if strings.HasPrefix(entry, "dep:") || strings.Contains(entry, "/") {
		return "", false
	}
	return entry, true
}
