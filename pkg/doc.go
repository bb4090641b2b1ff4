// Package pkg provides the core libraries for unihack feature unification.
//
// # Overview
//
// Unihack makes single-member cargo builds reuse the artifacts of the
// whole-workspace build by pinning unified feature sets into diverging
// member manifests. The pkg directory is organized by pipeline stage:
//
//  1. [cargo] - Obtain and model resolved workspace metadata
//  2. [featgraph] - Build and resolve the feature dependency graph
//  3. [unify] - Compute the unification changeset
//  4. [manifest] - Apply, verify, and restore manifest edits
//  5. [query] - Explain, tree, and duplicate-version queries
//  6. [render] - DOT and image output for query results
//
// # Architecture
//
// The typical data flow through unihack:
//
//	cargo metadata subprocess
//	         ↓
//	    [cargo] package (decode the snapshot)
//	         ↓
//	    [featgraph] package (feature graph + resolution)
//	         ↓
//	    [unify] package (divergence detection, changeset)
//	         ↓
//	    [manifest] package (apply / restore edits)
//
// Query commands branch off after [featgraph] into [query] and [render].
//
// # Main Packages
//
// [cargo] - Shells out to `cargo metadata --format-version 1`, decodes the
// result into an immutable Snapshot, and evaluates target platform filters.
// Raw metadata is cached keyed on manifest content.
//
// [featgraph] - The (package, feature) graph. Nodes are individual features,
// edges carry dependency kinds and platform filters, weak optional-feature
// references resolve by fixed point. Resolution answers which features each
// package activates under a given build context.
//
// [unify] - Compares every member's single-context resolution against the
// whole-workspace reference and produces the minimal set of manifest entries
// forcing the reference sets.
//
// [manifest] - Byte-level Cargo.toml editing. Generated entries live between
// sentinel comments, displaced declarations are stashed in package metadata,
// and a checksum over the dependency tables detects manual edits.
//
// # Supporting Packages
//
// [cache] - Byte-level caching with file and null backends.
//
// [errors] - Structured errors with machine-readable codes.
//
// [buildinfo] - Build-time version information via ldflags.
//
// [cargo]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/cargo
// [featgraph]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/featgraph
// [unify]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/unify
// [manifest]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/manifest
// [query]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/query
// [render]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/unihack/pkg/buildinfo
package pkg
