package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/cargo"
	"github.com/matzehuels/unihack/pkg/featgraph"
)

// metaFlags are the flags shared by every command that needs resolved
// workspace metadata.
type metaFlags struct {
	dir     string
	target  string
	locked  bool
	offline bool
	frozen  bool
	refresh bool
	noCache bool
}

// addMetaFlags registers the shared metadata flags on cmd.
func addMetaFlags(cmd *cobra.Command, f *metaFlags) {
	cmd.Flags().StringVarP(&f.dir, "manifest-dir", "C", "", "workspace directory (default: current)")
	cmd.Flags().StringVar(&f.target, "target", "", "target triple to filter platform dependencies (default: host)")
	cmd.Flags().BoolVar(&f.locked, "locked", false, "pass --locked to cargo metadata")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "pass --offline to cargo metadata")
	cmd.Flags().BoolVar(&f.frozen, "frozen", false, "pass --frozen to cargo metadata")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass the metadata cache for this run")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the metadata cache entirely")
}

// loadGraph resolves workspace metadata and builds the feature graph.
// A spinner runs while the cargo subprocess is active.
func (c *CLI) loadGraph(ctx context.Context, f *metaFlags) (*featgraph.Graph, error) {
	platform, err := c.platform(ctx, f)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("platform resolved", "triple", platform.Triple)

	spinner := newSpinnerWithContext(ctx, "Resolving workspace metadata...")
	spinner.Start()

	prog := newProgress(c.Logger)
	snap, err := cargo.Exec(ctx, cargo.ExecOptions{
		Dir:     f.dir,
		Locked:  f.locked,
		Offline: f.offline,
		Frozen:  f.frozen,
		Refresh: f.refresh,
		Cache:   newCache(f.noCache),
	})
	if err != nil {
		spinner.StopWithError("Metadata resolution failed")
		return nil, err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Resolved %d packages", len(snap.Packages)))

	g, err := featgraph.Build(snap, platform)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("feature graph built", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}

// platform selects the build target all cfg() filters are evaluated against.
func (c *CLI) platform(ctx context.Context, f *metaFlags) (cargo.Platform, error) {
	if f.target != "" {
		return cargo.ParsePlatform(f.target)
	}
	return cargo.HostPlatform(ctx)
}
