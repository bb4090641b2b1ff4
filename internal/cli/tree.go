package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/query"
)

// treeCommand creates the tree command that shows forward dependencies.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		meta          metaFlags
		gf            graphFlags
		workspaceOnly bool
	)

	cmd := &cobra.Command{
		Use:   "tree [package]",
		Short: "Show the dependency graph below a package or the whole workspace",
		Long: `Walk the feature graph forward from a package, or from every workspace
member when no package is named, and print the reachable subgraph.

The result is DOT text on stdout by default; use --output with an .svg
or .png extension to render it, or --view to open it directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return c.runTree(cmd.Context(), &meta, &gf, name, workspaceOnly)
		},
	}

	addMetaFlags(cmd, &meta)
	addGraphFlags(cmd, &gf)
	cmd.Flags().BoolVar(&workspaceOnly, "workspace-only", false, "stop at the workspace boundary")

	return cmd
}

func (c *CLI) runTree(ctx context.Context, meta *metaFlags, gf *graphFlags, name string, workspaceOnly bool) error {
	g, err := c.loadGraph(ctx, meta)
	if err != nil {
		return err
	}

	sg, err := query.Tree(g, name, query.Options{
		Filter:        query.Filter{Feature: gf.feature, Version: gf.version},
		NoReduce:      gf.noReduction,
		WorkspaceOnly: workspaceOnly,
	})
	if err != nil {
		return err
	}
	if sg.Empty() {
		printWarning("No packages matched")
		return nil
	}

	return writeSubgraph(ctx, sg, gf)
}
