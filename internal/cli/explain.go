package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/query"
)

// explainCommand creates the explain command that answers why a package
// is in the build.
func (c *CLI) explainCommand() *cobra.Command {
	var (
		meta metaFlags
		gf   graphFlags
	)

	cmd := &cobra.Command{
		Use:   "explain <package>",
		Short: "Show every path from the workspace to a package",
		Long: `Walk the feature graph backwards from a package and print the subgraph
of everything that pulls it in, up to the workspace boundary. Workspace
members appear as terminal crossing points.

The result is DOT text on stdout by default; use --output with an .svg
or .png extension to render it, or --view to open it directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplain(cmd.Context(), &meta, &gf, args[0])
		},
	}

	addMetaFlags(cmd, &meta)
	addGraphFlags(cmd, &gf)

	return cmd
}

// addGraphFlags registers the flags shared by explain and tree.
func addGraphFlags(cmd *cobra.Command, f *graphFlags) {
	cmd.Flags().StringVar(&f.feature, "feature", "", "start from one feature of the package only")
	cmd.Flags().StringVar(&f.version, "package-version", "", "semver constraint selecting among duplicate versions")
	cmd.Flags().BoolVar(&f.noReduction, "no-transitive-reduction", false, "keep edges implied by longer paths")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write to file (.svg and .png render, anything else gets DOT text)")
	cmd.Flags().BoolVar(&f.view, "view", false, "render to a temporary file and open the system viewer")
}

func (c *CLI) runExplain(ctx context.Context, meta *metaFlags, gf *graphFlags, name string) error {
	g, err := c.loadGraph(ctx, meta)
	if err != nil {
		return err
	}

	sg, err := query.Explain(g, name, query.Options{
		Filter:   query.Filter{Feature: gf.feature, Version: gf.version},
		NoReduce: gf.noReduction,
	})
	if err != nil {
		return err
	}
	if sg.Empty() {
		printWarning("Nothing in the workspace depends on %s", name)
		return nil
	}

	return writeSubgraph(ctx, sg, gf)
}
