package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/query"
)

// dupesCommand creates the dupes command that lists duplicate crates.
func (c *CLI) dupesCommand() *cobra.Command {
	var meta metaFlags

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "List crates resolved at more than one version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDupes(cmd.Context(), &meta)
		},
	}

	addMetaFlags(cmd, &meta)

	return cmd
}

func (c *CLI) runDupes(ctx context.Context, meta *metaFlags) error {
	g, err := c.loadGraph(ctx, meta)
	if err != nil {
		return err
	}

	groups := query.Dupes(g)
	if len(groups) == 0 {
		printSuccess("No duplicate dependencies")
		return nil
	}

	printInfo("%d crate(s) resolved at multiple versions:", len(groups))
	for _, d := range groups {
		printDetail("%s: %s", d.Name, strings.Join(d.Versions, ", "))
	}
	printNextStep("See who pulls a duplicate in", appName+" explain <package>")
	return nil
}
