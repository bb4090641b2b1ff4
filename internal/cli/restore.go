package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/manifest"
)

// restoreCommand creates the restore command that undoes applied entries.
func (c *CLI) restoreCommand() *cobra.Command {
	var (
		meta  metaFlags
		force bool
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Remove pinned features and bring back the stashed declarations",
		Long: `Remove the generated dependency entries from every hacked member manifest
and re-insert the stashed originals. Manifests edited by hand since the
hack are refused unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRestore(cmd.Context(), &meta, force)
		},
	}

	addMetaFlags(cmd, &meta)
	cmd.Flags().BoolVar(&force, "force", false, "restore even when the manifest was edited after hacking")

	return cmd
}

func (c *CLI) runRestore(ctx context.Context, meta *metaFlags, force bool) error {
	g, err := c.loadGraph(ctx, meta)
	if err != nil {
		return err
	}

	restored := 0
	for _, m := range g.Members() {
		path := g.ManifestPath(m)
		if path == "" {
			continue
		}
		ok, err := manifest.Restore(path, force)
		if err != nil {
			printError("%s: %v", m.Name, err)
			return err
		}
		if ok {
			printDetail("restored %s", m.Name)
			restored++
		}
	}

	if restored == 0 {
		printInfo("Nothing to restore")
		return nil
	}
	printSuccess("Restored %d member manifest(s)", restored)
	return nil
}
