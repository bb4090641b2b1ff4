package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/errors"
	"github.com/matzehuels/unihack/pkg/manifest"
)

// checkCommand creates the check command used as a CI gate.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		meta  metaFlags
		noDev bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the workspace builds with unified features",
		Long: `Recompute the unification plan and fail when any member still diverges
from the whole-workspace feature resolution. Hacked manifests are also
checked for manual edits made after the hack.

Exits non-zero when the workspace is not unified, making it suitable for
CI pipelines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), &meta, noDev)
		},
	}

	addMetaFlags(cmd, &meta)
	cmd.Flags().BoolVar(&noDev, "no-dev", false, "ignore dev dependencies when unifying")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, meta *metaFlags, noDev bool) error {
	g, err := c.loadGraph(ctx, meta)
	if err != nil {
		return err
	}

	edited := 0
	for _, m := range g.Members() {
		path := g.ManifestPath(m)
		if path == "" {
			continue
		}
		st, err := manifest.ReadState(path)
		if err != nil {
			return err
		}
		if !st.Hacked {
			continue
		}
		if err := manifest.VerifyChecksum(path); err != nil {
			if errors.Is(err, errors.ErrCodeChecksumMismatch) {
				printWarning("%s was edited after hacking", m.Name)
				edited++
				continue
			}
			return err
		}
	}

	plan, err := c.computePlan(withLogger(ctx, c.Logger), g, noDev)
	if err != nil {
		return err
	}

	if plan.Empty() && edited == 0 {
		printSuccess("Features are unified")
		return nil
	}
	if !plan.Empty() {
		printError("Features are not unified, %d member(s) diverge", len(plan.Members()))
		printPlan(plan)
		return fmt.Errorf("workspace features are not unified")
	}
	return fmt.Errorf("%d hacked manifest(s) edited by hand", edited)
}
