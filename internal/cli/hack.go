package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/unihack/pkg/errors"
	"github.com/matzehuels/unihack/pkg/featgraph"
	"github.com/matzehuels/unihack/pkg/manifest"
	"github.com/matzehuels/unihack/pkg/unify"
)

// hackCommand creates the hack command that pins unified features.
func (c *CLI) hackCommand() *cobra.Command {
	var (
		meta   metaFlags
		dryRun bool
		noDev  bool
	)

	cmd := &cobra.Command{
		Use:   "hack",
		Short: "Pin unified feature sets into diverging member manifests",
		Long: `Compute the feature sets each dependency resolves to in a whole-workspace
build, find members that resolve fewer features on their own, and add
generated dependency entries to their manifests forcing the unified sets.

Original declarations are stashed inside the manifest and restored with
'unihack restore'. Running hack on an already hacked manifest is refused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHack(cmd.Context(), &meta, dryRun, noDev)
		},
	}

	addMetaFlags(cmd, &meta)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the plan without touching manifests")
	cmd.Flags().BoolVar(&noDev, "no-dev", false, "ignore dev dependencies when unifying")

	return cmd
}

func (c *CLI) runHack(ctx context.Context, meta *metaFlags, dryRun, noDev bool) error {
	g, err := c.loadGraph(ctx, meta)
	if err != nil {
		return err
	}

	plan, err := c.computePlan(withLogger(ctx, c.Logger), g, noDev)
	if err != nil {
		return err
	}
	if plan.Empty() {
		printSuccess("Features are unified as is")
		return nil
	}

	if dryRun {
		printInfo("Would modify %d member(s):", len(plan.Members()))
		printPlan(plan)
		return nil
	}

	fingerprint := unify.Fingerprint(plan.Entries)
	for _, m := range plan.Members() {
		path := g.ManifestPath(m)
		if path == "" {
			return errors.New(errors.ErrCodeInternal, "no manifest path for member %s", m)
		}
		if err := manifest.Apply(path, plan.ForMember(m), fingerprint); err != nil {
			if errors.Is(err, errors.ErrCodeAlreadyHacked) {
				printError("%s is already hacked, restore it first", m.Name)
				printNextStep("Undo previous changes", appName+" restore")
			}
			return err
		}
		printDetail("%s: %d entries", m.Name, len(plan.ForMember(m)))
	}

	printSuccess("Pinned features in %d member manifest(s)", len(plan.Members()))
	printNextStep("Undo with", appName+" restore")
	return nil
}

// computePlan runs the unifier and logs the outcome at debug level.
func (c *CLI) computePlan(ctx context.Context, g *featgraph.Graph, noDev bool) (*unify.Plan, error) {
	spinner := newSpinnerWithContext(ctx, "Computing unification plan...")
	spinner.Start()

	prog := newProgress(loggerFromContext(ctx))
	plan, err := unify.Compute(ctx, g, unify.Options{NoDev: noDev})
	if err != nil {
		spinner.StopWithError("Plan computation failed")
		return nil, err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Planned %d entries", len(plan.Entries)))
	return plan, nil
}

// printPlan lists the planned entries grouped by member.
func printPlan(plan *unify.Plan) {
	for _, m := range plan.Members() {
		printInfo("%s", m.Name)
		for _, e := range plan.ForMember(m) {
			line := fmt.Sprintf("%s %s %s", e.Kind.TableName(), e.Dep, e.Features)
			if e.Rename {
				line += " (aliased)"
			}
			printDetail("%s", line)
		}
	}
}
