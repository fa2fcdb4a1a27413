package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeepLearnPhysics/spine-prod/internal/pipeline"
)

func newPipelineCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline <pipeline.yaml>",
		Short: "Submit a multi-stage pipeline",
		Long: `Submit every stage of a pipeline description in declaration order.

Stage dependencies are enforced by the scheduler through afterok
expressions; stages declaring cleanup paths get a cleanup job gated on
their direct dependents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}

			pl, err := pipeline.Load(args[0])
			if err != nil {
				return err
			}

			planner := pipeline.NewPlanner(app.Service)
			plan, err := planner.Run(cmd.Context(), pl)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Pipeline summary"))
			for _, name := range plan.Order {
				ids := plan.Jobs[name]
				if len(ids) == 0 {
					fmt.Fprintf(out, "  %s: %s\n", name, dimStyle.Render("no jobs"))
					continue
				}
				fmt.Fprintf(out, "  %s: %s\n", name, strings.Join(ids, ", "))
			}
			for _, c := range plan.Cleanups {
				fmt.Fprintf(out, "  cleanup %s: %s (after %s)\n",
					c.Stage, c.JobID, strings.Join(c.Dependents, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&app.dryRun, "dry-run", false, "prepare everything but do not call sbatch")
	return cmd
}
