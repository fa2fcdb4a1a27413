package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeepLearnPhysics/spine-prod/internal/submitter"
)

func newInteractiveCommand(app *App) *cobra.Command {
	var (
		sources      []string
		sourceList   string
		mods         []string
		output       string
		filesPerTask int
		taskID       int
		larcv        string
		flashmatch   bool
	)

	cmd := &cobra.Command{
		Use:   "interactive <config>",
		Short: "Run a reconstruction task in the current shell",
		Long: `Prepare a job exactly as submit would (config composition, input
partitioning), then run one task's reconstruction command directly in the
current shell instead of submitting to the scheduler. Useful for testing
configurations before a large submission.

Requires SPINE_BASEDIR to be set (source configure.sh first).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sources) == 0 && sourceList == "" {
				return fmt.Errorf("either --source or --source-list is required")
			}
			if len(sources) > 0 && sourceList != "" {
				return fmt.Errorf("--source and --source-list are mutually exclusive")
			}
			if err := app.setup(); err != nil {
				return err
			}

			o := submitter.InteractiveOptions{
				Config:       args[0],
				Sources:      sources,
				Modifiers:    mods,
				Output:       output,
				FilesPerTask: filesPerTask,
				TaskID:       taskID,
				LArCVBasedir: larcv,
				Flashmatch:   flashmatch,
			}
			if sourceList != "" {
				o.Sources = []string{sourceList}
				o.FromList = true
			}

			exitCode, err := app.Service.Interactive(cmd.Context(), o)
			if err != nil {
				return err
			}
			if exitCode != 0 {
				return NewExitError(exitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "input file paths or glob patterns")
	cmd.Flags().StringVarP(&sourceList, "source-list", "S", "", "text file listing input paths, one per line")
	cmd.Flags().StringSliceVarP(&mods, "apply-mods", "m", nil, "modifiers to apply (name, name:version, or file path)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path")
	cmd.Flags().IntVar(&filesPerTask, "files-per-task", 1, "input files processed per task")
	cmd.Flags().IntVar(&taskID, "task-id", 1, "which task of the partitioned input to run (1-indexed)")
	cmd.Flags().StringVar(&larcv, "larcv", "", "custom LArCV installation path")
	cmd.Flags().BoolVar(&flashmatch, "flashmatch", false, "enable flash matching")

	return cmd
}
