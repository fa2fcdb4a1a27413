package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeepLearnPhysics/spine-prod/internal/profile"
	"github.com/DeepLearnPhysics/spine-prod/internal/submitter"
)

func newSubmitCommand(app *App) *cobra.Command {
	var (
		sources      []string
		sourceList   string
		mods         []string
		profileName  string
		jobName      string
		output       string
		ntasks       int
		filesPerTask int
		dependency   string
		larcv        string
		flashmatch   bool
		overrides    overrideFlags
	)

	cmd := &cobra.Command{
		Use:   "submit <config>",
		Short: "Submit a reconstruction job",
		Long: `Submit one reconstruction job, possibly split into several array chunks.

The config argument is a configuration file path, or a "latest" reference
(e.g. infer/icarus/latest) to auto-compose the newest versioned components
for a detector.

Example:
  spine-submit submit infer/icarus/icarus_full_chain_250625.yaml \
    --source '/sdf/data/icarus/*.root' --apply-mods data`,
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

			o := submitter.Options{
				Config:       args[0],
				Sources:      sources,
				Modifiers:    mods,
				Profile:      profileName,
				JobName:      jobName,
				Output:       output,
				NTasks:       ntasks,
				FilesPerTask: filesPerTask,
				Dependency:   dependency,
				LArCVBasedir: larcv,
				Flashmatch:   flashmatch,
				Overrides:    overrides.toOverrides(cmd),
			}
			if sourceList != "" {
				o.Sources = []string{sourceList}
				o.FromList = true
			}

			jobIDs, err := app.Service.Submit(cmd.Context(), o)
			if err != nil {
				return err
			}

			if len(jobIDs) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
					fmt.Sprintf("Submitted %d job(s): %s", len(jobIDs), strings.Join(jobIDs, ", "))))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("No jobs submitted"))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "input file paths or glob patterns")
	cmd.Flags().StringVarP(&sourceList, "source-list", "S", "", "text file listing input paths, one per line")
	cmd.Flags().StringSliceVarP(&mods, "apply-mods", "m", nil, "modifiers to apply (name, name:version, or file path)")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "auto", "resource profile name")
	cmd.Flags().StringVarP(&jobName, "job-name", "j", "", "custom job name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path")
	cmd.Flags().IntVarP(&ntasks, "ntasks", "n", 0, "limit concurrently running array tasks")
	cmd.Flags().IntVar(&filesPerTask, "files-per-task", 1, "input files processed per array task")
	cmd.Flags().StringVarP(&dependency, "dependency", "d", "", "scheduler dependency expression")
	cmd.Flags().StringVar(&larcv, "larcv", "", "custom LArCV installation path")
	cmd.Flags().BoolVar(&flashmatch, "flashmatch", false, "enable flash matching")
	cmd.Flags().BoolVar(&app.dryRun, "dry-run", false, "prepare everything but do not call sbatch")
	overrides.register(cmd)

	return cmd
}

// overrideFlags collects the per-run resource overrides shared by submit.
type overrideFlags struct {
	account     string
	partition   string
	cpusPerTask int
	memPerCPU   string
	timeLimit   string
	gpus        int
}

func (f *overrideFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.account, "account", "A", "", "override scheduler account")
	cmd.Flags().StringVar(&f.partition, "partition", "", "override partition")
	cmd.Flags().IntVar(&f.cpusPerTask, "cpus-per-task", 0, "override CPUs per task")
	cmd.Flags().StringVar(&f.memPerCPU, "mem-per-cpu", "", "override memory per CPU")
	cmd.Flags().StringVarP(&f.timeLimit, "time", "t", "", "override time limit")
	cmd.Flags().IntVar(&f.gpus, "gpus", 0, "override GPU count")
}

// toOverrides converts the flag values to profile overrides. GPUs is
// tracked through flag presence so --gpus 0 can strip a profile's GPUs.
func (f *overrideFlags) toOverrides(cmd *cobra.Command) profile.Overrides {
	return profile.Overrides{
		Account:     f.account,
		Partition:   f.partition,
		CPUsPerTask: f.cpusPerTask,
		MemPerCPU:   f.memPerCPU,
		Time:        f.timeLimit,
		GPUs:        f.gpus,
		GPUsSet:     cmd.Flags().Changed("gpus"),
	}
}
