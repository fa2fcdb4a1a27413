// Package cli wires the command line surface for spine-submit.
//
// Commands are built one per file with [NewRootCommand] assembling the tree.
// All commands share an [App], which resolves the installation root, loads
// the resource profile store once, and constructs the submission service.
// RunE functions return [ExitError] values instead of calling os.Exit so the
// command tree stays testable end to end.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
	"github.com/DeepLearnPhysics/spine-prod/internal/profile"
	"github.com/DeepLearnPhysics/spine-prod/internal/submitter"
)

// basedirEnv names the environment variable pointing at the installation
// root (the directory holding config/ and templates/).
const basedirEnv = "SPINE_PROD_BASEDIR"

// App carries the state shared by every command: resolved paths, the loaded
// profile store, and the submission service.
type App struct {
	// Basedir is the installation root. Resolved from --basedir, then
	// SPINE_PROD_BASEDIR, then the current directory.
	Basedir string

	// Logger receives all structured output.
	Logger *slog.Logger

	// Service is built by setup after flags are parsed.
	Service *submitter.Service

	// Store is the profile store the Service was built with.
	Store *profile.Store

	basedirFlag string
	localOutput bool
	dryRun      bool
	verbose     bool
}

// NewApp creates an App logging through the given logger.
func NewApp(logger *slog.Logger) *App {
	return &App{Logger: logger}
}

// setup resolves the installation root, loads the profile store and builds
// the submission service. Called from each command's RunE after flag
// parsing, not as a PersistentPreRun, so help output never needs a valid
// installation.
func (a *App) setup() error {
	basedir := a.basedirFlag
	if basedir == "" {
		basedir = os.Getenv(basedirEnv)
	}
	if basedir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		basedir = cwd
		a.Logger.Warn("SPINE_PROD_BASEDIR is not set, using current directory", "basedir", basedir)
	}
	abs, err := filepath.Abs(basedir)
	if err != nil {
		return err
	}
	a.Basedir = abs

	store, err := profile.Load(profile.DefaultProfilesPath(a.Basedir))
	if err != nil {
		return err
	}
	a.Store = store

	jobsDir := filepath.Join(a.Basedir, "jobs")
	if a.localOutput {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		jobsDir = filepath.Join(cwd, "jobs")
	}

	command := strings.Join(os.Args, " ")
	a.Service = submitter.New(a.Basedir, jobsDir, store, command, a.dryRun)
	return nil
}

// NewRootCommand assembles the spine-submit command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "spine-submit",
		Short: "Submit SPINE reconstruction jobs to SLURM",
		Long: `spine-submit prepares and submits SPINE reconstruction jobs:
it resolves configuration modifiers against the base configuration version,
generates composite configs, partitions input files into array tasks, and
hands rendered batch scripts to the scheduler.`,
		Version:       submitter.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if app.verbose {
				level = slog.LevelDebug
			}
			app.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), app.Logger))
		},
	}

	root.PersistentFlags().StringVar(&app.basedirFlag, "basedir", "",
		fmt.Sprintf("installation root (default: $%s)", basedirEnv))
	root.PersistentFlags().BoolVar(&app.localOutput, "local-output", false,
		"create job directories under the current directory instead of the installation root")
	root.PersistentFlags().BoolVar(&app.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newSubmitCommand(app))
	root.AddCommand(newPipelineCommand(app))
	root.AddCommand(newListModsCommand(app))
	root.AddCommand(newInteractiveCommand(app))

	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(args []string) int {
	app := NewApp(slog.Default())
	root := NewRootCommand(app)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		if code, ok := IsExitError(err); ok {
			return code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
