package submitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/DeepLearnPhysics/spine-prod/internal/composer"
	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
	"github.com/DeepLearnPhysics/spine-prod/internal/filelist"
	"github.com/DeepLearnPhysics/spine-prod/internal/modifier"
)

// InteractiveOptions describes one interactive run.
type InteractiveOptions struct {
	Config       string
	Sources      []string
	FromList     bool
	Modifiers    []string
	Output       string
	FilesPerTask int

	// TaskID selects which task of the partitioned input to run, 1-indexed.
	TaskID int

	LArCVBasedir string
	Flashmatch   bool
}

// Interactive performs all configuration composition and input preparation
// exactly as [Service.Submit] would, then runs the reconstruction command
// directly in the current shell instead of handing a script to the
// scheduler. Only the selected task's file group is processed. The process
// exit code is returned alongside any preparation error.
func (s *Service) Interactive(ctx context.Context, o InteractiveOptions) (int, error) {
	log := ctxlog.FromContext(ctx)

	files, err := filelist.Parse(ctx, o.Sources, o.FromList)
	if err != nil {
		return 1, err
	}
	if len(files) == 0 {
		return 1, fmt.Errorf("no input files found")
	}
	log.Info("input files resolved", "count", len(files))

	detector := s.store.DetectDetector(o.Config)
	configName := modifier.Stem(o.Config)
	isLatest := s.isLatestRequest(o.Config)

	jobName := fmt.Sprintf("interactive_%s_%s", detector, configName)
	jobDir, err := s.slurm.CreateJobDir(jobName)
	if err != nil {
		return 1, err
	}
	if jobDir, err = filepath.Abs(jobDir); err != nil {
		return 1, err
	}

	comp := composer.New(filepath.Join(s.basedir, "config"))
	config := o.Config

	if isLatest {
		log.Info("latest config requested", "detector", detector)
		doc, err := comp.ComposeLatest(ctx, detector, jobDir)
		if err != nil {
			return 1, err
		}
		config = doc.Path()
	}
	if len(o.Modifiers) > 0 {
		modDetector := ""
		if isLatest {
			modDetector = detector
		}
		doc, err := comp.Compose(ctx, config, o.Modifiers, jobDir, modDetector)
		if err != nil {
			return 1, err
		}
		config = doc.Path()
	}
	if err := comp.Flush(); err != nil {
		return 1, err
	}

	output := o.Output
	if output == "" {
		output = filepath.Join(jobDir, "output", jobName+".h5")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return 1, fmt.Errorf("failed to create output directory: %w", err)
	}

	chunks := filelist.Partition(files, s.store.Defaults.MaxArraySize, o.FilesPerTask)
	taskID := o.TaskID
	if taskID == 0 {
		taskID = 1
	}
	if taskID < 1 || taskID > len(chunks) {
		return 1, fmt.Errorf("task ID %d out of range (1-%d)", taskID, len(chunks))
	}

	var taskFiles []string
	for _, group := range chunks[taskID-1] {
		taskFiles = append(taskFiles, group...)
	}
	taskList := filepath.Join(jobDir, fmt.Sprintf("interactive_files_task_%d.txt", taskID))
	content := strings.Join(taskFiles, "\n") + "\n"
	if err := os.WriteFile(taskList, []byte(content), 0o644); err != nil {
		return 1, fmt.Errorf("failed to write task file list: %w", err)
	}

	log.Info("running task", "task", fmt.Sprintf("%d/%d", taskID, len(chunks)),
		"files", len(taskFiles))

	var parts []string
	if o.LArCVBasedir != "" {
		parts = append(parts, fmt.Sprintf("source %s/configure.sh", o.LArCVBasedir))
	}
	if o.Flashmatch {
		parts = append(parts, "source $FMATCH_BASEDIR/configure.sh")
	}

	if os.Getenv("SPINE_BASEDIR") == "" {
		return 1, fmt.Errorf("SPINE_BASEDIR is not set, source configure.sh before running interactively")
	}

	parts = append(parts, fmt.Sprintf(
		"python3 $SPINE_BASEDIR/bin/run.py -S %s -o %s -c %s --log-dir %s",
		taskList, output, config, filepath.Join(jobDir, "logs")))

	cmdLine := strings.Join(parts, " && ")
	log.Info("executing", "command", cmdLine)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdLine)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return 1, fmt.Errorf("interactive execution failed: %w", runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	log.Info("interactive execution finished", "exit_code", exitCode, "job_dir", jobDir)
	if exitCode == 0 {
		log.Info("output written", "output", output)
	}
	return exitCode, nil
}
