// Package submitter orchestrates single-job and pipeline submissions.
//
// The [Service] ties the resolution pipeline together: input file parsing,
// detector detection, latest/composite configuration planning, resource
// profile resolution, file partitioning, script rendering, and the actual
// scheduler hand-off. Execution is single-threaded and synchronous; one
// stage is fully submitted before the next is considered, and ordering
// between stages is delegated to the scheduler through dependency
// expressions.
package submitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DeepLearnPhysics/spine-prod/internal/composer"
	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
	"github.com/DeepLearnPhysics/spine-prod/internal/filelist"
	"github.com/DeepLearnPhysics/spine-prod/internal/modifier"
	"github.com/DeepLearnPhysics/spine-prod/internal/pipeline"
	"github.com/DeepLearnPhysics/spine-prod/internal/profile"
	"github.com/DeepLearnPhysics/spine-prod/internal/slurm"
)

// Version is the tool version recorded in job metadata.
const Version = "2.1.0"

// Service performs submissions for one invocation.
//
// All configuration is resolved at construction and held immutably; the
// profile store in particular is loaded once and passed in, never reloaded.
type Service struct {
	basedir string
	store   *profile.Store
	slurm   *slurm.Client
	command string
}

// New creates a Service.
//
// basedir is the installation root (templates/, config/). jobsDir is where
// job artifact directories are created. command is the original invocation
// line recorded in job metadata.
func New(basedir, jobsDir string, store *profile.Store, command string, dryRun bool) *Service {
	client := slurm.NewClient(basedir, jobsDir)
	client.DryRun = dryRun
	return &Service{
		basedir: basedir,
		store:   store,
		slurm:   client,
		command: command,
	}
}

// Client exposes the underlying scheduler client, mainly for tests to
// redirect the sbatch command.
func (s *Service) Client() *slurm.Client {
	return s.slurm
}

// Options describes one job submission.
type Options struct {
	// Config is the configuration reference: a file path, or a "latest"
	// reference (stem "latest" or a path containing a latest element).
	Config string

	// Sources are direct input paths/globs, or the single source-list file
	// when FromList is set.
	Sources  []string
	FromList bool

	// Modifiers are modifier specs applied on top of Config.
	Modifiers []string

	// Profile is a profile name or "auto".
	Profile string

	JobName      string
	Output       string
	NTasks       int
	FilesPerTask int

	// Dependency is a scheduler dependency expression attached verbatim.
	Dependency string

	LArCVBasedir string
	Flashmatch   bool

	// Overrides are flag-level resource overrides layered on the profile.
	Overrides profile.Overrides
}

// Submit prepares and submits one job, possibly as several array chunks.
// It returns the scheduler job identifiers produced; chunks whose sbatch
// invocation fails are logged and skipped without aborting the run.
func (s *Service) Submit(ctx context.Context, o Options) ([]string, error) {
	log := ctxlog.FromContext(ctx)

	files, err := filelist.Parse(ctx, o.Sources, o.FromList)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files found")
	}
	log.Info("input files resolved", "count", len(files))

	detector := s.store.DetectDetector(o.Config)
	configName := modifier.Stem(o.Config)
	isLatest := s.isLatestRequest(o.Config)

	jobName := o.JobName
	if jobName == "" {
		jobName = fmt.Sprintf("spine_%s_%s", detector, configName)
	}

	jobDir, err := s.slurm.CreateJobDir(jobName)
	if err != nil {
		return nil, err
	}
	if jobDir, err = filepath.Abs(jobDir); err != nil {
		return nil, err
	}

	// Plan all generated configuration documents before writing any of
	// them, so chained composites can be normalized in memory.
	comp := composer.New(filepath.Join(s.basedir, "config"))
	config := o.Config

	if isLatest {
		log.Info("latest config requested", "detector", detector)
		doc, err := comp.ComposeLatest(ctx, detector, jobDir)
		if err != nil {
			return nil, err
		}
		config = doc.Path()
	}

	originalConfig := config
	if len(o.Modifiers) > 0 {
		modDetector := ""
		if isLatest {
			modDetector = detector
		}
		doc, err := comp.Compose(ctx, config, o.Modifiers, jobDir, modDetector)
		if err != nil {
			return nil, err
		}
		config = doc.Path()
	}
	if err := comp.Flush(); err != nil {
		return nil, err
	}

	prof, err := s.store.Resolve(o.Profile, detector)
	if err != nil {
		return nil, err
	}
	prof = prof.Apply(o.Overrides)

	output := o.Output
	if output == "" {
		output = filepath.Join(jobDir, "output", jobName+".h5")
	}

	chunks := filelist.Partition(files, s.store.Defaults.MaxArraySize, o.FilesPerTask)
	log.Info("splitting into array jobs", "chunks", len(chunks))

	templateName, err := templateForSite(prof.Site)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.slurm.LoadTemplate(templateName)
	if err != nil {
		return nil, err
	}

	var jobIDs []string
	for chunkIdx, chunk := range chunks {
		if err := writeTaskFileLists(jobDir, chunkIdx, chunk); err != nil {
			return nil, err
		}

		chunkName := jobName
		if len(chunks) > 1 {
			chunkName = fmt.Sprintf("%s_%d", jobName, chunkIdx)
		}

		params := slurm.ScriptParams{
			Account:         prof.Account,
			Partition:       prof.Partition,
			CPUsPerTask:     prof.CPUsPerTask,
			MemPerCPU:       prof.MemPerCPU,
			Time:            prof.Time,
			GPUs:            prof.GPUs,
			ArraySpec:       arraySpec(len(chunk), o.NTasks),
			JobName:         chunkName,
			LogDir:          filepath.Join(jobDir, "logs"),
			Dependency:      o.Dependency,
			Basedir:         s.basedir,
			FileListPattern: filepath.Join(jobDir, fmt.Sprintf("files_chunk_%d_task_*.txt", chunkIdx)),
			Config:          config,
			Output:          output,
			LArCVBasedir:    o.LArCVBasedir,
			Flashmatch:      o.Flashmatch,
		}

		var rendered strings.Builder
		if err := tmpl.Execute(&rendered, params); err != nil {
			return nil, fmt.Errorf("failed to render submission script: %w", err)
		}

		scriptPath := filepath.Join(jobDir, fmt.Sprintf("submit_chunk_%d.sbatch", chunkIdx))
		if err := slurm.WriteScript(scriptPath, rendered.String()); err != nil {
			return nil, err
		}

		log.Info("submitting chunk",
			"chunk", fmt.Sprintf("%d/%d", chunkIdx+1, len(chunks)),
			"tasks", len(chunk), "profile", prof.Description)

		jobID, err := s.slurm.Submit(ctx, scriptPath)
		if err != nil {
			log.Warn("chunk submission failed", "script", scriptPath, "error", err)
			continue
		}
		if jobID != "" {
			jobIDs = append(jobIDs, jobID)
			log.Info("chunk submitted", "job_id", jobID)
		}
	}

	md := slurm.Metadata{
		Version:          Version,
		JobName:          jobName,
		Detector:         detector,
		Config:           config,
		OriginalConfig:   originalConfig,
		AppliedModifiers: o.Modifiers,
		Profile:          o.Profile,
		ProfileConfig:    prof,
		NumFiles:         len(files),
		NumChunks:        len(chunks),
		JobIDs:           jobIDs,
		Output:           output,
		Submitted:        time.Now().Format(time.RFC3339),
		Command:          s.command,
	}
	if err := slurm.SaveMetadata(jobDir, md); err != nil {
		return nil, err
	}
	log.Info("job directory ready", "dir", jobDir)

	return jobIDs, nil
}

// SubmitStage implements [pipeline.Submitter].
func (s *Service) SubmitStage(ctx context.Context, stage pipeline.Stage, dependency string) ([]string, error) {
	prof := stage.Profile
	if prof == "" {
		prof = "auto"
	}
	jobName := stage.JobName
	if jobName == "" {
		jobName = stage.Name
	}
	filesPerTask := stage.FilesPerTask
	if filesPerTask == 0 {
		filesPerTask = 1
	}

	o := Options{
		Config:       stage.Config,
		Sources:      stage.Files,
		Profile:      prof,
		JobName:      jobName,
		Output:       stage.Output,
		NTasks:       stage.NTasks,
		FilesPerTask: filesPerTask,
		Dependency:   dependency,
		LArCVBasedir: stage.LArCVBasedir,
		Flashmatch:   stage.Flashmatch,
	}
	if stage.SourceList != "" {
		o.Sources = []string{stage.SourceList}
		o.FromList = true
	}
	return s.Submit(ctx, o)
}

// SubmitCleanup implements [pipeline.Submitter].
func (s *Service) SubmitCleanup(ctx context.Context, stageName string, paths []string, dependency string) (string, error) {
	return s.slurm.SubmitCleanup(ctx, paths, "cleanup_"+stageName, dependency, s.store.Defaults.Account)
}

// isLatestRequest reports whether the config reference asks for an
// auto-composed latest configuration: a stem of exactly "latest" or a
// "latest" path element.
func (s *Service) isLatestRequest(config string) bool {
	if modifier.Stem(config) == "latest" {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(config), "/") {
		if part == "latest" {
			return true
		}
	}
	return false
}

// writeTaskFileLists writes one input list per array task in the chunk.
func writeTaskFileLists(jobDir string, chunkIdx int, chunk filelist.Chunk) error {
	for taskIdx, group := range chunk {
		path := filepath.Join(jobDir, fmt.Sprintf("files_chunk_%d_task_%d.txt", chunkIdx, taskIdx+1))
		content := strings.Join(group, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write task file list: %w", err)
		}
	}
	return nil
}

// arraySpec renders the scheduler array directive for a chunk: empty for a
// single task, "1-N" otherwise, with an optional %ntasks throttle.
func arraySpec(tasks, ntasks int) string {
	if tasks <= 1 {
		return ""
	}
	spec := fmt.Sprintf("1-%d", tasks)
	if ntasks > 0 && ntasks < tasks {
		spec += fmt.Sprintf("%%%d", ntasks)
	}
	return spec
}

// templateForSite maps a profile's site to its script template. A missing
// site means s3df; anything else unrecognized is a configuration error.
func templateForSite(site string) (string, error) {
	switch site {
	case "s3df", "":
		return "job_template_s3df.sbatch", nil
	case "nersc":
		return "job_template_nersc.sbatch", nil
	default:
		return "", fmt.Errorf("unknown site in profile: %s, must be s3df or nersc", site)
	}
}
