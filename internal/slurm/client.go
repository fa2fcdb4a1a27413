// Package slurm handles the external batch scheduler interface: job
// directory layout, submission script rendering, sbatch invocation, cleanup
// jobs, and the per-submission metadata artifact.
//
// The accepted scheduler contract is narrow: `sbatch <script>` returns exit
// code 0 with the numeric job identifier as the final whitespace-delimited
// token of stdout; any non-zero exit carries diagnostics on stderr. Nothing
// here polls or supervises jobs — ordering between submissions is delegated
// entirely to the scheduler via dependency expressions.
package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
)

// Client submits jobs to SLURM and manages per-job artifacts.
//
// Create one with [NewClient]. DryRun substitutes a logged no-op for every
// sbatch invocation while leaving all file generation in place.
type Client struct {
	// basedir is the installation root holding templates/.
	basedir string

	// jobsDir is where per-invocation job directories are created.
	jobsDir string

	// Sbatch is the submission command. Defaults to "sbatch"; overridable
	// for tests.
	Sbatch string

	// DryRun disables actual submission.
	DryRun bool
}

// NewClient creates a Client rooted at basedir, writing job artifacts under
// jobsDir.
func NewClient(basedir, jobsDir string) *Client {
	return &Client{
		basedir: basedir,
		jobsDir: jobsDir,
		Sbatch:  "sbatch",
	}
}

// CreateJobDir creates the timestamped artifact directory for one
// submission, with logs/ and output/ subdirectories.
//
// Two invocations sharing a job name within the same second collide; that
// window is accepted rather than locked against.
func (c *Client) CreateJobDir(jobName string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	jobDir := filepath.Join(c.jobsDir, timestamp+"_"+jobName)
	for _, dir := range []string{jobDir, filepath.Join(jobDir, "logs"), filepath.Join(jobDir, "output")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create job directory: %w", err)
		}
	}
	return jobDir, nil
}

// LoadTemplate loads a submission script template by name from the
// templates/ directory. A missing template is a deployment error.
func (c *Client) LoadTemplate(name string) (*template.Template, error) {
	path := filepath.Join(c.basedir, "templates", name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template not found: %s", path)
	}
	tmpl, err := template.New(name).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Submit runs sbatch on the given script and returns the job identifier.
//
// In dry-run mode the script is logged and an empty identifier returned
// with no error. A failed sbatch returns the captured stderr in the error;
// callers treat this as non-fatal for the affected unit and continue.
func (c *Client) Submit(ctx context.Context, scriptPath string) (string, error) {
	log := ctxlog.FromContext(ctx)

	if c.DryRun {
		log.Info("dry run, would submit", "script", scriptPath)
		return "", nil
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Sbatch, scriptPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sbatch failed: %s", strings.TrimSpace(stderr.String()))
	}

	fields := strings.Fields(stdout.String())
	if len(fields) == 0 {
		return "", fmt.Errorf("sbatch produced no output for %s", scriptPath)
	}
	return fields[len(fields)-1], nil
}

// WriteScript writes a rendered submission script with execute permission.
func WriteScript(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}
