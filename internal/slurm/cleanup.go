package slurm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
)

// cleanupResources are the fixed scheduler parameters for cleanup jobs.
// Removing files needs next to nothing, so these are not profile-driven.
const (
	cleanupPartition = "milano"
	cleanupCPUs      = 1
	cleanupMem       = "1g"
	cleanupTime      = "0:10:00"
)

// SubmitCleanup generates and submits a job that removes the given paths
// once the dependency expression is satisfied. Returns the cleanup job's
// identifier.
//
// In dry-run mode the planned removal is logged and no job is submitted.
func (c *Client) SubmitCleanup(ctx context.Context, paths []string, jobName, dependency, account string) (string, error) {
	log := ctxlog.FromContext(ctx)

	if c.DryRun {
		log.Info("dry run, would schedule cleanup", "paths", strings.Join(paths, ", "), "dependency", dependency)
		return "", nil
	}

	script := renderCleanupScript(paths, jobName, dependency, account)

	timestamp := time.Now().Format("20060102_150405")
	cleanupDir := filepath.Join(c.jobsDir, timestamp+"_cleanup_"+jobName)
	if err := os.MkdirAll(cleanupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cleanup directory: %w", err)
	}

	scriptPath := filepath.Join(cleanupDir, "cleanup.sbatch")
	if err := WriteScript(scriptPath, script); err != nil {
		return "", err
	}

	jobID, err := c.Submit(ctx, scriptPath)
	if err != nil {
		return "", fmt.Errorf("cleanup job submission failed: %w", err)
	}
	log.Info("cleanup job submitted", "job_id", jobID, "name", jobName)
	return jobID, nil
}

func renderCleanupScript(paths []string, jobName, dependency, account string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&b, "#SBATCH --account=%s\n", account)
	fmt.Fprintf(&b, "#SBATCH --partition=%s\n", cleanupPartition)
	b.WriteString("#SBATCH --ntasks=1\n")
	fmt.Fprintf(&b, "#SBATCH --cpus-per-task=%d\n", cleanupCPUs)
	fmt.Fprintf(&b, "#SBATCH --mem-per-cpu=%s\n", cleanupMem)
	fmt.Fprintf(&b, "#SBATCH --time=%s\n", cleanupTime)
	fmt.Fprintf(&b, "#SBATCH --job-name=%s\n", jobName)
	fmt.Fprintf(&b, "#SBATCH --dependency=%s\n", dependency)
	b.WriteString("\necho \"Cleanup job started: $(date)\"\n")
	b.WriteString("echo \"Removing intermediate files...\"\n\n")

	for _, path := range paths {
		fmt.Fprintf(&b, "if [ -e %q ]; then\n", path)
		fmt.Fprintf(&b, "    echo \"  Removing: %s\"\n", path)
		fmt.Fprintf(&b, "    rm -rf %q\n", path)
		b.WriteString("else\n")
		fmt.Fprintf(&b, "    echo \"  Not found (already removed?): %s\"\n", path)
		b.WriteString("fi\n\n")
	}

	b.WriteString("echo \"Cleanup completed: $(date)\"\n")
	return b.String()
}
