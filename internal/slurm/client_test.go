package slurm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSbatch writes a stub sbatch executable that prints the given stdout
// and exits with the given code.
func fakeSbatch(t *testing.T, stdout string, exitCode int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sbatch")
	script := "#!/bin/sh\n"
	if stdout != "" {
		script += "echo \"" + stdout + "\"\n"
	}
	if exitCode != 0 {
		script += "echo \"sbatch: error: invalid partition\" >&2\n"
	}
	script += "exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCreateJobDir(t *testing.T) {
	jobsDir := t.TempDir()
	c := NewClient(t.TempDir(), jobsDir)

	jobDir, err := c.CreateJobDir("spine_icarus_test")
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(jobDir), "_spine_icarus_test")
	assert.DirExists(t, filepath.Join(jobDir, "logs"))
	assert.DirExists(t, filepath.Join(jobDir, "output"))
}

func TestLoadTemplate(t *testing.T) {
	basedir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(basedir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(basedir, "templates", "job.sbatch"),
		[]byte("#SBATCH --job-name={{.JobName}}\n"), 0o644))

	c := NewClient(basedir, t.TempDir())

	tmpl, err := c.LoadTemplate("job.sbatch")
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, tmpl.Execute(&out, ScriptParams{JobName: "test"}))
	assert.Equal(t, "#SBATCH --job-name=test\n", out.String())
}

func TestLoadTemplate_Missing(t *testing.T) {
	c := NewClient(t.TempDir(), t.TempDir())
	_, err := c.LoadTemplate("nope.sbatch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
}

func TestSubmit(t *testing.T) {
	scriptPath := filepath.Join(t.TempDir(), "submit.sbatch")
	require.NoError(t, WriteScript(scriptPath, "#!/bin/bash\n"))

	t.Run("job id is last token of stdout", func(t *testing.T) {
		c := NewClient(t.TempDir(), t.TempDir())
		c.Sbatch = fakeSbatch(t, "Submitted batch job 12345", 0)

		jobID, err := c.Submit(context.Background(), scriptPath)
		require.NoError(t, err)
		assert.Equal(t, "12345", jobID)
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		c := NewClient(t.TempDir(), t.TempDir())
		c.Sbatch = fakeSbatch(t, "", 1)

		_, err := c.Submit(context.Background(), scriptPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sbatch failed")
		assert.Contains(t, err.Error(), "invalid partition")
	})

	t.Run("dry run submits nothing", func(t *testing.T) {
		c := NewClient(t.TempDir(), t.TempDir())
		c.Sbatch = "/nonexistent/sbatch"
		c.DryRun = true

		jobID, err := c.Submit(context.Background(), scriptPath)
		require.NoError(t, err)
		assert.Empty(t, jobID)
	})
}

func TestSubmitCleanup(t *testing.T) {
	jobsDir := t.TempDir()
	c := NewClient(t.TempDir(), jobsDir)
	c.Sbatch = fakeSbatch(t, "Submitted batch job 777", 0)

	jobID, err := c.SubmitCleanup(context.Background(),
		[]string{"/data/intermediate.h5"}, "cleanup_reco", "afterok:123:456", "neutrino:icarus")
	require.NoError(t, err)
	assert.Equal(t, "777", jobID)

	// The rendered script gates removal on the dependency expression.
	entries, err := os.ReadDir(jobsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	script, err := os.ReadFile(filepath.Join(jobsDir, entries[0].Name(), "cleanup.sbatch"))
	require.NoError(t, err)
	text := string(script)
	assert.Contains(t, text, "#SBATCH --dependency=afterok:123:456")
	assert.Contains(t, text, "#SBATCH --account=neutrino:icarus")
	assert.Contains(t, text, `rm -rf "/data/intermediate.h5"`)
}

func TestSaveMetadata(t *testing.T) {
	jobDir := t.TempDir()

	md := Metadata{
		Version:          "2.1.0",
		JobName:          "spine_icarus_test",
		Detector:         "icarus",
		Config:           "/cfg/composite.yaml",
		AppliedModifiers: []string{"data"},
		NumFiles:         12,
		NumChunks:        1,
		JobIDs:           []string{"12345"},
	}
	require.NoError(t, SaveMetadata(jobDir, md))

	data, err := os.ReadFile(filepath.Join(jobDir, "job_metadata.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2.1.0", decoded["spine_prod_version"])
	assert.Equal(t, "icarus", decoded["detector"])
	assert.Equal(t, float64(12), decoded["num_files"])
}
