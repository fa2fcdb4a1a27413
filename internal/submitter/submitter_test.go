package submitter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeepLearnPhysics/spine-prod/internal/profile"
)

const testTemplate = `#!/bin/bash
#SBATCH --account={{.Account}}
#SBATCH --partition={{.Partition}}
#SBATCH --job-name={{.JobName}}
{{- if .ArraySpec}}
#SBATCH --array={{.ArraySpec}}
{{- end}}
{{- if .Dependency}}
#SBATCH --dependency={{.Dependency}}
{{- end}}
run -S {{.FileListPattern}} -o {{.Output}} -c {{.Config}}
`

// newTestService builds an installation root with templates, a detector
// config tree, and input files, plus a stub sbatch that reports job id 4242.
func newTestService(t *testing.T) (*Service, string, []string) {
	t.Helper()
	basedir := t.TempDir()

	files := map[string]string{
		"templates/job_template_s3df.sbatch":                     testTemplate,
		"config/infer/icarus/icarus_full_chain_250625.yaml":      "{}\n",
		"config/infer/icarus/modifier/data/mod_data_250625.yaml": "{}\n",
		"config/infer/icarus/modifier/data/mod_data_240719.yaml": "{}\n",
	}
	for name, content := range files {
		path := filepath.Join(basedir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	inputDir := t.TempDir()
	var inputs []string
	for _, name := range []string{"run1.root", "run2.root", "run3.root"} {
		path := filepath.Join(inputDir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		inputs = append(inputs, path)
	}

	store := &profile.Store{
		Defaults: profile.Defaults{
			Account:        "neutrino:default",
			DefaultProfile: "s3df_ampere",
			MaxArraySize:   99,
		},
		Profiles: map[string]profile.Profile{
			"s3df_ampere": {
				Description: "GPU node",
				Site:        "s3df",
				Partition:   "ampere",
				CPUsPerTask: 4,
				MemPerCPU:   "8g",
				Time:        "12:00:00",
				GPUs:        1,
			},
		},
		Detectors: map[string]profile.Detector{
			"icarus": {DefaultProfile: "s3df_ampere", Account: "neutrino:icarus"},
		},
	}

	jobsDir := filepath.Join(basedir, "jobs")
	svc := New(basedir, jobsDir, store, "spine-submit test", false)

	sbatch := filepath.Join(t.TempDir(), "sbatch")
	require.NoError(t, os.WriteFile(sbatch,
		[]byte("#!/bin/sh\necho \"Submitted batch job 4242\"\n"), 0o755))
	svc.Client().Sbatch = sbatch

	return svc, basedir, inputs
}

func TestSubmit(t *testing.T) {
	svc, basedir, inputs := newTestService(t)

	config := filepath.Join(basedir, "config/infer/icarus/icarus_full_chain_250625.yaml")
	jobIDs, err := svc.Submit(context.Background(), Options{
		Config:       config,
		Sources:      inputs,
		Modifiers:    []string{"data"},
		Profile:      "auto",
		FilesPerTask: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"4242"}, jobIDs)

	// One job directory with composite config, task lists, script, metadata.
	entries, err := os.ReadDir(filepath.Join(basedir, "jobs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	jobDir := filepath.Join(basedir, "jobs", entries[0].Name())

	assert.Contains(t, entries[0].Name(), "spine_icarus_icarus_full_chain_250625")

	composite, err := os.ReadFile(filepath.Join(jobDir,
		"icarus_full_chain_250625_data_composite.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(composite), "infer/icarus/modifier/data/mod_data_250625.yaml")

	for _, name := range []string{
		"files_chunk_0_task_1.txt",
		"files_chunk_0_task_2.txt",
		"files_chunk_0_task_3.txt",
		"submit_chunk_0.sbatch",
		"job_metadata.json",
	} {
		assert.FileExists(t, filepath.Join(jobDir, name))
	}

	script, err := os.ReadFile(filepath.Join(jobDir, "submit_chunk_0.sbatch"))
	require.NoError(t, err)
	text := string(script)
	assert.Contains(t, text, "#SBATCH --account=neutrino:icarus")
	assert.Contains(t, text, "#SBATCH --array=1-3")
	assert.Contains(t, text, "files_chunk_0_task_*.txt")

	data, err := os.ReadFile(filepath.Join(jobDir, "job_metadata.json"))
	require.NoError(t, err)
	var md map[string]any
	require.NoError(t, json.Unmarshal(data, &md))
	assert.Equal(t, "icarus", md["detector"])
	assert.Equal(t, []any{"4242"}, md["job_ids"])
	assert.Equal(t, float64(3), md["num_files"])
	assert.Equal(t, Version, md["spine_prod_version"])
}

func TestSubmit_NoInputFiles(t *testing.T) {
	svc, basedir, _ := newTestService(t)

	config := filepath.Join(basedir, "config/infer/icarus/icarus_full_chain_250625.yaml")
	_, err := svc.Submit(context.Background(), Options{
		Config:  config,
		Sources: []string{"/nonexistent/*.root"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")
}

func TestSubmit_DryRun(t *testing.T) {
	svc, basedir, inputs := newTestService(t)
	svc.Client().DryRun = true

	config := filepath.Join(basedir, "config/infer/icarus/icarus_full_chain_250625.yaml")
	jobIDs, err := svc.Submit(context.Background(), Options{
		Config:       config,
		Sources:      inputs,
		Profile:      "auto",
		FilesPerTask: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, jobIDs)

	// Scripts and metadata are still generated.
	entries, err := os.ReadDir(filepath.Join(basedir, "jobs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.FileExists(t, filepath.Join(basedir, "jobs", entries[0].Name(), "submit_chunk_0.sbatch"))
}

func TestSubmit_UnknownSite(t *testing.T) {
	svc, basedir, inputs := newTestService(t)
	svc.store.Profiles["weird"] = profile.Profile{Site: "azure", Partition: "x"}

	config := filepath.Join(basedir, "config/infer/icarus/icarus_full_chain_250625.yaml")
	_, err := svc.Submit(context.Background(), Options{
		Config:       config,
		Sources:      inputs,
		Profile:      "weird",
		FilesPerTask: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown site in profile: azure")
}

func TestIsLatestRequest(t *testing.T) {
	svc := &Service{}

	assert.True(t, svc.isLatestRequest("latest"))
	assert.True(t, svc.isLatestRequest("infer/icarus/latest"))
	assert.True(t, svc.isLatestRequest("infer/icarus/latest/whatever.yaml"))
	assert.False(t, svc.isLatestRequest("infer/icarus/icarus_full_chain_250625.yaml"))
	assert.False(t, svc.isLatestRequest("icarus_latest_250625_composite.yaml"))
}

func TestArraySpec(t *testing.T) {
	assert.Empty(t, arraySpec(1, 0))
	assert.Equal(t, "1-5", arraySpec(5, 0))
	assert.Equal(t, "1-5", arraySpec(5, 10))
	assert.Equal(t, "1-50%10", arraySpec(50, 10))
}
