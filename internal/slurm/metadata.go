package slurm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DeepLearnPhysics/spine-prod/internal/profile"
)

// Metadata is the per-submission tracking artifact written to
// job_metadata.json in the job directory.
type Metadata struct {
	Version          string          `json:"spine_prod_version"`
	JobName          string          `json:"job_name"`
	Detector         string          `json:"detector"`
	Config           string          `json:"config"`
	OriginalConfig   string          `json:"original_config"`
	AppliedModifiers []string        `json:"applied_modifiers"`
	Profile          string          `json:"profile"`
	ProfileConfig    profile.Profile `json:"profile_config"`
	NumFiles         int             `json:"num_files"`
	NumChunks        int             `json:"num_chunks"`
	JobIDs           []string        `json:"job_ids"`
	Output           string          `json:"output"`
	Submitted        string          `json:"submitted"`
	Command          string          `json:"command"`
}

// SaveMetadata writes the metadata artifact into the job directory.
func SaveMetadata(jobDir string, md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job metadata: %w", err)
	}
	path := filepath.Join(jobDir, "job_metadata.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write job metadata: %w", err)
	}
	return nil
}

// ScriptParams is the variable set a submission script template receives.
type ScriptParams struct {
	Account         string
	Partition       string
	CPUsPerTask     int
	MemPerCPU       string
	Time            string
	GPUs            int
	ArraySpec       string
	JobName         string
	LogDir          string
	Dependency      string
	Basedir         string
	FileListPattern string
	Config          string
	Output          string
	LArCVBasedir    string
	Flashmatch      bool
}
