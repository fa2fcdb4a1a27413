// Package pipeline expands a declared multi-stage pipeline description into
// an ordered sequence of batch submissions with scheduler-enforced
// dependencies and derived cleanup jobs.
//
// A pipeline is a YAML list of stages. Stages are processed strictly in
// declaration order; there is no topological sort and no cycle check. A
// stage naming a dependency that appears later in the list simply finds no
// job identifiers for it and is submitted without a wait condition. That
// contract is deliberate: submission order is observable, and reordering it
// would change behavior operators rely on.
//
// Key types:
//   - [Pipeline] and [Stage] mirror the YAML description
//   - [Planner] drives submission through a [Submitter]
//   - [Plan] records the job identifiers and cleanup submissions produced
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Stage is one named unit of work in a pipeline.
type Stage struct {
	// Name identifies the stage; depends_on entries refer to it.
	Name string `yaml:"name"`

	// Config is the configuration reference submitted for this stage.
	Config string `yaml:"config"`

	// Files are the stage's input file specs (paths or glob patterns).
	Files StringList `yaml:"files"`

	// SourceList optionally names a text file of input paths instead of
	// direct Files entries.
	SourceList string `yaml:"source_list"`

	Profile      string `yaml:"profile"`
	JobName      string `yaml:"job_name"`
	Output       string `yaml:"output"`
	NTasks       int    `yaml:"ntasks"`
	FilesPerTask int    `yaml:"files_per_task"`
	LArCVBasedir string `yaml:"larcv_basedir"`
	Flashmatch   bool   `yaml:"flashmatch"`

	// Cleanup lists paths to remove once every stage directly depending on
	// this one has succeeded. Accepts a single path or a list.
	Cleanup StringList `yaml:"cleanup"`

	// DependsOn names the stages whose success gates this one.
	DependsOn []string `yaml:"depends_on"`
}

// Pipeline is a declared list of stages.
type Pipeline struct {
	Stages []Stage `yaml:"stages"`
}

// Load reads and parses a pipeline description file.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	if len(p.Stages) == 0 {
		return nil, fmt.Errorf("pipeline contains no stages")
	}
	for i, stage := range p.Stages {
		if stage.Name == "" {
			return nil, fmt.Errorf("pipeline stage %d: name is required", i+1)
		}
	}
	return &p, nil
}

// StringList accepts either a single YAML scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = StringList(list)
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", value.Line)
	}
}
