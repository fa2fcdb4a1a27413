package submitter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/DeepLearnPhysics/spine-prod/internal/composer"
	"github.com/DeepLearnPhysics/spine-prod/internal/modifier"
)

// ModifierChoice reports one modifier's available versions and the version
// that would be selected for the inspected configuration.
type ModifierChoice struct {
	Name      string
	Selected  string
	Available []string
	Paths     []string
}

// ModifierReport is the outcome of a list-modifiers inspection.
type ModifierReport struct {
	ConfigName  string
	BaseVersion string
	Modifiers   []ModifierChoice
}

// ListModifiers inspects the modifiers available for a configuration file
// and reports, per modifier, which version default resolution would pick
// against the configuration's embedded version.
func (s *Service) ListModifiers(ctx context.Context, config string) (*ModifierReport, error) {
	baseVersion := modifier.ExtractVersion(modifier.Stem(config))

	comp := composer.New(filepath.Join(s.basedir, "config"))
	available, err := comp.DiscoverModifiers(config, "")
	if err != nil {
		return nil, err
	}

	report := &ModifierReport{
		ConfigName:  filepath.Base(config),
		BaseVersion: baseVersion,
	}

	for _, name := range available.Names() {
		entries := available[name]

		choice := ModifierChoice{Name: name}
		for _, e := range entries {
			label := e.Version
			if label == "" {
				label = strings.TrimPrefix(strings.TrimPrefix(e.Stem, "mod_"), name+"_")
			}
			choice.Available = append(choice.Available, label)
			choice.Paths = append(choice.Paths, e.Path)
		}

		selected, err := modifier.Resolve(ctx, name, entries, baseVersion, "")
		if err != nil {
			return nil, err
		}
		choice.Selected = selected.Version
		if choice.Selected == "" {
			choice.Selected = selected.Stem
		}

		report.Modifiers = append(report.Modifiers, choice)
	}

	return report, nil
}
