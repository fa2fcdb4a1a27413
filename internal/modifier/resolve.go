package modifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
)

// Resolve selects exactly one version of a modifier from its available
// entries. The entries are assumed ordered ascending by stem, as produced
// by [Discover] for the structured layout.
//
// Precedence:
//  1. An explicit version wins: the first entry whose stem contains it as a
//     substring is returned. No fallback occurs; an unmatched explicit
//     version is an error listing every available version.
//  2. Otherwise, with a base version: an entry whose stem contains the base
//     version is an exact match. Failing that, the latest entry whose own
//     token compares lexicographically <= the base version is chosen
//     (entries without a token always qualify). If nothing qualifies, the
//     oldest entry is used and a warning is logged.
//  3. With neither, the last (most recent) entry is returned.
//
// Each branch logs which version was chosen and why, so operators can audit
// the selection after the fact.
func Resolve(ctx context.Context, name string, entries []Entry, baseVersion, explicit string) (Entry, error) {
	log := ctxlog.FromContext(ctx)

	if len(entries) == 0 {
		return Entry{}, fmt.Errorf("no versions found for modifier %q", name)
	}

	if explicit != "" {
		for _, e := range entries {
			if strings.Contains(e.Stem, explicit) {
				log.Info("using explicit modifier version",
					"modifier", name, "version", explicit, "file", e.Path)
				return e, nil
			}
		}
		return Entry{}, fmt.Errorf("modifier %q version %q not found, available: %s",
			name, explicit, strings.Join(availableVersions(entries), ", "))
	}

	if baseVersion != "" {
		for _, e := range entries {
			if strings.Contains(e.Stem, baseVersion) {
				log.Info("using modifier version matching base config",
					"modifier", name, "version", baseVersion, "file", e.Path)
				return e, nil
			}
		}

		// Closest not-later version. Entries lacking a token compare as the
		// empty string and therefore always qualify.
		var selected *Entry
		for i := range entries {
			if entries[i].Version <= baseVersion {
				selected = &entries[i]
			}
		}
		if selected != nil {
			log.Info("no exact modifier version match, using closest earlier",
				"modifier", name, "base", baseVersion, "selected", selected.label(),
				"file", selected.Path)
			return *selected, nil
		}

		oldest := entries[0]
		log.Warn("no modifier version at or before base config, using oldest available",
			"modifier", name, "base", baseVersion, "selected", oldest.label(),
			"file", oldest.Path)
		return oldest, nil
	}

	latest := entries[len(entries)-1]
	log.Info("no version in base config, using latest modifier version",
		"modifier", name, "selected", latest.label(), "file", latest.Path)
	return latest, nil
}

// label is the version token when present, otherwise the stem.
func (e Entry) label() string {
	if e.Version != "" {
		return e.Version
	}
	return e.Stem
}

func availableVersions(entries []Entry) []string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label()
	}
	return labels
}
