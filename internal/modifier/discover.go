// Package modifier discovers versioned configuration modifiers and resolves
// which version of each modifier to apply.
//
// A modifier is a named configuration fragment layered on top of a base
// configuration. Modifiers are versioned by a six-digit date token (YYMMDD)
// embedded in their filename, e.g. mod_data_250625.yaml. Two on-disk layouts
// are supported:
//
//   - Structured: a modifier/ subdirectory whose immediate subdirectories
//     each hold one modifier's versions (modifier/data/mod_data_*.yaml).
//   - Legacy: flat <detector>_<name>_mod.{yaml,cfg} files next to the base
//     configuration.
//
// Key types:
//   - [Set] maps modifier names to their available versions
//   - [Entry] is one versioned modifier file
//
// Version selection is performed by [Resolve]; see its documentation for the
// precedence rules.
package modifier

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is a single available version of a modifier.
type Entry struct {
	// Path is the location of the modifier file.
	Path string

	// Stem is the filename without its extension.
	Stem string

	// Version is the six-digit token extracted from Stem, or empty if the
	// file carries no version.
	Version string
}

// Set maps modifier names to their available versions. Entries for each name
// are ordered ascending by filename stem for the structured layout, and in
// discovery order for the legacy layout. Files whose stem ends in _common
// are never included.
type Set map[string][]Entry

// Names returns the modifier names in the set, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discover scans a configuration directory for available modifiers.
//
// The dir argument may be a directory or a file; for a file, its parent
// directory is scanned. The structured modifier/ layout takes priority: the
// legacy flat layout is consulted only when the structured scan yields no
// modifiers at all. An empty [Set] is returned when neither layout matches.
func Discover(dir string) (Set, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	detector := filepath.Base(abs)

	set := Set{}

	// Structured layout: modifier/<name>/mod_*.yaml
	modifierDir := filepath.Join(abs, "modifier")
	if entries, err := os.ReadDir(modifierDir); err == nil {
		for _, sub := range entries {
			if !sub.IsDir() {
				continue
			}
			name := sub.Name()
			matches, err := filepath.Glob(filepath.Join(modifierDir, name, "mod_*.yaml"))
			if err != nil {
				return nil, err
			}
			versions := collectEntries(matches)
			if len(versions) > 0 {
				sort.Slice(versions, func(i, j int) bool {
					return versions[i].Stem < versions[j].Stem
				})
				set[name] = versions
			}
		}
	}
	if len(set) > 0 {
		return set, nil
	}

	// Legacy layout: <detector>_<name>_mod.{yaml,cfg} in the directory itself.
	for _, pattern := range []string{detector + "_*_mod.yaml", detector + "_*_mod.cfg"} {
		matches, err := filepath.Glob(filepath.Join(abs, pattern))
		if err != nil {
			return nil, err
		}
		for _, e := range collectEntries(matches) {
			name := strings.TrimSuffix(strings.TrimPrefix(e.Stem, detector+"_"), "_mod")
			set[name] = append(set[name], e)
		}
	}

	return set, nil
}

func collectEntries(paths []string) []Entry {
	var entries []Entry
	for _, p := range paths {
		stem := Stem(p)
		if strings.HasSuffix(stem, "_common") {
			continue
		}
		entries = append(entries, Entry{
			Path:    p,
			Stem:    stem,
			Version: ExtractVersion(stem),
		})
	}
	return entries
}
