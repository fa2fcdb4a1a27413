package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// fallbackProfile is used for "auto" when neither the detector nor the
// defaults name a profile.
const fallbackProfile = "s3df_ampere"

// Load reads profiles.yaml from the given path and returns the parsed
// [Store]. A missing profiles file is a deployment error, not a runtime
// condition, so the error is returned unwrapped for the caller to abort on.
func Load(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("profiles not found: %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SPINE_PROD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading profiles file: %w", err)
	}

	var store Store
	if err := v.Unmarshal(&store); err != nil {
		return nil, fmt.Errorf("error parsing profiles file: %w", err)
	}
	return &store, nil
}

// DetectDetector returns the name of the first known detector appearing in
// the config path, or "unknown_detector" if none matches.
func (s *Store) DetectDetector(configPath string) string {
	for _, name := range s.detectorNames() {
		if strings.Contains(configPath, name) {
			return name
		}
	}
	return "unknown_detector"
}

// Resolve returns the resource profile for the given name, with "auto"
// resolved through the detector's default profile. The returned profile has
// its Account filled from the detector or site defaults when the profile
// itself does not name one.
//
// An unknown profile name is a configuration error reported together with
// the set of valid alternatives.
func (s *Store) Resolve(name, detector string) (Profile, error) {
	if name == "auto" {
		name = s.autoProfile(detector)
	}

	p, ok := s.Profiles[name]
	if !ok {
		names := make([]string, 0, len(s.Profiles))
		for n := range s.Profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return Profile{}, fmt.Errorf("unknown profile: %s, available: %s",
			name, strings.Join(names, ", "))
	}

	if p.Account == "" {
		if d, ok := s.Detectors[detector]; ok && d.Account != "" {
			p.Account = d.Account
		} else {
			p.Account = s.Defaults.Account
		}
	}
	return p, nil
}

func (s *Store) autoProfile(detector string) string {
	if d, ok := s.Detectors[detector]; ok && d.DefaultProfile != "" {
		return d.DefaultProfile
	}
	if s.Defaults.DefaultProfile != "" {
		return s.Defaults.DefaultProfile
	}
	return fallbackProfile
}

// detectorNames returns detector names sorted for deterministic matching.
func (s *Store) detectorNames() []string {
	names := make([]string, 0, len(s.Detectors))
	for name := range s.Detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProfilesPath returns the conventional location of profiles.yaml
// under the given base directory.
func DefaultProfilesPath(basedir string) string {
	return filepath.Join(basedir, "templates", "profiles.yaml")
}
