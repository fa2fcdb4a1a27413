// Package profile loads and resolves resource profiles for batch submission.
//
// Profiles are loaded once at startup from templates/profiles.yaml using
// Viper and held in an immutable [Store] that is passed explicitly to every
// component that needs it. A profile is a named bundle of scheduler resource
// parameters (partition, CPUs, memory, time, GPUs); per-detector defaults
// select a profile automatically when the caller asks for "auto".
//
// Key types:
//   - [Store] is the immutable container for all profile data
//   - [Profile] is one resolved resource bundle
//   - [Overrides] carries command-line overrides layered on top of a profile
package profile

// Store holds all resource profile data loaded from profiles.yaml.
//
// The zero value is not usable; create one with [Load].
type Store struct {
	// Defaults are fallback settings shared by every profile.
	Defaults Defaults `mapstructure:"defaults"`

	// Profiles maps profile names to their resource bundles.
	Profiles map[string]Profile `mapstructure:"profiles"`

	// Detectors maps detector names to their per-detector defaults.
	Detectors map[string]Detector `mapstructure:"detectors"`
}

// Defaults are the site-wide fallback settings.
type Defaults struct {
	// Account is the scheduler account charged when neither the profile
	// nor the detector names one.
	Account string `mapstructure:"account"`

	// DefaultProfile is used for "auto" when the detector has no default.
	DefaultProfile string `mapstructure:"default_profile"`

	// MaxArraySize bounds the number of tasks in one array submission.
	MaxArraySize int `mapstructure:"max_array_size"`
}

// Profile is a named bundle of scheduler resource parameters. The json tags
// match the resolved-profile block of the job metadata artifact.
type Profile struct {
	Description string `mapstructure:"description" json:"description"`

	// Site selects the submission script template ("s3df" or "nersc").
	Site string `mapstructure:"site" json:"site"`

	Partition   string `mapstructure:"partition" json:"partition"`
	CPUsPerTask int    `mapstructure:"cpus_per_task" json:"cpus_per_task"`
	MemPerCPU   string `mapstructure:"mem_per_cpu" json:"mem_per_cpu"`
	Time        string `mapstructure:"time" json:"time"`
	GPUs        int    `mapstructure:"gpus" json:"gpus"`
	Account     string `mapstructure:"account" json:"account"`
}

// Detector carries per-detector defaults.
type Detector struct {
	// DefaultProfile is the profile selected for "auto" requests.
	DefaultProfile string `mapstructure:"default_profile"`

	// Account overrides the site-wide default account for this detector.
	Account string `mapstructure:"account"`
}

// Overrides are command-line overrides applied on top of a resolved profile.
// Zero-valued fields leave the profile untouched.
type Overrides struct {
	Partition   string
	CPUsPerTask int
	MemPerCPU   string
	Time        string
	GPUs        int
	GPUsSet     bool
	Account     string
}

// Apply returns a copy of p with the non-zero override fields substituted.
func (p Profile) Apply(o Overrides) Profile {
	if o.Partition != "" {
		p.Partition = o.Partition
	}
	if o.CPUsPerTask > 0 {
		p.CPUsPerTask = o.CPUsPerTask
	}
	if o.MemPerCPU != "" {
		p.MemPerCPU = o.MemPerCPU
	}
	if o.Time != "" {
		p.Time = o.Time
	}
	if o.GPUsSet {
		p.GPUs = o.GPUs
	}
	if o.Account != "" {
		p.Account = o.Account
	}
	return p
}
