package config

// EvictionCfg configures the background soft-limit evictor for the volatile
// tier. Eviction order is strict least-recently-used in both the background
// and the synchronous hard-limit path.
type EvictionCfg struct {
	// SoftLimitCoefficient defines the soft memory threshold as a fraction
	// of the volatile tier's CapacityBytes. When usage exceeds it, the
	// background worker starts evicting proactively.
	//
	// Example:
	//   SoftLimitCoefficient: 0.80 // start evicting after 80% of capacity
	SoftLimitCoefficient float64 `yaml:"soft_limit_coefficient"`

	// SoftMemoryLimitBytes is derived during initialization from the
	// volatile tier capacity and SoftLimitCoefficient. Not read from YAML.
	SoftMemoryLimitBytes int64 // virtual: computed during init (bytes)

	// CallsPerSec defines how many eviction scan cycles the evictor
	// performs per second.
	CallsPerSec int64 `yaml:"calls_per_sec"`

	// BackoffSpinsPerCall bounds how many entries a single eviction cycle
	// may remove before yielding back to foreground traffic.
	BackoffSpinsPerCall int64 `yaml:"backoff_spins_per_call"`
}

func (cfg *EvictionCfg) Enabled() bool {
	return cfg != nil
}
