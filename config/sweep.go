package config

import "time"

// SweepCfg configures the background expiry sweeper.
type SweepCfg struct {
	// Interval between sweeps of all tiers. Default 5m.
	Interval time.Duration `yaml:"interval"`

	// Rate limits deletions per second during a sweep so the sweeper
	// interleaves with foreground Get/Set traffic instead of
	// monopolizing backend locks.
	Rate int `yaml:"rate"`
}

func (cfg *SweepCfg) Enabled() bool {
	return cfg != nil
}

// MetricsCfg enables the counters recorder.
type MetricsCfg struct{}

func (cfg *MetricsCfg) Enabled() bool {
	return cfg != nil
}

// TelemetryCfg configures periodic stats logging.
type TelemetryCfg struct {
	Interval time.Duration `yaml:"interval"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}
