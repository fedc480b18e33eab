package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache groups configuration of all cache subsystems.
// Each optional component can be disabled by setting its section to nil.
type Cache struct {
	// DefaultTTL is applied to entries stored without an explicit TTL.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// Tiers configures the storage tiers, fastest first.
	// A nil tier section disables that tier entirely.
	Tiers TiersCfg `yaml:"tiers"`

	// Strategy holds the thresholds used to route entries across tiers.
	Strategy StrategyCfg `yaml:"strategy"`

	// Compression configures on-the-fly compression of stored payloads.
	// If nil, payloads are always stored uncompressed.
	Compression *CompressionCfg `yaml:"compression"`

	// Eviction configures the background soft-limit evictor for the
	// volatile tier. The hard capacity limit is always enforced on the
	// write path regardless of this section.
	// If nil, only the synchronous hard-limit path runs.
	Eviction *EvictionCfg `yaml:"eviction"`

	// Sweep configures the background expiry sweeper.
	// If nil, expired entries are only removed lazily on read.
	Sweep *SweepCfg `yaml:"sweep"`

	// Metrics enables the counters recorder. If nil, a no-op recorder is
	// used and Stats()/StorageUsage() report zeroes.
	Metrics *MetricsCfg `yaml:"metrics"`

	// Telemetry configures periodic stats logging. If nil, no logs.
	Telemetry *TelemetryCfg `yaml:"telemetry"`
}

const (
	defaultTTL            = time.Hour
	defaultSweepInterval  = 5 * time.Minute
	defaultSweepRate      = 1000
	defaultCompressionMin = 10 << 10 // 10 KiB
)

// AdjustConfig fills defaults and derives virtual fields.
// It must be called once before the config is used.
func (cfg *Cache) AdjustConfig() {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaultTTL
	}

	cfg.Strategy.adjust()

	if cfg.Compression.Enabled() {
		if cfg.Compression.ThresholdBytes <= 0 {
			cfg.Compression.ThresholdBytes = defaultCompressionMin
		}
	}

	if cfg.Eviction.Enabled() && cfg.Tiers.Memory.Enabled() {
		if cfg.Eviction.SoftLimitCoefficient <= 0 || cfg.Eviction.SoftLimitCoefficient > 1 {
			cfg.Eviction.SoftLimitCoefficient = 0.8
		}
		cfg.Eviction.SoftMemoryLimitBytes =
			int64(float64(cfg.Tiers.Memory.CapacityBytes) * cfg.Eviction.SoftLimitCoefficient)
	}

	if cfg.Sweep.Enabled() {
		if cfg.Sweep.Interval <= 0 {
			cfg.Sweep.Interval = defaultSweepInterval
		}
		if cfg.Sweep.Rate <= 0 {
			cfg.Sweep.Rate = defaultSweepRate
		}
	}
}

func LoadConfig(path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Cache
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	return cfg, nil
}
