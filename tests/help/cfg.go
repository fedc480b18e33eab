package help

import (
	"path/filepath"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
)

// Cfg returns a full four-tier configuration rooted in dir. The session tier
// points at redisAddr; pass "" to leave it out.
func Cfg(dir, redisAddr string) *config.Cache {
	cfg := &config.Cache{
		DefaultTTL: time.Hour,
		Tiers: config.TiersCfg{
			Memory: &config.MemoryTierCfg{
				CapacityBytes: 8 << 20,
				Shards:        4,
			},
			DurableSmall: &config.SQLiteTierCfg{
				Path: filepath.Join(dir, "cache.db"),
			},
			DurableLarge: &config.BoltTierCfg{
				Path:   filepath.Join(dir, "cache.bolt"),
				DBName: "cache",
			},
		},
		Compression: &config.CompressionCfg{Level: 3, ThresholdBytes: 1024},
		Eviction: &config.EvictionCfg{
			SoftLimitCoefficient: 0.8,
			CallsPerSec:          50,
			BackoffSpinsPerCall:  1024,
		},
		Sweep:   &config.SweepCfg{Interval: 50 * time.Millisecond, Rate: 10_000},
		Metrics: &config.MetricsCfg{},
	}
	if redisAddr != "" {
		cfg.Tiers.Session = &config.SessionTierCfg{
			Addr:   redisAddr,
			Prefix: "it",
		}
	}
	cfg.AdjustConfig()
	return cfg
}
