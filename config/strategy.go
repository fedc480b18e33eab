package config

import "time"

// StrategyCfg holds the thresholds the strategy selector compares an entry's
// size, remaining TTL, priority and category against when picking the set of
// tiers to populate.
type StrategyCfg struct {
	// MemoryItemLimit is the max size of a single entry admitted into the
	// volatile tier.
	MemoryItemLimit int64 `yaml:"memory_item_limit"`

	// SessionSizeLimit is the max size of a single entry admitted into the
	// session-scoped tier.
	SessionSizeLimit int64 `yaml:"session_size_limit"`

	// DurableSmallSizeLimit splits the durable tiers: entries below it go
	// to the embedded KV file, entries at or above it go to the large
	// object store.
	DurableSmallSizeLimit int64 `yaml:"durable_small_size_limit"`

	// SessionTTLThreshold splits short-lived entries (session tier) from
	// long-lived ones (durable tiers).
	SessionTTLThreshold time.Duration `yaml:"session_ttl_threshold"`

	// LongTermThreshold routes very long lived entries into the large
	// object store regardless of size.
	LongTermThreshold time.Duration `yaml:"long_term_threshold"`
}

func (cfg *StrategyCfg) adjust() {
	if cfg.MemoryItemLimit <= 0 {
		cfg.MemoryItemLimit = 1 << 20 // 1 MiB
	}
	if cfg.SessionSizeLimit <= 0 {
		cfg.SessionSizeLimit = 256 << 10 // 256 KiB
	}
	if cfg.DurableSmallSizeLimit <= 0 {
		cfg.DurableSmallSizeLimit = 1 << 20 // 1 MiB
	}
	if cfg.SessionTTLThreshold <= 0 {
		cfg.SessionTTLThreshold = 30 * time.Minute
	}
	if cfg.LongTermThreshold <= 0 {
		cfg.LongTermThreshold = 24 * time.Hour
	}
}
