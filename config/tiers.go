package config

import "time"

// TiersCfg configures the four storage tiers, fastest/smallest first.
type TiersCfg struct {
	Memory       *MemoryTierCfg  `yaml:"memory"`
	Session      *SessionTierCfg `yaml:"session"`
	DurableSmall *SQLiteTierCfg  `yaml:"durable_small"`
	DurableLarge *BoltTierCfg    `yaml:"durable_large"`
}

// MemoryTierCfg configures the volatile in-memory tier.
type MemoryTierCfg struct {
	// CapacityBytes bounds the tier; 0 means unbounded (not recommended).
	CapacityBytes int64 `yaml:"capacity"`

	// Shards is the number of map segments; rounded up to a power of two.
	Shards int `yaml:"shards"`

	// Dump configures best-effort snapshot persistence of the volatile
	// tier across restarts. If nil, no snapshot is written or loaded.
	Dump *DumpCfg `yaml:"dump"`
}

func (cfg *MemoryTierCfg) Enabled() bool {
	return cfg != nil
}

// DumpCfg configures volatile-tier snapshot files.
type DumpCfg struct {
	// Dir is the directory snapshot files are written to. Must be writable.
	Dir string `yaml:"dir"`

	// Name is the base name of the snapshot file.
	Name string `yaml:"name"`

	// Gzip compresses snapshot files on disk.
	Gzip bool `yaml:"gzip"`
}

func (cfg *DumpCfg) Enabled() bool {
	return cfg != nil
}

// SessionTierCfg configures the session-scoped tier backed by redis.
// The tier shares the lifetime of the redis instance: entries vanish with it,
// which is exactly the durability class wanted here.
type SessionTierCfg struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Prefix namespaces all keys written by this cache instance.
	Prefix string `yaml:"prefix"`

	// CapacityBytes caps the size of a single entry accepted into the
	// tier; 0 means unbounded.
	CapacityBytes int64 `yaml:"capacity"`

	// QueryTimeout bounds every redis round trip. Default 5s.
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

func (cfg *SessionTierCfg) Enabled() bool {
	return cfg != nil
}

// SQLiteTierCfg configures the durable-small tier (embedded KV file).
type SQLiteTierCfg struct {
	// Path is the sqlite database file; empty or ":memory:" keeps the
	// database in memory (useful in tests).
	Path string `yaml:"path"`

	CapacityBytes int64 `yaml:"capacity"`
}

func (cfg *SQLiteTierCfg) Enabled() bool {
	return cfg != nil
}

// BoltTierCfg configures the durable-large tier (on-disk object store).
type BoltTierCfg struct {
	Path string `yaml:"path"`

	// DBName and DBVersion identify the bucket holding this cache's
	// entries; bumping the version abandons previously written data.
	DBName    string `yaml:"db_name"`
	DBVersion int    `yaml:"db_version"`

	CapacityBytes int64 `yaml:"capacity"`
}

func (cfg *BoltTierCfg) Enabled() bool {
	return cfg != nil
}
