// Package metrics tracks cache counters. Recording never fails the
// operation being observed; every counter is a plain atomic.
package metrics

import "sync/atomic"

// Recorder receives observations from the router, evictor and sweeper.
type Recorder interface {
	Hit(tier string)
	Miss()
	Set()
	Delete()
	Evicted(items, bytes int64)
	Expired(n int64)
	CorruptHealed(n int64)
	CompressionSaved(bytes int64)
	CompressionFailure()
	TierUnavailable(tier string)
	Snapshot() Stats
}

// Stats is a point-in-time snapshot of all counters.
type Stats struct {
	Hits                  int64
	Misses                int64
	Sets                  int64
	Deletes               int64
	Evictions             int64
	EvictedBytes          int64
	ExpiredSwept          int64
	CorruptHealed         int64
	CompressionSavedBytes int64
	CompressionFailures   int64
	TierUnavailable       int64

	// HitRate = Hits / (Hits + Misses); zero before any lookup.
	HitRate float64

	// TierHits counts hits by the tier that served them.
	TierHits map[string]int64
}

type counters struct {
	hits                atomic.Int64
	misses              atomic.Int64
	sets                atomic.Int64
	deletes             atomic.Int64
	evictions           atomic.Int64
	evictedBytes        atomic.Int64
	expiredSwept        atomic.Int64
	corruptHealed       atomic.Int64
	compressionSaved    atomic.Int64
	compressionFailures atomic.Int64
	tierUnavailable     atomic.Int64

	tierHits map[string]*atomic.Int64
}

// New builds a recorder with one hit counter per known tier. Hits from a
// tier registered later (never happens in practice) fall into the global
// counter only.
func New(tierNames []string) Recorder {
	c := &counters{tierHits: make(map[string]*atomic.Int64, len(tierNames))}
	for _, name := range tierNames {
		c.tierHits[name] = &atomic.Int64{}
	}
	return c
}

func (c *counters) Hit(tier string) {
	c.hits.Add(1)
	if t, ok := c.tierHits[tier]; ok {
		t.Add(1)
	}
}

func (c *counters) Miss()    { c.misses.Add(1) }
func (c *counters) Set()     { c.sets.Add(1) }
func (c *counters) Delete()  { c.deletes.Add(1) }

func (c *counters) Evicted(items, bytes int64) {
	c.evictions.Add(items)
	c.evictedBytes.Add(bytes)
}

func (c *counters) Expired(n int64)          { c.expiredSwept.Add(n) }
func (c *counters) CorruptHealed(n int64)    { c.corruptHealed.Add(n) }
func (c *counters) CompressionSaved(b int64) { c.compressionSaved.Add(b) }
func (c *counters) CompressionFailure()      { c.compressionFailures.Add(1) }
func (c *counters) TierUnavailable(string)   { c.tierUnavailable.Add(1) }

func (c *counters) Snapshot() Stats {
	s := Stats{
		Hits:                  c.hits.Load(),
		Misses:                c.misses.Load(),
		Sets:                  c.sets.Load(),
		Deletes:               c.deletes.Load(),
		Evictions:             c.evictions.Load(),
		EvictedBytes:          c.evictedBytes.Load(),
		ExpiredSwept:          c.expiredSwept.Load(),
		CorruptHealed:         c.corruptHealed.Load(),
		CompressionSavedBytes: c.compressionSaved.Load(),
		CompressionFailures:   c.compressionFailures.Load(),
		TierUnavailable:       c.tierUnavailable.Load(),
		TierHits:              make(map[string]int64, len(c.tierHits)),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	for name, t := range c.tierHits {
		s.TierHits[name] = t.Load()
	}
	return s
}
