package telemetry

import (
	"github.com/ashish-admin/go-strata-cache/internal/evictor"
	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/sweeper"
)

type sampler struct {
	recorder metrics.Recorder
	evictor  evictor.Evictor
	sweeper  sweeper.Sweeper
}

func newSampler(r metrics.Recorder, e evictor.Evictor, s sweeper.Sweeper) sampler {
	return sampler{recorder: r, evictor: e, sweeper: s}
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hits    uint64
	misses  uint64
	sets    uint64
	deletes uint64
	hitRate float64

	softScans        uint64
	softHits         uint64
	softEvictedItems uint64
	softEvictedBytes uint64
	hardEvictedItems uint64
	hardEvictedBytes uint64

	sweepRemoved uint64
	sweepHealed  uint64
	sweepScans   uint64
	sweepErrors  uint64

	compressionSavedBytes uint64
	compressionFailures   uint64
}

func (s sampler) snapshot() snapshot {
	stats := s.recorder.Snapshot()
	softScans, softHits, softItems, softBytes := s.evictor.EvictorMetrics()
	removed, healed, scans, errs := s.sweeper.SweeperMetrics()

	return snapshot{
		hits:    uint64(max(stats.Hits, 0)),
		misses:  uint64(max(stats.Misses, 0)),
		sets:    uint64(max(stats.Sets, 0)),
		deletes: uint64(max(stats.Deletes, 0)),
		hitRate: stats.HitRate,

		softScans:        uint64(max(softScans, 0)),
		softHits:         uint64(max(softHits, 0)),
		softEvictedItems: uint64(max(softItems, 0)),
		softEvictedBytes: uint64(max(softBytes, 0)),
		hardEvictedItems: uint64(max(stats.Evictions, 0)),
		hardEvictedBytes: uint64(max(stats.EvictedBytes, 0)),

		sweepRemoved: uint64(max(removed, 0)),
		sweepHealed:  uint64(max(healed, 0)),
		sweepScans:   uint64(max(scans, 0)),
		sweepErrors:  uint64(max(errs, 0)),

		compressionSavedBytes: uint64(max(stats.CompressionSavedBytes, 0)),
		compressionFailures:   uint64(max(stats.CompressionFailures, 0)),
	}
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:    delta(prev.hits, cur.hits),
		misses:  delta(prev.misses, cur.misses),
		sets:    delta(prev.sets, cur.sets),
		deletes: delta(prev.deletes, cur.deletes),
		hitRate: cur.hitRate,

		softScans:        delta(prev.softScans, cur.softScans),
		softHits:         delta(prev.softHits, cur.softHits),
		softEvictedItems: delta(prev.softEvictedItems, cur.softEvictedItems),
		softEvictedBytes: delta(prev.softEvictedBytes, cur.softEvictedBytes),
		hardEvictedItems: delta(prev.hardEvictedItems, cur.hardEvictedItems),
		hardEvictedBytes: delta(prev.hardEvictedBytes, cur.hardEvictedBytes),

		sweepRemoved: delta(prev.sweepRemoved, cur.sweepRemoved),
		sweepHealed:  delta(prev.sweepHealed, cur.sweepHealed),
		sweepScans:   delta(prev.sweepScans, cur.sweepScans),
		sweepErrors:  delta(prev.sweepErrors, cur.sweepErrors),

		compressionSavedBytes: delta(prev.compressionSavedBytes, cur.compressionSavedBytes),
		compressionFailures:   delta(prev.compressionFailures, cur.compressionFailures),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
