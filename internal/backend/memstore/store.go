// Package memstore implements the volatile tier: a sharded in-memory map
// with per-shard LRU bookkeeping and byte-accounted capacity. Hot paths keep
// critical sections short; global counters are atomics so readers avoid
// locks.
package memstore

import (
	"context"
	"sync/atomic"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	"github.com/zeebo/xxh3"
)

const defaultShards = 16

// Store is the volatile tier backend. Capacity is a hard limit: a write that
// would push usage past it evicts least-recently-used entries first, and an
// entry larger than the whole capacity is rejected outright.
type Store struct {
	shards   []*shard
	mask     uint64
	capacity int64 // 0 = unbounded

	mem int64 // aggregated payload weight in bytes (atomic)
	len int64 // aggregated number of items (atomic)

	// onEvict reports every forced removal to the metrics recorder.
	onEvict func(items, bytes int64)
}

var _ backend.Backend = (*Store)(nil)

func New(cfg *config.MemoryTierCfg, onEvict func(items, bytes int64)) *Store {
	n := cfg.Shards
	if n <= 0 {
		n = defaultShards
	}
	// round up to a power of two for a cheap mask
	p := 1
	for p < n {
		p <<= 1
	}

	s := &Store{
		shards:   make([]*shard, p),
		mask:     uint64(p - 1),
		capacity: cfg.CapacityBytes,
		onEvict:  onEvict,
	}
	if s.onEvict == nil {
		s.onEvict = func(int64, int64) {}
	}
	for i := range s.shards {
		s.shards[i] = newShard()
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[xxh3.HashString(key)&s.mask]
}

func (s *Store) Get(_ context.Context, key string) (*model.Entry, bool, error) {
	sh := s.shardFor(key)
	e, hit := sh.get(key)
	if !hit {
		return nil, false, nil
	}
	// move to front in LRU list; best-effort under TryLock
	sh.touchLRU(key)
	return e, true, nil
}

func (s *Store) Set(_ context.Context, e *model.Entry) error {
	w := e.Weight()
	if s.capacity > 0 {
		if w > s.capacity {
			// a single entry larger than the tier is never cached here
			return errs.ErrCapacityExceeded
		}
		s.ensureRoom(w)
	}

	bytesDelta, lenDelta := s.shardFor(e.Key()).set(e)
	if bytesDelta != 0 {
		atomic.AddInt64(&s.mem, bytesDelta)
	}
	if lenDelta != 0 {
		atomic.AddInt64(&s.len, lenDelta)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	freed, hit := s.shardFor(key).remove(key)
	if hit {
		atomic.AddInt64(&s.mem, -freed)
		atomic.AddInt64(&s.len, -1)
	}
	return hit, nil
}

func (s *Store) Clear(ctx context.Context, category string) (int64, error) {
	var removed int64
	for _, sh := range s.shards {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		freed, items := sh.clear(category)
		if freed != 0 {
			atomic.AddInt64(&s.mem, -freed)
		}
		if items != 0 {
			atomic.AddInt64(&s.len, -items)
			removed += items
		}
	}
	return removed, nil
}

func (s *Store) Walk(ctx context.Context, fn backend.WalkFunc) error {
	for _, sh := range s.shards {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !sh.walk(ctx, fn) {
			return nil
		}
	}
	return nil
}

func (s *Store) Usage(_ context.Context) (bytes, items int64, err error) {
	return s.Mem(), s.Len(), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Len() int64 { return atomic.LoadInt64(&s.len) }
func (s *Store) Mem() int64 { return atomic.LoadInt64(&s.mem) }
