package memstore

import "sync/atomic"

// ensureRoom makes space for an incoming entry of weight w by evicting the
// globally least-recently-used entry until the write fits. Runs on the write
// path, so the hard capacity limit holds before the insert lands.
func (s *Store) ensureRoom(w int64) {
	for atomic.LoadInt64(&s.mem)+w > s.capacity {
		if _, ok := s.evictOldest(); !ok {
			// tier drained; w <= capacity so the write fits now
			return
		}
	}
}

// EvictUntilWithinLimit evicts strictly in oldest-access order until usage
// drops to limit or backoff spins are exhausted. Used by the background
// soft-limit evictor.
func (s *Store) EvictUntilWithinLimit(limit, backoff int64) (freed, evicted int64) {
	for backoff > 0 {
		if atomic.LoadInt64(&s.mem) <= limit || s.Len() == 0 {
			return
		}
		w, ok := s.evictOldest()
		if !ok {
			return
		}
		freed += w
		evicted++
		backoff--
	}
	return
}

// evictOldest picks the entry with the oldest recency over every shard's LRU
// tail and removes it. Scanning all tails keeps eviction order strict across
// shards; shard counts are small so the scan is cheap.
func (s *Store) evictOldest() (freedBytes int64, ok bool) {
	var (
		victimKey   string
		victimShard *shard
		victimAt    int64
		haveVictim  bool
	)

	for _, sh := range s.shards {
		if sh.Len() == 0 {
			continue
		}
		if key, at, found := sh.peekTail(); found {
			if !haveVictim || at < victimAt {
				victimKey, victimShard, victimAt, haveVictim = key, sh, at, true
			}
		}
	}
	if !haveVictim {
		return 0, false
	}

	freedBytes, ok = victimShard.remove(victimKey)
	if ok {
		atomic.AddInt64(&s.mem, -freedBytes)
		atomic.AddInt64(&s.len, -1)
		s.onEvict(1, freedBytes)
	}
	return
}

func (sh *shard) Len() int64 {
	return atomic.LoadInt64(&sh.len)
}
