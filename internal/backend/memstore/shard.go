package memstore

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/model"
)

// shard is an independent segment of the sharded map. It keeps per-shard
// counters read with atomics so global readers can avoid locks.
type shard struct {
	sync.RWMutex
	items map[string]*model.Entry

	mem int64 // total entry weight in bytes (atomic)
	len int64 // number of items (atomic)

	// LRU recency; front = most recently used
	lru  *list.List
	lidx map[string]*list.Element
}

func newShard() *shard {
	return &shard{
		items: make(map[string]*model.Entry),
		lru:   list.New(),
		lidx:  make(map[string]*list.Element),
	}
}

func (sh *shard) get(key string) (*model.Entry, bool) {
	sh.RLock()
	e, hit := sh.items[key]
	sh.RUnlock()
	return e, hit
}

// set inserts or replaces a key wholesale, so two concurrent writers on the
// same key leave exactly one of the two records. Returns deltas for the
// global aggregations.
func (sh *shard) set(e *model.Entry) (bytesDelta, lenDelta int64) {
	key := e.Key()
	sh.Lock()
	if old, hit := sh.items[key]; hit {
		sh.items[key] = e
		sh.lruOnInsertUnlocked(key)

		lenDelta = 0
		bytesDelta = e.Weight() - old.Weight()
		atomic.AddInt64(&sh.mem, bytesDelta)
	} else {
		sh.items[key] = e
		sh.lruOnInsertUnlocked(key)

		lenDelta = 1
		bytesDelta = e.Weight()
		atomic.AddInt64(&sh.len, lenDelta)
		atomic.AddInt64(&sh.mem, bytesDelta)
	}
	sh.Unlock()
	return
}

func (sh *shard) remove(key string) (freedBytes int64, hit bool) {
	sh.Lock()
	freedBytes, hit = sh.removeUnlocked(key)
	sh.Unlock()
	return
}

func (sh *shard) removeUnlocked(key string) (freedBytes int64, hit bool) {
	var old *model.Entry
	if old, hit = sh.items[key]; hit {
		delete(sh.items, key)
		sh.lruOnDeleteUnlocked(key)

		freedBytes = old.Weight()
		atomic.AddInt64(&sh.mem, -freedBytes)
		atomic.AddInt64(&sh.len, -1)
	}
	return
}

// clear wipes the shard, or only one category when non-empty.
// Returns (freedBytes, itemsRemoved).
func (sh *shard) clear(category string) (freedBytes, items int64) {
	sh.Lock()
	defer sh.Unlock()

	if category == "" {
		items = atomic.LoadInt64(&sh.len)
		freedBytes = atomic.LoadInt64(&sh.mem)

		sh.items = make(map[string]*model.Entry, items)
		atomic.StoreInt64(&sh.len, 0)
		atomic.StoreInt64(&sh.mem, 0)
		sh.lru.Init()
		clear(sh.lidx)
		return
	}

	for key, e := range sh.items {
		if e.Category() != category {
			continue
		}
		if freed, hit := sh.removeUnlocked(key); hit {
			freedBytes += freed
			items++
		}
	}
	return
}

// walk iterates entries under a shared lock. The callback must be
// lightweight. Returns false when the callback stopped the walk.
func (sh *shard) walk(ctx context.Context, fn backend.WalkFunc) bool {
	sh.RLock()
	defer sh.RUnlock()
	for key, e := range sh.items {
		select {
		case <-ctx.Done():
			return false
		default:
			if !fn(key, e, nil) {
				return false
			}
		}
	}
	return true
}
