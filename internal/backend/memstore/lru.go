package memstore

// lruOnInsertUnlocked - is unsafe without shard.Lock due to it mutates the list.
func (sh *shard) lruOnInsertUnlocked(key string) {
	if el := sh.lidx[key]; el != nil {
		sh.lru.MoveToFront(el)
		return
	}
	sh.lidx[key] = sh.lru.PushFront(key)
}

// lruOnDeleteUnlocked - is unsafe without shard.Lock due to it mutates the list.
func (sh *shard) lruOnDeleteUnlocked(key string) {
	if el := sh.lidx[key]; el != nil {
		sh.lru.Remove(el)
		delete(sh.lidx, key)
	}
}

// touchLRU - threadsafe. Skips the move when the shard is contended rather
// than stalling a read hit.
func (sh *shard) touchLRU(key string) {
	if sh.TryLock() {
		if el := sh.lidx[key]; el != nil {
			sh.lru.MoveToFront(el)
		}
		sh.Unlock()
	}
}

// tailScanDepth bounds how far peekTail looks past the list tail. touchLRU
// skips its move under contention, so an entry near the tail may be more
// recent than its position suggests.
const tailScanDepth = 16

// peekTail reports the shard's least-recently-used entry for victim
// selection across shards. The tail window is ranked by TouchedAt rather
// than trusting the last element alone.
func (sh *shard) peekTail() (key string, touchedAt int64, ok bool) {
	sh.RLock()
	defer sh.RUnlock()
	depth := tailScanDepth
	for el := sh.lru.Back(); el != nil && depth > 0; el = el.Prev() {
		k := el.Value.(string)
		e, hit := sh.items[k]
		if !hit {
			continue
		}
		depth--
		if at := e.TouchedAt(); !ok || at < touchedAt {
			key, touchedAt, ok = k, at, true
		}
	}
	return
}
