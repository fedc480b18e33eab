package model

import (
	"sync/atomic"
	"time"
)

// Touch renews the recency timestamp and bumps the access counter.
// Called on every read hit; safe without holding the tier lock.
func (e *Entry) Touch() {
	atomic.StoreInt64(&e.touchedAt, time.Now().UnixNano())
	atomic.AddInt64(&e.accessCount, 1)
}

func (e *Entry) TouchedAt() int64 {
	return atomic.LoadInt64(&e.touchedAt)
}

func (e *Entry) AccessCount() int64 {
	return atomic.LoadInt64(&e.accessCount)
}
