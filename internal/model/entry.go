package model

import (
	"errors"
	"time"
)

var ErrNonPositiveTTL = errors.New("entry ttl must be positive")

// Entry is a single cached record as held by a tier. The payload is the
// encoded (possibly compressed) byte sequence; it is immutable after
// construction, so concurrent readers share it safely. Only the access
// bookkeeping fields mutate, and they do so atomically (see timestamps.go).
//
// Ownership of an entry's bytes is exclusive to the tier holding it;
// promotion into a faster tier stores a Clone, never the same pointer.
type Entry struct {
	key          string
	category     string
	priority     Priority
	payload      []byte
	sizeBytes    int64 // measured post-encoding
	originalSize int64 // set iff compressed
	compressed   bool
	createdAt    int64 // unix nano
	expiresAt    int64 // unix nano; always > createdAt
	touchedAt    int64 // atomic: unix nano (LRU recency)
	accessCount  int64 // atomic
}

// New builds an entry from an already encoded payload. A non-positive ttl is
// rejected so expiresAt is always strictly greater than creation time.
func New(key string, payload []byte, ttl time.Duration, category string, priority Priority) (*Entry, error) {
	if ttl <= 0 {
		return nil, ErrNonPositiveTTL
	}
	if category == "" {
		category = DefaultCategory
	}
	now := time.Now().UnixNano()
	return &Entry{
		key:       key,
		category:  category,
		priority:  priority,
		payload:   payload,
		sizeBytes: int64(len(payload)),
		createdAt: now,
		expiresAt: now + ttl.Nanoseconds(),
		touchedAt: now,
	}, nil
}

// MarkCompressed records that the payload bytes are compressed and what the
// pre-compression size was.
func (e *Entry) MarkCompressed(originalSize int64) {
	e.compressed = true
	e.originalSize = originalSize
}

func (e *Entry) Key() string        { return e.key }
func (e *Entry) Category() string   { return e.category }
func (e *Entry) Priority() Priority { return e.priority }
func (e *Entry) Payload() []byte    { return e.payload }
func (e *Entry) SizeBytes() int64   { return e.sizeBytes }
func (e *Entry) OriginalSize() int64 {
	if !e.compressed {
		return e.sizeBytes
	}
	return e.originalSize
}
func (e *Entry) Compressed() bool { return e.compressed }
func (e *Entry) CreatedAt() int64 { return e.createdAt }
func (e *Entry) ExpiresAt() int64 { return e.expiresAt }

// Weight is the byte cost the entry contributes to a tier's accounting.
func (e *Entry) Weight() int64 {
	return int64(len(e.key)) + e.sizeBytes
}

// IsExpired checks the hard TTL deadline against nowNano.
func (e *Entry) IsExpired(nowNano int64) bool {
	if e == nil {
		return false
	}
	return e.expiresAt <= nowNano
}

// RemainingTTL returns the time left before expiry; zero if already expired.
func (e *Entry) RemainingTTL(now time.Time) time.Duration {
	left := e.expiresAt - now.UnixNano()
	if left < 0 {
		return 0
	}
	return time.Duration(left)
}

// Clone duplicates the entry for promotion into another tier. The payload
// slice is copied so each tier owns its bytes exclusively; access
// bookkeeping carries over.
func (e *Entry) Clone() *Entry {
	payload := make([]byte, len(e.payload))
	copy(payload, e.payload)
	return &Entry{
		key:          e.key,
		category:     e.category,
		priority:     e.priority,
		payload:      payload,
		sizeBytes:    e.sizeBytes,
		originalSize: e.originalSize,
		compressed:   e.compressed,
		createdAt:    e.createdAt,
		expiresAt:    e.expiresAt,
		touchedAt:    e.TouchedAt(),
		accessCount:  e.AccessCount(),
	}
}
