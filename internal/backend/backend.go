// Package backend defines the storage capability every tier implements.
//
// Implementations must be byte-for-byte transparent: Get must return exactly
// the entry previously passed to Set for a key, payload untouched. Transforms
// like compression happen above the backend, in the codec.
package backend

import (
	"context"

	"github.com/ashish-admin/go-strata-cache/internal/model"
)

// Class is the durability class of a tier.
type Class string

const (
	ClassVolatile     Class = "volatile"
	ClassSession      Class = "session"
	ClassDurableSmall Class = "durable-small"
	ClassDurableLarge Class = "durable-large"
)

// WalkFunc visits stored entries during enumeration. When a stored record
// fails to decode, e is nil and err describes the corruption; the walk
// continues so sweepers can self-heal. Return false to stop.
type WalkFunc func(key string, e *model.Entry, err error) bool

// Backend is a keyed entry store with no routing logic of its own.
// All operations must be safe for concurrent use.
type Backend interface {
	// Get returns (entry, true, nil) on hit and (nil, false, nil) on miss.
	// Expiry is not checked here; the router and sweeper own that.
	Get(ctx context.Context, key string) (*model.Entry, bool, error)

	// Set stores an entry, replacing any previous record atomically.
	Set(ctx context.Context, e *model.Entry) error

	// Delete removes a key; reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all entries, or only those tagged with category when
	// it is non-empty. Returns the number of removed entries.
	Clear(ctx context.Context, category string) (int64, error)

	// Walk enumerates all stored entries, corrupt ones included.
	Walk(ctx context.Context, fn WalkFunc) error

	// Usage reports current byte usage and entry count.
	Usage(ctx context.Context) (bytes, items int64, err error)

	// Close releases backend resources.
	Close() error
}

// TierUsage is the per-tier slice of a StorageUsage snapshot.
type TierUsage struct {
	Class         Class
	Order         int
	Enabled       bool
	CapacityBytes int64 // 0 = unbounded
	UsedBytes     int64
	Items         int64
}
