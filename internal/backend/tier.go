package backend

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Tier pairs a Backend with its descriptor: position in the scan order,
// durability class, capacity and an enabled flag that is flipped off after a
// backend failure and stays off for the remainder of the session.
type Tier struct {
	order    int
	class    Class
	capacity int64 // 0 = unbounded
	backend  Backend
	logger   *slog.Logger
	disabled atomic.Bool
}

func NewTier(order int, class Class, capacity int64, b Backend, logger *slog.Logger) *Tier {
	return &Tier{order: order, class: class, capacity: capacity, backend: b, logger: logger}
}

func (t *Tier) Order() int       { return t.order }
func (t *Tier) Class() Class     { return t.class }
func (t *Tier) Name() string     { return string(t.class) }
func (t *Tier) Capacity() int64  { return t.capacity }
func (t *Tier) Backend() Backend { return t.backend }

func (t *Tier) Enabled() bool {
	return !t.disabled.Load()
}

// Disable downgrades the tier after a backend failure. Idempotent; logs the
// first downgrade only.
func (t *Tier) Disable(cause error) {
	if t.disabled.CompareAndSwap(false, true) {
		t.logger.Warn("tier disabled after backend failure", "tier", t.Name(), "error", cause)
	}
}

// Fits reports whether an entry of the given weight may be accepted at all.
// An entry is never accepted into a tier whose capacity it exceeds.
func (t *Tier) Fits(weight int64) bool {
	return t.capacity == 0 || weight <= t.capacity
}

// Usage snapshots the tier for StorageUsage. Backend errors degrade to a
// zeroed sample rather than failing the snapshot.
func (t *Tier) Usage(ctx context.Context) TierUsage {
	u := TierUsage{
		Class:         t.class,
		Order:         t.order,
		Enabled:       t.Enabled(),
		CapacityBytes: t.capacity,
	}
	if bytes, items, err := t.backend.Usage(ctx); err == nil {
		u.UsedBytes, u.Items = bytes, items
	}
	return u
}
