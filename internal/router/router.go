// Package router implements the public read/write path over the tier set:
// ascending-order lookups with promotion, strategy-driven writes with a
// synchronous primary tier and detached secondary writes, and best-effort
// delete/clear fan-out.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/codec"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	"github.com/ashish-admin/go-strata-cache/internal/strategy"
)

type Router struct {
	ctx      context.Context
	cfg      *config.Cache
	tiers    []*backend.Tier // ascending order, fastest first
	selector *strategy.Selector
	codec    *codec.Codec
	metrics  metrics.Recorder
	logger   *slog.Logger

	// secondary-tier and promotion writes detach from the caller; wg lets
	// shutdown drain them with a bounded wait.
	wg sync.WaitGroup
}

func New(
	ctx context.Context,
	cfg *config.Cache,
	tiers []*backend.Tier,
	cdc *codec.Codec,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Router {
	sorted := make([]*backend.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })

	return &Router{
		ctx:      ctx,
		cfg:      cfg,
		tiers:    sorted,
		selector: strategy.New(&cfg.Strategy),
		codec:    cdc,
		metrics:  recorder,
		logger:   logger,
	}
}

func (r *Router) Tiers() []*backend.Tier { return r.tiers }

// Get scans tiers fastest first and returns the first live entry, decoded.
// Expired entries met along the way are dropped from their tier and the scan
// continues; corrupt entries are healed the same way. A miss is not an
// error.
func (r *Router) Get(ctx context.Context, key string) ([]byte, bool) {
	now := time.Now().UnixNano()

	for i, t := range r.tiers {
		if !t.Enabled() {
			continue
		}

		e, found, err := t.Backend().Get(ctx, key)
		if err != nil {
			r.onReadFailure(ctx, t, key, err)
			continue
		}
		if !found {
			continue
		}

		if e.IsExpired(now) {
			if _, dErr := t.Backend().Delete(ctx, key); dErr == nil {
				r.metrics.Expired(1)
			}
			continue
		}

		data, decErr := r.codec.Decode(e.Payload(), e.Compressed())
		if decErr != nil {
			r.onReadFailure(ctx, t, key, decErr)
			continue
		}

		e.Touch()
		r.metrics.Hit(t.Name())
		if i > 0 {
			r.promote(e, r.tiers[:i])
		}
		return data, true
	}

	r.metrics.Miss()
	return nil, false
}

// Set encodes the value, picks the target tier set and writes the fastest
// selected tier synchronously. The remaining selected tiers are written as
// detached background work whose failures are only logged and counted. An
// error comes back only when every selected tier failed.
func (r *Router) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
	priority model.Priority,
	category string,
) error {
	if ttl <= 0 {
		ttl = r.cfg.DefaultTTL
	}

	encoded, compressed := r.codec.Encode(value)
	e, err := model.New(key, encoded, ttl, category, priority)
	if err != nil {
		return err
	}
	if compressed {
		e.MarkCompressed(int64(len(value)))
		r.metrics.CompressionSaved(int64(len(value) - len(encoded)))
	} else if r.cfg.Compression.Enabled() && int64(len(value)) > r.cfg.Compression.ThresholdBytes {
		// large enough to compress but stored raw: the payload did not shrink
		r.metrics.CompressionFailure()
	}

	selected := r.selector.Select(r.tiers, e.SizeBytes(), ttl, priority, e.Category())
	if len(selected) == 0 {
		return fmt.Errorf("%w: key=%q size=%d", errs.ErrCapacityExceeded, key, e.SizeBytes())
	}

	var lastErr error
	for i, t := range selected {
		if err = r.writeTier(ctx, t, e); err != nil {
			lastErr = err
			continue
		}
		for _, secondary := range selected[i+1:] {
			r.spawnSecondaryWrite(secondary, e)
		}
		r.metrics.Set()
		return nil
	}
	return fmt.Errorf("%w: key=%q: %v", errs.ErrCapacityExceeded, key, lastErr)
}

// Delete removes the key from every enabled tier, best-effort.
func (r *Router) Delete(ctx context.Context, key string) {
	for _, t := range r.tiers {
		if !t.Enabled() {
			continue
		}
		if _, err := t.Backend().Delete(ctx, key); err != nil {
			r.logger.Warn("delete failed", "tier", t.Name(), "key", key, "error", err)
		}
	}
	r.metrics.Delete()
}

// Clear removes all entries, or only one category, from every enabled tier.
func (r *Router) Clear(ctx context.Context, category string) {
	for _, t := range r.tiers {
		if !t.Enabled() {
			continue
		}
		if _, err := t.Backend().Clear(ctx, category); err != nil {
			r.logger.Warn("clear failed", "tier", t.Name(), "category", category, "error", err)
		}
	}
}

// StorageUsage snapshots per-tier byte usage and entry counts.
func (r *Router) StorageUsage(ctx context.Context) map[string]backend.TierUsage {
	usage := make(map[string]backend.TierUsage, len(r.tiers))
	for _, t := range r.tiers {
		usage[t.Name()] = t.Usage(ctx)
	}
	return usage
}

// Drain waits for in-flight secondary writes and promotions up to timeout;
// whatever remains after that is abandoned.
func (r *Router) Drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	after := time.NewTimer(timeout)
	defer after.Stop()
	select {
	case <-done:
	case <-after.C:
		r.logger.Warn("shutdown abandoned in-flight background writes", "timeout", timeout.String())
	}
}

/**
 * Private API.
 */

// promote copies a hit found in a slower tier into every faster enabled tier
// whose capacity allows it. Runs detached: promotion accelerates future
// reads, it must not delay this one.
func (r *Router) promote(e *model.Entry, faster []*backend.Tier) {
	targets := make([]*backend.Tier, 0, len(faster))
	for _, t := range faster {
		if t.Enabled() && t.Fits(e.Weight()) {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return
	}

	// promotion duplicates bytes; the slower tier keeps its own copy
	clone := e.Clone()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for _, t := range targets {
			if err := t.Backend().Set(r.ctx, clone); err != nil {
				if errors.Is(err, errs.ErrCapacityExceeded) {
					// tier cannot fit the entry right now; not an error
					continue
				}
				t.Disable(err)
				r.metrics.TierUnavailable(t.Name())
			}
		}
	}()
}

func (r *Router) spawnSecondaryWrite(t *backend.Tier, e *model.Entry) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.writeTier(r.ctx, t, e); err != nil {
			r.logger.Warn("secondary tier write failed", "tier", t.Name(), "key", e.Key(), "error", err)
		}
	}()
}

// writeTier stores e into one tier, classifying failures: a capacity
// rejection skips the tier, anything else downgrades it for the session.
func (r *Router) writeTier(ctx context.Context, t *backend.Tier, e *model.Entry) error {
	err := t.Backend().Set(ctx, e)
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrCapacityExceeded) {
		return err
	}
	t.Disable(err)
	r.metrics.TierUnavailable(t.Name())
	return fmt.Errorf("%w: %s: %v", errs.ErrTierUnavailable, t.Name(), err)
}

// onReadFailure heals corrupt entries in place and downgrades tiers whose
// backend failed outright. Either way the scan continues to slower tiers.
func (r *Router) onReadFailure(ctx context.Context, t *backend.Tier, key string, err error) {
	if errors.Is(err, errs.ErrCorruptEntry) {
		if _, dErr := t.Backend().Delete(ctx, key); dErr == nil {
			r.metrics.CorruptHealed(1)
		}
		r.logger.Debug("corrupt entry removed", "tier", t.Name(), "key", key)
		return
	}
	t.Disable(err)
	r.metrics.TierUnavailable(t.Name())
}
