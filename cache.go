package stratacache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/backend/boltstore"
	"github.com/ashish-admin/go-strata-cache/internal/backend/memstore"
	"github.com/ashish-admin/go-strata-cache/internal/backend/redistore"
	"github.com/ashish-admin/go-strata-cache/internal/backend/sqlitestore"
	"github.com/ashish-admin/go-strata-cache/internal/codec"
	"github.com/ashish-admin/go-strata-cache/internal/evictor"
	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	"github.com/ashish-admin/go-strata-cache/internal/router"
	"github.com/ashish-admin/go-strata-cache/internal/sweeper"
	"github.com/ashish-admin/go-strata-cache/internal/telemetry"
)

const closeDrainTimeout = 5 * time.Second

// TierUsage reports occupancy of a single tier.
type TierUsage = backend.TierUsage

// StrataCache is a multi-tier byte cache. Lookups scan tiers fastest first
// and promote hits upward; writes are routed by size, TTL and priority.
type StrataCache interface {
	// Get returns the payload for key, or ok=false on a miss. A miss is
	// never an error: expired and unreadable records count as misses.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key. Options default to the configured TTL,
	// PriorityNormal and the "general" category. The returned error is
	// non-nil only when no tier accepted the write.
	Set(ctx context.Context, key string, value []byte, opts ...SetOption) error

	// Delete removes key from every tier, best effort.
	Delete(ctx context.Context, key string)

	// Clear removes all entries of the given category from every tier;
	// an empty category clears everything.
	Clear(ctx context.Context, category string)

	// Stats returns a snapshot of the cache counters.
	Stats() Stats

	// StorageUsage reports per-tier occupancy keyed by tier name.
	StorageUsage(ctx context.Context) map[string]TierUsage

	// Close stops background workers, drains in-flight detached writes
	// and releases tier backends. The volatile tier is snapshotted to
	// disk first when dump persistence is configured.
	Close() error
}

type Cache struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Cache
	logger *slog.Logger

	router    *router.Router
	recorder  metrics.Recorder
	evictor   evictor.Evictor
	sweeper   sweeper.Sweeper
	telemetry telemetry.Logger
	codec     *codec.Codec

	// mem is retained beyond the tier list for dump persistence on Close.
	mem   *memstore.Store
	tiers []*backend.Tier
}

var _ StrataCache = (*Cache)(nil)

// New builds a cache from config. Tiers with a nil config section are left
// out; at least one tier must be enabled. An unreachable session backend is
// logged and skipped rather than failing construction, since the cache is
// expected to degrade when a tier goes away.
func New(ctx context.Context, cfg *config.Cache, logger *slog.Logger) (*Cache, error) {
	cfg.AdjustConfig()

	ctx, cancel := context.WithCancel(ctx)

	c := &Cache{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger}

	recorder := metrics.Recorder(metrics.NoOpRecorder{})
	if cfg.Metrics.Enabled() {
		recorder = metrics.New([]string{
			string(backend.ClassVolatile),
			string(backend.ClassSession),
			string(backend.ClassDurableSmall),
			string(backend.ClassDurableLarge),
		})
	}
	c.recorder = recorder

	if cfg.Tiers.Memory.Enabled() {
		c.mem = memstore.New(cfg.Tiers.Memory, recorder.Evicted)
		if cfg.Tiers.Memory.Dump.Enabled() {
			if err := c.mem.Load(ctx, cfg.Tiers.Memory.Dump); err != nil {
				logger.Warn("volatile snapshot load failed", "error", err)
			}
		}
		c.tiers = append(c.tiers, backend.NewTier(
			0, backend.ClassVolatile, cfg.Tiers.Memory.CapacityBytes, c.mem, logger))
	}

	if cfg.Tiers.Session.Enabled() {
		rds, err := redistore.New(ctx, cfg.Tiers.Session)
		if err != nil {
			logger.Warn("session tier unavailable, continuing without it",
				"addr", cfg.Tiers.Session.Addr, "error", err)
		} else {
			c.tiers = append(c.tiers, backend.NewTier(
				1, backend.ClassSession, cfg.Tiers.Session.CapacityBytes, rds, logger))
		}
	}

	if cfg.Tiers.DurableSmall.Enabled() {
		sql, err := sqlitestore.New(cfg.Tiers.DurableSmall)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("open durable-small tier: %w", err)
		}
		c.tiers = append(c.tiers, backend.NewTier(
			2, backend.ClassDurableSmall, cfg.Tiers.DurableSmall.CapacityBytes, sql, logger))
	}

	if cfg.Tiers.DurableLarge.Enabled() {
		blt, err := boltstore.New(cfg.Tiers.DurableLarge)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("open durable-large tier: %w", err)
		}
		c.tiers = append(c.tiers, backend.NewTier(
			3, backend.ClassDurableLarge, cfg.Tiers.DurableLarge.CapacityBytes, blt, logger))
	}

	if len(c.tiers) == 0 {
		cancel()
		return nil, fmt.Errorf("no tiers enabled")
	}

	return c.start()
}

// NewWithTiers builds a cache over caller-provided tiers. It is the
// injection point for custom backends and for tests; config still drives
// routing, compression and the background workers.
func NewWithTiers(
	ctx context.Context,
	cfg *config.Cache,
	logger *slog.Logger,
	tiers []*backend.Tier,
) (*Cache, error) {
	cfg.AdjustConfig()

	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tiers provided")
	}

	ctx, cancel := context.WithCancel(ctx)

	c := &Cache{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger, tiers: tiers}

	c.recorder = metrics.Recorder(metrics.NoOpRecorder{})
	if cfg.Metrics.Enabled() {
		names := make([]string, 0, len(tiers))
		for _, t := range tiers {
			names = append(names, t.Name())
		}
		c.recorder = metrics.New(names)
	}

	for _, t := range tiers {
		if ms, ok := t.Backend().(*memstore.Store); ok {
			c.mem = ms
			break
		}
	}

	return c.start()
}

func (c *Cache) start() (*Cache, error) {
	cdc, err := codec.New(c.cfg.Compression)
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("init codec: %w", err)
	}
	c.codec = cdc

	c.router = router.New(c.ctx, c.cfg, c.tiers, cdc, c.recorder, c.logger)
	c.evictor = evictor.New(c.ctx, c.cfg.Eviction, c.logger, c.mem)
	c.sweeper = sweeper.New(c.ctx, c.cfg.Sweep, c.logger, c.router.Tiers(), c.recorder)
	c.telemetry = telemetry.New(
		c.ctx, c.cfg, c.logger, c.router.Tiers(), c.recorder, c.evictor, c.sweeper)

	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	return c.router.Get(ctx, key)
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	o := setOptions{priority: model.PriorityNormal, category: model.DefaultCategory}
	for _, opt := range opts {
		opt(&o)
	}
	return c.router.Set(ctx, key, value, o.ttl, o.priority, o.category)
}

func (c *Cache) Delete(ctx context.Context, key string) {
	c.router.Delete(ctx, key)
}

func (c *Cache) Clear(ctx context.Context, category string) {
	c.router.Clear(ctx, category)
}

func (c *Cache) Stats() Stats {
	return c.recorder.Snapshot()
}

func (c *Cache) StorageUsage(ctx context.Context) map[string]TierUsage {
	return c.router.StorageUsage(ctx)
}

func (c *Cache) Close() error {
	_ = c.telemetry.Close()
	_ = c.sweeper.Close()
	_ = c.evictor.Close()

	c.router.Drain(closeDrainTimeout)

	if c.mem != nil && c.cfg.Tiers.Memory.Enabled() && c.cfg.Tiers.Memory.Dump.Enabled() {
		if err := c.mem.Dump(c.ctx, c.cfg.Tiers.Memory.Dump); err != nil {
			c.logger.Warn("volatile snapshot dump failed", "error", err)
		}
	}

	c.cancel()
	c.codec.Close()

	var firstErr error
	for _, t := range c.tiers {
		if err := t.Backend().Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
