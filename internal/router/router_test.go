package router

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/backend/memstore"
	"github.com/ashish-admin/go-strata-cache/internal/codec"
	"github.com/ashish-admin/go-strata-cache/internal/errs"
	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/model"
)

// flakyBackend wraps a real backend and injects failures per operation.
type flakyBackend struct {
	inner   backend.Backend
	getErr  error
	setErr  error
	deleted []string
}

func (f *flakyBackend) Get(ctx context.Context, key string) (*model.Entry, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, e *model.Entry) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, e)
}

func (f *flakyBackend) Delete(ctx context.Context, key string) (bool, error) {
	f.deleted = append(f.deleted, key)
	return f.inner.Delete(ctx, key)
}

func (f *flakyBackend) Clear(ctx context.Context, category string) (int64, error) {
	return f.inner.Clear(ctx, category)
}

func (f *flakyBackend) Walk(ctx context.Context, fn backend.WalkFunc) error {
	return f.inner.Walk(ctx, fn)
}

func (f *flakyBackend) Usage(ctx context.Context) (int64, int64, error) {
	return f.inner.Usage(ctx)
}

func (f *flakyBackend) Close() error { return f.inner.Close() }

func testCfg() *config.Cache {
	cfg := &config.Cache{DefaultTTL: time.Hour, Metrics: &config.MetricsCfg{}}
	cfg.AdjustConfig()
	return cfg
}

func newMem() *memstore.Store {
	return memstore.New(&config.MemoryTierCfg{CapacityBytes: 64 << 20, Shards: 4}, nil)
}

type harness struct {
	router   *Router
	recorder metrics.Recorder
	backends map[backend.Class]backend.Backend
}

// newHarness builds a four-tier router; overrides swap a tier's backend.
func newHarness(t *testing.T, overrides map[backend.Class]backend.Backend) *harness {
	t.Helper()
	logger := slog.Default()

	backends := map[backend.Class]backend.Backend{
		backend.ClassVolatile:     newMem(),
		backend.ClassSession:      newMem(),
		backend.ClassDurableSmall: newMem(),
		backend.ClassDurableLarge: newMem(),
	}
	for class, b := range overrides {
		backends[class] = b
	}

	tiers := []*backend.Tier{
		backend.NewTier(0, backend.ClassVolatile, 64<<20, backends[backend.ClassVolatile], logger),
		backend.NewTier(1, backend.ClassSession, 0, backends[backend.ClassSession], logger),
		backend.NewTier(2, backend.ClassDurableSmall, 0, backends[backend.ClassDurableSmall], logger),
		backend.NewTier(3, backend.ClassDurableLarge, 0, backends[backend.ClassDurableLarge], logger),
	}

	recorder := metrics.New([]string{"volatile", "session", "durable-small", "durable-large"})
	r := New(context.Background(), testCfg(), tiers, nil, recorder, logger)
	return &harness{router: r, recorder: recorder, backends: backends}
}

func (h *harness) tier(class backend.Class) *backend.Tier {
	for _, t := range h.router.Tiers() {
		if t.Class() == class {
			return t
		}
	}
	return nil
}

func TestRouter_SetGetRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// short lived and small: the session tier rule applies
	err := h.router.Set(ctx, "k", []byte("value"), 10*time.Minute, model.PriorityNormal, "")
	require.NoError(t, err)

	got, hit := h.router.Get(ctx, "k")
	require.True(t, hit)
	require.Equal(t, []byte("value"), got)

	s := h.recorder.Snapshot()
	require.Equal(t, int64(1), s.Sets)
	require.Equal(t, int64(1), s.TierHits["session"])
}

func TestRouter_GetMiss(t *testing.T) {
	h := newHarness(t, nil)

	_, hit := h.router.Get(context.Background(), "never-stored")
	require.False(t, hit)
	require.Equal(t, int64(1), h.recorder.Snapshot().Misses)
}

func TestRouter_DefaultTTLApplied(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, h.router.Set(ctx, "k", []byte("v"), 0, model.PriorityNormal, ""))

	// default TTL (1h) exceeds the session threshold, so the entry lands durable
	e, found, err := h.backends[backend.ClassDurableSmall].Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.WithinDuration(t,
		before.Add(time.Hour), time.Unix(0, e.ExpiresAt()), time.Minute)
}

func TestRouter_ExpiredEntryDroppedOnRead(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	e, err := model.New("dying", []byte("v"), time.Millisecond, "", model.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, h.backends[backend.ClassSession].Set(ctx, e))

	time.Sleep(5 * time.Millisecond)
	_, hit := h.router.Get(ctx, "dying")
	require.False(t, hit)

	s := h.recorder.Snapshot()
	require.Equal(t, int64(1), s.Misses)
	require.Equal(t, int64(1), s.ExpiredSwept)

	_, found, err := h.backends[backend.ClassSession].Get(ctx, "dying")
	require.NoError(t, err)
	require.False(t, found, "expired entry must be removed from its tier")
}

func TestRouter_PromotionOnHit(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	e, err := model.New("cold", []byte("payload"), time.Hour, "", model.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, h.backends[backend.ClassDurableLarge].Set(ctx, e))

	got, hit := h.router.Get(ctx, "cold")
	require.True(t, hit)
	require.Equal(t, []byte("payload"), got)
	require.Equal(t, int64(1), h.recorder.Snapshot().TierHits["durable-large"])

	// promotion is detached; drain before inspecting faster tiers
	h.router.Drain(time.Second)
	for _, class := range []backend.Class{
		backend.ClassVolatile, backend.ClassSession, backend.ClassDurableSmall,
	} {
		promoted, found, gErr := h.backends[class].Get(ctx, "cold")
		require.NoError(t, gErr)
		require.True(t, found, string(class))
		require.Equal(t, []byte("payload"), promoted.Payload())
	}

	// the next read is served by the fastest tier
	_, hit = h.router.Get(ctx, "cold")
	require.True(t, hit)
	require.Equal(t, int64(1), h.recorder.Snapshot().TierHits["volatile"])
}

func TestRouter_PromotionClonesPayload(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	e, err := model.New("shared", []byte("payload"), time.Hour, "", model.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, h.backends[backend.ClassDurableSmall].Set(ctx, e))

	_, hit := h.router.Get(ctx, "shared")
	require.True(t, hit)
	h.router.Drain(time.Second)

	fast, found, err := h.backends[backend.ClassVolatile].Get(ctx, "shared")
	require.NoError(t, err)
	require.True(t, found)
	slow, _, _ := h.backends[backend.ClassDurableSmall].Get(ctx, "shared")
	require.NotSame(t, &fast.Payload()[0], &slow.Payload()[0],
		"tiers must not share payload bytes")
}

func TestRouter_SetFallsBackWhenPrimaryFails(t *testing.T) {
	broken := &flakyBackend{inner: newMem(), setErr: errors.New("disk on fire")}
	h := newHarness(t, map[backend.Class]backend.Backend{backend.ClassVolatile: broken})
	ctx := context.Background()

	// high priority selects volatile and session; volatile write fails
	err := h.router.Set(ctx, "k", []byte("v"), 10*time.Minute, model.PriorityHigh, "")
	require.NoError(t, err, "write must fall through to the next selected tier")

	_, found, gErr := h.backends[backend.ClassSession].Get(ctx, "k")
	require.NoError(t, gErr)
	require.True(t, found)

	// a non-capacity failure downgrades the tier for the session
	require.False(t, h.tier(backend.ClassVolatile).Enabled())
	require.Equal(t, int64(1), h.recorder.Snapshot().TierUnavailable)
}

func TestRouter_CapacityRejectionDoesNotDisable(t *testing.T) {
	tiny := memstore.New(&config.MemoryTierCfg{CapacityBytes: 16, Shards: 1}, nil)
	h := newHarness(t, map[backend.Class]backend.Backend{backend.ClassVolatile: tiny})
	ctx := context.Background()

	err := h.router.Set(ctx, "k", []byte("does not fit in 16 bytes"), 10*time.Minute, model.PriorityHigh, "")
	require.NoError(t, err)

	require.True(t, h.tier(backend.ClassVolatile).Enabled(),
		"a capacity rejection must not downgrade the tier")
	require.Zero(t, h.recorder.Snapshot().TierUnavailable)

	_, found, gErr := h.backends[backend.ClassSession].Get(ctx, "k")
	require.NoError(t, gErr)
	require.True(t, found)
}

func TestRouter_SetErrorsWhenEverySelectedTierFails(t *testing.T) {
	h := newHarness(t, map[backend.Class]backend.Backend{
		backend.ClassVolatile:     &flakyBackend{inner: newMem(), setErr: errors.New("down")},
		backend.ClassSession:      &flakyBackend{inner: newMem(), setErr: errors.New("down")},
		backend.ClassDurableSmall: &flakyBackend{inner: newMem(), setErr: errors.New("down")},
		backend.ClassDurableLarge: &flakyBackend{inner: newMem(), setErr: errors.New("down")},
	})

	err := h.router.Set(context.Background(), "k", []byte("v"), 10*time.Minute, model.PriorityHigh, "")
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)
}

func TestRouter_CorruptEntryHealedOnRead(t *testing.T) {
	corrupt := &flakyBackend{inner: newMem(), getErr: errs.ErrCorruptEntry}
	h := newHarness(t, map[backend.Class]backend.Backend{backend.ClassSession: corrupt})
	ctx := context.Background()

	// a healthy copy lives in the durable tier
	e, err := model.New("k", []byte("v"), time.Hour, "", model.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, h.backends[backend.ClassDurableSmall].Set(ctx, e))

	got, hit := h.router.Get(ctx, "k")
	require.True(t, hit, "the scan must continue past the corrupt tier")
	require.Equal(t, []byte("v"), got)

	require.Contains(t, corrupt.deleted, "k", "corrupt record must be removed")
	require.Equal(t, int64(1), h.recorder.Snapshot().CorruptHealed)
	require.True(t, h.tier(backend.ClassSession).Enabled())
}

func TestRouter_BackendFailureDisablesTier(t *testing.T) {
	broken := &flakyBackend{inner: newMem(), getErr: errors.New("connection refused")}
	h := newHarness(t, map[backend.Class]backend.Backend{backend.ClassSession: broken})
	ctx := context.Background()

	_, hit := h.router.Get(ctx, "k")
	require.False(t, hit)
	require.False(t, h.tier(backend.ClassSession).Enabled())
	require.Equal(t, int64(1), h.recorder.Snapshot().TierUnavailable)

	// subsequent operations skip the disabled tier entirely
	require.NoError(t, h.router.Set(ctx, "k", []byte("v"), 10*time.Minute, model.PriorityNormal, ""))
	_, found, err := h.backends[backend.ClassDurableSmall].Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found, "write falls back past the disabled tier")
}

func TestRouter_DeleteFansOut(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	e, err := model.New("k", []byte("v"), time.Hour, "", model.PriorityNormal)
	require.NoError(t, err)
	for _, b := range h.backends {
		require.NoError(t, b.Set(ctx, e.Clone()))
	}

	h.router.Delete(ctx, "k")
	for class, b := range h.backends {
		_, found, gErr := b.Get(ctx, "k")
		require.NoError(t, gErr)
		require.False(t, found, string(class))
	}
	require.Equal(t, int64(1), h.recorder.Snapshot().Deletes)
}

func TestRouter_ClearByCategory(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.router.Set(ctx, "s1", []byte("v"), 10*time.Minute, model.PriorityNormal, "sessions"))
	require.NoError(t, h.router.Set(ctx, "a1", []byte("v"), 10*time.Minute, model.PriorityNormal, "assets"))
	h.router.Drain(time.Second)

	h.router.Clear(ctx, "sessions")

	_, hit := h.router.Get(ctx, "s1")
	require.False(t, hit)
	_, hit = h.router.Get(ctx, "a1")
	require.True(t, hit)
}

func TestRouter_CompressionRoundTrip(t *testing.T) {
	cfg := &config.Cache{
		DefaultTTL:  time.Hour,
		Metrics:     &config.MetricsCfg{},
		Compression: &config.CompressionCfg{Level: 3, ThresholdBytes: 64},
	}
	cfg.AdjustConfig()

	cdc, err := codec.New(cfg.Compression)
	require.NoError(t, err)
	t.Cleanup(cdc.Close)

	logger := slog.Default()
	mem := newMem()
	tiers := []*backend.Tier{
		backend.NewTier(0, backend.ClassVolatile, 64<<20, mem, logger),
	}
	recorder := metrics.New([]string{"volatile"})
	r := New(context.Background(), cfg, tiers, cdc, recorder, logger)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("abcdefgh"), 4096)
	require.NoError(t, r.Set(ctx, "big", payload, 10*time.Minute, model.PriorityHigh, ""))

	stored, found, gErr := mem.Get(ctx, "big")
	require.NoError(t, gErr)
	require.True(t, found)
	require.True(t, stored.Compressed())
	require.Less(t, stored.SizeBytes(), int64(len(payload)))

	got, hit := r.Get(ctx, "big")
	require.True(t, hit)
	require.Equal(t, payload, got)
	require.Greater(t, recorder.Snapshot().CompressionSavedBytes, int64(0))
}

func TestRouter_StorageUsage(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.router.Set(ctx, "k", []byte("v"), 10*time.Minute, model.PriorityNormal, ""))
	h.router.Drain(time.Second)

	usage := h.router.StorageUsage(ctx)
	require.Len(t, usage, 4)
	require.Equal(t, int64(1), usage["session"].Items)
	require.Greater(t, usage["session"].UsedBytes, int64(0))
}
