// Package evictor runs background soft-limit eviction for the volatile
// tier. The hard capacity limit is enforced synchronously on the write path
// by the store itself; this worker only trims usage back early so foreground
// writes rarely have to evict inline.
package evictor

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend/memstore"
)

var ErrEvictorNotResponded = errors.New("evictor not responded")

type Evictor interface {
	ForceCall(timeout time.Duration) error
	EvictorMetrics() (scans, hits, evictedItems, evictedBytes int64)
	Close() error
}

type EvictionWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.EvictionCfg
	logger   *slog.Logger
	store    *memstore.Store
	counters *evictorCounters
	invokeCh chan struct{}
}

func New(
	ctx context.Context,
	cfg *config.EvictionCfg,
	logger *slog.Logger,
	store *memstore.Store,
) Evictor {
	if !cfg.Enabled() || store == nil {
		return &NoOpEvictor{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&EvictionWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		store:    store,
		counters: newEvictorCounters(),
		invokeCh: make(chan struct{}),
	}).run()
}

func (w *EvictionWorker) ForceCall(timeout time.Duration) error {
	after := time.NewTimer(timeout)
	defer after.Stop()

	select {
	case <-w.ctx.Done():
	case w.invokeCh <- struct{}{}:
	case <-after.C:
		return ErrEvictorNotResponded
	}
	return nil
}

func (w *EvictionWorker) EvictorMetrics() (scans, hits, evictedItems, evictedBytes int64) {
	return w.counters.snapshot()
}

func (w *EvictionWorker) Close() error {
	w.cancel()
	return nil
}

func (w *EvictionWorker) run() *EvictionWorker {
	w.logger.Info("evictor is running",
		"soft_limit_bytes", w.cfg.SoftMemoryLimitBytes,
		"calls_per_sec", w.cfg.CallsPerSec,
		"backoff_spins", w.cfg.BackoffSpinsPerCall,
	)

	go func() {
		defer w.logger.Info("evictor is stopped")
		var wg sync.WaitGroup
		for i := 0; i <= runtime.GOMAXPROCS(0); i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.consumer()
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.provider()
		}()
		wg.Wait()
	}()

	return w
}

// provider wakes a consumer whenever the volatile tier overcame the soft limit.
func (w *EvictionWorker) provider() {
	var evictionCallsPerSec = w.cfg.CallsPerSec
	if evictionCallsPerSec <= 0 {
		evictionCallsPerSec = 1
	}

	each := time.Second / time.Duration(evictionCallsPerSec)
	tick := time.NewTicker(each)
	defer tick.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
			if w.store.Len() == 0 {
				continue
			}
			w.counters.scans.Add(1)
			if w.store.Mem() > w.cfg.SoftMemoryLimitBytes {
				select {
				case <-w.ctx.Done():
					return
				case w.invokeCh <- struct{}{}:
					w.counters.scanHits.Add(1)
				}
			}
		}
	}
}

// consumer evicts oldest-first until within the soft limit or backoff spins
// run out, then yields back to foreground traffic.
func (w *EvictionWorker) consumer() {
	var evictionSpinsBackoff = w.cfg.BackoffSpinsPerCall
	if evictionSpinsBackoff <= 0 {
		const defaultEvictionSpinsBackoff = 2048
		evictionSpinsBackoff = defaultEvictionSpinsBackoff
	}

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.invokeCh:
			freedBytes, items := w.store.EvictUntilWithinLimit(w.cfg.SoftMemoryLimitBytes, evictionSpinsBackoff)
			if items > 0 || freedBytes > 0 {
				w.counters.evictedItems.Add(items)
				w.counters.evictedBytes.Add(freedBytes)
			}
		}
	}
}
