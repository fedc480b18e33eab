// Package sweeper removes expired and corrupt records from every enabled
// tier in the background. Backends never check expiry on read, the router
// lazily deletes what it happens to touch; the sweeper is what keeps
// durable tiers from accumulating dead records nobody asks for again.
package sweeper

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/model"
	"github.com/ashish-admin/go-strata-cache/internal/shared/random"
	"github.com/ashish-admin/go-strata-cache/internal/shared/rate"
)

const defaultSweepRate = 1000

type Sweeper interface {
	SweeperMetrics() (removed, healed, scans, errors int64)
	Close() error
}

// victim is a single record scheduled for deletion during a sweep.
type victim struct {
	tier    *backend.Tier
	key     string
	corrupt bool
}

type SweepWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.SweepCfg
	tiers    []*backend.Tier
	metrics  metrics.Recorder
	logger   *slog.Logger
	jitter   *rate.Jitter
	counters *sweeperCounters
	invokeCh chan victim
}

func New(
	ctx context.Context,
	cfg *config.SweepCfg,
	logger *slog.Logger,
	tiers []*backend.Tier,
	recorder metrics.Recorder,
) Sweeper {
	if !cfg.Enabled() || len(tiers) == 0 {
		return &NoOpSweeper{}
	}

	ctx, cancel := context.WithCancel(ctx)

	var sweepRate = cfg.Rate
	if sweepRate <= 0 {
		sweepRate = defaultSweepRate
	}

	return (&SweepWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		tiers:    tiers,
		metrics:  recorder,
		logger:   logger,
		jitter:   rate.NewJitter(ctx, sweepRate),
		counters: newSweeperCounters(),
		invokeCh: make(chan victim, sweepRate),
	}).run()
}

func (w *SweepWorker) SweeperMetrics() (removed, healed, scans, errors int64) {
	return w.counters.snapshot()
}

func (w *SweepWorker) Close() error {
	w.cancel()
	return nil
}

func (w *SweepWorker) run() *SweepWorker {
	w.logger.Info("sweeper is running", "interval", w.cfg.Interval, "rate", w.cfg.Rate)

	go func() {
		defer w.logger.Info("sweeper is stopped")
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

// provider walks all tiers once per interval and feeds victims to consumers.
// The first sweep is delayed by a random fraction of the interval so that
// many caches started together do not hammer their backends in lockstep.
func (w *SweepWorker) provider() {
	initial := time.Duration(random.Float64() * float64(w.cfg.Interval))
	first := time.NewTimer(initial)
	defer first.Stop()

	select {
	case <-w.ctx.Done():
		return
	case <-first.C:
	}

	tick := time.NewTicker(w.cfg.Interval)
	defer tick.Stop()

	for {
		w.sweep()
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (w *SweepWorker) sweep() {
	now := time.Now().UnixNano()
	for _, tier := range w.tiers {
		if !tier.Enabled() {
			continue
		}
		w.counters.scans.Add(1)

		// Backends hold shard or transaction locks for the duration of a
		// walk, and the consumers' deletes take those same locks. Victims
		// are therefore collected under the walk and dispatched only after
		// it returns; a blocking send from inside the callback would park
		// the walk on a full channel while consumers wait behind its lock.
		var victims []victim
		err := tier.Backend().Walk(w.ctx, func(key string, e *model.Entry, walkErr error) bool {
			if walkErr != nil {
				victims = append(victims, victim{tier: tier, key: key, corrupt: true})
			} else if e.IsExpired(now) {
				victims = append(victims, victim{tier: tier, key: key})
			}
			return true
		})
		if err != nil {
			w.counters.errors.Add(1)
			w.logger.Warn("sweep walk failed", "tier", tier.Name(), "error", err)
		}

		for _, v := range victims {
			if !w.dispatch(v) {
				return
			}
		}
	}
}

func (w *SweepWorker) dispatch(v victim) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.invokeCh <- v:
		return true
	}
}

// consumer deletes victims at the configured pace so sweeps interleave
// with foreground traffic instead of saturating backend locks.
func (w *SweepWorker) consumer() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case v := <-w.invokeCh:
			w.jitter.Take()
			if _, err := v.tier.Backend().Delete(w.ctx, v.key); err != nil {
				w.counters.errors.Add(1)
				continue
			}
			if v.corrupt {
				w.counters.healed.Add(1)
				w.metrics.CorruptHealed(1)
			} else {
				w.counters.removed.Add(1)
				w.metrics.Expired(1)
			}
		}
	}
}
