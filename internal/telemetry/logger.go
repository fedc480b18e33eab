// Package telemetry periodically logs cache activity as per-interval
// deltas together with per-tier storage usage.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/evictor"
	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/shared/bytes"
	"github.com/ashish-admin/go-strata-cache/internal/sweeper"
)

const defaultInterval = time.Minute

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Cache
	logger   *slog.Logger
	tiers    []*backend.Tier
	sampler  sampler
	interval time.Duration
}

func New(
	ctx context.Context,
	cfg *config.Cache,
	logger *slog.Logger,
	tiers []*backend.Tier,
	recorder metrics.Recorder,
	evictor evictor.Evictor,
	sweeper sweeper.Sweeper,
) *Logs {
	ctx, cancel := context.WithCancel(ctx)

	interval := defaultInterval
	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval > 0 {
		interval = cfg.Telemetry.Interval
	}

	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		tiers:    tiers,
		sampler:  newSampler(recorder, evictor, sweeper),
		interval: interval,
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	if l.cfg.Telemetry.Enabled() {
		go l.loop()
	}
	return l
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var softLimit = "INF"
	if l.cfg.Eviction.Enabled() {
		softLimit = bytes.FmtMem(uint64(l.cfg.Eviction.SoftMemoryLimitBytes))
	}

	prev := l.sampler.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := l.sampler.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			common := []any{"interval", l.interval.String()}

			l.logger.Info("traffic",
				append(common,
					"hits", int64(d.hits),
					"misses", int64(d.misses),
					"sets", int64(d.sets),
					"deletes", int64(d.deletes),
					"hit_rate", cur.hitRate,
				)...,
			)

			if l.cfg.Eviction.Enabled() {
				l.logger.Info("soft_evictor",
					append(common,
						"scans", int64(d.softScans),
						"hits", int64(d.softHits),
						"freed_items", int64(d.softEvictedItems),
						"freed_bytes", bytes.FmtMem(d.softEvictedBytes),
					)...,
				)
			}

			if d.hardEvictedItems > 0 || d.hardEvictedBytes > 0 {
				l.logger.Info("hard_evictor",
					append(common,
						"freed_items", int64(d.hardEvictedItems),
						"freed_bytes", bytes.FmtMem(d.hardEvictedBytes),
					)...,
				)
			}

			if l.cfg.Sweep.Enabled() {
				l.logger.Info("sweeper",
					append(common,
						"removed", int64(d.sweepRemoved),
						"healed", int64(d.sweepHealed),
						"scans", int64(d.sweepScans),
						"errors", int64(d.sweepErrors),
					)...,
				)
			}

			if d.compressionSavedBytes > 0 || d.compressionFailures > 0 {
				l.logger.Info("compression",
					append(common,
						"saved_bytes", bytes.FmtMem(d.compressionSavedBytes),
						"failures", int64(d.compressionFailures),
					)...,
				)
			}

			l.logTierUsage(softLimit)
		}
	}
}

func (l *Logs) logTierUsage(softLimit string) {
	for _, tier := range l.tiers {
		usage := tier.Usage(l.ctx)

		var hardLimit = "INF"
		if tier.Capacity() > 0 {
			hardLimit = bytes.FmtMem(uint64(tier.Capacity()))
		}

		args := []any{
			"tier", tier.Name(),
			"size", bytes.FmtMem(uint64(usage.UsedBytes)),
			"entries", usage.Items,
			"hard_limit", hardLimit,
		}
		if tier.Class() == backend.ClassVolatile {
			args = append(args, "soft_limit", softLimit)
		}
		l.logger.Info("storage", args...)
	}
}
