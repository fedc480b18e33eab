// Package strategy maps an entry's size, remaining TTL, priority and
// category to the set of tiers that should hold it. Pure decision logic over
// configuration; it holds no state and talks to no backend.
package strategy

import (
	"time"

	"github.com/ashish-admin/go-strata-cache/config"
	"github.com/ashish-admin/go-strata-cache/internal/backend"
	"github.com/ashish-admin/go-strata-cache/internal/model"
)

type Selector struct {
	cfg *config.StrategyCfg
}

func New(cfg *config.StrategyCfg) *Selector {
	return &Selector{cfg: cfg}
}

// Select returns the subset of enabled tiers to populate, fastest first.
// Each tier is judged independently by its own rule; a tier whose capacity
// the entry exceeds is never selected. When every rule comes up empty the
// write falls through to the first enabled tier that can hold the entry, so
// a degraded cache still stores somewhere if it can.
func (s *Selector) Select(
	tiers []*backend.Tier,
	sizeBytes int64,
	remaining time.Duration,
	priority model.Priority,
	category string,
) []*backend.Tier {
	selected := make([]*backend.Tier, 0, len(tiers))
	for _, t := range tiers {
		if !t.Enabled() || !t.Fits(sizeBytes) {
			continue
		}
		if s.matches(t.Class(), sizeBytes, remaining, priority, category) {
			selected = append(selected, t)
		}
	}
	if len(selected) > 0 {
		return selected
	}

	// safety net: next-larger enabled tier that fits
	for _, t := range tiers {
		if t.Enabled() && t.Fits(sizeBytes) {
			return []*backend.Tier{t}
		}
	}
	return nil
}

func (s *Selector) matches(
	class backend.Class,
	sizeBytes int64,
	remaining time.Duration,
	priority model.Priority,
	category string,
) bool {
	switch class {
	case backend.ClassVolatile:
		return sizeBytes < s.cfg.MemoryItemLimit &&
			(priority >= model.PriorityHigh || category == model.CategoryCritical)
	case backend.ClassSession:
		return remaining < s.cfg.SessionTTLThreshold &&
			sizeBytes < s.cfg.SessionSizeLimit
	case backend.ClassDurableSmall:
		return remaining >= s.cfg.SessionTTLThreshold &&
			sizeBytes < s.cfg.DurableSmallSizeLimit
	case backend.ClassDurableLarge:
		return sizeBytes >= s.cfg.DurableSmallSizeLimit ||
			remaining > s.cfg.LongTermThreshold
	default:
		return false
	}
}
