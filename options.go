package stratacache

import (
	"time"

	"github.com/ashish-admin/go-strata-cache/internal/metrics"
	"github.com/ashish-admin/go-strata-cache/internal/model"
)

// Priority orders entries by importance for tier routing.
type Priority = model.Priority

const (
	PriorityLow      = model.PriorityLow
	PriorityNormal   = model.PriorityNormal
	PriorityHigh     = model.PriorityHigh
	PriorityCritical = model.PriorityCritical
)

// CategoryCritical forces volatile-tier admission regardless of priority.
const CategoryCritical = model.CategoryCritical

// Stats is a point-in-time snapshot of the cache counters.
type Stats = metrics.Stats

type setOptions struct {
	ttl      time.Duration
	priority Priority
	category string
}

// SetOption customizes a single Set call.
type SetOption func(*setOptions)

// WithTTL overrides the configured default TTL. Non-positive values fall
// back to the default.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = ttl }
}

// WithPriority tags the entry for routing; high and critical entries are
// admitted to the volatile tier.
func WithPriority(p Priority) SetOption {
	return func(o *setOptions) { o.priority = p }
}

// WithCategory groups entries for targeted Clear calls.
func WithCategory(category string) SetOption {
	return func(o *setOptions) { o.category = category }
}
