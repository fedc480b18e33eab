package sweeper

import "sync/atomic"

type sweeperCounters struct {
	removed atomic.Int64 // expired records deleted
	healed  atomic.Int64 // corrupt records deleted
	scans   atomic.Int64 // per-tier walks performed
	errors  atomic.Int64 // failed walks and deletes
}

func newSweeperCounters() *sweeperCounters {
	return &sweeperCounters{
		removed: atomic.Int64{},
		healed:  atomic.Int64{},
		scans:   atomic.Int64{},
		errors:  atomic.Int64{},
	}
}

func (c *sweeperCounters) snapshot() (removed, healed, scans, errors int64) {
	removed = c.removed.Load()
	healed = c.healed.Load()
	scans = c.scans.Load()
	errors = c.errors.Load()
	return
}
