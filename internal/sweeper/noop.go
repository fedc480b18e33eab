package sweeper

// NoOpSweeper is a no-op implementation of Sweeper.
// It performs no sweeping and reports zero metrics.
type NoOpSweeper struct{}

// SweeperMetrics always returns zero values.
func (NoOpSweeper) SweeperMetrics() (removed, healed, scans, errors int64) {
	return 0, 0, 0, 0
}

// Close does nothing and returns nil.
func (NoOpSweeper) Close() error {
	return nil
}
