package metrics

// NoOpRecorder drops every observation and reports zero stats. Used when
// metrics are disabled in config.
type NoOpRecorder struct{}

var _ Recorder = NoOpRecorder{}

func (NoOpRecorder) Hit(string)             {}
func (NoOpRecorder) Miss()                  {}
func (NoOpRecorder) Set()                   {}
func (NoOpRecorder) Delete()                {}
func (NoOpRecorder) Evicted(int64, int64)   {}
func (NoOpRecorder) Expired(int64)          {}
func (NoOpRecorder) CorruptHealed(int64)    {}
func (NoOpRecorder) CompressionSaved(int64) {}
func (NoOpRecorder) CompressionFailure()    {}
func (NoOpRecorder) TierUnavailable(string) {}

func (NoOpRecorder) Snapshot() Stats {
	return Stats{TierHits: map[string]int64{}}
}
