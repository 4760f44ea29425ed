package obs

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Sample accumulates performance data for one request: wall time, db query
// count/time, response size. It lives on the request context and is
// discarded after the final log write.
type Sample struct {
	CorrelationID string
	StartedAt     time.Time

	dbQueries     atomic.Int64
	dbTimeNanos   atomic.Int64
	responseBytes atomic.Int64
}

// NewSample starts a sample for the given correlation id.
func NewSample(correlationID string, start time.Time) *Sample {
	return &Sample{CorrelationID: correlationID, StartedAt: start}
}

// AddQuery records one database query and its duration.
func (s *Sample) AddQuery(d time.Duration) {
	if s == nil {
		return
	}
	s.dbQueries.Add(1)
	s.dbTimeNanos.Add(int64(d))
}

// SetResponseBytes records the size of the serialized response.
func (s *Sample) SetResponseBytes(n int64) {
	if s == nil {
		return
	}
	s.responseBytes.Store(n)
}

// DBQueries reports the number of recorded queries.
func (s *Sample) DBQueries() int64 {
	if s == nil {
		return 0
	}
	return s.dbQueries.Load()
}

// DBTime reports the accumulated query time.
func (s *Sample) DBTime() time.Duration {
	if s == nil {
		return 0
	}
	return time.Duration(s.dbTimeNanos.Load())
}

// ResponseBytes reports the recorded response size.
func (s *Sample) ResponseBytes() int64 {
	if s == nil {
		return 0
	}
	return s.responseBytes.Load()
}

// PerfTracker finalises samples: it logs one performance line per request
// and emits warnings (never failures) when the duration or heap use crosses
// its threshold.
type PerfTracker struct {
	Logger        zerolog.Logger
	SlowThreshold time.Duration
	HeapWarnBytes uint64
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Finish computes the final sample values and writes the performance log.
func (t PerfTracker) Finish(_ context.Context, s *Sample, status int) {
	if s == nil {
		return
	}
	duration := t.now().Sub(s.StartedAt)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	t.Logger.Info().
		Str("correlation_id", s.CorrelationID).
		Int("status", status).
		Int64("duration_ms", duration.Milliseconds()).
		Int64("db_queries", s.DBQueries()).
		Int64("db_time_ms", s.DBTime().Milliseconds()).
		Int64("response_bytes", s.ResponseBytes()).
		Uint64("heap_alloc_bytes", mem.HeapAlloc).
		Msg("performance")

	if t.SlowThreshold > 0 && duration > t.SlowThreshold {
		t.Logger.Warn().
			Str("correlation_id", s.CorrelationID).
			Int64("duration_ms", duration.Milliseconds()).
			Int64("threshold_ms", t.SlowThreshold.Milliseconds()).
			Msg("slow request")
	}
	if t.HeapWarnBytes > 0 && mem.HeapAlloc > t.HeapWarnBytes {
		t.Logger.Warn().
			Str("correlation_id", s.CorrelationID).
			Uint64("heap_alloc_bytes", mem.HeapAlloc).
			Uint64("threshold_bytes", t.HeapWarnBytes).
			Msg("high heap usage")
	}
}

func (t PerfTracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
