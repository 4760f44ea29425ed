// Package audit records an append-only trail of pricing operations. Entries
// are immutable once written; result summaries carry selected fields only,
// never full payloads.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/naracommerce/backend-crm/internal/obs"
)

// Status classifies the outcome of an audited call.
type Status string

const (
	// StatusSuccess marks a completed operation.
	StatusSuccess Status = "success"
	// StatusError marks an operation that failed after validation.
	StatusError Status = "error"
	// StatusValidationError marks a request rejected before computation.
	StatusValidationError Status = "validation_error"
)

// Entry is one audit record.
type Entry struct {
	CorrelationID string
	Timestamp     time.Time
	Operation     string
	ActorID       string
	ClientIP      string
	UserAgent     string
	Params        string
	Summary       string
	Duration      time.Duration
	Status        Status
	ErrorDetail   string
}

// Sink persists entries to a durable, appendable medium.
type Sink interface {
	Append(e Entry) error
}

// Recorder writes audit entries to the sink and mirrors them as structured
// log lines. Error entries log the error detail separately from the audit
// line itself.
type Recorder struct {
	Sink    Sink
	Logger  zerolog.Logger
	Enabled bool
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Record completes and persists an entry. The correlation id and client
// metadata default from the request context when unset.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || !r.Enabled {
		return
	}
	if e.CorrelationID == "" {
		e.CorrelationID = obs.CorrelationID(ctx)
	}
	if meta := obs.ClientMeta(ctx); meta != nil {
		if e.ClientIP == "" {
			e.ClientIP = meta.IP
		}
		if e.UserAgent == "" {
			e.UserAgent = meta.UserAgent
		}
		if e.ActorID == "" {
			e.ActorID = meta.ActorID
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}

	if r.Sink != nil {
		if err := r.Sink.Append(e); err != nil {
			r.Logger.Error().Err(err).Str("operation", e.Operation).Msg("audit sink append failed")
		}
	}

	evt := r.Logger.Info()
	if e.Status != StatusSuccess {
		evt = r.Logger.Warn()
	}
	evt.
		Str("correlation_id", e.CorrelationID).
		Str("operation", e.Operation).
		Str("status", string(e.Status)).
		Str("params", e.Params).
		Str("summary", e.Summary).
		Int64("duration_ms", e.Duration.Milliseconds()).
		Msg("audit")

	if e.Status == StatusError && e.ErrorDetail != "" {
		r.Logger.Error().
			Str("correlation_id", e.CorrelationID).
			Str("operation", e.Operation).
			Str("error", e.ErrorDetail).
			Msg("operation failed")
	}
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
