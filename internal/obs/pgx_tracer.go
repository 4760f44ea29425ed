package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type queryTrace struct {
	span  trace.Span
	start time.Time
}

type ctxQueryKey struct{}

// PGXTracer implements pgx.QueryTracer. Besides the otel span per statement
// it accumulates query count and time into the request's performance sample.
type PGXTracer struct{}

// TraceQueryStart starts a span for the SQL statement.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pgx.query")
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	)
	if strings.TrimSpace(data.SQL) != "" {
		span.SetAttributes(attribute.String("db.operation", strings.Fields(data.SQL)[0]))
	}
	return context.WithValue(ctx, ctxQueryKey{}, queryTrace{span: span, start: time.Now()})
}

// TraceQueryEnd ends the span, records any error, and feeds the sample.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qt, ok := ctx.Value(ctxQueryKey{}).(queryTrace)
	if !ok {
		return
	}
	if data.Err != nil {
		qt.span.RecordError(data.Err)
	}
	qt.span.End()
	if sample := SampleFromContext(ctx); sample != nil {
		sample.AddQuery(time.Since(qt.start))
	}
}

func truncateSQL(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > 300 {
		return trimmed[:300] + "..."
	}
	return trimmed
}
