package obs

import "context"

type correlationKey struct{}

// WithCorrelationID stores the request correlation id on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID extracts the correlation id from context if present.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}

// Meta carries client metadata captured at the boundary for audit records.
type Meta struct {
	IP        string
	UserAgent string
	ActorID   string
}

type clientMetaKey struct{}

// WithClientMeta stores client metadata on the context.
func WithClientMeta(ctx context.Context, meta *Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientMetaKey{}, meta)
}

// ClientMeta extracts client metadata from context if present.
func ClientMeta(ctx context.Context) *Meta {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(clientMetaKey{}).(*Meta); ok {
		return v
	}
	return nil
}

type routePatternKey struct{}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

type sampleKey struct{}

// WithSample attaches a performance sample to the context so downstream
// collaborators (the pgx tracer in particular) can accumulate into it.
func WithSample(ctx context.Context, s *Sample) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sampleKey{}, s)
}

// SampleFromContext extracts the performance sample if present.
func SampleFromContext(ctx context.Context) *Sample {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(sampleKey{}).(*Sample); ok {
		return v
	}
	return nil
}
