package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limiter := NewFixedWindow(func() time.Time { return clock })

	rejected := 0
	handler := Handler{
		Limiter: limiter,
		Config: Config{
			Key:    func(r *http.Request) string { return r.RemoteAddr },
			Window: time.Minute,
			Max:    2,
		},
		OnRejected: func(*http.Request) { rejected++ },
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := handler.Middleware(next)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/calculate", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		wrapped.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/calculate", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	wrapped.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, 1, rejected)
}

func TestMiddlewarePassesThroughWithoutKeyFunc(t *testing.T) {
	limiter := NewFixedWindow(nil)
	handler := Handler{Limiter: limiter, Config: Config{Window: time.Minute, Max: 0}}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	rec := httptest.NewRecorder()
	handler.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}
