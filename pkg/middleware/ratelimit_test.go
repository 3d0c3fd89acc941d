package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_RequestsWithinBurst_Pass(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(ctx, 10, 10, newTestLogger(&buf))(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search/suggest", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}
}

func TestRateLimit_ExceedingBurst_Returns429(t *testing.T) {
	var buf bytes.Buffer
	store := newVisitorStore(0.5, 2, time.Minute)
	handler := rateLimit(store, newTestLogger(&buf))(okHandler())

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search/suggest", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Contains(t, last.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "3", last.Header().Get("Retry-After"))
	assert.Contains(t, buf.String(), "rate limit exceeded")
}

func TestRateLimit_DifferentIPs_IndependentBuckets(t *testing.T) {
	var buf bytes.Buffer
	store := newVisitorStore(1, 1, time.Minute)
	handler := rateLimit(store, newTestLogger(&buf))(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, store.len())
}

func TestVisitorStore_CleanupEvictsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newVisitorStore(1, 1, time.Minute)
	store.nowFunc = func() time.Time { return now }

	store.getVisitor("10.0.0.1")
	now = now.Add(30 * time.Second)
	store.getVisitor("10.0.0.2")
	now = now.Add(45 * time.Second)

	store.cleanup()

	assert.Equal(t, 1, store.len())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain takes first valid", map[string]string{"X-Forwarded-For": "garbage, 203.0.113.7, 10.0.0.1"}, "10.0.0.9:80", "203.0.113.7"},
		{"real ip header", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.9:80", "198.51.100.2"},
		{"remote addr without port", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr unparsable", nil, "pipe", "pipe"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, clientIP(req))
		})
	}
}
