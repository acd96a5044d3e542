package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limitedGet(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterWithinBudget(t *testing.T) {
	handler := RateLimiter(RateLimitConfig{RequestsPerSecond: 100, Burst: 10})(okHandler())

	for range 5 {
		rec := limitedGet(handler, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiterOverBurst(t *testing.T) {
	handler := RateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})(okHandler())

	require.Equal(t, http.StatusOK, limitedGet(handler, "").Code)
	require.Equal(t, http.StatusOK, limitedGet(handler, "").Code)

	rec := limitedGet(handler, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimiterBucketsPerClient(t *testing.T) {
	handler := RateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})(okHandler())

	require.Equal(t, http.StatusOK, limitedGet(handler, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, limitedGet(handler, "10.0.0.1:2000").Code,
		"same IP shares a bucket regardless of source port")
	assert.Equal(t, http.StatusOK, limitedGet(handler, "10.0.0.2:1000").Code,
		"a different client starts with a full bucket")
}

func TestClientIPIgnoresForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4444"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "[::1]:4444"
	assert.Equal(t, "::1", clientIP(req))
}
