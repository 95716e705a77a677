package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedHandler(cfg RateLimitConfig) http.Handler {
	return RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(t *testing.T, h http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := limitedHandler(RateLimitConfig{Max: 5, Window: time.Minute})

	for i := range 5 {
		w := hit(t, h, "192.168.1.1:12345", nil)

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := limitedHandler(RateLimitConfig{Max: 2, Window: time.Minute})

	for range 2 {
		w := hit(t, h, "10.0.0.1:9999", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := hit(t, h, "10.0.0.1:9999", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(http.StatusTooManyRequests), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_IndependentIPs(t *testing.T) {
	h := limitedHandler(RateLimitConfig{Max: 1, Window: time.Minute})

	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.2:1234", nil).Code)
	// Port changes do not make a new client.
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_BucketsByAPIKey(t *testing.T) {
	h := limitedHandler(RateLimitConfig{Max: 1, Window: time.Minute})

	// Two keys behind the same proxy address get separate budgets.
	assert.Equal(t, http.StatusOK,
		hit(t, h, "10.1.1.1:1000", map[string]string{"X-API-Key": "key-a"}).Code)
	assert.Equal(t, http.StatusOK,
		hit(t, h, "10.1.1.1:1000", map[string]string{"X-API-Key": "key-b"}).Code)

	// The same key is limited regardless of source address.
	assert.Equal(t, http.StatusTooManyRequests,
		hit(t, h, "10.9.9.9:2000", map[string]string{"X-API-Key": "key-a"}).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := limitedHandler(RateLimitConfig{Max: 1, Window: time.Minute})
	fwd := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}

	assert.Equal(t, http.StatusOK, hit(t, h, "192.168.1.1:4444", fwd).Code)
	// Same originating client through another proxy hop is still limited.
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "192.168.1.2:5555", fwd).Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := limitedHandler(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Tenant")
		},
	})

	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.1:1", map[string]string{"X-Tenant": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, h, "10.0.0.2:2", map[string]string{"X-Tenant": "a"}).Code)
	assert.Equal(t, http.StatusOK, hit(t, h, "10.0.0.1:1", map[string]string{"X-Tenant": "b"}).Code)
}
