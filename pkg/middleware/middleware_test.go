package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labring/sunmi-print-server/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: simple next handler that writes status and body
func okHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestTokenAuth(t *testing.T) {
	mw := TokenAuth("secret", []string{"/health"})

	tests := []struct {
		name         string
		path         string
		headers      map[string]string
		expectedCode int
	}{
		{"missing header", "/api/v1/logs", map[string]string{}, http.StatusUnauthorized},
		{"wrong scheme", "/api/v1/logs", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
		{"wrong token", "/api/v1/logs", map[string]string{"Authorization": "Bearer wrong"}, http.StatusUnauthorized},
		{"correct token", "/api/v1/logs", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"skip path without header", "/health", map[string]string{}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()

			mw(okHandler(http.StatusOK, "ok")).ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedCode, rr.Code)
			if rr.Code == http.StatusUnauthorized {
				assert.Contains(t, rr.Body.String(), "Unauthorized")
			}
		})
	}
}

func TestLogger_TraceID(t *testing.T) {
	mw := Logger()

	t.Run("generated when missing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		mw(okHandler(http.StatusOK, "ok")).ServeHTTP(rr, httptest.NewRequest("GET", "/path", nil))
		assert.Len(t, rr.Header().Get("X-Trace-ID"), 36, "uuid trace id expected")
	})

	t.Run("passed through when provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/path", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		rr := httptest.NewRecorder()
		mw(okHandler(http.StatusCreated, "created")).ServeHTTP(rr, req)
		assert.Equal(t, "trace-123", rr.Header().Get("X-Trace-ID"))
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("available to downstream handlers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ctx", nil)
		req.Header.Set("X-Trace-ID", "trace-ctx-xyz")
		rr := httptest.NewRecorder()
		echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(TraceID(r.Context())))
		})
		mw(echo).ServeHTTP(rr, req)
		assert.Equal(t, "trace-ctx-xyz", rr.Body.String())
	})
}

func TestRecovery(t *testing.T) {
	testCases := []struct {
		name     string
		panicVal any
		message  string
	}{
		{"error value", assertError("driver exploded"), "driver exploded"},
		{"non-error value", 42, "Unknown error occurred"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := Recovery()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tc.panicVal)
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			var resp common.Response[struct{}]
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, common.StatusPanic, resp.Status)
			assert.Equal(t, tc.message, resp.Message)
		})
	}
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mk("a"), mk("b"), mk("c"))(okHandler(http.StatusOK, "ok"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst then reject", func(t *testing.T) {
		rl := NewRateLimiter(1, 2)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		assert.True(t, rl.Allow("a"))
		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.True(t, rl.Allow("b"), "clients have separate buckets")

		now = now.Add(time.Second)
		assert.True(t, rl.Allow("a"), "token refilled after a second")
	})

	t.Run("idle clients expire", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		rl.Allow("a")
		now = now.Add(rateLimiterExpiry + time.Second)
		rl.Allow("b")

		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.NotContains(t, rl.clients, "a")
		assert.Contains(t, rl.clients, "b")
	})

	t.Run("middleware returns 429", func(t *testing.T) {
		rl := NewRateLimiter(0.001, 1)
		h := rl.Middleware()(okHandler(http.StatusOK, "ok"))

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest("POST", "/api/v1/actions/print-test", nil))
		assert.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest("POST", "/api/v1/actions/print-test", nil))
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Contains(t, second.Body.String(), "rate_limited")
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", clientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(req))
}
