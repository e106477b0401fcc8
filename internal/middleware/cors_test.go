package middleware

import (
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

func TestCORSMiddleware(t *testing.T) {
	middleware := NewCORSMiddleware([]string{"http://localhost:5173", "capacitor://localhost"})
	handler := middleware.Handler(okHandler())

	t.Run("passes requests without an origin", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allows listed origin and echoes it", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", nil)
		req.Header.Set("Origin", "capacitor://localhost")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "capacitor://localhost", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("rejects unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("answers preflight without invoking the handler", func(t *testing.T) {
		called := false
		preflight := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()

		preflight.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, called)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestInitRateLimiter(t *testing.T) {
	t.Run("allows attempts under the limit", func(t *testing.T) {
		limiter := NewInitRateLimiter(3, time.Minute)
		handler := limiter.Handler(okHandler())

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("POST", "/api/session/init", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("blocks the attempt over the limit", func(t *testing.T) {
		limiter := NewInitRateLimiter(2, time.Minute)
		handler := limiter.Handler(okHandler())

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("POST", "/api/session/init", nil)
			req.RemoteAddr = "10.0.0.2:1234"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
		}

		req := httptest.NewRequest("POST", "/api/session/init", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("tracks IPs separately", func(t *testing.T) {
		limiter := NewInitRateLimiter(1, time.Minute)
		handler := limiter.Handler(okHandler())

		req := httptest.NewRequest("POST", "/api/session/init", nil)
		req.RemoteAddr = "10.0.0.3:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		req = httptest.NewRequest("POST", "/api/session/init", nil)
		req.RemoteAddr = "10.0.0.4:1234"
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("prefers X-Forwarded-For as identity", func(t *testing.T) {
		limiter := NewInitRateLimiter(1, time.Minute)
		handler := limiter.Handler(okHandler())

		for _, addr := range []string{"10.0.0.5:1", "10.0.0.6:2"} {
			req := httptest.NewRequest("POST", "/api/session/init", nil)
			req.RemoteAddr = addr
			req.Header.Set("X-Forwarded-For", "203.0.113.9")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if addr == "10.0.0.5:1" {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			}
		}
	})
}
