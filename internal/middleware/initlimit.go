package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const initLimitCleanupPeriod = 5 * time.Minute

type initAttempt struct {
	count       int
	windowStart time.Time
}

// InitRateLimiter bounds how often one IP may mint new session tokens.
// It is separate from the chat rate limiter: token creation is cheap for
// the server but each token resets the caller's 30-minute window, so
// unbounded minting would let a client sidestep session accounting.
type InitRateLimiter struct {
	mu          sync.RWMutex
	attempts    map[string]*initAttempt
	maxAttempts int
	window      time.Duration
	lastCleanup time.Time
}

func NewInitRateLimiter(maxAttempts int, window time.Duration) *InitRateLimiter {
	return &InitRateLimiter{
		attempts:    make(map[string]*initAttempt),
		maxAttempts: maxAttempts,
		window:      window,
		lastCleanup: time.Now(),
	}
}

func (l *InitRateLimiter) cleanup() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < initLimitCleanupPeriod {
		return
	}
	l.lastCleanup = now

	for ip, attempt := range l.attempts {
		if now.Sub(attempt.windowStart) > l.window {
			delete(l.attempts, ip)
		}
	}
}

func (l *InitRateLimiter) isAllowed(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()

	now := time.Now()
	attempt, exists := l.attempts[ip]

	if !exists {
		l.attempts[ip] = &initAttempt{
			count:       1,
			windowStart: now,
		}
		return true
	}

	if now.Sub(attempt.windowStart) > l.window {
		attempt.count = 1
		attempt.windowStart = now
		return true
	}

	if attempt.count >= l.maxAttempts {
		return false
	}

	attempt.count++
	return true
}

func (l *InitRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = forwarded
		}

		if !l.isAllowed(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many session requests. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
