package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/apperror"
)

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter is a fixed-window counter per client IP.
type rateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

func newRateLimiter(maxRequests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		max:     maxRequests,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateLimitEntry),
	}
}

// allow records a request from ip and reports whether it is within the
// limit, plus how long until the window resets.
func (l *rateLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	// Sweep stale entries opportunistically instead of running a janitor.
	if len(l.entries) > 1024 {
		for k, e := range l.entries {
			if now.Sub(e.windowStart) > 2*l.window {
				delete(l.entries, k)
			}
		}
	}

	e, ok := l.entries[ip]
	if !ok || now.Sub(e.windowStart) > l.window {
		l.entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true, 0
	}
	e.count++
	if e.count > l.max {
		return false, l.window - now.Sub(e.windowStart)
	}
	return true, 0
}

// RateLimit returns middleware that limits state-changing requests per IP
// to maxRequests within window. Reads pass through unchecked. A maxRequests
// of zero or less disables the limit.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	l := newRateLimiter(maxRequests, window)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if maxRequests <= 0 || isSafeMethod(c.Request().Method) {
				return next(c)
			}

			ok, retry := l.allow(c.RealIP())
			if !ok {
				secs := int(retry.Seconds()) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return apperror.NewTooManyRequests("rate limit exceeded, please try again later")
			}
			return next(c)
		}
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
