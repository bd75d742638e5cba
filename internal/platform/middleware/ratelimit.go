package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"refledger/pkg/platform/httputil"
	"refledger/pkg/requestcontext"
)

// RateLimiter is a sliding-window request limiter keyed by acting identity,
// falling back to the remote address before authentication. The window is
// in-memory; one gateway instance fronts the ledger.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	buckets   map[string][]time.Time
	lastSweep time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key and reports whether it fits the window,
// along with the remaining budget and when the window resets.
func (l *RateLimiter) Allow(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	l.sweep(cutoff, now)
	kept := l.buckets[key][:0]
	for _, ts := range l.buckets[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.buckets[key] = kept
		return false, 0, kept[0].Add(l.window)
	}

	kept = append(kept, now)
	l.buckets[key] = kept
	return true, l.limit - len(kept), kept[0].Add(l.window)
}

// sweep drops keys whose window has fully drained, at most once per window,
// so the bucket map does not accumulate one entry per actor ever seen.
// Callers hold the mutex.
func (l *RateLimiter) sweep(cutoff, now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, timestamps := range l.buckets {
		stale := true
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(l.buckets, key)
		}
	}
}

// Limit rejects requests past the window with 429 and X-RateLimit headers.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := requestcontext.Actor(r.Context())
		if key == "" {
			key = remoteHost(r)
		}

		now := time.Now()
		allowed, remaining, resetAt := l.Allow(key, now)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(resetAt.Sub(now).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please try again later.",
				"retry_after": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
