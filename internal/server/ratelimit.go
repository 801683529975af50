package server

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewRateLimiter allows each client requestsPerSecond on average, with
// bursts of up to burst requests.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

func (rl *RateLimiter) forClient(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.clients[ip]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients[ip] = l
	}
	return l
}

// allow takes a token for ip. When none is available it reports how long
// the client has to wait for the next one.
func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	res := rl.forClient(ip).Reserve()
	if !res.OK() {
		return false, time.Duration(math.MaxInt64)
	}

	wait := res.Delay()
	if wait == 0 {
		return true, 0
	}
	res.Cancel()
	return false, wait
}

// retryAfter renders wait as whole seconds for the Retry-After header,
// never less than one.
func retryAfter(wait time.Duration) string {
	secs := math.Ceil(wait.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(int64(secs), 10)
}

// Middleware rejects requests over the client's limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", retryAfter(wait))
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please slow down.", "rate_limit_exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Prune drops clients whose bucket has refilled, i.e. idle ones.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, l := range rl.clients {
		if l.Tokens() >= float64(rl.burst) {
			delete(rl.clients, ip)
		}
	}
}

// StartPeriodicCleanup prunes idle clients every interval until ctx is done.
func (rl *RateLimiter) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Prune()
			}
		}
	}()
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
