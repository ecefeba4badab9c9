package auth

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter keeps one token bucket per client IP. It fronts /auth so a
// single address cannot brute-force passwords. Buckets idle for longer than
// idleTTL are dropped on the next sweep.
type IPLimiter struct {
	mu      sync.Mutex
	m       map[string]*ipEntry
	r       rate.Limit
	b       int
	idleTTL time.Duration
	lastGC  time.Time
}

type ipEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter allows reqPerSec sustained requests per client IP with the
// given burst. Non-positive values fall back to 1 req/s and a burst of 5.
func NewIPLimiter(reqPerSec float64, burst int) *IPLimiter {
	if reqPerSec <= 0 {
		reqPerSec = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &IPLimiter{
		m:       make(map[string]*ipEntry),
		r:       rate.Limit(reqPerSec),
		b:       burst,
		idleTTL: 10 * time.Minute,
		lastGC:  time.Now(),
	}
}

// Allow reports whether ip may make a request now.
func (l *IPLimiter) Allow(ip string) bool {
	return l.limiterFor(ip).Allow()
}

func (l *IPLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > l.idleTTL {
		for k, e := range l.m {
			if now.Sub(e.lastSeen) > l.idleTTL {
				delete(l.m, k)
			}
		}
		l.lastGC = now
	}

	if e, ok := l.m[ip]; ok {
		e.lastSeen = now
		return e.lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.m[ip] = &ipEntry{lim: lim, lastSeen: now}
	return lim
}

// Middleware answers 429 once a client's bucket is empty. chi's RealIP
// should run first so RemoteAddr reflects the real client.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			writeAuthError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPLimiter) retryAfterSeconds() int {
	if l.r <= 0 {
		return 60
	}
	secs := int(1 / float64(l.r))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
