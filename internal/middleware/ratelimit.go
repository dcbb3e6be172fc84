package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/onnwee/spacex-launch-tracker/internal/apierr"
)

const (
	ipIdleTimeout   = 3 * time.Minute
	cleanupInterval = 1 * time.Minute
)

// RateLimitConfig holds the dashboard's request limits.
type RateLimitConfig struct {
	GlobalRate  float64 // requests per second allowed globally
	GlobalBurst int
	IPRate      float64 // requests per second allowed per client IP
	IPBurst     int
	// Exempt paths bypass limiting (health checks, scrapes).
	Exempt []string
	Clock  clockwork.Clock
}

// RateLimiter provides rate limiting for the dashboard.
type RateLimiter struct {
	global  *rate.Limiter
	ipRate  rate.Limit
	ipBurst int
	exempt  map[string]bool
	clock   clockwork.Clock

	mu    sync.Mutex
	perIP map[string]*ipLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with global and per-IP limits and
// starts a goroutine that forgets idle IPs until Stop is called.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	rl := &RateLimiter{
		global:  rate.NewLimiter(rate.Limit(cfg.GlobalRate), cfg.GlobalBurst),
		ipRate:  rate.Limit(cfg.IPRate),
		ipBurst: cfg.IPBurst,
		exempt:  make(map[string]bool, len(cfg.Exempt)),
		clock:   cfg.Clock,
		perIP:   make(map[string]*ipLimiter),
		stop:    make(chan struct{}),
	}
	for _, p := range cfg.Exempt {
		rl.exempt[p] = true
	}

	go rl.cleanupStaleEntries()
	return rl
}

// getLimiter returns the rate limiter for a given IP address.
func (rl *RateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.perIP[ip]; ok {
		l.lastSeen = now
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(rl.ipRate, rl.ipBurst), lastSeen: now}
	rl.perIP[ip] = l
	return l.limiter
}

func (rl *RateLimiter) cleanupStaleEntries() {
	ticker := rl.clock.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep removes IP limiters idle for longer than ipIdleTimeout.
func (rl *RateLimiter) sweep() {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.perIP {
		if now.Sub(l.lastSeen) > ipIdleTimeout {
			delete(rl.perIP, ip)
		}
	}
}

func (rl *RateLimiter) trackedIPs() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.perIP)
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Limit returns a middleware handler that enforces rate limits.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		now := rl.clock.Now()

		if !rl.global.AllowN(now, 1) {
			setRetryAfter(w, rl.global)
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitGlobal())
			return
		}

		limiter := rl.getLimiter(getClientIP(r), now)
		if !limiter.AllowN(now, 1) {
			setRetryAfter(w, limiter)
			apierr.WriteErrorWithContext(w, r, apierr.RateLimitIP())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRetryAfter(w http.ResponseWriter, l *rate.Limiter) {
	if l.Limit() <= 0 || l.Limit() == rate.Inf {
		return
	}
	secs := int(math.Ceil(1 / float64(l.Limit())))
	w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
}

// getClientIP extracts the client IP from the request, checking common proxy headers.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; the first is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
