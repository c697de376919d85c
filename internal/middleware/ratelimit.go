package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/joshuanoeldeke/RespectCircle/internal/telemetry"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	metrics  *telemetry.Metrics
	proxies  []netip.Prefix

	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
// Buckets idle for longer than 3 minutes are dropped by a background loop
// that runs until Stop. Forwarding headers are only believed on requests
// arriving from one of the trusted proxies.
func NewRateLimiter(rps rate.Limit, burst int, metrics *telemetry.Metrics, trusted ...netip.Prefix) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rps,
		burst:    burst,
		idle:     3 * time.Minute,
		metrics:  metrics,
		proxies:  trusted,
		done:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
}

func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiter(ip).Allow()
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

// Limit rejects requests over the limit with 429. API paths get a JSON body.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.proxies)
		if rl.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		rl.metrics.RateLimited()
		slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)

		w.Header().Set("Retry-After", "1")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
	})
}

// RateLimitAuth returns the limiter for auth endpoints: bursts of 5,
// refilled one every 3 minutes per IP.
func RateLimitAuth(metrics *telemetry.Metrics, trusted ...netip.Prefix) *RateLimiter {
	return NewRateLimiter(rate.Every(3*time.Minute), 5, metrics, trusted...)
}

// LimitFunc is Limit for a single route handler.
func (rl *RateLimiter) LimitFunc(next http.HandlerFunc) http.HandlerFunc {
	return rl.Limit(next).ServeHTTP
}

// clientIP returns the address the request came from. X-Forwarded-For and
// X-Real-IP are only honoured when the direct peer is a trusted proxy; the
// forwarded chain is then walked from the right, skipping further trusted
// hops, so a client cannot pick its own address by prepending entries.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := remoteIP(r)
	if !isTrusted(remote, trusted) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
