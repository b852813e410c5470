package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter caps requests per client IP to a fixed allowance per window.
// State lives in process memory, so a multi-instance deployment limits per
// instance, not globally.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindow
	allowance int
	window    time.Duration
	logger    *zap.Logger
}

type clientWindow struct {
	remaining   int
	windowStart time.Time
}

// NewRateLimiter creates a limiter granting each client IP the given number
// of requests per window. A background sweep evicts idle clients so the map
// stays bounded.
func NewRateLimiter(allowance int, window time.Duration, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients:   make(map[string]*clientWindow),
		allowance: allowance,
		window:    window,
		logger:    logger,
	}
	go rl.sweep()
	return rl
}

// Allow reports whether a request from ip fits inside its current window
func (rl *RateLimiter) Allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok || now.Sub(c.windowStart) >= rl.window {
		rl.clients[ip] = &clientWindow{remaining: rl.allowance - 1, windowStart: now}
		return true
	}
	if c.remaining > 0 {
		c.remaining--
		return true
	}
	return false
}

// sweep evicts clients idle for two full windows
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		evicted := 0
		for ip, c := range rl.clients {
			if now.Sub(c.windowStart) > 2*rl.window {
				delete(rl.clients, ip)
				evicted++
			}
		}
		tracked := len(rl.clients)
		rl.mu.Unlock()

		if evicted > 0 {
			rl.logger.Debug("rate limiter swept idle clients",
				zap.Int("evicted", evicted),
				zap.Int("tracked", tracked))
		}
	}
}

// GetClientIP extracts the originating client IP, preferring proxy headers
// over the socket address
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// the first address is the originating client; proxies append theirs
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return strings.TrimSpace(forwarded)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
