package middleware

import (
	"net"
	"net/http"
	"sync"

	"meetsignal/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateLimiterStore stores per-key (per IP) rate limiters.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  make(map[string]*rate.Limiter),
		rate:      r,
		burstSize: burst,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(s.rate, s.burstSize)
		s.limiters[key] = limiter
	}
	return limiter
}

// clientIP extracts the IP part from the request's remote address.
func clientIP(r *http.Request) string {
	// Try X-Forwarded-For first (behind proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := net.ParseIP(xff); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple
// IP-based rate limiting to the action API.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	store := newRateLimiterStore(
		rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond),
		cfg.RateLimiting.HTTP.Burst,
	)

	return func(c *gin.Context) {
		limiter := store.getLimiter(clientIP(c.Request))
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// WSConnectionLimiter throttles websocket connection attempts per IP
// and caps concurrent connections across the process.
type WSConnectionLimiter struct {
	store *rateLimiterStore

	mu        sync.Mutex
	active    int
	maxActive int
}

// NewWSConnectionLimiter builds a limiter from the websocket section of
// the rate-limiting config. Returns nil when rate limiting is disabled;
// a nil limiter admits everything.
func NewWSConnectionLimiter(cfg *config.Config) *WSConnectionLimiter {
	if !cfg.RateLimiting.Enabled {
		return nil
	}
	perMinute := cfg.RateLimiting.WebSocket.ConnectionsPerMinute
	return &WSConnectionLimiter{
		store:     newRateLimiterStore(rate.Limit(float64(perMinute)/60.0), perMinute),
		maxActive: cfg.RateLimiting.WebSocket.MaxConcurrent,
	}
}

// Admit reports whether a new connection from r may proceed. The caller
// must invoke Release for every admitted connection.
func (l *WSConnectionLimiter) Admit(r *http.Request) bool {
	if l == nil {
		return true
	}

	if !l.store.getLimiter(clientIP(r)).Allow() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.maxActive > 0 && l.active >= l.maxActive {
		return false
	}
	l.active++
	return true
}

// Release frees an admitted connection slot.
func (l *WSConnectionLimiter) Release() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}
