package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// requestLogger emits one structured log line per request.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// clientLimiters tracks one token bucket per client IP. Entries idle longer
// than clientTTL are dropped on the next sweep.
type clientLimiters struct {
	mu      sync.Mutex
	rps     float64
	burst   int
	clients map[string]*clientEntry
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const clientTTL = 5 * time.Minute

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	entry, ok := cl.clients[ip]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(rate.Limit(cl.rps), cl.burst)}
		cl.clients[ip] = entry
	}
	entry.lastSeen = now

	if len(cl.clients) > 1000 {
		for k, e := range cl.clients {
			if now.Sub(e.lastSeen) > clientTTL {
				delete(cl.clients, k)
			}
		}
	}
	return entry.limiter
}

// rateLimit rejects requests above rps per client IP with 429.
func rateLimit(rps float64, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	limiters := &clientLimiters{
		rps:     rps,
		burst:   burst,
		clients: make(map[string]*clientEntry),
	}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error: errorInfo{Code: "RATE_LIMITED", Message: "too many requests"},
			})
			return
		}
		c.Next()
	}
}
