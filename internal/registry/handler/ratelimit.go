package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	clients map[string]*clientLimiter
}

func (l *clientLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than limiterIdleTTL.
func (l *clientLimiters) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(l.clients, ip)
		}
	}
}

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. rps is the steady-state requests per second; burst is the
// maximum burst size. Idle entries are swept every five minutes until done
// is closed; a nil done sweeps for the life of the process.
func RateLimiter(rps, burst int, done <-chan struct{}) gin.HandlerFunc {
	limiters := &clientLimiters{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiters.sweep(now)
			case <-done:
				return
			}
		}
	}()

	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
