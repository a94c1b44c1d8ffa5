package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"mindhub/config"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// ipRateLimiter hält einen Token-Bucket pro Client-IP.
type ipRateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{limit: rate.Limit(perSecond), burst: burst}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	if v, ok := l.limiters.Load(ip); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.limiters.LoadOrStore(ip, rate.NewLimiter(l.limit, l.burst))
	return v.(*rate.Limiter)
}

// rateLimitMiddleware antwortet bei Überschreitung mit 429 und der leeren Suchantwort.
func rateLimitMiddleware(l *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.get(c.ClientIP()).Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"providers":  []any{},
			"totalCount": 0,
			"error":      "too many requests",
		})
	}
}
