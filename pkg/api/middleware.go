package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CORSMiddleware handles CORS headers
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key, accept, origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimiter tracks request rates per IP
type RateLimiter struct {
	requests map[string]*requestCounter
	limit    int
	window   time.Duration
	mu       sync.Mutex
}

type requestCounter struct {
	count     int
	resetTime time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]*requestCounter),
		limit:    requestsPerMinute,
		window:   time.Minute,
	}
}

// Allow checks if a request should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.evict(now)

	counter, exists := rl.requests[ip]
	if !exists || now.After(counter.resetTime) {
		rl.requests[ip] = &requestCounter{
			count:     1,
			resetTime: now.Add(rl.window),
		}
		return true
	}

	if counter.count >= rl.limit {
		return false
	}

	counter.count++
	return true
}

// evict drops expired counters once the table grows; caller holds mu
func (rl *RateLimiter) evict(now time.Time) {
	if len(rl.requests) < 1024 {
		return
	}
	for ip, counter := range rl.requests {
		if now.After(counter.resetTime) {
			delete(rl.requests, ip)
		}
	}
}

// RateLimitMiddleware applies rate limiting
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "Rate limit exceeded",
				Message: fmt.Sprintf("Maximum %d requests per minute", limiter.limit),
			})
			return
		}

		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// Process request
		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"status":  statusCode,
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"client":  c.ClientIP(),
			"latency": time.Since(startTime),
		})

		switch {
		case statusCode >= 500:
			entry.Error("Request failed")
		case statusCode >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request served")
		}
	}
}

// AuthMiddleware validates API keys
func AuthMiddleware(validAPIKeys map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Missing API key"})
			return
		}

		if !validAPIKeys[apiKey] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid API key"})
			return
		}

		c.Next()
	}
}

// ErrorResponse is a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
