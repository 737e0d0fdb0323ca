package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-travel-planner/internal/infra/config"
)

func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last().Err
		httpErr := asHTTPError(last)
		if httpErr.Code == "internal_error" {
			httpErr = fromDomainError(last)
		}
		message := httpErr.Message
		if message == "" {
			message = httpErr.Error()
		}

		attrs := []any{"code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err}
		if id, ok := getSessionID(c); ok {
			attrs = append(attrs, "session_id", id)
		}
		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request failed", attrs...)
		}

		c.JSON(httpErr.Status, gin.H{
			"error": gin.H{
				"code":    httpErr.Code,
				"message": message,
			},
		})
	}
}

// limitKey picks the bucket a request draws from.
type limitKey func(c *gin.Context) string

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// sessionKey scopes a bucket to the caller's session so one tab polling reports
// cannot spend another session's generation budget behind the same NAT.
func sessionKey(c *gin.Context) string {
	id, _ := getSessionID(c)
	return c.ClientIP() + "|" + id
}

// rateLimitMiddleware enforces a token bucket per key. name labels the bucket in
// logs so read and generation throttling can be told apart.
func rateLimitMiddleware(name string, perMinute, burst int, key limitKey, logger *slog.Logger) gin.HandlerFunc {
	if perMinute <= 0 || burst <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newTokenBuckets(perMinute, burst)
	return func(c *gin.Context) {
		k := key(c)
		ok, retryAfter := limiter.take(k, time.Now())
		if ok {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "bucket", name, "key", k, "path", c.Request.URL.Path)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

// readLimit covers every API route; generationLimit only the routes that run the agent.
func readLimit(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return rateLimitMiddleware("reads", cfg.RequestsPerMinute, cfg.Burst, clientIPKey, logger)
}

func generationLimit(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return rateLimitMiddleware("generation", cfg.GenerationPerMinute, cfg.GenerationBurst, sessionKey, logger)
}

type tokenBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute float64
	burst     float64
	idle      time.Duration
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func newTokenBuckets(perMinute, burst int) *tokenBuckets {
	return &tokenBuckets{
		buckets:   make(map[string]*bucket),
		perMinute: float64(perMinute),
		burst:     float64(burst),
		idle:      5 * time.Minute,
	}
}

// take spends one token for key. When the bucket is empty it reports how long
// until the next token is available.
func (b *tokenBuckets) take(key string, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.buckets[key]
	if !ok {
		entry = &bucket{tokens: b.burst, lastSeen: now}
		b.buckets[key] = entry
	} else if elapsed := now.Sub(entry.lastSeen).Minutes(); elapsed > 0 {
		entry.tokens = math.Min(b.burst, entry.tokens+elapsed*b.perMinute)
		entry.lastSeen = now
	}
	b.evictIdle(now)

	if entry.tokens < 1 {
		missing := 1 - entry.tokens
		wait := time.Duration(missing / b.perMinute * float64(time.Minute))
		return false, wait
	}
	entry.tokens--
	return true, 0
}

func (b *tokenBuckets) evictIdle(now time.Time) {
	for key, entry := range b.buckets {
		if now.Sub(entry.lastSeen) > b.idle {
			delete(b.buckets, key)
		}
	}
}
