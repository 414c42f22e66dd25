package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/careerportal/internal/utils"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// MemoryLimiter is a fixed-window counter for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

func (r *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, ok := r.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		r.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		r.gc(now)
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

func (r *MemoryLimiter) gc(now time.Time) {
	if len(r.buckets) < 1024 {
		return
	}
	for k, b := range r.buckets {
		if now.After(b.windowEnd) {
			delete(r.buckets, k)
		}
	}
}

// windowScript counts a hit and returns {count, remaining window ms}. A key
// left without an expiry gets one, so a counter can never pin a client.
const windowScript = `
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`

const redisKeyPrefix = "ratelimit:"

// RedisLimiter shares a fixed window across instances. Redis errors let the
// request through.
type RedisLimiter struct {
	client  *redis.Client
	script  *redis.Script
	log     *logrus.Logger
	timeout time.Duration
}

func NewRedisLimiter(client *redis.Client, log *logrus.Logger) *RedisLimiter {
	if client == nil {
		return nil
	}
	if log == nil {
		log = logrus.New()
	}
	return &RedisLimiter{
		client:  client,
		script:  redis.NewScript(windowScript),
		log:     log,
		timeout: 250 * time.Millisecond,
	}
}

func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if l == nil || key == "" || limit <= 0 || window <= 0 {
		return true
	}
	windowMS := max(window.Milliseconds(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	res, err := l.script.Run(ctx, l.client, []string{redisKeyPrefix + key}, windowMS).Int64Slice()
	if err != nil || len(res) != 2 {
		l.log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
		return true
	}

	count, remaining := res[0], res[1]
	if count > int64(limit) {
		l.log.WithFields(logrus.Fields{
			"key":         key,
			"count":       count,
			"retry_in_ms": remaining,
		}).Debug("rate limited")
		return false
	}
	return true
}

// RateLimit rejects requests over limit per window, keyed by client IP.
// onDeny renders the rejection; nil answers with JSON.
func RateLimit(l Limiter, scope string, limit int, window time.Duration, onDeny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || limit <= 0 {
			c.Next()
			return
		}
		if !l.Allow(scope+":"+c.ClientIP(), limit, window) {
			if onDeny != nil {
				onDeny(c)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    utils.CodeRateLimited,
				"message": "Too many attempts. Please wait a moment and try again.",
			})
			return
		}
		c.Next()
	}
}
