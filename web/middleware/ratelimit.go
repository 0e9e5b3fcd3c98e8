package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/web/entity"
	"github.com/bookshelf/bookshelf/web/locale"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
	KeyFunc           func(c *gin.Context) string
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		BurstSize:         5,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		IdleTTL: 10 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.ttl {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.ttl {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimitMiddleware answers 429 once a client exhausts its token bucket.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	def := DefaultRateLimitConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = def.BurstSize
	}
	if config.KeyFunc == nil {
		config.KeyFunc = def.KeyFunc
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}

	set := &limiterSet{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(float64(config.RequestsPerMinute) / 60),
		burst:     config.BurstSize,
		ttl:       config.IdleTTL,
		lastSweep: time.Now(),
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		now := time.Now()
		r := set.get(key, now).ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			logger.Warningf("Rate limit exceeded for %s on %s", key, c.Request.URL.Path)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, entity.ErrorMsg{
				Error: locale.I18n(locale.Lang(c), "errors.tooManyRequests"),
			})
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerMinute))
		c.Next()
	}
}
