package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/warden/pkg/contextkeys"
	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/observability"
)

// RateLimitConfig defines a fixed request budget per window
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// RateLimiter counts requests per key in Redis so that every instance shares
// the same budget
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	prefix string
}

// NewRateLimiter creates a Redis-backed fixed window rate limiter
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig, prefix string) *RateLimiter {
	if config.WindowDuration <= 0 {
		config.WindowDuration = time.Minute
	}
	if prefix == "" {
		prefix = "warden:ratelimit"
	}

	return &RateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Decision is the outcome of a single Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Allow counts one request against key
func (rl *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := rl.prefix + ":" + key

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("redis error: %w", err)
	}

	resetIn := ttl.Val()
	if resetIn < 0 {
		// First hit in this window, or a counter that lost its expiry
		if err := rl.redis.PExpire(ctx, redisKey, rl.config.WindowDuration).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("redis error: %w", err)
		}
		resetIn = rl.config.WindowDuration
	}

	count := int(incr.Val())
	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= rl.config.RequestsPerWindow,
		Limit:     rl.config.RequestsPerWindow,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

// Reset clears the counter for a key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.prefix+":"+key).Err()
}

// RateLimitMiddleware enforces a RateLimiter per client. Authenticated
// requests are keyed by token subject, everything else by the peer address,
// or by the proxy supplied client address when proxy headers are trusted.
type RateLimitMiddleware struct {
	limiter           *RateLimiter
	logger            *observability.Logger
	trustProxyHeaders bool
}

// NewRateLimitMiddleware creates a new rate limit middleware. logger may be nil.
func NewRateLimitMiddleware(limiter *RateLimiter, logger *observability.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// WithTrustedProxyHeaders keys anonymous clients by X-Forwarded-For and
// X-Real-IP. Enable only behind a proxy that overwrites those headers.
func (m *RateLimitMiddleware) WithTrustedProxyHeaders(trust bool) *RateLimitMiddleware {
	m.trustProxyHeaders = trust
	return m
}

func (m *RateLimitMiddleware) clientAddress(r *http.Request) string {
	if m.trustProxyHeaders {
		return httputil.ClientIP(r)
	}
	return httputil.RemoteIP(r)
}

// Handler wraps an HTTP handler with rate limiting. Redis failures let the
// request through.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + m.clientAddress(r)
		if userID := contextkeys.GetUserID(r.Context()); userID != "" {
			key = "user:" + userID
		}

		decision, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			if m.logger != nil {
				m.logger.WithError(err).Warn("rate limiter unavailable, allowing request")
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(decision.ResetIn).Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(decision.ResetIn.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteTooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
