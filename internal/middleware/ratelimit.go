package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/volunteerconnect/event-registration/internal/config"
)

// takeToken refills the bucket at KEYS[1] by whole intervals and takes one
// token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
	tokens, stamp = capacity, now
end

if interval > 0 and refill > 0 and now > stamp then
	local steps = math.floor((now - stamp) / interval)
	if steps > 0 then
		tokens = math.min(capacity, tokens + steps * refill)
		stamp = stamp + steps * interval
	end
end

local allowed, wait = 0, 0
if tokens >= 1 then
	allowed, tokens = 1, tokens - 1
else
	wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, tokens, wait}
`)

// bucketResult is the decoded reply of takeToken.
type bucketResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

func parseBucketResult(v any) (bucketResult, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return bucketResult{}, false
	}
	nums := make([]int64, 3)
	for i, x := range arr {
		n, ok := x.(int64)
		if !ok {
			return bucketResult{}, false
		}
		nums[i] = n
	}
	return bucketResult{
		Allowed:    nums[0] == 1,
		Remaining:  nums[1],
		RetryAfter: time.Duration(nums[2]) * time.Millisecond,
	}, true
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewTokenBucket limits requests with a Redis-backed token bucket keyed by
// cfg.KeyStrategy.  It is a no-op when disabled or when rdb is nil, and fails
// open when Redis errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttlSeconds := max(int64(cfg.TTL/time.Second), 1)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := buildRateKey(cfg, c)

			reply, err := takeToken.Run(ctx, rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), ttlSeconds).Result()
			if err != nil {
				log.WarnContext(ctx, "ratelimit: redis error", "key", key, "error", err)
				return next(c)
			}
			res, ok := parseBucketResult(reply)
			if !ok {
				log.WarnContext(ctx, "ratelimit: unexpected script reply", "key", key)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res.Allowed {
				return next(c)
			}

			secs := int((res.RetryAfter + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			log.DebugContext(ctx, "ratelimit: blocked", "key", key, "retry_after", res.RetryAfter)
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"code":        "TOO_MANY_REQUESTS",
				"retry_after": secs,
			})
		}
	}
}

// buildRateKey composes the bucket key from the parts cfg.KeyStrategy
// names: ip, user and route, joined by underscores.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" {
		strategy = "ip_user_route"
	}
	parts := []string{cfg.Prefix}
	for _, part := range strings.Split(strategy, "_") {
		switch part {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, "ip", ip)
		case "user":
			parts = append(parts, "user", currentUserID(c))
		case "route":
			parts = append(parts, "route", c.Request().Method+" "+c.Path())
		}
	}
	if len(parts) == 1 {
		return buildRateKey(config.RateLimitConfig{Prefix: cfg.Prefix}, c)
	}
	return strings.Join(parts, ":")
}
