package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rental-analytics/internal/config"
)

// tokenBucket refills a hash {tokens, last_refill_ms} in whole intervals and
// takes one token. It returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now

local n = math.floor(math.max(0, now - last) / interval)
if n > 0 then
  tokens = math.min(capacity, tokens + n * refill)
  last = last + n * interval
end

local allowed, retry = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, interval - (now - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

// NewTokenBucket limits requests per key with a Redis token bucket. Redis
// errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger log.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				level.Warn(logger).Log("msg", "rate limiter unavailable", "key", key, "err", err)
				return next(c)
			}
			allowed, remaining, retryMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if allowed {
				return next(c)
			}

			secs := int(math.Ceil(float64(retryMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			level.Debug(logger).Log("msg", "rate limited", "key", key, "retry_after_ms", retryMs)
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := ClientID(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", user)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", user, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", user, "route", route)
	}
	return strings.Join(parts, ":")
}
