package middleware

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"hrdesk/config"
	deliverycontext "hrdesk/internal/delivery/context"
	"hrdesk/internal/domain/constants"
	domainerrors "hrdesk/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// tokenBucketScript refills and takes one token atomically.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + (intervals * refill_tokens))
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimiterParams holds dependencies for RateLimiter, injected by Fx.
type RateLimiterParams struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *slog.Logger
}

// RateLimiter throttles anonymous credential endpoints with a Redis token bucket.
type RateLimiter struct {
	cfg    *config.RateLimitConfig
	rdb    *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter is the constructor for RateLimiter.
func NewRateLimiter(params RateLimiterParams) *RateLimiter {
	return &RateLimiter{
		cfg:    params.Config.RateLimit,
		rdb:    params.Redis,
		logger: params.Logger,
		now:    time.Now,
	}
}

func (l *RateLimiter) enabled() bool {
	return l.rdb != nil && l.cfg != nil && l.cfg.Enabled && l.cfg.Capacity > 0
}

// Limit is the echo middleware. It passes through when disabled and fails open on Redis errors.
func (l *RateLimiter) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	if !l.enabled() {
		return next
	}

	return func(c echo.Context) error {
		ctx := c.Request().Context()
		logger := deliverycontext.GetLoggerOrDefault(ctx, l.logger)
		key := l.key(c)

		result, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
			l.now().UnixMilli(),
			l.cfg.Capacity,
			l.cfg.RefillTokens,
			l.cfg.RefillInterval.Milliseconds(),
			int64(math.Max(1, l.cfg.TTL.Seconds())),
		).Int64Slice()
		if err != nil || len(result) != 3 {
			logger.Warn("Rate limiter unavailable, allowing request", slog.String("key", key), slog.Any("error", err))

			return next(c)
		}

		allowed, remaining, retryAfterMs := result[0] == 1, result[1], result[2]

		header := c.Response().Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
		header.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			retryAfter := int64(math.Ceil(float64(retryAfterMs) / 1000))
			header.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			logger.Info("Rate limit exceeded", slog.String("key", key), slog.Int64("retry_after_s", retryAfter))

			return domainerrors.ErrTooManyRequests.WrapMessage("rate limit exceeded")
		}

		return next(c)
	}
}

func (l *RateLimiter) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{l.cfg.Prefix}
	switch strings.ToLower(l.cfg.KeyStrategy) {
	case constants.RateLimitKeyIP:
		parts = append(parts, "ip", ip)
	case constants.RateLimitKeyRoute:
		parts = append(parts, "route", route)
	default:
		parts = append(parts, "ip", ip, "route", route)
	}

	return strings.Join(parts, ":")
}
