package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter. The first hit in a window sets the expiry; the TTL
// that comes back is what callers surface as retry-after.
var playWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {hits, ttl}
`)

// RedisPlayRateLimiter caps how many plays one employee can submit per
// window, counted in Redis so the cap holds across every instance of the
// service. A nil limiter, a nil client, or a non-positive limit all mean
// "no throttling", so callers never have to branch on deployment shape.
type RedisPlayRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPlayRateLimiter(client redis.UniversalClient, prefix string) *RedisPlayRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "meritmint:ledger"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisPlayRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

// ConsumePlay counts one play attempt for the employee and reports how many
// attempts the current window has seen. retryAfterSeconds is the smallest
// whole number of seconds until the window resets, never below one.
func (r *RedisPlayRateLimiter) ConsumePlay(ctx context.Context, employeeID string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:play_window:%s", r.prefix, employeeID)
	rawResult, err := playWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	hits, ttlMs, err := parseWindowReply(rawResult)
	if err != nil {
		return 0, 0, err
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(hits), retryAfter, nil
}

func parseWindowReply(raw interface{}) (hits, ttlMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected play window reply shape: %T", raw)
	}
	hits, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected play window hit count type: %T", values[0])
	}
	ttlMs, ok = values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected play window ttl type: %T", values[1])
	}
	return hits, ttlMs, nil
}
