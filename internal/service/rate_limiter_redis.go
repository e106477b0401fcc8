package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// fixedWindowScript implements a fixed window counter: the first request
// for a key starts the window and sets its expiry; later requests within
// the window increment the counter. When the counter is over the limit the
// remaining TTL is returned so the caller can compute retryAfter.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])

local count = redis.call('INCR', key)
if count == 1 then
    redis.call('EXPIRE', key, window)
end

if count > limit then
    local ttl = redis.call('TTL', key)
    if ttl < 0 then
        ttl = window
    end
    return {0, ttl}
end

return {1, 0}
`)

// RedisRateLimiter shares fixed-window buckets across gateway processes.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window}
}

func (rl *RedisRateLimiter) Check(ctx context.Context, clientID string) (bool, time.Duration) {
	key := fmt.Sprintf("ratelimit:%s", clientID)

	result, err := fixedWindowScript.Run(
		ctx,
		rl.client,
		[]string{key},
		int64(rl.window.Seconds()),
		rl.limit,
	).Int64Slice()

	if err != nil {
		log.Warn().
			Err(err).
			Str("clientId", clientID).
			Msg("rate limit check failed, denying request for safety")
		return false, rl.window
	}

	if len(result) != 2 {
		log.Warn().Str("clientId", clientID).Msg("unexpected rate limit result, denying request for safety")
		return false, rl.window
	}

	return result[0] == 1, time.Duration(result[1]) * time.Second
}
