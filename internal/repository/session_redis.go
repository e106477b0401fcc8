package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibetutor/gateway-server-go/internal/model"
	"github.com/vibetutor/gateway-server-go/internal/util"
)

const sessionKeyPrefix = "session:"

// touchScript increments the request counter, applies the calendar-day
// rollover and checks the daily cap in one round trip so two concurrent
// requests on the same token cannot both slip under the cap.
//
// ARGV: [1] today's UTC day start (unix seconds), [2] daily cap.
// Returns {exists, requestCount, dailyUsage, limited, createdAtMs, dayStart}.
var touchScript = redis.NewScript(`
local key = KEYS[1]
local today = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])

if redis.call('EXISTS', key) == 0 then
    return {0, 0, 0, 0, 0, 0}
end

local requestCount = redis.call('HINCRBY', key, 'requestCount', 1)

local dayStart = tonumber(redis.call('HGET', key, 'dayStart')) or 0
local dailyUsage = tonumber(redis.call('HGET', key, 'dailyUsage')) or 0

if today > dayStart then
    dayStart = today
    dailyUsage = 0
    redis.call('HSET', key, 'dayStart', dayStart, 'dailyUsage', 0)
end

local createdAt = tonumber(redis.call('HGET', key, 'createdAt')) or 0

if dailyUsage >= cap then
    return {1, requestCount, dailyUsage, 1, createdAt, dayStart}
end

dailyUsage = redis.call('HINCRBY', key, 'dailyUsage', 1)

return {1, requestCount, dailyUsage, 0, createdAt, dayStart}
`)

// RedisSessionStore keeps sessions as Redis hashes with a TTL equal to the
// session duration, so expiry needs no sweeping of its own: DeleteExpired
// is a no-op kept for interface symmetry with the memory store.
type RedisSessionStore struct {
	client   *redis.Client
	duration time.Duration
	dailyCap int
}

func NewRedisSessionStore(client *redis.Client, duration time.Duration, dailyCap int) *RedisSessionStore {
	return &RedisSessionStore{client: client, duration: duration, dailyCap: dailyCap}
}

func (s *RedisSessionStore) Create(ctx context.Context) (*model.Session, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now()
	dayStart := model.DayStartUTC(now)
	key := sessionKeyPrefix + token

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"createdAt", now.UnixMilli(),
		"requestCount", 0,
		"dailyUsage", 0,
		"dayStart", dayStart.Unix(),
	)
	pipe.Expire(ctx, key, s.duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &model.Session{
		Token:     token,
		CreatedAt: now,
		DayStart:  dayStart,
	}, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	session := sessionFromFields(token, fields)
	if session.Expired(s.duration) {
		// TTL should have removed it already; evict defensively.
		s.client.Del(ctx, sessionKeyPrefix+token)
		return nil, nil
	}

	return session, nil
}

func (s *RedisSessionStore) Touch(ctx context.Context, token string) (*model.Session, error) {
	today := model.DayStartUTC(time.Now())

	result, err := touchScript.Run(
		ctx,
		s.client,
		[]string{sessionKeyPrefix + token},
		today.Unix(),
		s.dailyCap,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	if len(result) != 6 || result[0] == 0 {
		return nil, nil
	}

	session := &model.Session{
		Token:        token,
		RequestCount: int(result[1]),
		DailyUsage:   int(result[2]),
		CreatedAt:    time.UnixMilli(result[4]),
		DayStart:     time.Unix(result[5], 0).UTC(),
	}

	if session.Expired(s.duration) {
		s.client.Del(ctx, sessionKeyPrefix+token)
		return nil, nil
	}

	if result[3] == 1 {
		return session, ErrDailyLimitReached
	}
	return session, nil
}

// DeleteExpired is satisfied by Redis key TTLs; nothing to sweep.
func (s *RedisSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func sessionFromFields(token string, fields map[string]string) *model.Session {
	createdAtMs, _ := strconv.ParseInt(fields["createdAt"], 10, 64)
	requestCount, _ := strconv.Atoi(fields["requestCount"])
	dailyUsage, _ := strconv.Atoi(fields["dailyUsage"])
	dayStart, _ := strconv.ParseInt(fields["dayStart"], 10, 64)

	return &model.Session{
		Token:        token,
		CreatedAt:    time.UnixMilli(createdAtMs),
		RequestCount: requestCount,
		DailyUsage:   dailyUsage,
		DayStart:     time.Unix(dayStart, 0).UTC(),
	}
}
