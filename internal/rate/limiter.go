package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Class is one endpoint class: at most MaxAttempts per rolling Window per
// client key. Name namespaces the Redis keys so classes never share a
// budget.
type Class struct {
	Name        string
	MaxAttempts int
	Window      time.Duration
}

// Decision is the outcome of a single Check call.
type Decision struct {
	Allowed    bool
	Remaining  int           // attempts left in the window after this one
	RetryAfter time.Duration // set when denied; zero otherwise
}

// Limiter is a Redis-backed sliding-window attempt counter. It is safe for
// concurrent use; all per-key state lives in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// The script removes expired attempts, denies when the window is full
// (returning how long until the oldest attempt ages out), and otherwise
// records the attempt. Running it server-side keeps check-and-record atomic
// per key.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)

local count = redis.call("ZCARD", key)
if count >= limit then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
    if retry < 0 then
      retry = 0
    end
  end
  return {0, retry}
end

redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return {1, limit - count - 1}
`

var slidingWindowLua = redis.NewScript(slidingWindowScript)

// New creates a [Limiter] backed by the given Redis client. prefix
// namespaces every key the limiter writes.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rate"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Check records an attempt for key under class and reports whether it fits
// the budget. Denied attempts are not recorded, so a client hammering a
// spent budget does not push its own retry horizon further out.
func (l *Limiter) Check(ctx context.Context, key string, class Class) (Decision, error) {
	if class.MaxAttempts <= 0 || class.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := time.Now().UnixMilli()
	res, err := slidingWindowLua.Run(ctx, l.redis,
		[]string{l.key(class.Name, key)},
		now,
		class.Window.Milliseconds(),
		class.MaxAttempts,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply", ErrBackendUnavailable)
	}

	if res[0] == 1 {
		return Decision{Allowed: true, Remaining: int(res[1])}, nil
	}

	return Decision{
		Allowed:    false,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

// Reset clears the recorded attempts for key under class, for operational
// unblocking of a client key. Attempt budgets otherwise replenish only by
// attempts aging out of the rolling window.
func (l *Limiter) Reset(ctx context.Context, key string, class Class) error {
	if err := l.redis.Del(ctx, l.key(class.Name, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Attempts returns the number of attempts currently inside the rolling
// window for key under class. Missing keys report zero.
func (l *Limiter) Attempts(ctx context.Context, key string, class Class) (int, error) {
	redisKey := l.key(class.Name, key)
	cutoff := time.Now().Add(-class.Window).UnixMilli()

	if err := l.redis.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	count, err := l.redis.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return int(count), nil
}

func (l *Limiter) key(class, key string) string {
	return l.prefix + ":" + class + ":" + key
}
