package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the expiry on the first
// hit of a window.  It returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return { count, ttl }
`)

// RedisStore shares windows between instances.  Redis key expiry replaces
// the explicit sweep of MemoryStore.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, period time.Duration, now time.Time) (Window, error) {
	vals, err := fixedWindowScript.Run(ctx, s.rdb, []string{s.prefix + ":" + key}, period.Milliseconds()).Result()
	if err != nil {
		return Window{}, fmt.Errorf("ratelimit: redis script: %w", err)
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 2 {
		return Window{}, fmt.Errorf("ratelimit: unexpected script result %#v", vals)
	}
	return Window{
		Count: int(asInt64(arr[0])),
		Reset: now.Add(time.Duration(asInt64(arr[1])) * time.Millisecond),
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
