package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments KEYS[1] only while it is below ARGV[1] and makes sure
// the key carries a TTL of ARGV[2] milliseconds.
var hitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {current, 1}
`)

// RedisCounter keeps window counters in Redis.
type RedisCounter struct {
	client redis.Scripter
}

func NewRedisCounter(client redis.Scripter) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Hit(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	res, err := hitScript.Run(ctx, r.client, []string{key}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("ratelimit: hit %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return res[0], res[1] == 1, nil
}
