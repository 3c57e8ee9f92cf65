package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// gateScript increments the key's counter, arms the expiry on first use
// (or if it was ever lost) and returns {count, pttl}.
var gateScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// Redis is the distributed gate backed by a Redis counter per key.
type Redis struct {
	client redis.UniversalClient
	window time.Duration
	prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, window time.Duration) *Redis {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Redis{client: client, window: window, prefix: "feedback:throttle:"}
}

// NewRedisFromURL parses a redis:// URL, connects and pings.
func NewRedisFromURL(ctx context.Context, rawURL string, window time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, window), nil
}

// Allow runs the gate script for key. Only the first attempt in a window passes.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := gateScript.Run(ctx, r.client, []string{r.prefix + key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("throttle: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("throttle: unexpected script reply %v", res)
	}
	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
