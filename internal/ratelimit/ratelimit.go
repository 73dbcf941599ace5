// Package ratelimit caps how many executions a user may start per window.
//
// The Redis limiter is a fixed window: the first hit creates a counter with
// a TTL of one window, later hits increment it until the limit is reached.
// Counting happens in one Lua script so concurrent API instances agree.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether key may perform one more action now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Noop allows everything. Used when rate limiting is disabled.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

const keyPrefix = "classroom:ratelimit:"

// fixedWindow returns 1 and counts the hit when under ARGV[1], else 0.
var fixedWindow = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if current and tonumber(current) >= tonumber(ARGV[1]) then
		return 0
	end

	local new = redis.call('INCR', KEYS[1])
	if new == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[2])
	end
	return 1
`)

// Redis is a fixed-window limiter stored in Redis.
type Redis struct {
	client redis.Scripter
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRedis builds a limiter allowing limit hits per window for each key.
func NewRedis(client redis.Scripter, limit int, window time.Duration, logger *slog.Logger) (*Redis, error) {
	if limit < 1 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if window < time.Second {
		return nil, fmt.Errorf("ratelimit: window must be at least 1s, got %s", window)
	}
	return &Redis{client: client, limit: limit, window: window, logger: logger}, nil
}

// Allow counts one hit for key.
//
// A Redis failure lets the request through and returns the error so the
// caller can log it; an outage of the limiter should not take execution down.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	seconds := int(l.window / time.Second)
	result, err := fixedWindow.Run(ctx, l.client, []string{keyPrefix + key}, l.limit, seconds).Int64()
	if err != nil {
		return true, fmt.Errorf("ratelimit: running script: %w", err)
	}
	if result == 0 {
		l.logger.Debug("rate limit exceeded", slog.String("key", key), slog.Int("limit", l.limit))
		return false, nil
	}
	return true, nil
}

// Open connects to Redis at addr and verifies it answers PING.
func Open(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ratelimit: connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
