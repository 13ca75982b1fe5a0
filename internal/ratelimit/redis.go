package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed sliding_window.lua
var slidingWindowScript string

// RedisLimiter runs the sliding-window check as a single Lua script so the
// read and the increment cannot race between two concurrent requests.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(slidingWindowScript),
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	now := time.Now()
	windowMs := policy.Window.Milliseconds()
	member := strconv.FormatInt(now.UnixNano(), 10)

	result, err := r.script.Run(ctx, r.client,
		[]string{"ratelimit:" + key},
		now.UnixMilli(), // ARGV[1]
		windowMs,        // ARGV[2]
		policy.Requests, // ARGV[3]
		member,          // ARGV[4]
	).Result()
	if err != nil {
		return Decision{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, errors.New("invalid lua response format")
	}

	allowedVal, _ := values[0].(int64)
	remainingVal, _ := values[1].(int64)
	resetVal, _ := values[2].(int64)

	reset := time.UnixMilli(resetVal)
	decision := Decision{
		Allowed:   allowedVal == 1,
		Limit:     policy.Requests,
		Remaining: int(remainingVal),
		Reset:     reset,
	}
	if !decision.Allowed {
		retryAfter := time.Until(reset)
		if retryAfter < 0 {
			retryAfter = 0
		}
		decision.RetryAfter = retryAfter
	}
	return decision, nil
}
