package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 2
	backoffStep              = 50 * time.Millisecond
	backoffMax               = 250 * time.Millisecond
	windowTTLSeconds         = 2
	sendKeyPrefix            = "rndc:sends"
)

// sendWindowScript counts one send against a window key and reports whether
// it fits under the limit. The key expires shortly after its second ends.
var sendWindowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter caps SOAP sends per RNDC host per second. The window lives
// in Redis so every gateway instance running batches against the same ministry
// endpoint draws from one budget.
type RedisRateLimiter struct {
	client      *goredis.Client
	limitPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	script      *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client, limitPerSec int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(
		client,
		int64(limitPerSec),
		time.Now,
		sleepWithContext,
	)
}

func newRedisRateLimiter(
	client *goredis.Client,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		now:         nowFn,
		sleep:       sleepFn,
		script:      sendWindowScript,
	}, nil
}

// Allow takes one send slot for the host of targetURL in the current second.
func (r *RedisRateLimiter) Allow(ctx context.Context, targetURL string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	host := ratelimit.EndpointKey(targetURL)
	if host == "" {
		return false, fmt.Errorf("rndc endpoint is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := sendWindowKey(host, r.now())
	result, err := r.script.Run(ctx, r.client, []string{key}, r.limitPerSec, windowTTLSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to count send for %s: %w", host, err)
	}

	return result == 1, nil
}

// Wait blocks until the host of targetURL has a free send slot or ctx ends.
func (r *RedisRateLimiter) Wait(ctx context.Context, targetURL string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := r.Allow(ctx, targetURL)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sendWindowKey(host string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", sendKeyPrefix, host, at.UTC().Unix())
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
