package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

const (
	prodURL = "http://rndcws.mintransporte.gov.co:8080/soap/IBPMServices"
	testURL = "http://plc.mintransporte.gov.co:8080/soap/IBPMServices"
)

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		2,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("first call should be allowed")
	}

	allowed, err = limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("second call should be allowed")
	}

	allowed, err = limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third call should be rejected by rate limit")
	}

	now = now.Add(time.Second)
	allowed, err = limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("new second window should allow call")
	}
}

func TestRedisRateLimiterAllowPerEndpoint(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow(prod) error = %v", err)
	}
	if !allowed {
		t.Fatal("production endpoint should be allowed on first request")
	}

	allowed, err = limiter.Allow(context.Background(), testURL)
	if err != nil {
		t.Fatalf("Allow(test) error = %v", err)
	}
	if !allowed {
		t.Fatal("test endpoint should be allowed on first request")
	}

	allowed, err = limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow(prod) error = %v", err)
	}
	if allowed {
		t.Fatal("second production request should be rejected")
	}
}

func TestRedisRateLimiterWait(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_200, 0)
	sleepCalls := 0
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			sleepCalls++
			if sleepCalls == 1 {
				now = now.Add(time.Second)
			}
			return nil
		},
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("expected first call to be allowed")
	}

	if err := limiter.Wait(context.Background(), prodURL); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if sleepCalls == 0 {
		t.Fatal("expected Wait() to sleep at least once")
	}
}

func TestRedisRateLimiterWaitContextDeadline(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_300, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), prodURL)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("expected first call to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx, prodURL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestRedisRateLimiterSharesWindowAcrossPaths(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_400, 0)
	limiter, err := newRedisRateLimiter(rdb, 1, func() time.Time { return now }, sleepWithContext)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if allowed, err := limiter.Allow(context.Background(), prodURL); err != nil || !allowed {
		t.Fatalf("Allow() = %v, %v, want allowed", allowed, err)
	}
	if allowed, err := limiter.Allow(context.Background(), prodURL+"?wsdl"); err != nil || allowed {
		t.Fatalf("Allow() = %v, %v, want rejected for same host", allowed, err)
	}
	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestRedisRateLimiterKeepsOneWindowPerHost(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_500, 0)
	limiter, err := newRedisRateLimiter(rdb, 5, func() time.Time { return now }, sleepWithContext)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	for _, target := range []string{prodURL, prodURL, testURL} {
		if allowed, err := limiter.Allow(ctx, target); err != nil || !allowed {
			t.Fatalf("Allow(%s) = %v, %v, want allowed", target, allowed, err)
		}
	}

	tests := []struct {
		host string
		want int
	}{
		{host: "rndcws.mintransporte.gov.co:8080", want: 2},
		{host: "plc.mintransporte.gov.co:8080", want: 1},
	}
	for _, tt := range tests {
		key := sendWindowKey(tt.host, now)
		if key != "rndc:sends:"+tt.host+":1700000500" {
			t.Fatalf("sendWindowKey() = %q", key)
		}
		got, err := rdb.Get(ctx, key).Int()
		if err != nil {
			t.Fatalf("Get(%s) error = %v", key, err)
		}
		if got != tt.want {
			t.Fatalf("sends counted for %s = %d, want %d", tt.host, got, tt.want)
		}
		ttl, err := rdb.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 || ttl > windowTTLSeconds*time.Second {
			t.Fatalf("TTL(%s) = %v, %v, want expiring window", key, ttl, err)
		}
	}
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb
}
