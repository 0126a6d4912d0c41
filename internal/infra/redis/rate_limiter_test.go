// File: internal/infra/redis/rate_limiter_test.go
package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeRedis is an in-memory RedisClient for unit tests.
type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration

	incrErr   error
	expireErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: make(map[string]int64), expires: make(map[string]time.Duration)}
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	return nil
}

func (f *fakeRedis) Get(_ context.Context, _ string) (string, error) { return "", nil }

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedis) Expire(_ context.Context, key string, expiration time.Duration) error {
	if f.expireErr != nil {
		return f.expireErr
	}
	f.expires[key] = expiration
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.counts, k)
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestRateLimiterAllowUnderLimit(t *testing.T) {
	cli := newFakeRedis()
	rl := NewRateLimiter(cli)
	key := UserSendKey(7)

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(context.Background(), key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("Allow #%d = false within limit", i+1)
		}
	}
	// The window TTL is attached on the first increment only.
	if cli.expires[key] != time.Minute {
		t.Errorf("expire for %q = %v, want %v", key, cli.expires[key], time.Minute)
	}
}

func TestRateLimiterDeniesOverLimit(t *testing.T) {
	rl := NewRateLimiter(newFakeRedis())
	key := UserSendKey(7)

	for i := 0; i < 2; i++ {
		if allowed, _ := rl.Allow(context.Background(), key, 2, time.Minute); !allowed {
			t.Fatalf("Allow #%d = false within limit", i+1)
		}
	}
	allowed, err := rl.Allow(context.Background(), key, 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if allowed {
		t.Error("Allow = true past the limit")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(newFakeRedis())

	if allowed, _ := rl.Allow(context.Background(), UserSendKey(1), 1, time.Minute); !allowed {
		t.Fatal("first user denied on first send")
	}
	if allowed, _ := rl.Allow(context.Background(), UserSendKey(1), 1, time.Minute); allowed {
		t.Fatal("first user allowed past limit")
	}
	if allowed, _ := rl.Allow(context.Background(), UserSendKey(2), 1, time.Minute); !allowed {
		t.Error("second user throttled by the first user's counter")
	}
}

func TestRateLimiterSurfacesBackendError(t *testing.T) {
	cli := newFakeRedis()
	cli.incrErr = errors.New("connection refused")
	rl := NewRateLimiter(cli)

	if _, err := rl.Allow(context.Background(), UserSendKey(7), 5, time.Minute); err == nil {
		t.Error("Allow swallowed the backend error")
	}

	cli = newFakeRedis()
	cli.expireErr = errors.New("connection refused")
	rl = NewRateLimiter(cli)
	if _, err := rl.Allow(context.Background(), UserSendKey(7), 5, time.Minute); err == nil {
		t.Error("Allow swallowed the expire error")
	}
}
