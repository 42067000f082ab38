package redis

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "caller:GET /users")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be within quota", i+1)
		}
	}

	ok, err := limiter.Allow(ctx, "caller:GET /users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("request over quota should be denied")
	}
}

func TestRateLimiter_WindowRecovery(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 1, time.Second)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "caller:GET /users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("first request should pass")
	}

	ok, _ = limiter.Allow(ctx, "caller:GET /users")
	if ok {
		t.Fatal("second request in window should be denied")
	}

	// Quota recovers once the window elapses
	mr.FastForward(2 * time.Second)

	ok, err = limiter.Allow(ctx, "caller:GET /users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("request after window expiry should pass")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 1, time.Minute)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "alice:GET /users")
	if err != nil || !ok {
		t.Fatalf("expected alice within quota, got ok=%v err=%v", ok, err)
	}

	// Exhausting alice's quota leaves bob's untouched
	if ok, _ := limiter.Allow(ctx, "alice:GET /users"); ok {
		t.Error("alice should be over quota")
	}
	if ok, _ := limiter.Allow(ctx, "bob:GET /users"); !ok {
		t.Error("bob should be within quota")
	}
}

func TestRateLimiter_ConcurrentHitsNeverExceedQuota(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	const limit = 10
	limiter := NewRateLimiter(client, limit, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan struct{}, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Allow(ctx, "caller:POST /users")
			if err == nil && ok {
				allowed <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(allowed)

	if n := len(allowed); n != limit {
		t.Errorf("expected exactly %d allowed under concurrent load, got %d", limit, n)
	}
}

func TestRateLimiter_RedisError(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, 1, time.Minute)

	mr.Close()

	_, err := limiter.Allow(context.Background(), "caller:GET /users")
	if err == nil {
		t.Error("expected error when Redis is unavailable")
	}
}
