package server

import (
	"context"
	"testing"
	"time"

	"shilohnova/internal/testsupport/redisstub"
)

func startCounterStore(t *testing.T, opts redisstub.Options) (*redisstub.Server, *redisCounterStore) {
	t.Helper()
	stub, err := redisstub.Start(opts)
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() { _ = stub.Close() })

	store := newRedisCounterStore(stub.Addr(), opts.Password, time.Second)
	t.Cleanup(func() { _ = store.Close() })
	return stub, store
}

func TestRedisCounterAllowsUnderLimit(t *testing.T) {
	stub, store := startCounterStore(t, redisstub.Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := store.Allow(ctx, "login:192.0.2.1", 3, time.Minute)
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	if value, ok := stub.Value("login:192.0.2.1"); !ok || value != "3" {
		t.Fatalf("expected counter at 3, got %q ok=%v", value, ok)
	}
}

func TestRedisCounterBlocksOverLimit(t *testing.T) {
	_, store := startCounterStore(t, redisstub.Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if allowed, _, err := store.Allow(ctx, "login:192.0.2.1", 2, time.Minute); err != nil || !allowed {
			t.Fatalf("warmup attempt %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}

	allowed, retryAfter, err := store.Allow(ctx, "login:192.0.2.1", 2, time.Minute)
	if err != nil {
		t.Fatalf("limited attempt: %v", err)
	}
	if allowed {
		t.Fatal("attempt over the limit should be blocked")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry hint, got %v", retryAfter)
	}

	// Separate keys count independently.
	if allowed, _, err := store.Allow(ctx, "login:192.0.2.2", 2, time.Minute); err != nil || !allowed {
		t.Fatalf("other key blocked: allowed=%v err=%v", allowed, err)
	}
}

func TestRedisCounterWithAuthentication(t *testing.T) {
	_, store := startCounterStore(t, redisstub.Options{Password: "sekrit"})
	if allowed, _, err := store.Allow(context.Background(), "login:192.0.2.1", 2, time.Minute); err != nil || !allowed {
		t.Fatalf("authenticated attempt: allowed=%v err=%v", allowed, err)
	}
}

func TestRateLimiterPrefersRedisStore(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() { _ = stub.Close() })

	rl := newRateLimiter(RateLimitConfig{
		LoginLimit:  1,
		LoginWindow: time.Minute,
		RedisAddr:   stub.Addr(),
	})
	ctx := context.Background()

	if allowed, _, err := rl.AllowLogin(ctx, "192.0.2.1"); err != nil || !allowed {
		t.Fatalf("first attempt: allowed=%v err=%v", allowed, err)
	}
	if allowed, _, err := rl.AllowLogin(ctx, "192.0.2.1"); err != nil || allowed {
		t.Fatalf("second attempt should be blocked: allowed=%v err=%v", allowed, err)
	}
	if _, ok := stub.Value("shilohnova:login:192.0.2.1"); !ok {
		t.Fatal("expected the shared counter key in redis")
	}
}
