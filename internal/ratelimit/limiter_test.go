package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, relaxed bool) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, relaxed), mr
}

func TestConsume_ExhaustsBucket(t *testing.T) {
	l, _ := newTestLimiter(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Consume(ctx, "rl:test", 3, time.Minute); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	_, err := l.Consume(ctx, "rl:test", 3, time.Minute)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("call 4: err = %v, want ErrRateLimited", err)
	}
}

func TestConsume_RemainingDecreases(t *testing.T) {
	l, _ := newTestLimiter(t, false)
	ctx := context.Background()

	first, err := l.Consume(ctx, "rl:remaining", 5, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Consume(ctx, "rl:remaining", 5, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if second >= first {
		t.Errorf("remaining should decrease: first=%v second=%v", first, second)
	}
}

func TestConsume_RefillsOverTime(t *testing.T) {
	l, _ := newTestLimiter(t, false)
	ctx := context.Background()

	// Capacity 5 over 1s refills at 5 tokens/s.
	for i := 0; i < 5; i++ {
		if _, err := l.Consume(ctx, "rl:refill", 5, time.Second); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	if _, err := l.Consume(ctx, "rl:refill", 5, time.Second); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("bucket should be empty, got %v", err)
	}

	time.Sleep(400 * time.Millisecond)
	if _, err := l.Consume(ctx, "rl:refill", 5, time.Second); err != nil {
		t.Fatalf("bucket should have refilled at least one token, got %v", err)
	}
}

func TestConsume_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, false)
	ctx := context.Background()

	if _, err := l.Consume(ctx, "rl:a", 1, time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Consume(ctx, "rl:a", 1, time.Minute); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("key a should be exhausted, got %v", err)
	}
	if _, err := l.Consume(ctx, "rl:b", 1, time.Minute); err != nil {
		t.Fatalf("key b should be untouched, got %v", err)
	}
}

func TestConsume_StrictRefusesWhenRedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, false)
	mr.Close()

	_, err := l.Consume(context.Background(), "rl:down", 3, time.Minute)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestConsume_RelaxedFallsBackToLocalBucket(t *testing.T) {
	l, mr := newTestLimiter(t, true)
	mr.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Consume(ctx, "rl:local", 3, time.Minute); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	_, err := l.Consume(ctx, "rl:local", 3, time.Minute)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("local bucket should still enforce the limit, got %v", err)
	}
}

func TestConsume_NilClientStrict(t *testing.T) {
	l := New(nil, false)
	_, err := l.Consume(context.Background(), "rl:none", 3, time.Minute)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestLocalBuckets_ContinuousRefill(t *testing.T) {
	lb := newLocalBuckets()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if ok, _ := lb.consume("k", 2, time.Minute, now); !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if ok, _ := lb.consume("k", 2, time.Minute, now); ok {
		t.Fatal("empty bucket should reject")
	}

	// Half the period refills half the capacity.
	later := now.Add(30 * time.Second)
	if ok, remaining := lb.consume("k", 2, time.Minute, later); !ok {
		t.Fatalf("bucket should have refilled, remaining=%v", remaining)
	}
}
