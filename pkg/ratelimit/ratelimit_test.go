package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	defer l.Stop()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unlimited limiter should not block, took %v", elapsed)
	}
}

func TestLimiter_Paces(t *testing.T) {
	l := NewLimiter(100, 0) // 10ms interval
	defer l.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected at least 20ms for 3 waits at 100rps, got %v", elapsed)
	}
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := NewLimiter(0.1, 0) // 10s interval, will not tick during the test
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("expected context error, got nil")
	}
}
