package resilience

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := NewRetryPolicy(5, time.Second, 10*time.Second)
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(0, 0, 0)
	if p.MaxAttempts != 3 || p.InitialBackoff != time.Second || p.MaxBackoff != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestWaitCancelled(t *testing.T) {
	p := NewRetryPolicy(1, time.Minute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx, 1); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestCircuitBreakerOpensOnRateLimit(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	if !cb.Allow() {
		t.Fatalf("breaker should start closed")
	}
	cb.OnError(RateLimitError{Provider: "yandex"})
	if !cb.Allow() {
		t.Fatalf("breaker must stay closed below threshold")
	}
	cb.OnError(RateLimitError{Provider: "yandex"})
	if cb.Allow() {
		t.Fatalf("breaker should be open after threshold")
	}
	cb.OnSuccess()
	if !cb.Allow() {
		t.Fatalf("breaker should close on success")
	}
}
