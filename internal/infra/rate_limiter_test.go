package infra

import (
	"testing"
	"time"
)

func TestRateLimiter_TryAcquire(t *testing.T) {
	// 2 tokens, 10/second refill
	rl := NewRateLimiter(2, 10)

	if !rl.TryAcquire() {
		t.Error("expected first TryAcquire to succeed")
	}
	if !rl.TryAcquire() {
		t.Error("expected second TryAcquire to succeed")
	}

	// Third should fail (no tokens left)
	if rl.TryAcquire() {
		t.Error("expected third TryAcquire to fail")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	// 1 token, 10/second refill
	rl := NewRateLimiter(1, 10)

	if !rl.TryAcquire() {
		t.Error("expected first TryAcquire to succeed")
	}
	if rl.TryAcquire() {
		t.Error("expected immediate TryAcquire to fail")
	}

	// 120ms at 10/s refills at least one token
	time.Sleep(120 * time.Millisecond)

	if !rl.TryAcquire() {
		t.Error("expected TryAcquire to succeed after refill")
	}
}
