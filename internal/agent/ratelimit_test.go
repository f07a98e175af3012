package agent

import (
	"testing"
	"time"
)

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	if !rl.Allow("user-1") || !rl.Allow("user-1") {
		t.Fatal("expected first two requests to pass")
	}
	if rl.Allow("user-1") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("user-2") {
		t.Fatal("expected other users to be unaffected")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Stop()

	if !rl.Allow("user-1") {
		t.Fatal("expected first request to pass")
	}
	if rl.Allow("user-1") {
		t.Fatal("expected second request to be limited")
	}
	time.Sleep(80 * time.Millisecond)
	if !rl.Allow("user-1") {
		t.Fatal("expected request after window to pass")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()
}
