package auth

import (
	"testing"
	"time"
)

func newTestRateLimiter(t *testing.T, cfg RateLimitConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimitConfig{MaxAttempts: 3})

	for i := 0; i < 2; i++ {
		if allowed, _ := rl.Allow("10.0.0.1", "alice@example.com"); !allowed {
			t.Fatalf("Attempt %d should be allowed", i+1)
		}
		rl.RecordFailure("10.0.0.1", "alice@example.com")
	}

	if allowed, _ := rl.Allow("10.0.0.1", "alice@example.com"); !allowed {
		t.Error("Expected attempt under the limit to be allowed")
	}
}

func TestRateLimiter_LocksOutAfterMaxAttempts(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimitConfig{
		MaxAttempts:     3,
		LockoutDuration: time.Minute,
	})

	var locked bool
	var retryAfter time.Duration
	for i := 0; i < 3; i++ {
		locked, retryAfter = rl.RecordFailure("10.0.0.1", "alice@example.com")
	}

	if !locked {
		t.Fatal("Expected lockout after reaching max attempts")
	}
	if retryAfter <= 0 {
		t.Errorf("Expected a positive retry-after, got %v", retryAfter)
	}

	allowed, retryAfter := rl.Allow("10.0.0.1", "alice@example.com")
	if allowed {
		t.Error("Expected locked-out caller to be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want within (0, 1m]", retryAfter)
	}
}

func TestRateLimiter_KeysAreScopedPerIPAndIdentifier(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimitConfig{MaxAttempts: 2})

	rl.RecordFailure("10.0.0.1", "alice@example.com")
	rl.RecordFailure("10.0.0.1", "alice@example.com")

	if allowed, _ := rl.Allow("10.0.0.1", "alice@example.com"); allowed {
		t.Error("Expected the offending IP+identifier to be locked")
	}
	if allowed, _ := rl.Allow("10.0.0.2", "alice@example.com"); !allowed {
		t.Error("Expected a different IP to be unaffected")
	}
	if allowed, _ := rl.Allow("10.0.0.1", "bob@example.com"); !allowed {
		t.Error("Expected a different identifier to be unaffected")
	}
}

func TestRateLimiter_SuccessClearsFailures(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimitConfig{MaxAttempts: 2})

	rl.RecordFailure("10.0.0.1", "alice@example.com")
	rl.RecordSuccess("10.0.0.1", "alice@example.com")

	rl.RecordFailure("10.0.0.1", "alice@example.com")
	if allowed, _ := rl.Allow("10.0.0.1", "alice@example.com"); !allowed {
		t.Error("Expected the counter to restart after a successful login")
	}
}

func TestRateLimiter_WindowExpiryResets(t *testing.T) {
	rl := newTestRateLimiter(t, RateLimitConfig{
		MaxAttempts:     2,
		WindowDuration:  20 * time.Millisecond,
		LockoutDuration: 20 * time.Millisecond,
	})

	rl.RecordFailure("10.0.0.1", "alice@example.com")
	rl.RecordFailure("10.0.0.1", "alice@example.com")
	if allowed, _ := rl.Allow("10.0.0.1", "alice@example.com"); allowed {
		t.Fatal("Expected lockout after max attempts")
	}

	time.Sleep(50 * time.Millisecond)

	if allowed, _ := rl.Allow("10.0.0.1", "alice@example.com"); !allowed {
		t.Error("Expected attempts to be allowed after the window expired")
	}
}
