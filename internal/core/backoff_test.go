package core

import (
	"testing"
	"time"
)

func TestBackoffDelay_Exponential(t *testing.T) {
	policy := BackoffPolicy{
		InitialDelay: 1 * time.Second,
		Coefficient:  2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},  // 1 * 2^0
		{2, 2 * time.Second},  // 1 * 2^1
		{3, 4 * time.Second},  // 1 * 2^2
		{4, 8 * time.Second},  // 1 * 2^3
		{5, 16 * time.Second}, // 1 * 2^4
	}

	for _, tt := range tests {
		got := policy.Delay(tt.attempt)
		if got != tt.want {
			t.Errorf("Delay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelay_FirstAttemptIsImmediate(t *testing.T) {
	policy := DefaultBackoffPolicy()
	if got := policy.Delay(0); got != 0 {
		t.Errorf("Delay(0) = %v, want 0", got)
	}
	if got := policy.Delay(-1); got != 0 {
		t.Errorf("Delay(-1) = %v, want 0", got)
	}
}

func TestBackoffDelay_MaxDelay(t *testing.T) {
	policy := BackoffPolicy{
		InitialDelay: 1 * time.Second,
		Coefficient:  2.0,
		MaxDelay:     10 * time.Second,
	}

	// attempt 5 would be 16s but is capped at 10s
	if got := policy.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) with cap = %v, want %v", got, 10*time.Second)
	}
	// absurd attempt counts must not overflow past the cap
	if got := policy.Delay(500); got != 10*time.Second {
		t.Errorf("Delay(500) with cap = %v, want %v", got, 10*time.Second)
	}
}

func TestBackoffDelay_Jitter(t *testing.T) {
	policy := BackoffPolicy{
		InitialDelay: 10 * time.Second,
		Coefficient:  1.0,
		Jitter:       true,
	}

	seen := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		d := policy.Delay(1)
		seen[d] = true
		// Jitter range: 0.5x to 1.5x -> 5s to 15s
		if d < 5*time.Second || d > 15*time.Second {
			t.Errorf("Delay with jitter = %v, outside expected range [5s, 15s]", d)
		}
	}
	if len(seen) < 2 {
		t.Error("Delay with jitter produced no variation in 20 attempts")
	}
}

func TestBackoffDelay_ZeroPolicyDefaults(t *testing.T) {
	var policy BackoffPolicy
	if got := policy.Delay(1); got == 0 {
		t.Error("Delay(1) on zero policy should fall back to a non-zero default")
	}
}
