package core

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy controls the advisory delay a worker waits before retrying a
// unit that has already failed. The delay is pacing only; correctness of the
// retry transition is enforced by the store.
type BackoffPolicy struct {
	InitialDelay time.Duration
	Coefficient  float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoffPolicy matches the original pipeline's pacing: 5s initial,
// doubling per attempt, capped at 5 minutes, with jitter to spread workers.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialDelay: 5 * time.Second,
		Coefficient:  2.0,
		MaxDelay:     5 * time.Minute,
		Jitter:       true,
	}
}

// Delay returns the wait before processing a unit whose retry_count is
// attempt. Attempt 0 (first try) waits nothing; attempt n waits
// InitialDelay * Coefficient^(n-1), capped at MaxDelay. With Jitter the
// result is scaled by a random factor in [0.5, 1.5).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := p.InitialDelay
	if initial <= 0 {
		initial = 5 * time.Second
	}
	coefficient := p.Coefficient
	if coefficient < 1 {
		coefficient = 2.0
	}

	d := time.Duration(float64(initial) * math.Pow(coefficient, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d < 0 {
		// Overflow on absurd attempt counts.
		d = p.MaxDelay
	}

	if p.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()))
	}
	return d
}
