package queue

import (
	"math"
	"time"
)

// BackoffType selects how the retry delay grows between attempts.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

// maxBackoff caps computed delays so large attempt numbers cannot overflow.
const maxBackoff = 24 * time.Hour

// Backoff describes the delay before a failed job becomes eligible again.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Next returns the delay before the retry that follows attempt n (1-indexed).
// Exponential backoff doubles from the base: Delay, 2*Delay, 4*Delay...
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Delay <= 0 {
		return 0
	}

	switch b.Type {
	case BackoffExponential:
		d := float64(b.Delay) * math.Pow(2, float64(attempt-1))
		if d > float64(maxBackoff) {
			return maxBackoff
		}
		return time.Duration(d)
	default:
		return b.Delay
	}
}

// Retention bounds how many finished jobs of one state are kept.
// Zero fields mean "no bound" for that dimension.
type Retention struct {
	Age   time.Duration `json:"age"`
	Count int           `json:"count"`
}

// Unbounded reports whether the retention never prunes anything.
func (r Retention) Unbounded() bool {
	return r.Age <= 0 && r.Count <= 0
}

// Policy is the per-queue default applied to every job enqueued on it.
type Policy struct {
	Attempts      int
	Backoff       Backoff
	KeepCompleted Retention
	KeepFailed    Retention
}

// DefaultPolicy returns the queue defaults: 3 attempts with exponential
// backoff from 2 seconds, completed jobs kept for 24 hours but at most the
// latest 1000, failed jobs kept for 7 days.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Backoff: Backoff{
			Type:  BackoffExponential,
			Delay: 2 * time.Second,
		},
		KeepCompleted: Retention{
			Age:   24 * time.Hour,
			Count: 1000,
		},
		KeepFailed: Retention{
			Age: 7 * 24 * time.Hour,
		},
	}
}
