package feed

import (
	"math"
	"math/rand"
	"time"
)

// Backoff is the reconnect policy of the push feed.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter picks each delay uniformly in [0, capped delay] ("full jitter")
	// so a fleet of clients does not reconnect in lockstep.
	Jitter bool
	// MaxAttempts caps reconnect attempts made without a successful
	// connection in between; 0 retries forever.
	MaxAttempts int
}

// DefaultBackoff matches the dashboard behaviour: 1s doubling up to 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay returns the wait before reconnect attempt n (1-based). rnd must
// return values in [0,1); nil uses math/rand.
func (b Backoff) Delay(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(b.Initial) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && (d > float64(b.Max) || math.IsInf(d, 0) || math.IsNaN(d)) {
		d = float64(b.Max)
	}
	if !b.Jitter {
		return time.Duration(d)
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return time.Duration(rnd() * d)
}

// Exhausted reports whether reconnect attempt n is past the cap.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt > b.MaxAttempts
}
