package watch

import (
	"math/rand/v2"
	"time"
)

// Backoff computes reconnect delays: exponential doubling from Min up to
// Max, with a random jitter spread so a fleet of watchers does not hammer
// the endpoint in lockstep.
type Backoff struct {
	// Min is the delay for the first retry.
	Min time.Duration

	// Max caps the delay regardless of attempt count.
	Max time.Duration

	// Jitter is the fraction of the delay randomized around it, in [0, 1].
	// Zero disables jitter, which keeps delays deterministic.
	Jitter float64
}

// DefaultBackoff returns the backoff used when none is configured.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    1 * time.Second,
		Max:    30 * time.Second,
		Jitter: 0.2,
	}
}

// Next returns the delay before retry number attempt, counting from zero.
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := b.Min
	for i := 0; i < attempt && delay < b.Max; i++ {
		delay *= 2
	}
	if delay > b.Max {
		delay = b.Max
	}

	if b.Jitter > 0 {
		spread := b.Jitter * float64(delay)
		delay += time.Duration((rand.Float64() - 0.5) * spread)
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
