package orchestrator

import (
	"math/rand/v2"
	"time"
)

// backoffDelay computes the retry delay before the next attempt:
// exponential in the attempt count, capped, with ±20% jitter so a batch
// of failures doesn't retry in lockstep.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}

	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(delay) * jitter)
}
