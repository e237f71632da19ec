package scrape

import (
	"math"
	"math/rand"
	"time"
)

// expBackoff calculates an exponential backoff capped at max duration,
// plus a random fraction of 1s. Attempts above 30 are clamped so the
// exponent cannot overflow.
func expBackoff(attempts int, max time.Duration) time.Duration {
	if attempts > 30 {
		attempts = 30
	}
	delay := time.Duration(math.Exp2(float64(attempts))) * time.Second
	if delay > max {
		delay = max
	}
	// randomize a bit
	delay = delay + time.Duration(rand.Float32()*1000)*time.Millisecond
	return delay
}
