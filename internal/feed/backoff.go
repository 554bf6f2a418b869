package feed

import (
	"math/rand"
	"time"
)

// backoff produces exponentially growing waits with jitter, capped at max.
type backoff struct {
	min    time.Duration
	max    time.Duration
	factor float64
	jitter float64
	cur    time.Duration
}

func newBackoff(min, max time.Duration, factor, jitter float64) *backoff {
	return &backoff{min: min, max: max, factor: factor, jitter: jitter, cur: min}
}

// Next returns the wait for the current attempt and advances the schedule.
func (b *backoff) Next() time.Duration {
	d := b.cur
	next := time.Duration(float64(b.cur) * b.factor)
	if next > b.max {
		next = b.max
	}
	b.cur = next

	if b.jitter > 0 {
		delta := time.Duration((rand.Float64()*2 - 1) * b.jitter * float64(d))
		d += delta
		if d < 0 {
			d = b.min
		}
	}
	return d
}

// Reset returns the schedule to its starting wait.
func (b *backoff) Reset() {
	b.cur = b.min
}
