package platform

import (
	"context"
	"math/rand"
	"time"
)

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// humanDelay pauses for a random duration in [min, max]. Interaction
// pacing is part of staying under platform heuristics, not politeness.
func humanDelay(ctx context.Context, min, max time.Duration) {
	if max < min {
		max = min
	}
	span := max - min
	d := min
	if span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	_ = sleepCtx(ctx, d)
}
