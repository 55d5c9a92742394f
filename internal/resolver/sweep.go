// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"context"
	"iter"
	"time"

	"github.com/ManuGH/vidgate/internal/endpoints"
)

// Sweep yields (sweep number, endpoint) pairs over list in order, starting
// again from the first endpoint after each full pass, until the consumer
// stops, ctx is done or the deadline is reached. The deadline is checked
// before every yield, so no attempt starts at or after it. Between passes it
// waits for pause, cut short by the deadline. Sweep numbers start at 1.
func Sweep(ctx context.Context, list endpoints.List, deadline time.Time, pause time.Duration, now func() time.Time) iter.Seq2[int, endpoints.Endpoint] {
	if now == nil {
		now = time.Now
	}
	return func(yield func(int, endpoints.Endpoint) bool) {
		if len(list) == 0 {
			return
		}
		for sweep := 1; ; sweep++ {
			for _, ep := range list {
				if ctx.Err() != nil || !now().Before(deadline) {
					return
				}
				if !yield(sweep, ep) {
					return
				}
			}
			if !pauseUntil(ctx, pause, deadline, now) {
				return
			}
		}
	}
}

// pauseUntil sleeps for d or until the deadline, whichever is sooner, and
// reports whether another pass may start.
func pauseUntil(ctx context.Context, d time.Duration, deadline time.Time, now func() time.Time) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	remaining := deadline.Sub(now())
	if remaining <= 0 {
		return false
	}
	if d > remaining {
		d = remaining
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
