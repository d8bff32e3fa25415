package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDispatchInterval is the floor between two enrichment lookups.
const DefaultDispatchInterval = 200 * time.Millisecond

// serialDispatcher runs lookups strictly one at a time, spacing their starts
// by at least the configured interval.
type serialDispatcher struct {
	limiter *rate.Limiter
}

func newSerialDispatcher(interval time.Duration) *serialDispatcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &serialDispatcher{limiter: rate.NewLimiter(limit, 1)}
}

// each calls fn for every index in order, waiting for the limiter before each
// start. It stops early only when ctx is done.
func (d *serialDispatcher) each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	for i := 0; i < n; i++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		fn(ctx, i)
	}
	return nil
}
