package scheduler

import (
	"context"
	"log"
	"time"
)

// Every runs fn immediately and then on a fixed interval until ctx is
// cancelled. Errors are logged under the given tag and do not stop the
// loop.
func Every(ctx context.Context, interval time.Duration, tag string, fn func(ctx context.Context) error) {
	run := func() {
		if err := fn(ctx); err != nil {
			log.Printf("[%s] scheduled run: %v", tag, err)
		}
	}

	run()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
