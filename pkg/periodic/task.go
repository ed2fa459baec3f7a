// Package periodic runs a function on a fixed interval for the lifetime of a
// context.
package periodic

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Run calls fn every interval until ctx is cancelled, then returns nil. fn
// runs on the calling goroutine, so invocations never overlap; ticks missed
// while fn is running are dropped. fn errors are passed to onErr when set.
func Run(ctx context.Context, interval time.Duration, fn func(context.Context) error, onErr func(error)) error {
	if interval <= 0 {
		return errors.Errorf("periodic: interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fn(ctx); err != nil && onErr != nil && ctx.Err() == nil {
				onErr(err)
			}
		}
	}
}
