// Package retry provides a small bounded retry helper for transient
// external lookups. The bound matters: callers run inside synchronous
// webhook handling that the upstream provider itself times out and
// retries, so attempts must never be unbounded.
package retry

import (
	"context"
	"time"
)

// Do invokes fn up to attempts times, sleeping backoff between attempts.
// It returns nil as soon as fn succeeds. The last error is returned when
// every attempt fails or the context is cancelled while waiting.
func Do(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
