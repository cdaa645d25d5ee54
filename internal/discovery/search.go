// Package discovery finds a company's website from its registered name.
package discovery

import (
	"context"
	"math/rand/v2"
	"time"
)

// Searcher opens search sessions. A session is held for a whole stage run
// and released on every exit path.
type Searcher interface {
	Open(ctx context.Context) (Session, error)
}

// Session issues queries and returns the outbound result URLs visible on
// the results page, in page order.
type Session interface {
	Search(ctx context.Context, query string) ([]string, error)
	Close() error
}

// ConsentDismisser is implemented by sessions whose search provider can
// show a consent interstitial. Failures are not fatal.
type ConsentDismisser interface {
	DismissConsent(ctx context.Context) error
}

// Delay waits between queries. It returns early with ctx's error.
type Delay func(ctx context.Context) error

// BoundedRandomDelay waits a uniformly random duration in [lo, hi].
func BoundedRandomDelay(lo, hi time.Duration) Delay {
	if hi < lo {
		lo, hi = hi, lo
	}
	return func(ctx context.Context) error {
		d := lo
		if hi > lo {
			d += time.Duration(rand.Int64N(int64(hi - lo + 1)))
		}
		if d <= 0 {
			return ctx.Err()
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
}

// NoDelay does not wait.
func NoDelay(ctx context.Context) error { return ctx.Err() }
