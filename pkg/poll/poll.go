// Package poll provides the shared poll-until-predicate primitive used by
// login detection, upload completion, and topic verification loops.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrCeiling is returned when the ceiling elapses before the predicate
// reports done. Callers decide whether that is a timeout or an optimistic
// success.
var ErrCeiling = errors.New("poll ceiling reached")

// Until invokes predicate immediately and then once per interval until the
// predicate reports done, returns an error, the ceiling elapses, or ctx is
// cancelled. A predicate error aborts the loop; predicates that tolerate
// transient failures must absorb them internally.
func Until(ctx context.Context, interval, ceiling time.Duration, predicate func(context.Context) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := predicate(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrCeiling
		case <-ticker.C:
		}
	}
}
