package readview

import (
	"context"
	"time"
)

// Watch calls emit right away, then on every period tick and every signal on
// changes, until ctx ends or emit fails. The ticker never outlives the call.
func Watch(ctx context.Context, period time.Duration, changes <-chan struct{}, emit func(now time.Time) error) error {
	if err := emit(time.Now()); err != nil {
		return err
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := emit(now); err != nil {
				return err
			}
		case <-changes:
			if err := emit(time.Now()); err != nil {
				return err
			}
		}
	}
}
