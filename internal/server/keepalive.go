package server

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// keepAlive calls ping once per interval until ctx is done or ping fails.
func keepAlive(ctx context.Context, clock clockwork.Clock, interval time.Duration, ping func() error) error {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := ping(); err != nil {
				return err
			}
		}
	}
}
