package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is how often StartJanitor purges expired sessions.
const DefaultJanitorInterval = 10 * time.Minute

// Purger is implemented by stores whose expired sessions need explicit removal.
// The memory and Redis stores expire entries on their own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartJanitor periodically purges expired sessions until ctx is done. It
// returns false without starting anything when s does not implement Purger.
func StartJanitor(ctx context.Context, s SessionStore, interval time.Duration) bool {
	purger, ok := s.(Purger)
	if !ok {
		return false
	}
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session janitor started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				purgeExpired(ctx, purger)
			case <-ctx.Done():
				slog.Info("Session janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return true
}

func purgeExpired(ctx context.Context, p Purger) {
	removed, err := p.PurgeExpired(ctx)
	if err != nil {
		slog.Error("Session janitor failed to purge expired sessions", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("Session janitor purged expired sessions", "count", removed)
	}
}
