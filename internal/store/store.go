// Package store keeps per-sender conversation sessions between webhook invocations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore maps a sender identity to its bounded conversation history.
//
// Every operation is safe for concurrent use. Read-modify-write sequences that span
// several calls are not isolated: concurrent requests for the same sender resolve
// as last writer wins. Returned sessions are copies owned by the caller.
type SessionStore interface {
	// Get returns the sender's session, or nil when none exists.
	Get(ctx context.Context, senderID string) (*domain.Session, error)

	// GetOrCreate returns the sender's session, creating it with a single
	// assistant greeting turn when absent.
	GetOrCreate(ctx context.Context, senderID, greeting string) (*domain.Session, error)

	// Append adds turns in order, keeps the most recent domain.MaxSessionTurns
	// and returns the stored result. When the session is absent (expired or
	// evicted since it was loaded) and greeting is non-empty, the greeting turn
	// is seeded first in the same atomic step.
	Append(ctx context.Context, senderID, greeting string, turns ...domain.Turn) (*domain.Session, error)

	// Ping verifies that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Driver names accepted by New.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by New for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown session store driver")

// Options configures New.
type Options struct {
	Driver     string
	TTL        time.Duration // idle expiry per sender, 0 disables
	MaxSenders int           // memory driver key bound, 0 means unbounded
	RedisURL   string
	SQLitePath string
}

// New builds the session store selected by opts.Driver.
func New(ctx context.Context, opts Options) (SessionStore, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(opts.MaxSenders, opts.TTL), nil
	case DriverRedis:
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		s := NewRedis(redis.NewClient(redisOpts), opts.TTL)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return s, nil
	case DriverSQLite:
		s, err := NewSQLite(opts.SQLitePath, opts.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
