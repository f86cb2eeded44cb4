package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	mu  sync.Mutex // serializes writers to avoid SQLITE_BUSY
	now func() time.Time
}

var _ SessionStore = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the database at dbPath. Sessions idle for longer
// than ttl are treated as absent until PurgeExpired removes them; a zero ttl
// keeps them forever.
func NewSQLite(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		sender_id TEXT PRIMARY KEY,
		turns_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// expiredBefore returns the cutoff below which a session is stale, or 0 when TTL is off.
func (s *SQLiteStore) expiredBefore() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return s.now().Add(-s.ttl).Unix()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, senderID string) ([]domain.Turn, bool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT turns_json FROM sessions WHERE sender_id = ? AND updated_at >= ?`,
		senderID, s.expiredBefore())

	var raw string
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan session row: %w", err)
	}

	var turns []domain.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("decode session %s: %w", senderID, err)
	}
	return domain.Window(turns, domain.MaxSessionTurns), true, nil
}

// Get implements SessionStore.
func (s *SQLiteStore) Get(ctx context.Context, senderID string) (*domain.Session, error) {
	turns, ok, err := s.load(ctx, s.db, senderID)
	if err != nil || !ok {
		return nil, err
	}
	return &domain.Session{SenderID: senderID, Turns: turns}, nil
}

// GetOrCreate implements SessionStore.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, senderID, greeting string) (*domain.Session, error) {
	var session *domain.Session
	err := s.withBusyRetry(ctx, "get or create session", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			turns, ok, err := s.load(ctx, tx, senderID)
			if err != nil {
				return err
			}
			if ok {
				session = &domain.Session{SenderID: senderID, Turns: turns}
				return nil
			}

			session = domain.NewSession(senderID, greeting)
			return s.save(ctx, tx, session)
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Append implements SessionStore.
func (s *SQLiteStore) Append(ctx context.Context, senderID, greeting string, turns ...domain.Turn) (*domain.Session, error) {
	var session *domain.Session
	err := s.withBusyRetry(ctx, "append to session", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			existing, found, err := s.load(ctx, tx, senderID)
			if err != nil {
				return err
			}
			if !found && greeting != "" {
				existing = domain.NewSession(senderID, greeting).Turns
			}
			session = &domain.Session{SenderID: senderID, Turns: existing}
			session.Append(turns...)
			return s.save(ctx, tx, session)
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) save(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	raw, err := json.Marshal(session.Turns)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.SenderID, err)
	}
	now := s.now().Unix()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO sessions (sender_id, turns_json, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(sender_id) DO UPDATE SET
		turns_json = excluded.turns_json,
		updated_at = excluded.updated_at`,
		session.SenderID, string(raw), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("failed to roll back session transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions idle for longer than the TTL and reports how
// many were removed. Stale rows are already invisible to reads; this only
// reclaims space.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.expiredBefore()
	if cutoff == 0 {
		return 0, nil
	}
	var removed int64
	err := s.withBusyRetry(ctx, "purge expired sessions", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
			if err != nil {
				return fmt.Errorf("delete expired sessions: %w", err)
			}
			removed, err = res.RowsAffected()
			return err
		})
	})
	return removed, err
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
