package store

import (
	"context"
	"sync"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps sessions in process memory. Senders idle for longer than the
// TTL expire, and the least recently used sender is evicted past maxSenders.
type MemoryStore struct {
	mu       sync.Mutex // serializes read-modify-write on a single sender
	sessions *expirable.LRU[string, []domain.Turn]
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemory creates an in-memory store. Zero maxSenders or ttl disables the bound.
func NewMemory(maxSenders int, ttl time.Duration) *MemoryStore {
	if maxSenders < 0 {
		maxSenders = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryStore{
		sessions: expirable.NewLRU[string, []domain.Turn](maxSenders, nil, ttl),
	}
}

// Get implements SessionStore.
func (m *MemoryStore) Get(_ context.Context, senderID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns, ok := m.sessions.Get(senderID)
	if !ok {
		return nil, nil
	}
	return &domain.Session{SenderID: senderID, Turns: domain.Window(turns, domain.MaxSessionTurns)}, nil
}

// GetOrCreate implements SessionStore.
func (m *MemoryStore) GetOrCreate(_ context.Context, senderID, greeting string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turns, ok := m.sessions.Get(senderID); ok {
		return &domain.Session{SenderID: senderID, Turns: domain.Window(turns, domain.MaxSessionTurns)}, nil
	}

	session := domain.NewSession(senderID, greeting)
	m.sessions.Add(senderID, domain.Window(session.Turns, domain.MaxSessionTurns))
	return session, nil
}

// Append implements SessionStore.
func (m *MemoryStore) Append(_ context.Context, senderID, greeting string, turns ...domain.Turn) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions.Get(senderID)
	if !ok && greeting != "" {
		existing = domain.NewSession(senderID, greeting).Turns
	}
	session := &domain.Session{SenderID: senderID, Turns: domain.Window(existing, domain.MaxSessionTurns)}
	session.Append(turns...)
	m.sessions.Add(senderID, domain.Window(session.Turns, domain.MaxSessionTurns))
	return session, nil
}

// Len reports how many senders currently hold a session.
func (m *MemoryStore) Len() int {
	return m.sessions.Len()
}

// Ping implements SessionStore.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements SessionStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Purge()
	return nil
}
