package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/closerflow/whatsapp-agent/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix    = "closerflow:session:"
	redisMaxTxRetries = 3
)

// RedisStore keeps each session as a Redis list of JSON turns, oldest first.
// Appends run RPUSH, LTRIM and EXPIRE in one MULTI block under WATCH so the
// window is enforced server side and a vanished key is reseeded atomically.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ SessionStore = (*RedisStore)(nil)

// NewRedis wraps an existing client. A zero ttl keeps sessions until deleted.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(senderID string) string {
	return redisKeyPrefix + senderID
}

// Get implements SessionStore.
func (s *RedisStore) Get(ctx context.Context, senderID string) (*domain.Session, error) {
	raw, err := s.client.LRange(ctx, s.key(senderID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", senderID, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return decodeSession(senderID, raw)
}

// GetOrCreate implements SessionStore.
func (s *RedisStore) GetOrCreate(ctx context.Context, senderID, greeting string) (*domain.Session, error) {
	key := s.key(senderID)
	seed, err := json.Marshal(domain.AssistantTurn(greeting))
	if err != nil {
		return nil, fmt.Errorf("encode greeting: %w", err)
	}

	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		var raw []string
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			existing, err := tx.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				raw = existing
				if s.ttl > 0 {
					return tx.Expire(ctx, key, s.ttl).Err()
				}
				return nil
			}

			raw = []string{string(seed)}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.RPush(ctx, key, string(seed))
				if s.ttl > 0 {
					pipe.Expire(ctx, key, s.ttl)
				}
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get or create session %s: %w", senderID, err)
		}
		return decodeSession(senderID, raw)
	}
	return nil, fmt.Errorf("get or create session %s: %w", senderID, redis.TxFailedErr)
}

// Append implements SessionStore.
func (s *RedisStore) Append(ctx context.Context, senderID, greeting string, turns ...domain.Turn) (*domain.Session, error) {
	if len(turns) == 0 {
		session, err := s.Get(ctx, senderID)
		if err != nil || session != nil {
			return session, err
		}
		return &domain.Session{SenderID: senderID}, nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode turn: %w", err)
		}
		values = append(values, string(b))
	}
	var seed string
	if greeting != "" {
		b, err := json.Marshal(domain.AssistantTurn(greeting))
		if err != nil {
			return nil, fmt.Errorf("encode greeting: %w", err)
		}
		seed = string(b)
	}

	key := s.key(senderID)
	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		var window *redis.StringSliceCmd
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			push := values
			if seed != "" {
				n, err := tx.Exists(ctx, key).Result()
				if err != nil {
					return err
				}
				if n == 0 {
					push = append([]interface{}{seed}, values...)
				}
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.RPush(ctx, key, push...)
				pipe.LTrim(ctx, key, -int64(domain.MaxSessionTurns), -1)
				if s.ttl > 0 {
					pipe.Expire(ctx, key, s.ttl)
				}
				window = pipe.LRange(ctx, key, 0, -1)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("append to session %s: %w", senderID, err)
		}
		return decodeSession(senderID, window.Val())
	}
	return nil, fmt.Errorf("append to session %s: %w", senderID, redis.TxFailedErr)
}

// Ping implements SessionStore.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements SessionStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeSession(senderID string, raw []string) (*domain.Session, error) {
	turns := make([]domain.Turn, 0, len(raw))
	for _, item := range raw {
		var t domain.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn for %s: %w", senderID, err)
		}
		turns = append(turns, t)
	}
	return &domain.Session{SenderID: senderID, Turns: domain.Window(turns, domain.MaxSessionTurns)}, nil
}
