package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// StateStore persists one-time OAuth state tokens. Consume must succeed at
// most once per token so replayed callbacks fail state validation.
type StateStore interface {
	Store(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) error
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// MemoryStateStore keeps state tokens in process memory. Suitable for a
// single instance; multi-instance deployments use RedisStateStore so the
// callback can land on any replica.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

func (s *MemoryStateStore) Store(ctx context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.states[state]
	if !ok {
		return ErrInvalidState
	}
	delete(s.states, state)
	if time.Now().After(expiresAt) {
		return ErrInvalidState
	}
	return nil
}
