// Package tokenstore persists the single bearer token that authenticates the
// storefront client against the catalog backend.
package tokenstore

import (
	"context"
	"sync"
)

// Store is durable storage for one bearer token. Implementations are read on
// every outgoing request and written only by login, logout and a 401.
type Store interface {
	// Load returns the stored token. ok is false when no token is stored.
	Load(ctx context.Context) (token string, ok bool, err error)
	// Save replaces the stored token.
	Save(ctx context.Context, token string) error
	// Clear removes the token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Pinger is implemented by stores backed by an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore keeps the token in process memory. Used by tests and by
// TOKEN_STORE=memory for one-shot invocations.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store pre-filled with token, if non-empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Load(context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != "", nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
