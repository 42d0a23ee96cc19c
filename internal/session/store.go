package session

import (
	"context"
	"sync"
)

// Store persists the active session for each portal client. Get returns
// (nil, nil) when no session is present. Clear removes the identity and the
// credential token together; a completed Clear never leaves one behind.
type Store interface {
	Set(ctx context.Context, clientID string, sess *Session) error
	Get(ctx context.Context, clientID string) (*Session, error)
	Clear(ctx context.Context, clientID string) error
}

// MemoryStore is an in-process Store for tests and development. It does not
// survive a restart; production deployments use RedisStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) Set(_ context.Context, clientID string, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[clientID] = *sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, clientID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[clientID]
	if !ok {
		return nil, nil
	}
	copied := sess
	return &copied, nil
}

func (s *MemoryStore) Clear(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, clientID)
	return nil
}
