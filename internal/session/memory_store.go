package session

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemoryStore returns an in-process store, used when Redis is not
// configured and in tests. Expired records are dropped lazily on read.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]domain.Session)}
}

func (s *memoryStore) Save(_ context.Context, session *domain.Session) error {
	if err := validate(session); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = *session
	return nil
}

func (s *memoryStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	stored, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	copied := stored
	return &copied, nil
}

func (s *memoryStore) Clear(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
