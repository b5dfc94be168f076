package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"meridian/contexts/identity-access/session-service/domain/entities"
	domainerrors "meridian/contexts/identity-access/session-service/domain/errors"

	"github.com/google/uuid"
)

// Store keeps sessions in a map. Used for tests and local development.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entities.Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]entities.Session),
	}
}

func (s *Store) GetSession(_ context.Context, token string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) PutSession(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimSpace(session.Token)
	if token == "" {
		return domainerrors.ErrInvalidInput
	}
	s.sessions[token] = session
	return nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(token)
	if _, ok := s.sessions[key]; !ok {
		return domainerrors.ErrSessionNotFound
	}
	delete(s.sessions, key)
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewToken(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
