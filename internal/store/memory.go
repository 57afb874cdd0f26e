package store

import (
	"context"
	"sync"

	"github.com/quizlab/trivia-backend/internal/types"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.QuizSession
}

// NewMemoryStore returns a SessionStore held in process memory. Used for
// single-node deployments without redis, and by the engine tests.
func NewMemoryStore() SessionStore {
	return &memoryStore{sessions: make(map[string]*types.QuizSession)}
}

func (s *memoryStore) Create(_ context.Context, rec *types.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[rec.SessionID]; ok {
		return ErrAlreadyExists
	}
	rec.Version = 1
	s.sessions[rec.SessionID] = rec.Clone()
	return nil
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (*types.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *memoryStore) CompareAndSwap(_ context.Context, sessionID string, expectedVersion int64, rec *types.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	rec.Version = expectedVersion + 1
	s.sessions[sessionID] = rec.Clone()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *memoryStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}
