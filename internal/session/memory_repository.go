package session

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	sessions map[int64]UserSession
}

// NewMemoryRepository builds an in-memory session store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{sessions: make(map[int64]UserSession)}
}

func (r *memoryRepository) Get(_ context.Context, userID int64) (UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	if !ok {
		return UserSession{}, ErrNotFound
	}
	return s, nil
}

func (r *memoryRepository) Put(_ context.Context, s UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.UserID] = s
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}

func (r *memoryRepository) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}
