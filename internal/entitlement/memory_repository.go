package entitlement

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	grants map[int64]time.Time
}

// NewMemoryRepository builds an in-memory entitlement store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{grants: make(map[int64]time.Time)}
}

func (r *memoryRepository) Grant(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grants[userID]; !ok {
		r.grants[userID] = time.Now().UTC()
	}
	return nil
}

func (r *memoryRepository) Revoke(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants, userID)
	return nil
}

func (r *memoryRepository) Has(_ context.Context, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grants[userID]
	return ok, nil
}

func (r *memoryRepository) List(context.Context) ([]Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entitlement, 0, len(r.grants))
	for id, at := range r.grants {
		out = append(out, Entitlement{UserID: id, GrantedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}
