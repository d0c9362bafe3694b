package workout

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	store map[string]map[string]Record // userID -> workoutID -> Record
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		store: make(map[string]map[string]Record),
	}
}

func (r *memoryRepository) Create(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userStore, ok := r.store[record.UserID]
	if !ok {
		userStore = make(map[string]Record)
		r.store[record.UserID] = userStore
	}

	if _, exists := userStore[record.ID]; exists {
		return ErrConflict
	}

	userStore[record.ID] = record
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, userID, workoutID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userStore, ok := r.store[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec, ok := userStore[workoutID]
	if !ok {
		return Record{}, ErrNotFound
	}
	delete(userStore, workoutID)
	return rec, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Record, error) {
	r.mu.RLock()
	userStore := r.store[userID]
	out := make([]Record, 0, len(userStore))
	for _, rec := range userStore {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sortByOccurrence(out)
	return out, nil
}

func (r *memoryRepository) ListByTeam(_ context.Context, teamID string) ([]Record, error) {
	r.mu.RLock()
	out := make([]Record, 0)
	for _, userStore := range r.store {
		for _, rec := range userStore {
			if rec.TeamID == teamID {
				out = append(out, rec)
			}
		}
	}
	r.mu.RUnlock()

	sortByOccurrence(out)
	return out, nil
}
