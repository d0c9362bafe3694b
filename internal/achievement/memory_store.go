package achievement

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore returns an in-memory VersionedStore intended for local development
// and tests. Wrap it with NewRetryingStore to obtain a Store.
func NewMemoryStore() VersionedStore {
	return &memoryStore{states: make(map[string]State)}
}

func (s *memoryStore) Get(_ context.Context, userID string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	if !ok {
		return State{UserID: userID, EarnedBadgeIDs: []BadgeID{}}, nil
	}
	st.EarnedBadgeIDs = append([]BadgeID(nil), st.EarnedBadgeIDs...)
	return st, nil
}

func (s *memoryStore) CompareAndSwap(_ context.Context, next State, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[next.UserID].Version != expected {
		return ErrConflict
	}
	next.EarnedBadgeIDs = append([]BadgeID(nil), next.EarnedBadgeIDs...)
	s.states[next.UserID] = next
	return nil
}
