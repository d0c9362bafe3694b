package team

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	teams   map[string]Team
	configs map[string]RankingConfig
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		teams:   make(map[string]Team),
		configs: make(map[string]RankingConfig),
	}
}

func (r *memoryRepository) Get(_ context.Context, teamID string) (Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[teamID]
	if !ok {
		return Team{}, ErrNotFound
	}
	return cloneTeam(t), nil
}

func (r *memoryRepository) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.teams))
	for id := range r.teams {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryRepository) TeamsForUser(_ context.Context, userID string) ([]Team, error) {
	r.mu.RLock()
	var out []Team
	for _, t := range r.teams {
		if _, ok := t.Member(userID); ok {
			out = append(out, cloneTeam(t))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) Upsert(_ context.Context, t Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[t.ID] = cloneTeam(t)
	return nil
}

func (r *memoryRepository) GetRankingConfig(_ context.Context, teamID string) (RankingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[teamID]
	if !ok {
		return RankingConfig{}, ErrNotFound
	}
	cfg.ManualOrder = append([]string(nil), cfg.ManualOrder...)
	return cfg, nil
}

func (r *memoryRepository) SaveRankingConfig(_ context.Context, teamID string, cfg RankingConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[teamID]; !ok {
		return ErrNotFound
	}
	cfg.ManualOrder = append([]string(nil), cfg.ManualOrder...)
	r.configs[teamID] = cfg
	return nil
}

func cloneTeam(t Team) Team {
	t.Members = append([]Member(nil), t.Members...)
	return t
}
