package store

import (
	"context"
	"sync"

	"mark-engine/api/internal/marking/types"
)

// MemoryAttemptRepo keeps attempts in process memory. Used when no database is configured.
type MemoryAttemptRepo struct {
	mu       sync.RWMutex
	attempts map[string][]types.Attempt
}

func NewMemoryAttemptRepo() *MemoryAttemptRepo {
	return &MemoryAttemptRepo{attempts: make(map[string][]types.Attempt)}
}

func (r *MemoryAttemptRepo) Append(_ context.Context, res types.MarkingResult) (types.Attempt, error) {
	a, err := newAttempt(res)
	if err != nil {
		return types.Attempt{}, err
	}
	r.mu.Lock()
	r.attempts[a.QuestionLegacyID] = append(r.attempts[a.QuestionLegacyID], a)
	r.mu.Unlock()
	return a, nil
}

func (r *MemoryAttemptRepo) List(_ context.Context, questionLegacyID string) ([]types.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.attempts[questionLegacyID]
	out := make([]types.Attempt, len(src))
	copy(out, src)
	return out, nil
}
