package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spacesedan/complaintflow/internal/models"
)

// MemoryRepository keeps complaints in a map. Data is lost on restart.
type MemoryRepository struct {
	mu         sync.RWMutex
	complaints map[string]models.Complaint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{complaints: map[string]models.Complaint{}}
}

func (r *MemoryRepository) Create(ctx context.Context, c models.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.complaints[c.ID]; exists {
		return fmt.Errorf("create %s: %w", c.ID, ErrDuplicateID)
	}
	r.complaints[c.ID] = c
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (models.Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.complaints[id]
	if !ok {
		return models.Complaint{}, fmt.Errorf("get %s: %w", id, ErrComplaintNotFound)
	}
	return c, nil
}

func (r *MemoryRepository) List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	r.mu.RLock()
	out := make([]models.Complaint, 0, len(r.complaints))
	for _, c := range r.complaints {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(out)
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status models.Status, at time.Time) (models.Complaint, error) {
	if !validStatus(status) {
		return models.Complaint{}, fmt.Errorf("update %s to %q: %w", id, status, ErrInvalidStatus)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[id]
	if !ok {
		return models.Complaint{}, fmt.Errorf("update %s: %w", id, ErrComplaintNotFound)
	}
	c.Status = status
	c.ResolvedAt = resolvedAtFor(status, at)
	r.complaints[id] = c
	return c, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) (models.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.complaints[id]
	if !ok {
		return models.Complaint{}, fmt.Errorf("delete %s: %w", id, ErrComplaintNotFound)
	}
	delete(r.complaints, id)
	return c, nil
}

func (r *MemoryRepository) Analytics(ctx context.Context, now time.Time) (*models.Analytics, error) {
	r.mu.RLock()
	all := make([]models.Complaint, 0, len(r.complaints))
	for _, c := range r.complaints {
		all = append(all, c)
	}
	r.mu.RUnlock()
	return Summarize(all, now), nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}
