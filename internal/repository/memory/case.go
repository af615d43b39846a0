// Package memory provides in-memory repository implementations used by
// single-node deployments and tests. Semantics mirror the postgres
// implementations, including optimistic version checks.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
)

type CaseRepository struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]*model.Case
}

func NewCaseRepository() *CaseRepository {
	return &CaseRepository{cases: make(map[uuid.UUID]*model.Case)}
}

func (r *CaseRepository) Create(_ context.Context, c *model.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneCase(c)
	r.cases[c.ID] = cp
	return nil
}

func (r *CaseRepository) Get(_ context.Context, id uuid.UUID) (*model.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCase(c), nil
}

func (r *CaseRepository) Update(_ context.Context, c *model.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	cp := cloneCase(c)
	cp.Version++
	r.cases[c.ID] = cp
	c.Version = cp.Version
	return nil
}

func (r *CaseRepository) AppendFollowUp(_ context.Context, c *model.Case, fu *model.FollowUp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.cases[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != c.Version {
		return repository.ErrVersionConflict
	}
	stored.FollowUps = append(stored.FollowUps, *fu)
	stored.Status = c.Status
	stored.AssignedAshaID = c.AssignedAshaID
	stored.UpdatedAt = c.UpdatedAt
	stored.Version++
	c.Version = stored.Version
	c.FollowUps = append(c.FollowUps, *fu)
	return nil
}

func (r *CaseRepository) List(_ context.Context, filters model.CaseFilters) ([]*model.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Case
	for _, c := range r.cases {
		if filters.Match(c) {
			out = append(out, cloneCase(c))
		}
	}
	return out, nil
}

func (r *CaseRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Case
	for _, c := range r.cases {
		if c.UserID == userID {
			out = append(out, cloneCase(c))
		}
	}
	return out, nil
}

func (r *CaseRepository) DueReminders(_ context.Context, now time.Time) ([]model.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Reminder
	for _, c := range r.cases {
		for _, rem := range c.PendingReminders() {
			if !rem.ReminderTime.After(now) {
				out = append(out, rem)
			}
		}
	}
	return out, nil
}

func (r *CaseRepository) MarkReminderNotified(_ context.Context, followUpID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cases {
		for i := range c.FollowUps {
			fu := &c.FollowUps[i]
			if fu.ID == followUpID {
				if fu.NotifiedAt != nil {
					return repository.ErrNotFound
				}
				t := at
				fu.NotifiedAt = &t
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (r *CaseRepository) Purge(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.cases, id)
	return nil
}

func cloneCase(c *model.Case) *model.Case {
	cp := *c
	cp.SymptomData = c.SymptomData.Clone()
	cp.Assessment.ContributingFactors = append([]string(nil), c.Assessment.ContributingFactors...)
	cp.FollowUps = append([]model.FollowUp(nil), c.FollowUps...)
	if c.AssignedAshaID != nil {
		id := *c.AssignedAshaID
		cp.AssignedAshaID = &id
	}
	return &cp
}
