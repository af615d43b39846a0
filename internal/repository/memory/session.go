package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*model.Session)}
}

func (r *SessionRepository) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) Update(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != s.Version {
		return repository.ErrVersionConflict
	}
	cp := cloneSession(s)
	cp.Version++
	r.sessions[s.ID] = cp
	s.Version = cp.Version
	return nil
}

func (r *SessionRepository) ListExpired(_ context.Context, now time.Time, timeout time.Duration) ([]*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if s.Expired(now, timeout) {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func cloneSession(s *model.Session) *model.Session {
	cp := *s
	cp.SymptomData = s.SymptomData.Clone()
	cp.History = append([]model.ConversationEntry(nil), s.History...)
	return &cp
}
