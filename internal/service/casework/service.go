// Package casework owns the case lifecycle: creation from an assessment,
// the status state machine, follow-up and reminder scheduling, and the
// canonical priority ordering used for queue and dashboard presentation.
package casework

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
	"github.com/jwalitptl/triage-api/internal/service/audit"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

type Service struct {
	repo    repository.CaseRepository
	auditor *audit.Service
	metrics *metrics.Metrics

	// locks serializes mutations per case in-process; the repository's
	// version check guards cross-process races.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	conflictRetries int
}

func NewService(repo repository.CaseRepository, auditor *audit.Service, m *metrics.Metrics, conflictRetries int) *Service {
	if conflictRetries < 0 {
		conflictRetries = 0
	}
	return &Service{
		repo:            repo,
		auditor:         auditor,
		metrics:         m,
		locks:           make(map[uuid.UUID]*sync.Mutex),
		conflictRetries: conflictRetries,
	}
}

// CreateParams carries everything needed to open a case from a completed
// (or escalated) assessment.
type CreateParams struct {
	UserID       uuid.UUID
	SessionID    string
	Channel      string
	SymptomData  model.SymptomData
	Assessment   model.Assessment
	ManualReview bool
}

// CreateCase opens a case in NEW status. Case IDs are generated here and
// never reused; concurrent creations cannot collide.
func (s *Service) CreateCase(ctx context.Context, p CreateParams) (*model.Case, error) {
	now := time.Now().UTC()
	c := &model.Case{
		ID:           uuid.New(),
		UserID:       p.UserID,
		SessionID:    p.SessionID,
		Channel:      p.Channel,
		SymptomData:  p.SymptomData.Clone(),
		Assessment:   p.Assessment,
		RiskLevel:    p.Assessment.RiskLevel,
		Status:       model.CaseStatusNew,
		ManualReview: p.ManualReview,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	s.metrics.CasesCreated.Inc()
	s.metrics.AssessmentsByTier.WithLabelValues(string(c.RiskLevel)).Inc()
	if p.ManualReview {
		s.metrics.ManualReviews.Inc()
	}

	s.auditor.Log(ctx, c.UserID, c.ID, model.AuditActionCreate, model.AuditEntityCase, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"risk_level":    c.RiskLevel,
			"confidence":    c.Assessment.Confidence,
			"manual_review": c.ManualReview,
		},
	})
	return c, nil
}

func (s *Service) GetCase(ctx context.Context, id, actorID uuid.UUID) (*model.Case, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("case", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	s.auditor.Log(ctx, actorID, id, model.AuditActionRead, model.AuditEntityCase, nil)
	return c, nil
}

// ListCases filters, applies the canonical priority ordering, then
// paginates. Filtering always happens before ordering.
func (s *Service) ListCases(ctx context.Context, filters model.CaseFilters, page model.Pagination, actorID uuid.UUID) ([]model.CaseView, error) {
	cases, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	model.SortByPriority(cases)

	page = page.Normalize()
	start := (page.Page - 1) * page.PageSize
	if start > len(cases) {
		start = len(cases)
	}
	end := start + page.PageSize
	if end > len(cases) {
		end = len(cases)
	}

	views := make([]model.CaseView, 0, end-start)
	for _, c := range cases[start:end] {
		views = append(views, model.NewCaseView(c))
	}

	s.auditor.Log(ctx, actorID, uuid.Nil, model.AuditActionList, model.AuditEntityCase, nil)
	return views, nil
}

func (s *Service) UserHistory(ctx context.Context, userID, actorID uuid.UUID) ([]model.CaseView, error) {
	cases, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user cases: %w", err)
	}
	model.SortByPriority(cases)
	views := make([]model.CaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, model.NewCaseView(c))
	}
	s.auditor.Log(ctx, actorID, uuid.Nil, model.AuditActionList, model.AuditEntityCase, &audit.LogOptions{
		Metadata: map[string]interface{}{"user_id": userID},
	})
	return views, nil
}

// UpdateStatus runs the status state machine. Every accepted transition
// appends a follow-up record carrying the acting worker and timestamp; a
// rejected transition leaves state and updatedAt untouched.
func (s *Service) UpdateStatus(ctx context.Context, caseID, ashaID uuid.UUID, next model.CaseStatus, notes string) (*model.Case, error) {
	if !next.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown status %q", next), nil)
	}
	return s.mutate(ctx, caseID, func(c *model.Case) (*model.FollowUp, error) {
		if !c.Status.CanTransitionTo(next) {
			s.metrics.TransitionRejected.Inc()
			return nil, apperrors.InvalidTransition(string(c.Status), string(next))
		}
		from := c.Status
		c.Status = next
		if c.AssignedAshaID == nil {
			id := ashaID
			c.AssignedAshaID = &id
		}
		s.metrics.StatusTransitions.WithLabelValues(string(from), string(next)).Inc()
		return &model.FollowUp{
			ID:        uuid.New(),
			CaseID:    caseID,
			AshaID:    ashaID,
			Action:    model.FollowUpActionStatusChange,
			Notes:     fmt.Sprintf("%s -> %s. %s", from, next, notes),
			Timestamp: time.Now().UTC(),
		}, nil
	}, ashaID, model.AuditActionStatus)
}

// AddFollowUp appends a worker note to the case trail.
func (s *Service) AddFollowUp(ctx context.Context, caseID, ashaID uuid.UUID, notes, action string) (*model.Case, error) {
	if action == "" {
		action = model.FollowUpActionNote
	}
	return s.mutate(ctx, caseID, func(c *model.Case) (*model.FollowUp, error) {
		return &model.FollowUp{
			ID:        uuid.New(),
			CaseID:    caseID,
			AshaID:    ashaID,
			Action:    action,
			Notes:     notes,
			Timestamp: time.Now().UTC(),
		}, nil
	}, ashaID, model.AuditActionFollowUp)
}

// ScheduleFollowUp appends a follow-up carrying a future reminder time.
// A reminder not strictly in the future is rejected and nothing is appended.
func (s *Service) ScheduleFollowUp(ctx context.Context, caseID, ashaID uuid.UUID, reminderTime time.Time, notes string) (*model.Case, error) {
	if !reminderTime.After(time.Now()) {
		return nil, apperrors.PastReminder(reminderTime)
	}
	return s.mutate(ctx, caseID, func(c *model.Case) (*model.FollowUp, error) {
		rt := reminderTime
		return &model.FollowUp{
			ID:           uuid.New(),
			CaseID:       caseID,
			AshaID:       ashaID,
			Action:       model.FollowUpActionReminder,
			Notes:        notes,
			Timestamp:    time.Now().UTC(),
			ReminderTime: &rt,
		}, nil
	}, ashaID, model.AuditActionReminder)
}

// DueReminders returns every unnotified reminder due at or before now.
// The query itself marks nothing; callers mark via MarkReminderNotified, so
// repeated calls are safe.
func (s *Service) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	reminders, err := s.repo.DueReminders(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	return reminders, nil
}

// MarkReminderNotified marks a reminder notified exactly once. The second
// and later attempts report false with no error.
func (s *Service) MarkReminderNotified(ctx context.Context, followUpID uuid.UUID) (bool, error) {
	err := s.repo.MarkReminderNotified(ctx, followUpID, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder notified: %w", err)
	}
	s.metrics.RemindersNotified.Inc()
	return true, nil
}

// DeleteCase honors an explicit data-deletion request: the case and its
// linked symptom data are fully purged.
func (s *Service) DeleteCase(ctx context.Context, caseID, actorID uuid.UUID) error {
	lock := s.lockFor(caseID)
	lock.Lock()
	defer lock.Unlock()

	err := s.repo.Purge(ctx, caseID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("case", err)
	}
	if err != nil {
		return fmt.Errorf("failed to purge case: %w", err)
	}
	s.auditor.Log(ctx, actorID, caseID, model.AuditActionDelete, model.AuditEntityCase, nil)
	return nil
}

// mutate serializes one mutation per case and retries version conflicts a
// bounded number of times before surfacing ConcurrencyConflict.
func (s *Service) mutate(ctx context.Context, caseID uuid.UUID, fn func(*model.Case) (*model.FollowUp, error), actorID uuid.UUID, auditAction string) (*model.Case, error) {
	lock := s.lockFor(caseID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt <= s.conflictRetries; attempt++ {
		c, err := s.repo.Get(ctx, caseID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("case", err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load case: %w", err)
		}

		fu, err := fn(c)
		if err != nil {
			return nil, err
		}

		c.UpdatedAt = time.Now().UTC()
		err = s.repo.AppendFollowUp(ctx, c, fu)
		if errors.Is(err, repository.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to apply case mutation: %w", err)
		}

		s.auditor.Log(ctx, actorID, caseID, auditAction, model.AuditEntityCase, &audit.LogOptions{
			Metadata: map[string]interface{}{"follow_up_id": fu.ID, "action": fu.Action},
		})
		return c, nil
	}
	return nil, apperrors.ConcurrencyConflict("case "+caseID.String(), lastErr)
}

func (s *Service) lockFor(caseID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[caseID] = lock
	}
	return lock
}
