package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
)

// Sentinel errors shared by all storage implementations.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
)

// All repository interfaces in one file
type (
	// SessionRepository persists accumulator session state between calls.
	SessionRepository interface {
		Create(ctx context.Context, session *model.Session) error
		Get(ctx context.Context, id string) (*model.Session, error)
		// Update applies optimistic concurrency on Session.Version and
		// returns ErrVersionConflict when the stored version moved.
		Update(ctx context.Context, session *model.Session) error
		// ListExpired returns ACTIVE sessions whose last input is older
		// than the timeout, for the expiry sweep.
		ListExpired(ctx context.Context, now time.Time, timeout time.Duration) ([]*model.Session, error)
		Delete(ctx context.Context, id string) error
	}

	// CaseRepository persists cases, their follow-ups, and the secondary
	// indexes by (risk rank, created_at) and by user.
	CaseRepository interface {
		Create(ctx context.Context, c *model.Case) error
		Get(ctx context.Context, id uuid.UUID) (*model.Case, error)
		// Update applies optimistic concurrency on Case.Version and
		// returns ErrVersionConflict when the stored version moved.
		Update(ctx context.Context, c *model.Case) error
		// AppendFollowUp adds to the append-only trail under the same
		// version guard as Update.
		AppendFollowUp(ctx context.Context, c *model.Case, fu *model.FollowUp) error
		List(ctx context.Context, filters model.CaseFilters) ([]*model.Case, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Case, error)
		// DueReminders returns every unnotified follow-up reminder with
		// reminder_time <= now, across all cases. Safe to call repeatedly.
		DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
		// MarkReminderNotified marks a reminder notified exactly once;
		// a second call for the same follow-up returns ErrNotFound.
		MarkReminderNotified(ctx context.Context, followUpID uuid.UUID, at time.Time) error
		// Purge removes the case and its linked data entirely, honoring a
		// data-deletion request.
		Purge(ctx context.Context, id uuid.UUID) error
	}

	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLog) error
		List(ctx context.Context, caseID uuid.UUID) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		Update(ctx context.Context, n *model.Notification) error
		// ListUndelivered returns pending or failed notifications below the
		// retry budget, oldest first, for the delivery worker.
		ListUndelivered(ctx context.Context, maxRetries int, limit int) ([]*model.Notification, error)
	}
)
