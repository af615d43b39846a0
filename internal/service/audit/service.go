package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
	"github.com/jwalitptl/triage-api/pkg/logger"
)

type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, l *logger.Logger) *Service {
	return &Service{repo: repo, logger: l}
}

type LogOptions struct {
	Metadata  interface{}
	RequestID string
}

// Log appends one audit entry. Audit failures are logged but never fail the
// calling operation; the trail is best-effort durable, the operation is not
// rolled back on a trail write error.
func (s *Service) Log(ctx context.Context, actorID, caseID uuid.UUID, action, entityType string, opts *LogOptions) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		CaseID:     caseID,
		Action:     action,
		EntityType: entityType,
		CreatedAt:  time.Now().UTC(),
	}
	if opts != nil {
		entry.RequestID = opts.RequestID
		if opts.Metadata != nil {
			metadata, err := json.Marshal(opts.Metadata)
			if err != nil {
				s.logger.Error(err, "failed to marshal audit metadata", "action", action)
			} else {
				entry.Metadata = metadata
			}
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log", "action", action, "case_id", caseID)
	}
}

func (s *Service) List(ctx context.Context, caseID uuid.UUID) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, caseID)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
