// Package accumulator merges partial, multi-turn symptom reports into one
// profile per session and decides when that profile is complete.
package accumulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/logger"
)

var severityRank = map[model.Severity]int{
	model.SeverityMild:     1,
	model.SeverityModerate: 2,
	model.SeveritySevere:   3,
}

var clarificationQuestions = map[string]string{
	model.FieldSymptom:  "I could not identify a symptom yet. Can you describe what you are feeling?",
	model.FieldSeverity: "How bad is it - mild, moderate, or severe?",
	model.FieldDuration: "How long have you had this?",
}

type Service struct {
	sessions         repository.SessionRepository
	extractor        Extractor
	sessionTimeout   time.Duration
	extractionBudget time.Duration
	logger           *logger.Logger
}

func NewService(sessions repository.SessionRepository, extractor Extractor, sessionTimeout, extractionBudget time.Duration, l *logger.Logger) *Service {
	return &Service{
		sessions:         sessions,
		extractor:        extractor,
		sessionTimeout:   sessionTimeout,
		extractionBudget: extractionBudget,
		logger:           l,
	}
}

// Result is one accumulate outcome: the merged profile snapshot and at most
// one outstanding clarification question.
type Result struct {
	Session            *model.Session
	SymptomData        model.SymptomData
	NeedsClarification bool
	Question           string
}

// Accumulate merges one raw input into the session's running profile.
// The raw input is appended to the conversation history on every call,
// whether or not extraction succeeds. After merging it evaluates
// completeness and, if incomplete, selects the single highest-priority
// missing field and returns one question for it.
func (s *Service) Accumulate(ctx context.Context, sessionID string, userID uuid.UUID, channel, rawInput string, at time.Time) (*Result, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		session = s.newSession(sessionID, userID, channel, at)
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Status != model.SessionStatusActive {
		return nil, apperrors.BadRequest(
			fmt.Sprintf("session is %s and no longer accepts input", session.Status), nil)
	}

	// audit trail first, regardless of extraction outcome
	session.History = append(session.History, model.ConversationEntry{
		RawInput:  rawInput,
		Channel:   channel,
		Timestamp: at,
	})
	session.LastInputAt = at
	session.UpdatedAt = time.Now().UTC()

	extractCtx, cancel := context.WithTimeout(ctx, s.extractionBudget)
	defer cancel()

	extraction, err := s.extractor.Extract(extractCtx, rawInput)
	if err != nil {
		// persist the history even when the extraction model failed
		if saveErr := s.saveSession(ctx, session); saveErr != nil {
			s.logger.Error(saveErr, "failed to persist session after extraction failure", "session_id", sessionID)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.ExtractionTimeout(err)
		}
		return nil, fmt.Errorf("failed to extract symptoms: %w", err)
	}

	s.merge(session, extraction)

	missing := session.SymptomData.MissingField()
	if missing == "" {
		session.PendingQuestion = ""
		session.Status = model.SessionStatusComplete
	} else {
		session.PendingQuestion = clarificationQuestions[missing]
	}

	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	return &Result{
		Session:            session,
		SymptomData:        session.SymptomData.Clone(),
		NeedsClarification: missing != "",
		Question:           session.PendingQuestion,
	}, nil
}

// GetSession returns the persisted session state.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("session", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// ExpireSessions transitions every timed-out ACTIVE session to EXPIRED and
// returns them so their partial data can be escalated to manual review
// instead of silently discarded.
func (s *Service) ExpireSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	expired, err := s.sessions.ListExpired(ctx, now, s.sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	var out []*model.Session
	for _, session := range expired {
		session.Status = model.SessionStatusExpired
		session.PendingQuestion = ""
		session.UpdatedAt = now
		if err := s.sessions.Update(ctx, session); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				// raced with a late message; the next sweep re-evaluates
				continue
			}
			return nil, fmt.Errorf("failed to expire session %s: %w", session.ID, err)
		}
		out = append(out, session)
	}
	return out, nil
}

// SessionTimeout exposes the configured inactivity timeout.
func (s *Service) SessionTimeout() time.Duration {
	return s.sessionTimeout
}

func (s *Service) newSession(sessionID string, userID uuid.UUID, channel string, at time.Time) *model.Session {
	now := time.Now().UTC()
	return &model.Session{
		ID:          sessionID,
		UserID:      userID,
		Channel:     channel,
		Status:      model.SessionStatusActive,
		LastInputAt: at,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// merge applies one extraction to the running profile. Later detail unions
// with earlier detail; conflicting severity evidence is never silently
// resolved, it takes the higher severity and flags the conflict.
func (s *Service) merge(session *model.Session, extraction Extraction) {
	for _, sym := range extraction.Symptoms {
		session.SymptomData.MergeSymptom(sym)
	}

	if extraction.Severity != "" {
		current := session.SymptomData.Severity
		switch {
		case current == "":
			session.SymptomData.Severity = extraction.Severity
		case current != extraction.Severity:
			if session.SymptomData.Extensions == nil {
				session.SymptomData.Extensions = make(map[string]string)
			}
			session.SymptomData.Extensions["severity_conflict"] = "true"
			if severityRank[extraction.Severity] > severityRank[current] {
				session.SymptomData.Severity = extraction.Severity
			}
		}
	}

	if extraction.Duration != "" && session.SymptomData.Duration == "" {
		session.SymptomData.Duration = extraction.Duration
	}
}

func (s *Service) saveSession(ctx context.Context, session *model.Session) error {
	err := s.sessions.Update(ctx, session)
	if errors.Is(err, repository.ErrVersionConflict) {
		return apperrors.ConcurrencyConflict("session "+session.ID, err)
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
