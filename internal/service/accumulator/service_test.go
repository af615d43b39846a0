package accumulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/logger"
)

func newTestService(extractor Extractor) (*Service, *memory.SessionRepository) {
	sessions := memory.NewSessionRepository()
	if extractor == nil {
		extractor = NewKeywordExtractor()
	}
	return NewService(sessions, extractor, 30*time.Minute, time.Second, logger.NewLogger(nil)), sessions
}

func TestAccumulateMultiTurn(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	userID := uuid.New()

	// turn one: symptom only, expect a severity question
	res, err := svc.Accumulate(ctx, "s1", userID, "whatsapp", "I have a fever", time.Now())
	require.NoError(t, err)
	assert.True(t, res.NeedsClarification)
	assert.Equal(t, model.SessionStatusActive, res.Session.Status)
	assert.Contains(t, res.Question, "mild, moderate, or severe")

	// turn two: severity, expect a duration question
	res, err = svc.Accumulate(ctx, "s1", userID, "whatsapp", "It is quite bad, moderate I think", time.Now())
	require.NoError(t, err)
	assert.True(t, res.NeedsClarification)
	assert.Contains(t, res.Question, "How long")

	// turn three: duration completes the profile
	res, err = svc.Accumulate(ctx, "s1", userID, "whatsapp", "since 2 days", time.Now())
	require.NoError(t, err)
	assert.False(t, res.NeedsClarification)
	assert.Empty(t, res.Question)
	assert.Equal(t, model.SessionStatusComplete, res.Session.Status)
	assert.Equal(t, "2 days", res.SymptomData.Duration)
	assert.Equal(t, model.SeverityModerate, res.SymptomData.Severity)
	assert.True(t, res.SymptomData.HasSymptom("fever"))
}

func TestAccumulateOneQuestionPerCall(t *testing.T) {
	svc, _ := newTestService(nil)

	// nothing recognized at all: symptom identity outranks the rest
	res, err := svc.Accumulate(context.Background(), "s2", uuid.New(), "sms", "hello", time.Now())
	require.NoError(t, err)
	assert.True(t, res.NeedsClarification)
	assert.Contains(t, res.Question, "describe what you are feeling")
}

func TestAccumulateSeverityConflict(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Accumulate(ctx, "s3", userID, "sms", "mild headache", time.Now())
	require.NoError(t, err)

	res, err := svc.Accumulate(ctx, "s3", userID, "sms", "actually it is severe", time.Now())
	require.NoError(t, err)

	// higher severity wins and the conflict is recorded, not resolved away
	assert.Equal(t, model.SeveritySevere, res.SymptomData.Severity)
	assert.Equal(t, "true", res.SymptomData.Extensions["severity_conflict"])
}

func TestAccumulateCharacteristicsUnion(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Accumulate(ctx, "s4", userID, "sms", "throbbing headache", time.Now())
	require.NoError(t, err)
	res, err := svc.Accumulate(ctx, "s4", userID, "sms", "the headache is persistent", time.Now())
	require.NoError(t, err)

	require.True(t, res.SymptomData.HasSymptom("headache"))
	assert.ElementsMatch(t, []string{"throbbing", "persistent"},
		res.SymptomData.Symptoms[0].Characteristics)
}

type failingExtractor struct{ err error }

func (f failingExtractor) Extract(context.Context, string) (Extraction, error) {
	return Extraction{}, f.err
}

func TestAccumulatePersistsHistoryOnExtractionFailure(t *testing.T) {
	svc, sessions := newTestService(failingExtractor{err: errors.New("model unavailable")})
	ctx := context.Background()

	_, err := svc.Accumulate(ctx, "s5", uuid.New(), "voice", "garbled audio", time.Now())
	require.Error(t, err)

	session, err := sessions.Get(ctx, "s5")
	require.NoError(t, err)
	require.Len(t, session.History, 1)
	assert.Equal(t, "garbled audio", session.History[0].RawInput)
	assert.Equal(t, model.SessionStatusActive, session.Status)
}

func TestAccumulateExtractionTimeout(t *testing.T) {
	svc, _ := newTestService(failingExtractor{err: context.DeadlineExceeded})

	_, err := svc.Accumulate(context.Background(), "s6", uuid.New(), "voice", "anything", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExtractionTimeout, apperrors.CodeOf(err))
}

func TestAccumulateRejectsCompletedSession(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Accumulate(ctx, "s7", userID, "sms", "severe chest pain for 2 days", time.Now())
	require.NoError(t, err)

	_, err = svc.Accumulate(ctx, "s7", userID, "sms", "one more thing", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestExpireSessions(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	start := time.Now().Add(-time.Hour)

	_, err := svc.Accumulate(ctx, "s8", uuid.New(), "sms", "I have a cough", start)
	require.NoError(t, err)

	expired, err := svc.ExpireSessions(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "s8", expired[0].ID)
	assert.Equal(t, model.SessionStatusExpired, expired[0].Status)
	assert.True(t, expired[0].SymptomData.HasSymptom("cough"))

	// already expired sessions are not returned again
	expired, err = svc.ExpireSessions(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)
}
