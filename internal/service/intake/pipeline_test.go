package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository/memory"
	"github.com/jwalitptl/triage-api/internal/service/audit"
	"github.com/jwalitptl/triage-api/internal/service/casework"
	"github.com/jwalitptl/triage-api/internal/service/triage"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

// captureNotifier records assessment notifications in arrival order.
type captureNotifier struct {
	mu       sync.Mutex
	sessions []string
}

func (n *captureNotifier) NotifyAssessment(_ context.Context, c *model.Case) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = append(n.sessions, c.SessionID)
	return nil
}

func (n *captureNotifier) NotifyReminder(context.Context, model.Reminder) error { return nil }

func (n *captureNotifier) RedeliverPending(context.Context, int) (int, error) { return 0, nil }

func (n *captureNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sessions...)
}

func newTestPipeline(capacity, workers int) (*Pipeline, *captureNotifier, *memory.CaseRepository) {
	caseRepo := memory.NewCaseRepository()
	l := logger.NewLogger(nil)
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	cases := casework.NewService(caseRepo, audit.NewService(memory.NewAuditRepository(), l), m, 1)
	notifier := &captureNotifier{}
	classifier := triage.NewClassifier(triage.NewWeightedScorer(), 0.6)
	p := NewPipeline(classifier, cases, notifier, m, l, capacity, workers, 2*time.Minute)
	return p, notifier, caseRepo
}

func completeRequest(sessionID string) Request {
	return Request{
		SessionID: sessionID,
		UserID:    uuid.New(),
		Channel:   "whatsapp",
		SymptomData: model.SymptomData{
			Symptoms: []model.Symptom{{Name: "fever"}},
			Severity: model.SeverityModerate,
			Duration: "2 days",
		},
		EnqueuedAt: time.Now(),
	}
}

func TestSubmitCapacityExceeded(t *testing.T) {
	p, _, _ := newTestPipeline(2, 1)
	// workers not started: the queue fills

	require.NoError(t, p.Submit(completeRequest("r1")))
	require.NoError(t, p.Submit(completeRequest("r2")))

	err := p.Submit(completeRequest("r3"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCapacityExceeded, apperrors.CodeOf(err))
}

func TestProcessFIFOOrder(t *testing.T) {
	p, notifier, _ := newTestPipeline(8, 1)

	ids := []string{"r1", "r2", "r3", "r4", "r5"}
	for _, id := range ids {
		require.NoError(t, p.Submit(completeRequest(id)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.Eventually(t, func() bool {
		return len(notifier.seen()) == len(ids)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	p.Wait()

	// single worker drains in arrival order
	assert.Equal(t, ids, notifier.seen())
}

func TestProcessCreatesCase(t *testing.T) {
	p, notifier, caseRepo := newTestPipeline(4, 1)

	require.NoError(t, p.Submit(completeRequest("s1")))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.Eventually(t, func() bool {
		return len(notifier.seen()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	p.Wait()

	cases, err := caseRepo.List(context.Background(), model.CaseFilters{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "s1", cases[0].SessionID)
	assert.Equal(t, model.CaseStatusNew, cases[0].Status)
	assert.False(t, cases[0].ManualReview)
	assert.True(t, cases[0].RiskLevel.Valid())
}

// flakyCaseRepository fails Create a fixed number of times before recovering.
type flakyCaseRepository struct {
	*memory.CaseRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyCaseRepository) Create(ctx context.Context, c *model.Case) error {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return errors.New("transient storage failure")
	}
	r.mu.Unlock()
	return r.CaseRepository.Create(ctx, c)
}

func newFlakyPipeline(failures int) (*Pipeline, *captureNotifier, *flakyCaseRepository) {
	caseRepo := &flakyCaseRepository{CaseRepository: memory.NewCaseRepository(), failures: failures}
	l := logger.NewLogger(nil)
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	cases := casework.NewService(caseRepo, audit.NewService(memory.NewAuditRepository(), l), m, 1)
	notifier := &captureNotifier{}
	classifier := triage.NewClassifier(triage.NewWeightedScorer(), 0.6)
	p := NewPipeline(classifier, cases, notifier, m, l, 4, 1, 2*time.Minute)
	return p, notifier, caseRepo
}

func TestProcessRetriesTransientStorageFailure(t *testing.T) {
	p, notifier, caseRepo := newFlakyPipeline(1)

	require.NoError(t, p.Submit(completeRequest("s1")))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.Eventually(t, func() bool {
		return len(notifier.seen()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	p.Wait()

	cases, err := caseRepo.List(context.Background(), model.CaseFilters{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "s1", cases[0].SessionID)
	assert.False(t, cases[0].ManualReview)
}

func TestProcessRequeuesAfterStorageRetriesExhausted(t *testing.T) {
	// one more failure than a single pass retries, forcing a requeue
	p, notifier, caseRepo := newFlakyPipeline(storageRetryAttempts + 1)

	require.NoError(t, p.Submit(completeRequest("s1")))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.Eventually(t, func() bool {
		return len(notifier.seen()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	p.Wait()

	cases, err := caseRepo.List(context.Background(), model.CaseFilters{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "s1", cases[0].SessionID)
}

func TestProcessClassificationFailureEscalatesToManualReview(t *testing.T) {
	p, notifier, caseRepo := newTestPipeline(4, 1)

	// incomplete profile cannot classify; the request must still land as a case
	req := completeRequest("bad")
	req.SymptomData = model.SymptomData{}
	require.NoError(t, p.Submit(req))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	require.Eventually(t, func() bool {
		return len(notifier.seen()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	p.Wait()

	cases, err := caseRepo.List(context.Background(), model.CaseFilters{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.True(t, cases[0].ManualReview)
	assert.Equal(t, model.RiskPHCVisit, cases[0].RiskLevel)
	assert.Zero(t, cases[0].Assessment.Confidence)
}
