package casework

import (
	"context"
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
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

func newTestService() (*Service, *memory.CaseRepository, *memory.AuditRepository) {
	caseRepo := memory.NewCaseRepository()
	auditRepo := memory.NewAuditRepository()
	auditor := audit.NewService(auditRepo, logger.NewLogger(nil))
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	return NewService(caseRepo, auditor, m, 1), caseRepo, auditRepo
}

func testParams(risk model.RiskLevel) CreateParams {
	return CreateParams{
		UserID:    uuid.New(),
		SessionID: uuid.New().String(),
		Channel:   "whatsapp",
		SymptomData: model.SymptomData{
			Symptoms: []model.Symptom{{Name: "fever"}},
			Severity: model.SeverityModerate,
			Duration: "2 days",
		},
		Assessment: model.Assessment{
			ID:         uuid.New(),
			RiskLevel:  risk,
			Confidence: 0.8,
			Timestamp:  time.Now().UTC(),
		},
	}
}

func TestCreateCaseConcurrentIDsDistinct(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	const n = 150
	ids := make(chan uuid.UUID, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
			if err != nil {
				errs <- err
				return
			}
			ids <- c.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[uuid.UUID]bool, n)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestUpdateStatusAppendsFollowUp(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ashaID := uuid.New()

	c, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, c.ID, ashaID, model.CaseStatusContacted, "reached by phone")
	require.NoError(t, err)

	assert.Equal(t, model.CaseStatusContacted, updated.Status)
	require.Len(t, updated.FollowUps, 1)
	fu := updated.FollowUps[0]
	assert.Equal(t, model.FollowUpActionStatusChange, fu.Action)
	assert.Equal(t, ashaID, fu.AshaID)
	assert.Contains(t, fu.Notes, "NEW -> CONTACTED")
	assert.False(t, fu.Timestamp.IsZero())

	// first mutation assigns the acting worker
	require.NotNil(t, updated.AssignedAshaID)
	assert.Equal(t, ashaID, *updated.AssignedAshaID)
}

func TestUpdateStatusRejectedLeavesCaseUntouched(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, testParams(model.RiskHomeCare))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, c.ID, uuid.New(), model.CaseStatusInProgress, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	stored, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusNew, stored.Status)
	assert.Empty(t, stored.FollowUps)
	assert.Equal(t, c.UpdatedAt, stored.UpdatedAt)
}

func TestResolveFromAnyNonTerminalState(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, testParams(model.RiskHomeCare))
	require.NoError(t, err)

	resolved, err := svc.UpdateStatus(ctx, c.ID, uuid.New(), model.CaseStatusResolved, "self care sufficient")
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusResolved, resolved.Status)

	// terminal: nothing moves out of RESOLVED
	_, err = svc.UpdateStatus(ctx, c.ID, uuid.New(), model.CaseStatusContacted, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
}

func TestScheduleFollowUpRejectsPastReminder(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
	require.NoError(t, err)

	_, err = svc.ScheduleFollowUp(ctx, c.ID, uuid.New(), time.Now().Add(-time.Minute), "check in")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePastReminder, apperrors.CodeOf(err))

	stored, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.FollowUps)
}

func TestDueRemindersAndExactlyOnceMarking(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ashaID := uuid.New()

	c, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
	require.NoError(t, err)

	_, err = svc.ScheduleFollowUp(ctx, c.ID, ashaID, time.Now().Add(50*time.Millisecond), "revisit tomorrow")
	require.NoError(t, err)

	// not yet due
	due, err := svc.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	time.Sleep(60 * time.Millisecond)

	due, err = svc.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, c.ID, due[0].CaseID)
	assert.Equal(t, ashaID, due[0].AshaID)

	// querying again without marking still returns it
	again, err := svc.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, again, 1)

	marked, err := svc.MarkReminderNotified(ctx, due[0].FollowUpID)
	require.NoError(t, err)
	assert.True(t, marked)

	// second attempt is a no-op, not an error
	marked, err = svc.MarkReminderNotified(ctx, due[0].FollowUpID)
	require.NoError(t, err)
	assert.False(t, marked)

	due, err = svc.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestListCasesPriorityOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	home, err := svc.CreateCase(ctx, testParams(model.RiskHomeCare))
	require.NoError(t, err)
	emergency, err := svc.CreateCase(ctx, testParams(model.RiskEmergency))
	require.NoError(t, err)
	phc, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
	require.NoError(t, err)

	views, err := svc.ListCases(ctx, model.CaseFilters{}, model.Pagination{}, uuid.New())
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, emergency.ID, views[0].ID)
	assert.Equal(t, phc.ID, views[1].ID)
	assert.Equal(t, home.ID, views[2].ID)
}

func TestListCasesFilterBeforeOrdering(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCase(ctx, testParams(model.RiskEmergency))
	require.NoError(t, err)
	phc, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
	require.NoError(t, err)

	views, err := svc.ListCases(ctx, model.CaseFilters{RiskLevel: model.RiskPHCVisit}, model.Pagination{}, uuid.New())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, phc.ID, views[0].ID)
}

func TestAuditTrailWritten(t *testing.T) {
	svc, _, auditRepo := newTestService()
	ctx := context.Background()
	actor := uuid.New()

	c, err := svc.CreateCase(ctx, testParams(model.RiskPHCVisit))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, c.ID, actor, model.CaseStatusContacted, "")
	require.NoError(t, err)

	entries, err := auditRepo.List(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditActionCreate, entries[0].Action)
	assert.Equal(t, model.AuditActionStatus, entries[1].Action)
	assert.Equal(t, actor, entries[1].ActorID)
}

func TestDeleteCasePurges(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, testParams(model.RiskHomeCare))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCase(ctx, c.ID, uuid.New()))

	_, err = repo.Get(ctx, c.ID)
	require.Error(t, err)

	err = svc.DeleteCase(ctx, c.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}
