package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
)

func storedCase(t *testing.T, repo *CaseRepository) *model.Case {
	t.Helper()
	c := &model.Case{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		RiskLevel: model.RiskPHCVisit,
		Status:    model.CaseStatusNew,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCaseVersionConflict(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()
	c := storedCase(t, repo)

	first, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)

	first.Status = model.CaseStatusContacted
	require.NoError(t, repo.Update(ctx, first))

	// stale snapshot loses
	second.Status = model.CaseStatusResolved
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
}

func TestAppendFollowUpBumpsVersion(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()
	c := storedCase(t, repo)

	before := c.Version
	fu := &model.FollowUp{ID: uuid.New(), CaseID: c.ID, Action: model.FollowUpActionNote}
	require.NoError(t, repo.AppendFollowUp(ctx, c, fu))
	assert.Equal(t, before+1, c.Version)

	stored, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.FollowUps, 1)
	assert.Equal(t, fu.ID, stored.FollowUps[0].ID)
}

func TestMarkReminderNotifiedExactlyOnce(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()
	c := storedCase(t, repo)

	rt := time.Now().Add(-time.Minute)
	fu := &model.FollowUp{
		ID:           uuid.New(),
		CaseID:       c.ID,
		AshaID:       uuid.New(),
		Action:       model.FollowUpActionReminder,
		ReminderTime: &rt,
	}
	require.NoError(t, repo.AppendFollowUp(ctx, c, fu))

	due, err := repo.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, repo.MarkReminderNotified(ctx, fu.ID, time.Now()))
	err = repo.MarkReminderNotified(ctx, fu.ID, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	due, err = repo.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestGetReturnsClone(t *testing.T) {
	repo := NewCaseRepository()
	ctx := context.Background()
	c := storedCase(t, repo)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	got.Status = model.CaseStatusResolved

	fresh, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusNew, fresh.Status)
}
