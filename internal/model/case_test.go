package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatusMachine(t *testing.T) {
	assert.True(t, CaseStatusNew.CanTransitionTo(CaseStatusContacted))
	assert.True(t, CaseStatusNew.CanTransitionTo(CaseStatusResolved))
	assert.True(t, CaseStatusContacted.CanTransitionTo(CaseStatusInProgress))
	assert.True(t, CaseStatusContacted.CanTransitionTo(CaseStatusResolved))
	assert.True(t, CaseStatusInProgress.CanTransitionTo(CaseStatusResolved))

	// no skipping forward except to RESOLVED, no moving backward
	assert.False(t, CaseStatusNew.CanTransitionTo(CaseStatusInProgress))
	assert.False(t, CaseStatusContacted.CanTransitionTo(CaseStatusNew))
	assert.False(t, CaseStatusInProgress.CanTransitionTo(CaseStatusContacted))

	// RESOLVED is terminal
	assert.False(t, CaseStatusResolved.CanTransitionTo(CaseStatusNew))
	assert.False(t, CaseStatusResolved.CanTransitionTo(CaseStatusContacted))
	assert.False(t, CaseStatusResolved.CanTransitionTo(CaseStatusInProgress))
	assert.False(t, CaseStatusResolved.CanTransitionTo(CaseStatusResolved))

	assert.False(t, CaseStatus("ARCHIVED").Valid())
	assert.True(t, CaseStatusNew.Valid())
}

func newTestCase(risk RiskLevel, createdAt time.Time) *Case {
	return &Case{
		ID:        uuid.New(),
		RiskLevel: risk,
		Status:    CaseStatusNew,
		CreatedAt: createdAt,
	}
}

func TestSortByPriority(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	oldEmergency := newTestCase(RiskEmergency, base)
	newEmergency := newTestCase(RiskEmergency, base.Add(time.Hour))
	phc := newTestCase(RiskPHCVisit, base.Add(2*time.Hour))
	homeCare := newTestCase(RiskHomeCare, base.Add(3*time.Hour))

	cases := []*Case{homeCare, phc, oldEmergency, newEmergency}
	SortByPriority(cases)

	// urgency first, newest first within a tier
	assert.Equal(t, newEmergency.ID, cases[0].ID)
	assert.Equal(t, oldEmergency.ID, cases[1].ID)
	assert.Equal(t, phc.ID, cases[2].ID)
	assert.Equal(t, homeCare.ID, cases[3].ID)
}

func TestSortByPriorityTieBreak(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := newTestCase(RiskPHCVisit, at)
	b := newTestCase(RiskPHCVisit, at)

	first := []*Case{a, b}
	second := []*Case{b, a}
	SortByPriority(first)
	SortByPriority(second)

	// equal tier and timestamp order by ID, regardless of input order
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.True(t, first[0].ID.String() < first[1].ID.String())
}

func TestPendingReminders(t *testing.T) {
	now := time.Now().UTC()
	notified := now.Add(-time.Hour)
	rt := now.Add(time.Hour)

	c := &Case{ID: uuid.New()}
	c.FollowUps = []FollowUp{
		{ID: uuid.New(), Action: FollowUpActionNote},
		{ID: uuid.New(), Action: FollowUpActionReminder, ReminderTime: &rt},
		{ID: uuid.New(), Action: FollowUpActionReminder, ReminderTime: &rt, NotifiedAt: &notified},
	}

	pending := c.PendingReminders()
	assert.Len(t, pending, 1)
	assert.Equal(t, c.FollowUps[1].ID, pending[0].FollowUpID)
	assert.Equal(t, c.ID, pending[0].CaseID)
}
