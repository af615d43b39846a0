package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type CaseStatus string

const (
	CaseStatusNew        CaseStatus = "NEW"
	CaseStatusContacted  CaseStatus = "CONTACTED"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusResolved   CaseStatus = "RESOLVED"
)

// validTransitions is the closed status machine. Resolution may skip
// intermediate states; RESOLVED is terminal.
var validTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusNew:        {CaseStatusContacted, CaseStatusResolved},
	CaseStatusContacted:  {CaseStatusInProgress, CaseStatusResolved},
	CaseStatusInProgress: {CaseStatusResolved},
	CaseStatusResolved:   {},
}

func (s CaseStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status machine permits s -> next.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// FollowUp is one append-only audit entry on a case: a worker action, a
// status transition record, or a scheduled reminder.
type FollowUp struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	CaseID       uuid.UUID  `json:"case_id" db:"case_id"`
	AshaID       uuid.UUID  `json:"asha_id" db:"asha_id"`
	Action       string     `json:"action" db:"action"`
	Notes        string     `json:"notes,omitempty" db:"notes"`
	Timestamp    time.Time  `json:"timestamp" db:"created_at"`
	ReminderTime *time.Time `json:"reminder_time,omitempty" db:"reminder_time"`
	NotifiedAt   *time.Time `json:"notified_at,omitempty" db:"notified_at"`
}

// Reminder is a derived view over a case's pending follow-ups; it has no
// independent lifecycle.
type Reminder struct {
	CaseID       uuid.UUID `json:"case_id"`
	FollowUpID   uuid.UUID `json:"follow_up_id"`
	AshaID       uuid.UUID `json:"asha_id"`
	ReminderTime time.Time `json:"reminder_time"`
}

// Case tracks one assessment through worker follow-up to resolution.
// RiskLevel is denormalized from the assessment for fast priority sorting.
// Version guards against racing mutations on the same case.
type Case struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	UserID         uuid.UUID   `json:"user_id" db:"user_id"`
	SessionID      string      `json:"session_id" db:"session_id"`
	Channel        string      `json:"channel" db:"channel"`
	SymptomData    SymptomData `json:"symptom_data" db:"-"`
	Assessment     Assessment  `json:"assessment" db:"-"`
	RiskLevel      RiskLevel   `json:"risk_level" db:"risk_level"`
	Status         CaseStatus  `json:"status" db:"status"`
	AssignedAshaID *uuid.UUID  `json:"assigned_asha_id,omitempty" db:"assigned_asha_id"`
	ManualReview   bool        `json:"manual_review" db:"manual_review"`
	FollowUps      []FollowUp  `json:"follow_ups" db:"-"`
	Version        int         `json:"-" db:"version"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// PendingReminders extracts follow-ups with a reminder time not yet notified.
func (c *Case) PendingReminders() []Reminder {
	var out []Reminder
	for i := range c.FollowUps {
		fu := &c.FollowUps[i]
		if fu.ReminderTime != nil && fu.NotifiedAt == nil {
			out = append(out, Reminder{
				CaseID:       c.ID,
				FollowUpID:   fu.ID,
				AshaID:       fu.AshaID,
				ReminderTime: *fu.ReminderTime,
			})
		}
	}
	return out
}

// SortByPriority applies the canonical total ordering in place:
// risk tier rank ascending, then createdAt descending, ties broken by
// case ID ascending so pagination is deterministic.
func SortByPriority(cases []*Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		ri, rj := cases[i].RiskLevel.Rank(), cases[j].RiskLevel.Rank()
		if ri != rj {
			return ri < rj
		}
		if !cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].CreatedAt.After(cases[j].CreatedAt)
		}
		return cases[i].ID.String() < cases[j].ID.String()
	})
}

// Follow-up action names recorded on the audit trail.
const (
	FollowUpActionStatusChange = "status_change"
	FollowUpActionNote         = "note"
	FollowUpActionReminder     = "reminder"
	FollowUpActionAssigned     = "assigned"
)
