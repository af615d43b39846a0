package model

import (
	"time"

	"github.com/google/uuid"
)

// IngestMessageRequest is what a channel adapter delivers per inbound message.
type IngestMessageRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	RawInput  string    `json:"raw_input" validate:"required,max=4000"`
	Channel   string    `json:"channel" validate:"required,oneof=whatsapp sms voice"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestMessageResponse acknowledges receipt and carries at most one
// outstanding clarification question.
type IngestMessageResponse struct {
	Ack           bool   `json:"ack"`
	SessionStatus string `json:"session_status"`
	Clarification string `json:"clarification,omitempty"`
}

type UpdateStatusRequest struct {
	Status CaseStatus `json:"status" validate:"required,oneof=NEW CONTACTED IN_PROGRESS RESOLVED"`
	Notes  string     `json:"notes" validate:"max=2000"`
}

type FollowUpRequest struct {
	Notes  string `json:"notes" validate:"required,max=2000"`
	Action string `json:"action" validate:"max=100"`
}

type ReminderRequest struct {
	ReminderTime time.Time `json:"reminder_time" validate:"required"`
	Notes        string    `json:"notes" validate:"max=2000"`
}

// CaseView is the dashboard projection of a case, in canonical priority order.
type CaseView struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	RiskLevel      RiskLevel  `json:"risk_level"`
	Status         CaseStatus `json:"status"`
	Confidence     float64    `json:"confidence"`
	Factors        []string   `json:"contributing_factors"`
	SymptomSummary []string   `json:"symptom_summary"`
	AssignedAshaID *uuid.UUID `json:"assigned_asha_id,omitempty"`
	ManualReview   bool       `json:"manual_review"`
	FollowUpCount  int        `json:"follow_up_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCaseView projects a case for dashboard listing.
func NewCaseView(c *Case) CaseView {
	names := make([]string, 0, len(c.SymptomData.Symptoms))
	for _, s := range c.SymptomData.Symptoms {
		names = append(names, s.Name)
	}
	return CaseView{
		ID:             c.ID,
		UserID:         c.UserID,
		RiskLevel:      c.RiskLevel,
		Status:         c.Status,
		Confidence:     c.Assessment.Confidence,
		Factors:        c.Assessment.ContributingFactors,
		SymptomSummary: names,
		AssignedAshaID: c.AssignedAshaID,
		ManualReview:   c.ManualReview,
		FollowUpCount:  len(c.FollowUps),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
