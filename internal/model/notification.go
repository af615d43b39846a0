package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification is an outbound delivery record. Results must go back over the
// channel the session originated on; delivery failures are recorded here for
// retry bookkeeping, never silently swallowed.
type Notification struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	SessionID string             `json:"session_id" db:"session_id"`
	CaseID    uuid.UUID          `json:"case_id" db:"case_id"`
	Channel   string             `json:"channel" db:"channel"`
	Recipient string             `json:"recipient" db:"recipient"`
	Payload   json.RawMessage    `json:"payload" db:"payload"`
	Status    NotificationStatus `json:"status" db:"status"`
	Retries   int                `json:"retries" db:"retries"`
	LastError string             `json:"last_error,omitempty" db:"last_error"`
	SentAt    *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

// AssessmentPayload is what goes back to the user when triage completes.
type AssessmentPayload struct {
	SessionID       string     `json:"session_id"`
	Assessment      Assessment `json:"assessment"`
	Recommendations []string   `json:"recommendations"`
}
