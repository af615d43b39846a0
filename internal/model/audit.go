package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog records every dashboard read or write against a case. The trail
// is append-only and required for compliance, not optional telemetry.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	CaseID     uuid.UUID       `json:"case_id" db:"case_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	RequestID  string          `json:"request_id,omitempty" db:"request_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	AuditActionCreate     = "create"
	AuditActionRead       = "read"
	AuditActionList       = "list"
	AuditActionStatus     = "status_change"
	AuditActionFollowUp   = "follow_up"
	AuditActionReminder   = "reminder"
	AuditActionDelete     = "delete"
	AuditActionNotified   = "notified"
	AuditActionEscalation = "manual_review"

	AuditEntityCase     = "case"
	AuditEntitySession  = "session"
	AuditEntityFollowUp = "follow_up"
)
