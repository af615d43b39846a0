package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusComplete SessionStatus = "COMPLETE"
	SessionStatusExpired  SessionStatus = "EXPIRED"
)

// ConversationEntry is one raw inbound message, kept for audit and for
// clarification context. Appended on every accumulate call, regardless of
// whether extraction succeeded.
type ConversationEntry struct {
	RawInput  string    `json:"raw_input"`
	Channel   string    `json:"channel,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the explicit per-conversation state record persisted between
// accumulate calls. No continuation is retained across channel messages;
// every call is self-contained given this record.
type Session struct {
	ID              string              `json:"id" db:"id"`
	UserID          uuid.UUID           `json:"user_id" db:"user_id"`
	Channel         string              `json:"channel" db:"channel"`
	Status          SessionStatus       `json:"status" db:"status"`
	SymptomData     SymptomData         `json:"symptom_data" db:"-"`
	PendingQuestion string              `json:"pending_question,omitempty" db:"pending_question"`
	History         []ConversationEntry `json:"history" db:"-"`
	LastInputAt     time.Time           `json:"last_input_at" db:"last_input_at"`
	Version         int                 `json:"-" db:"version"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the session passed its inactivity timeout.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return s.Status == SessionStatusActive && now.Sub(s.LastInputAt) > timeout
}
