package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels carrying triage traffic. Outbound channels are keyed by the
// originating session channel so results return the way they came in.
const (
	ChannelAssessments = "triage.assessments"
	ChannelReminders   = "triage.reminders"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
