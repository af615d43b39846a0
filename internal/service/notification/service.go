// Package notification delivers triage results back over the channel a
// session originated on, with persistent retry bookkeeping: a failed
// delivery is recorded and redriven by the worker, never swallowed.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/messaging"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

type Service interface {
	// NotifyAssessment sends the assessment and recommendations to the
	// session's originating channel.
	NotifyAssessment(ctx context.Context, c *model.Case) error
	// NotifyReminder alerts the assigned worker that a follow-up is due.
	NotifyReminder(ctx context.Context, reminder model.Reminder) error
	// RedeliverPending retries undelivered notifications, oldest first.
	RedeliverPending(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo       repository.NotificationRepository
	broker     messaging.Broker
	metrics    *metrics.Metrics
	logger     *logger.Logger
	maxRetries int
	backoff    time.Duration
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, m *metrics.Metrics, l *logger.Logger, maxRetries int, backoff time.Duration) Service {
	return &service{
		repo:       repo,
		broker:     broker,
		metrics:    m,
		logger:     l,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (s *service) NotifyAssessment(ctx context.Context, c *model.Case) error {
	payload, err := json.Marshal(model.AssessmentPayload{
		SessionID:       c.SessionID,
		Assessment:      c.Assessment,
		Recommendations: c.Assessment.Recommendations(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal assessment payload: %w", err)
	}

	n := &model.Notification{
		ID:        uuid.New(),
		SessionID: c.SessionID,
		CaseID:    c.ID,
		Channel:   c.Channel,
		Recipient: c.SessionID,
		Payload:   payload,
		Status:    model.NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}

	return s.deliver(ctx, n)
}

func (s *service) NotifyReminder(ctx context.Context, reminder model.Reminder) error {
	payload, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}

	n := &model.Notification{
		ID:        uuid.New(),
		CaseID:    reminder.CaseID,
		Channel:   "worker",
		Recipient: reminder.AshaID.String(),
		Payload:   payload,
		Status:    model.NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to record reminder notification: %w", err)
	}

	return s.deliver(ctx, n)
}

// RedeliverPending retries failed and pending notifications below the retry
// budget. Called by the delivery worker with exponential spacing.
func (s *service) RedeliverPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.repo.ListUndelivered(ctx, s.maxRetries, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list undelivered notifications: %w", err)
	}

	delivered := 0
	for _, n := range pending {
		s.metrics.NotificationRetries.Inc()
		if err := s.deliver(ctx, n); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

// deliver publishes over the broker with bounded in-call retry and
// exponential backoff, then records the outcome.
func (s *service) deliver(ctx context.Context, n *model.Notification) error {
	start := time.Now()
	topic := topicFor(n.Channel)

	var lastErr error
	backoff := s.backoff
attempts:
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attempts
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = s.broker.Publish(ctx, topic, messaging.Message{
			Type:    n.Channel,
			Payload: json.RawMessage(n.Payload),
		})
		if lastErr == nil {
			break
		}
	}

	s.metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	now := time.Now().UTC()
	n.UpdatedAt = now

	if lastErr != nil {
		n.Status = model.NotificationStatusFailed
		n.Retries++
		n.LastError = lastErr.Error()
		s.metrics.NotificationsFailed.WithLabelValues(n.Channel).Inc()
		if err := s.repo.Update(ctx, n); err != nil {
			s.logger.Error(err, "failed to record notification failure", "notification_id", n.ID)
		}
		return fmt.Errorf("failed to deliver notification: %w", lastErr)
	}

	n.Status = model.NotificationStatusSent
	n.SentAt = &now
	n.LastError = ""
	s.metrics.NotificationsSent.WithLabelValues(n.Channel).Inc()
	if err := s.repo.Update(ctx, n); err != nil {
		s.logger.Error(err, "failed to record notification delivery", "notification_id", n.ID)
	}
	return nil
}

// topicFor routes a notification to the broker topic its channel adapter
// subscribes to, so results return the way they came in.
func topicFor(channel string) string {
	if channel == "worker" {
		return messaging.ChannelReminders
	}
	return messaging.ChannelAssessments + "." + channel
}
