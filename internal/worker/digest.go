package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jwalitptl/triage-api/internal/email"
	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/messaging"
)

// DigestWorker consumes reminder alerts off the broker and mails a periodic
// digest to the supervisor inbox. Individual alerts still reach workers over
// their own channels; the digest is a supervision aid, not the primary path.
type DigestWorker struct {
	broker   messaging.Broker
	mailer   email.Service
	logger   *logger.Logger
	to       string
	interval time.Duration
}

func NewDigestWorker(broker messaging.Broker, mailer email.Service, l *logger.Logger, to string, interval time.Duration) *DigestWorker {
	return &DigestWorker{
		broker:   broker,
		mailer:   mailer,
		logger:   l,
		to:       to,
		interval: interval,
	}
}

func (w *DigestWorker) Run(ctx context.Context) {
	if w.to == "" {
		w.logger.Warn("digest address unset, digest worker idle")
		return
	}

	msgs, err := w.broker.Subscribe(ctx, messaging.ChannelReminders)
	if err != nil {
		w.logger.Error(err, "failed to subscribe to reminder channel")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var pending []model.Reminder
	for {
		select {
		case <-ctx.Done():
			w.flush(pending)
			return
		case raw, ok := <-msgs:
			if !ok {
				w.flush(pending)
				return
			}
			var msg struct {
				Payload model.Reminder `json:"payload"`
			}
			if err := json.Unmarshal(raw, &msg); err != nil {
				w.logger.Error(err, "failed to decode reminder message")
				continue
			}
			pending = append(pending, msg.Payload)
		case <-ticker.C:
			w.flush(pending)
			pending = nil
		}
	}
}

func (w *DigestWorker) flush(reminders []model.Reminder) {
	if len(reminders) == 0 {
		return
	}
	if err := w.mailer.SendReminderDigest(w.to, reminders); err != nil {
		w.logger.Error(err, "failed to send reminder digest", "count", len(reminders))
	}
}
