// Package worker holds the background loops run by the worker binary: the
// due-reminder scan, the session expiry sweep, notification redelivery, and
// retention cleanup. These are the only timers the core owns.
package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/triage-api/internal/service/casework"
	"github.com/jwalitptl/triage-api/internal/service/notification"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

// ReminderWorker periodically scans for due follow-up reminders. A reminder
// is marked notified before the alert goes out, so the marking happens
// exactly once even when scans overlap; a failed alert is redriven by the
// notification worker, not by re-marking.
type ReminderWorker struct {
	cases    *casework.Service
	notifier notification.Service
	metrics  *metrics.Metrics
	logger   *logger.Logger
	interval time.Duration
}

func NewReminderWorker(cases *casework.Service, notifier notification.Service, m *metrics.Metrics, l *logger.Logger, interval time.Duration) *ReminderWorker {
	return &ReminderWorker{
		cases:    cases,
		notifier: notifier,
		metrics:  m,
		logger:   l,
		interval: interval,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *ReminderWorker) scan(ctx context.Context) {
	due, err := w.cases.DueReminders(ctx, time.Now())
	if err != nil {
		w.logger.Error(err, "due reminder scan failed")
		return
	}

	for _, reminder := range due {
		w.metrics.RemindersDue.Inc()

		marked, err := w.cases.MarkReminderNotified(ctx, reminder.FollowUpID)
		if err != nil {
			w.logger.Error(err, "failed to mark reminder notified", "follow_up_id", reminder.FollowUpID)
			continue
		}
		if !marked {
			// another scan got here first
			continue
		}

		if err := w.notifier.NotifyReminder(ctx, reminder); err != nil {
			w.logger.Error(err, "reminder alert failed, queued for retry",
				"case_id", reminder.CaseID, "asha_id", reminder.AshaID)
		}
	}
}
