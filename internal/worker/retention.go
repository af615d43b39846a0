package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/triage-api/internal/service/audit"
	"github.com/jwalitptl/triage-api/internal/service/notification"
	"github.com/jwalitptl/triage-api/pkg/logger"
)

// RetentionWorker enforces the audit retention window and redrives
// undelivered notifications.
type RetentionWorker struct {
	auditor      *audit.Service
	notifier     notification.Service
	logger       *logger.Logger
	retention    time.Duration
	interval     time.Duration
	redriveBatch int
}

func NewRetentionWorker(auditor *audit.Service, notifier notification.Service, l *logger.Logger, retention, interval time.Duration) *RetentionWorker {
	return &RetentionWorker{
		auditor:      auditor,
		notifier:     notifier,
		logger:       l,
		retention:    retention,
		interval:     interval,
		redriveBatch: 100,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RetentionWorker) tick(ctx context.Context) {
	removed, err := w.auditor.Cleanup(ctx, time.Now().Add(-w.retention))
	if err != nil {
		w.logger.Error(err, "audit retention cleanup failed")
	} else if removed > 0 {
		w.logger.Info("audit logs cleaned up", "removed", removed)
	}

	delivered, err := w.notifier.RedeliverPending(ctx, w.redriveBatch)
	if err != nil {
		w.logger.Error(err, "notification redelivery failed")
	} else if delivered > 0 {
		w.logger.Info("notifications redelivered", "count", delivered)
	}
}
