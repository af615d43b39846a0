package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/triage-api/internal/service/accumulator"
	"github.com/jwalitptl/triage-api/internal/service/casework"
	"github.com/jwalitptl/triage-api/internal/service/triage"
	"github.com/jwalitptl/triage-api/pkg/logger"
)

// SessionSweeper expires idle sessions and escalates their accumulated
// partial data to a manual-review case instead of discarding it.
type SessionSweeper struct {
	accumulator *accumulator.Service
	cases       *casework.Service
	logger      *logger.Logger
	interval    time.Duration
}

func NewSessionSweeper(acc *accumulator.Service, cases *casework.Service, l *logger.Logger, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		accumulator: acc,
		cases:       cases,
		logger:      l,
		interval:    interval,
	}
}

func (w *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	expired, err := w.accumulator.ExpireSessions(ctx, time.Now())
	if err != nil {
		w.logger.Error(err, "session expiry sweep failed")
		return
	}

	for _, session := range expired {
		_, err := w.cases.CreateCase(ctx, casework.CreateParams{
			UserID:       session.UserID,
			SessionID:    session.ID,
			Channel:      session.Channel,
			SymptomData:  session.SymptomData,
			Assessment:   triage.ManualReviewAssessment("session expired with partial data"),
			ManualReview: true,
		})
		if err != nil {
			w.logger.Error(err, "failed to escalate expired session", "session_id", session.ID)
			continue
		}
		w.logger.Info("expired session escalated to manual review", "session_id", session.ID)
	}
}
