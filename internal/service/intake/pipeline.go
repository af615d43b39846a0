// Package intake drains completed symptom profiles through classification
// and case creation. Requests queue in a bounded FIFO and are processed in
// arrival order; priority ordering applies only to created cases, never to
// the intake queue.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/service/casework"
	"github.com/jwalitptl/triage-api/internal/service/notification"
	"github.com/jwalitptl/triage-api/internal/service/triage"
	apperrors "github.com/jwalitptl/triage-api/pkg/errors"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

const (
	storageRetryAttempts = 3
	storageRetryBackoff  = 100 * time.Millisecond
)

// Request is one completed session awaiting assessment.
type Request struct {
	SessionID   string
	UserID      uuid.UUID
	Channel     string
	SymptomData model.SymptomData
	EnqueuedAt  time.Time
}

type Pipeline struct {
	queue      chan Request
	classifier *triage.Classifier
	cases      *casework.Service
	notifier   notification.Service
	metrics    *metrics.Metrics
	logger     *logger.Logger
	workers    int
	budget     time.Duration
	wg         sync.WaitGroup
}

func NewPipeline(classifier *triage.Classifier, cases *casework.Service, notifier notification.Service, m *metrics.Metrics, l *logger.Logger, capacity, workers int, budget time.Duration) *Pipeline {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		queue:      make(chan Request, capacity),
		classifier: classifier,
		cases:      cases,
		notifier:   notifier,
		metrics:    m,
		logger:     l,
		workers:    workers,
		budget:     budget,
	}
}

// Submit enqueues a request without blocking. A full queue rejects with
// CapacityExceeded so the caller can back off.
func (p *Pipeline) Submit(req Request) error {
	select {
	case p.queue <- req:
		p.metrics.IntakeQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		p.metrics.IntakeRejected.Inc()
		return apperrors.CapacityExceeded("assessment intake")
	}
}

// Start launches the drain workers. They stop when ctx is cancelled; Wait
// blocks until in-flight requests finish.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-p.queue:
					p.metrics.IntakeQueueDepth.Set(float64(len(p.queue)))
					p.process(ctx, req)
				}
			}
		}()
	}
}

func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// process classifies one request within the assessment budget and creates
// the case. A budget overrun or classification failure escalates to a
// manual-review case rather than dropping the request.
func (p *Pipeline) process(ctx context.Context, req Request) {
	start := time.Now()
	defer func() {
		p.metrics.IntakeProcessed.Inc()
		p.metrics.AssessmentDuration.Observe(time.Since(req.EnqueuedAt).Seconds())
	}()

	procCtx, cancel := context.WithTimeout(ctx, p.remainingBudget(req))
	defer cancel()

	assessment, err := p.classify(procCtx, req.SymptomData)
	manualReview := false
	if err != nil {
		p.logger.Error(err, "classification failed, escalating to manual review",
			"session_id", req.SessionID)
		assessment = triage.ManualReviewAssessment(manualReviewReason(err))
		manualReview = true
	} else if hasEscalationFactor(assessment) {
		p.metrics.Escalations.Inc()
	}

	c, err := p.createCase(procCtx, casework.CreateParams{
		UserID:       req.UserID,
		SessionID:    req.SessionID,
		Channel:      req.Channel,
		SymptomData:  req.SymptomData,
		Assessment:   assessment,
		ManualReview: manualReview,
	})
	if err != nil {
		// context may already be past budget; case creation must still land
		if procCtx.Err() != nil {
			c, err = p.createCase(context.WithoutCancel(ctx), casework.CreateParams{
				UserID:       req.UserID,
				SessionID:    req.SessionID,
				Channel:      req.Channel,
				SymptomData:  req.SymptomData,
				Assessment:   triage.ManualReviewAssessment("assessment budget exceeded"),
				ManualReview: true,
			})
		}
		if err != nil {
			p.logger.Error(err, "failed to create case, requeueing", "session_id", req.SessionID)
			p.requeue(req)
			return
		}
	}

	if err := p.notifier.NotifyAssessment(ctx, c); err != nil {
		// recorded for redelivery by the notification worker
		p.logger.Error(err, "assessment notification failed, queued for retry",
			"case_id", c.ID)
	}

	p.logger.Info("assessment completed",
		"case_id", c.ID,
		"risk_level", c.RiskLevel,
		"manual_review", manualReview,
		"elapsed", time.Since(start).String(),
	)
}

// createCase persists the case with bounded retry and exponential backoff.
// Storage outages are expected to be transient; an accepted request must
// never be lost to one.
func (p *Pipeline) createCase(ctx context.Context, params casework.CreateParams) (*model.Case, error) {
	var lastErr error
	backoff := storageRetryBackoff
	for attempt := 0; attempt < storageRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		c, err := p.cases.CreateCase(ctx, params)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// requeue puts a request back at the end of the intake queue after storage
// retries are exhausted, so it is reattempted once the store recovers.
func (p *Pipeline) requeue(req Request) {
	select {
	case p.queue <- req:
		p.metrics.IntakeQueueDepth.Set(float64(len(p.queue)))
	default:
		p.metrics.IntakeRejected.Inc()
		p.logger.Error(errors.New("intake queue full"),
			"request dropped after storage retries exhausted", "session_id", req.SessionID)
	}
}

// classify runs the pure classifier under the deadline so a hung scorer
// cannot block a worker past the budget.
func (p *Pipeline) classify(ctx context.Context, data model.SymptomData) (model.Assessment, error) {
	type outcome struct {
		assessment model.Assessment
		err        error
	}
	ch := make(chan outcome, 1)
	go func() {
		a, err := p.classifier.Classify(data)
		ch <- outcome{a, err}
	}()

	select {
	case <-ctx.Done():
		return model.Assessment{}, apperrors.ClassificationTimeout(ctx.Err())
	case out := <-ch:
		return out.assessment, out.err
	}
}

func (p *Pipeline) remainingBudget(req Request) time.Duration {
	remaining := p.budget - time.Since(req.EnqueuedAt)
	if remaining < time.Second {
		remaining = time.Second
	}
	return remaining
}

func manualReviewReason(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeClassificationTimeout:
		return "classification timed out"
	case apperrors.CodeIncompleteInput:
		return "profile incomplete at intake"
	default:
		return fmt.Sprintf("classification error: %v", err)
	}
}

func hasEscalationFactor(a model.Assessment) bool {
	for _, f := range a.ContributingFactors {
		if len(f) >= len("low_confidence_escalation") && f[:len("low_confidence_escalation")] == "low_confidence_escalation" {
			return true
		}
	}
	return false
}
