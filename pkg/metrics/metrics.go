package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Intake pipeline
	IntakeQueueDepth   prometheus.Gauge
	IntakeRejected     prometheus.Counter
	IntakeProcessed    prometheus.Counter
	AssessmentDuration prometheus.Histogram

	// Triage outcomes
	AssessmentsByTier *prometheus.CounterVec
	Escalations       prometheus.Counter
	ManualReviews     prometheus.Counter

	// Case lifecycle
	CasesCreated       prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	TransitionRejected prometheus.Counter

	// Reminder worker
	RemindersDue      prometheus.Counter
	RemindersNotified prometheus.Counter

	// Notification delivery
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	NotificationRetries  prometheus.Counter
	NotificationDuration prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers against an explicit registerer, so tests can use
// an isolated registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IntakeQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_queue_depth",
			Help:      "Number of assessment requests waiting in the intake queue",
		}),
		IntakeRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_rejected_total",
			Help:      "Assessment requests rejected because the intake queue was full",
		}),
		IntakeProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_processed_total",
			Help:      "Assessment requests drained from the intake queue",
		}),
		AssessmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Time from intake to completed assessment",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		AssessmentsByTier: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed assessments by risk tier",
		}, []string{"risk_level"}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_confidence_escalations_total",
			Help:      "Assessments escalated one tier due to low model confidence",
		}),
		ManualReviews: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_review_cases_total",
			Help:      "Cases escalated to manual review (expiry, timeout, retry exhaustion)",
		}),
		CasesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_created_total",
			Help:      "Cases created by the lifecycle engine",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_status_transitions_total",
			Help:      "Accepted case status transitions",
		}, []string{"from", "to"}),
		TransitionRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "case_status_transitions_rejected_total",
			Help:      "Status transitions rejected as invalid",
		}),
		RemindersDue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_due_total",
			Help:      "Follow-up reminders found due by the scan",
		}),
		RemindersNotified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_notified_total",
			Help:      "Follow-up reminders marked notified exactly once",
		}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered, by channel",
		}, []string{"channel"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notification deliveries that failed, by channel",
		}, []string{"channel"}),
		NotificationRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_retries_total",
			Help:      "Notification delivery retries",
		}),
		NotificationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Time spent delivering a notification",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
