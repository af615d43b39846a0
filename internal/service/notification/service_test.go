package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository/memory"
	"github.com/jwalitptl/triage-api/pkg/logger"
	"github.com/jwalitptl/triage-api/pkg/metrics"
)

// countingBroker fails Publish a fixed number of times before recovering.
type countingBroker struct {
	mu        sync.Mutex
	failures  int
	publishes int
}

func (b *countingBroker) Publish(context.Context, string, interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishes++
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unavailable")
	}
	return nil
}

func (b *countingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *countingBroker) Close() error {
	return nil
}

func (b *countingBroker) published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.publishes
}

func newTestService(broker *countingBroker, maxRetries int) Service {
	l := logger.NewLogger(nil)
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	return NewService(memory.NewNotificationRepository(), broker, m, l, maxRetries, 5*time.Millisecond)
}

func reminderFixture() model.Reminder {
	return model.Reminder{
		CaseID: uuid.New(),
		AshaID: uuid.New(),
	}
}

func TestDeliverRetriesTransientPublishFailure(t *testing.T) {
	broker := &countingBroker{failures: 2}
	svc := newTestService(broker, 3)

	err := svc.NotifyReminder(context.Background(), reminderFixture())

	require.NoError(t, err)
	assert.Equal(t, 3, broker.published())
}

func TestDeliverStopsOnCancelledContext(t *testing.T) {
	broker := &countingBroker{failures: 10}
	svc := newTestService(broker, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.NotifyReminder(ctx, reminderFixture())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// one attempt before the backoff wait observes cancellation
	assert.Equal(t, 1, broker.published())
}
