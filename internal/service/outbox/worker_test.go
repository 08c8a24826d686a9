package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/r4c/internal/clock"
	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/metrics"
	"github.com/vladislavdragonenkov/r4c/internal/storage/memory"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "outbox-test")
}

func robotEvent(t *testing.T, id string) domain.OutboxMessage {
	t.Helper()
	msg, err := domain.NewRobotCreatedEvent(domain.NewRobot(id, "R2", "10", time.Date(2024, 12, 12, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return msg
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
	callCount      int
}

func (s *stubPublisher) Publish(event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if len(s.sequenceErrors) > 0 {
		err := s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
		if err == nil {
			s.published = append(s.published, event)
		}
		return err
	}
	if s.err == nil {
		s.published = append(s.published, event)
	}
	return s.err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)

func TestWorker_ProcessOnce_MarksSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	_, err := repo.Enqueue(robotEvent(t, "robot-1"))
	require.NoError(t, err)
	_, err = repo.Enqueue(robotEvent(t, "robot-2"))
	require.NoError(t, err)
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithLogger(testLogger()),
		WithMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())),
		WithRetryBaseDelay(0),
	)

	result := worker.ProcessOnce(context.Background())

	require.Equal(t, BatchResult{Sent: 2}, result)
	require.Empty(t, repo.AllPending())
	require.Len(t, publisher.published, 2)
	require.Equal(t, "robot-1", publisher.published[0].AggregateID)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestWorker_ProcessOnce_MarksFailedAndPublishesDLQ(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	queued, err := repo.Enqueue(robotEvent(t, "robot-1"))
	require.NoError(t, err)
	publisher := &stubPublisher{err: errors.New("kafka: client has run out of available brokers")}
	dlq := &stubPublisher{}
	now := time.Date(2024, 12, 13, 12, 0, 0, 0, time.UTC)

	worker := NewWorker(repo, publisher,
		WithLogger(testLogger()),
		WithDLQPublisher(dlq),
		WithClock(clock.NewFixed(now)),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	result := worker.ProcessOnce(context.Background())

	require.Equal(t, BatchResult{Failed: 1}, result)
	require.Equal(t, 3, publisher.calls())
	require.Empty(t, repo.AllPending())
	require.Len(t, dlq.published, 1)

	var payload dlqPayload
	require.NoError(t, json.Unmarshal(dlq.published[0].Payload, &payload))
	require.Equal(t, queued.ID, payload.OutboxID)
	require.Equal(t, domain.EventRobotCreated, payload.EventType)
	require.Contains(t, payload.PublishError, "out of available brokers")
	require.True(t, payload.DLQPublishedAt.Equal(now))
	require.Contains(t, string(payload.Payload), `"serial":"R210"`)
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	_, err := repo.Enqueue(robotEvent(t, "robot-1"))
	require.NoError(t, err)
	publisher := &stubPublisher{sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil}}

	worker := NewWorker(repo, publisher, WithLogger(testLogger()), WithRetryBaseDelay(0), WithMaxAttempts(3))
	result := worker.ProcessOnce(context.Background())

	require.Equal(t, BatchResult{Sent: 1}, result)
	require.Equal(t, 3, publisher.calls())
}

func TestWorker_ProcessOnce_RespectsBatchSize(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	for _, id := range []string{"r-1", "r-2", "r-3"} {
		_, err := repo.Enqueue(robotEvent(t, id))
		require.NoError(t, err)
	}

	worker := NewWorker(repo, &stubPublisher{}, WithLogger(testLogger()), WithBatchSize(2))

	require.Equal(t, BatchResult{Sent: 2}, worker.ProcessOnce(context.Background()))
	require.Len(t, repo.AllPending(), 1)
	require.Equal(t, BatchResult{Sent: 1}, worker.ProcessOnce(context.Background()))
}

func TestWorker_ProcessOnce_CanceledContext(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	_, err := repo.Enqueue(robotEvent(t, "robot-1"))
	require.NoError(t, err)
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewWorker(repo, publisher, WithLogger(testLogger())).ProcessOnce(ctx)
	require.Equal(t, BatchResult{}, result)
	require.Zero(t, publisher.calls())
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil, nil, WithLogger(testLogger()), WithRetryBaseDelay(10*time.Millisecond))
	require.Equal(t, 10*time.Millisecond, w.retryBackoff(1))
	require.Equal(t, 20*time.Millisecond, w.retryBackoff(2))
	require.Equal(t, 40*time.Millisecond, w.retryBackoff(3))

	w = NewWorker(nil, nil, WithLogger(testLogger()), WithRetryBaseDelay(time.Duration(1<<62)))
	require.Equal(t, time.Duration(1<<63-1), w.retryBackoff(5))
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(memory.NewOutboxRepository(), &stubPublisher{},
		WithLogger(testLogger()),
		WithPollInterval(5*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewWorker(memory.NewOutboxRepository(), nil, WithLogger(testLogger())).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker must return immediately")
	}
}
