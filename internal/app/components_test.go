package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/r4c/internal/service/notify"
	"github.com/vladislavdragonenkov/r4c/internal/transport/httpapi"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("test", "app")
}

type capturingNotifier struct {
	emails []string
}

func (n *capturingNotifier) Notify(_ context.Context, customer domain.Customer, _ domain.Robot) error {
	n.emails = append(n.emails, customer.Email)
	return nil
}

func TestBuildNotifier(t *testing.T) {
	notifier, err := buildNotifier(notify.SMTPConfig{}, quietLogger())
	require.NoError(t, err)
	require.IsType(t, &notify.LogNotifier{}, notifier)

	notifier, err = buildNotifier(notify.SMTPConfig{
		Host: "smtp.example.com",
		Port: 2525,
		From: "robots@r4c.example",
		TLS:  "none",
	}, quietLogger())
	require.NoError(t, err)
	require.IsType(t, &notify.SMTPNotifier{}, notifier)

	_, err = buildNotifier(notify.SMTPConfig{Host: "smtp.example.com"}, quietLogger())
	require.Error(t, err)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestComponents_RobotArrivalRelayedToKafka(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	logger := quietLogger()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	require.NoError(t, err)

	notifier := &capturingNotifier{}
	comps := buildComponents(cfg, deps, notifier, logger)
	router := httpapi.NewRouter(comps.handler)

	w := postJSON(t, router, httpapi.PathCreateOrder, map[string]string{
		"email":        "buyer@example.com",
		"robot_serial": "R210",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, router, httpapi.PathCreateRobot, map[string]string{
		"model":   "R2",
		"version": "10",
		"created": "2024-12-12 10:00:00",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, []string{"buyer@example.com"}, notifier.emails)

	waiting, err := deps.orders.ListWaitingBySerial(ctx, "R210")
	require.NoError(t, err)
	require.Empty(t, waiting)

	config := mocks.NewTestConfig()
	config.Producer.Return.Successes = true
	syncProducer := mocks.NewSyncProducer(t, config)

	var topics []string
	record := func(msg *sarama.ProducerMessage) error {
		topics = append(topics, msg.Topic)
		return nil
	}
	syncProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(mocks.MessageChecker(record))
	syncProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(mocks.MessageChecker(record))

	producer := kafka.NewProducerFromSync(syncProducer, logger)
	worker := newOutboxWorker(cfg, deps.outbox, producer, logger)
	require.NotNil(t, worker)

	result := worker.ProcessOnce(ctx)
	require.Equal(t, 2, result.Sent)
	require.ElementsMatch(t, []string{kafka.TopicRobotEvents, kafka.TopicOrderEvents}, topics)

	stats, err := deps.outbox.Stats()
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)

	closeKafka(producer, logger)
}

func TestNewOutboxWorker_DisabledWithoutProducer(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), quietLogger())
	require.NoError(t, err)

	require.Nil(t, newOutboxWorker(DefaultConfig(), deps.outbox, nil, quietLogger()))
}

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	producer, err := initKafkaProducer(nil, quietLogger())
	require.NoError(t, err)
	require.Nil(t, producer)

	closeKafka(nil, quietLogger())
}
