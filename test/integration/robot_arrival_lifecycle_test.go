package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"github.com/vladislavdragonenkov/r4c/internal/clock"
	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/metrics"
	"github.com/vladislavdragonenkov/r4c/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/r4c/internal/service/orders"
	"github.com/vladislavdragonenkov/r4c/internal/service/report"
	"github.com/vladislavdragonenkov/r4c/internal/service/robots"
	"github.com/vladislavdragonenkov/r4c/internal/storage/memory"
	"github.com/vladislavdragonenkov/r4c/internal/transport/httpapi"
)

// flakyNotifier отказывает адресатам из failFor и запоминает успешные доставки.
type flakyNotifier struct {
	mu        sync.Mutex
	failFor   map[string]bool
	delivered []string
}

func (n *flakyNotifier) Notify(_ context.Context, customer domain.Customer, _ domain.Robot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[customer.Email] {
		return errors.New("mailbox unavailable")
	}
	n.delivered = append(n.delivered, customer.Email)
	return nil
}

func (n *flakyNotifier) setFailing(email string, failing bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failFor[email] = failing
}

// RobotArrivalTestSuite проверяет путь заказ -> поступление робота -> уведомление -> отчёт через HTTP API.
type RobotArrivalTestSuite struct {
	suite.Suite
	server   *httptest.Server
	orders   domain.OrderRepository
	outbox   interface{ AllPending() []domain.OutboxMessage }
	notifier *flakyNotifier
	now      time.Time
}

func (s *RobotArrivalTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetOutput(io.Discard)
	logger := baseLogger.WithField("component", "integration-test")

	s.now = time.Date(2024, 12, 13, 12, 0, 0, 0, time.UTC)
	fixed := clock.NewFixed(s.now)

	outbox := memory.NewOutboxRepository()
	customers := memory.NewCustomerRepository()
	robotRepo := memory.NewRobotRepository()
	s.orders = memory.NewOrderRepository(outbox)
	s.outbox = outbox
	s.notifier = &flakyNotifier{failFor: map[string]bool{}}

	registry := prometheus.NewRegistry()
	coordinator := fulfillment.NewCoordinator(s.orders, customers, s.notifier,
		fulfillment.WithLogger(logger),
		fulfillment.WithClock(fixed),
		fulfillment.WithMetrics(metrics.NewFulfillmentMetricsWithRegisterer(registry)),
		fulfillment.WithWorkers(2),
	)

	handler := httpapi.NewHandler(
		robots.NewService(robotRepo, outbox, coordinator, logger),
		report.NewService(
			report.NewAggregator(robotRepo, report.WithClock(fixed)),
			metrics.NewReportMetricsWithRegisterer(registry),
			logger,
		),
		orders.NewService(customers, s.orders, fixed, logger),
		logger,
	)
	s.server = httptest.NewServer(httpapi.NewRouter(handler))
}

func (s *RobotArrivalTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *RobotArrivalTestSuite) post(path string, body map[string]string) (int, map[string]string) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (s *RobotArrivalTestSuite) placeOrder(email, serial string) string {
	code, body := s.post(httpapi.PathCreateOrder, map[string]string{"email": email, "robot_serial": serial})
	s.Require().Equal(http.StatusCreated, code)
	s.Require().NotEmpty(body["id"])
	return body["id"]
}

func (s *RobotArrivalTestSuite) createRobot(model, version, created string) {
	code, body := s.post(httpapi.PathCreateRobot, map[string]string{"model": model, "version": version, "created": created})
	s.Require().Equal(http.StatusCreated, code)
	s.Require().Equal("Robot created succesfully", body["message"])
}

func (s *RobotArrivalTestSuite) order(id string) *domain.Order {
	order, err := s.orders.Get(context.Background(), id)
	s.Require().NoError(err)
	return &order
}

func (s *RobotArrivalTestSuite) TestOnlyMatchingOrdersFulfilled() {
	r210 := s.placeOrder("a@example.com", "R210")
	r310 := s.placeOrder("b@example.com", "R310")

	s.createRobot("R2", "10", "2024-12-12T09:00:00")

	s.True(s.order(r210).IsFulfilled())
	s.True(s.order(r310).IsWaiting())
	s.Equal([]string{"a@example.com"}, s.notifier.delivered)

	var eventTypes []string
	for _, msg := range s.outbox.AllPending() {
		eventTypes = append(eventTypes, msg.EventType)
	}
	s.ElementsMatch([]string{domain.EventRobotCreated, domain.EventOrderFulfilled}, eventTypes)
}

func (s *RobotArrivalTestSuite) TestFailedNotificationRetriedOnNextRobot() {
	first := s.placeOrder("a@example.com", "R210")
	second := s.placeOrder("b@example.com", "R210")
	s.notifier.setFailing("b@example.com", true)

	s.createRobot("R2", "10", "2024-12-12T09:00:00")
	s.True(s.order(first).IsFulfilled())
	s.True(s.order(second).IsWaiting())

	s.notifier.setFailing("b@example.com", false)
	s.createRobot("R2", "10", "2024-12-12T10:00:00")

	s.True(s.order(second).IsFulfilled())
	s.Equal([]string{"a@example.com", "b@example.com"}, s.notifier.delivered)
}

func (s *RobotArrivalTestSuite) TestWeeklySummaryDownload() {
	resp, err := http.Get(s.server.URL + httpapi.PathRobotsSummary)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	s.createRobot("R2", "D2", "2024-12-12T10:00:00")
	s.createRobot("R2", "D2", "2024-12-10 08:30")
	s.createRobot("R2", "A1", "2024-12-11T00:00:00Z")
	s.createRobot("R3", "X5", "2024-12-09T12:00:00+00:00")
	s.createRobot("R3", "X5", "2024-11-01T12:00:00")

	resp, err = http.Get(s.server.URL + httpapi.PathRobotsSummary)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(report.ContentTypeXLSX, resp.Header.Get("Content-Type"))
	s.Contains(resp.Header.Get("Content-Disposition"), report.Filename)

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	book, err := excelize.OpenReader(bytes.NewReader(raw))
	s.Require().NoError(err)
	defer book.Close()

	s.Equal([]string{"R2", "R3"}, book.GetSheetList())

	rows, err := book.GetRows("R2")
	s.Require().NoError(err)
	s.Equal([][]string{
		{"Модель", "Версия", "Количество за неделю"},
		{"R2", "A1", "1"},
		{"R2", "D2", "2"},
	}, rows)

	rows, err = book.GetRows("R3")
	s.Require().NoError(err)
	s.Equal([][]string{
		{"Модель", "Версия", "Количество за неделю"},
		{"R3", "X5", "1"},
	}, rows)
}

func TestRobotArrivalLifecycle(t *testing.T) {
	suite.Run(t, new(RobotArrivalTestSuite))
}

func TestRobotArrival_InvalidInput(t *testing.T) {
	s := new(RobotArrivalTestSuite)
	s.SetT(t)
	s.SetupTest()
	defer s.TearDownTest()

	code, body := s.post(httpapi.PathCreateRobot, map[string]string{"model": "R2", "version": "10", "created": "yesterday"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Invalid date format", body["error"])

	code, body = s.post(httpapi.PathCreateOrder, map[string]string{"email": "a@example.com"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Missing required fields", body["error"])
}
