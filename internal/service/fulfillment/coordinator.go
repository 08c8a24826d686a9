// Package fulfillment реализует проход выполнения заказов при появлении нового робота:
// поиск ждущих заказов, уведомление клиентов и перевод заказов в fulfilled.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/r4c/internal/clock"
	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/metrics"
)

// PassResult — итог одного прохода выполнения для созданного робота.
type PassResult struct {
	Serial       string
	Matched      int
	Fulfilled    int
	NotifyFailed int
	// Inconsistent — клиент уведомлён, но заказ не удалось отметить выполненным.
	Inconsistent int
	// Conflicts — заказ успел измениться другим проходом до фиксации.
	Conflicts int
	// Failed — заказ пропущен до уведомления (клиент не найден, panic).
	Failed int
	// Skipped — заказ в этот момент обрабатывает параллельный проход.
	Skipped int
	Aborted bool
}

// Options задаёт параметры Coordinator.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.FulfillmentMetrics
	Clock   clock.Clock
	Workers int
}

// Option настраивает Coordinator.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics подключает prometheus-метрики проходов.
func WithMetrics(m *metrics.FulfillmentMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithClock задаёт источник времени для отметки выполнения.
func WithClock(c clock.Clock) Option {
	return func(opts *Options) {
		opts.Clock = c
	}
}

// WithWorkers задаёт размер пула обработки заказов. При значении <= 1 заказы обрабатываются последовательно.
func WithWorkers(workers int) Option {
	return func(opts *Options) {
		opts.Workers = workers
	}
}

// Coordinator единственным переводит заказы из waiting в fulfilled.
type Coordinator struct {
	matcher   *Matcher
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	notifier  domain.Notifier
	clock     clock.Clock
	logger    *log.Entry
	metrics   *metrics.FulfillmentMetrics
	workers   int
	locks     *serialLocks
	claims    *orderClaims
}

// NewCoordinator собирает координатор выполнения заказов.
func NewCoordinator(
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	notifier domain.Notifier,
	options ...Option,
) *Coordinator {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "fulfillment")
	}
	c := opts.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Coordinator{
		matcher:   NewMatcher(orders),
		orders:    orders,
		customers: customers,
		notifier:  notifier,
		clock:     c,
		logger:    logger,
		metrics:   opts.Metrics,
		workers:   opts.Workers,
		locks:     newSerialLocks(),
		claims:    newOrderClaims(),
	}
}

// OnRobotCreated выполняет проход для только что сохранённого робота.
// Ошибки не возвращаются: создание робота уже состоялось, итог виден в PassResult, логах и метриках.
func (c *Coordinator) OnRobotCreated(ctx context.Context, robot domain.Robot) PassResult {
	start := time.Now()
	result := PassResult{Serial: robot.Serial}

	ctx, span := otel.Tracer("r4c/fulfillment").Start(ctx, "fulfillment.pass")
	span.SetAttributes(attribute.String("robot.id", robot.ID), attribute.String("robot.serial", robot.Serial))
	defer func() {
		span.SetAttributes(
			attribute.Int("orders.matched", result.Matched),
			attribute.Int("orders.fulfilled", result.Fulfilled),
			attribute.Int("orders.notify_failed", result.NotifyFailed),
			attribute.Int("orders.inconsistent", result.Inconsistent),
			attribute.Int("orders.conflicts", result.Conflicts),
			attribute.Int("orders.failed", result.Failed),
			attribute.Int("orders.skipped", result.Skipped),
			attribute.Bool("pass.aborted", result.Aborted),
		)
		span.End()
	}()
	logger := c.logger.WithFields(log.Fields{
		"robot_id": robot.ID,
		"serial":   robot.Serial,
	})

	if c.metrics != nil {
		c.metrics.RecordPassStarted()
		defer func() {
			c.metrics.RecordPassDuration(time.Since(start))
		}()
	}

	orders, busy, err := c.claimWaitingOrders(ctx, robot.Serial)
	if err != nil {
		logger.WithError(err).Error("fulfillment pass aborted: cannot find waiting orders")
		result.Aborted = true
		if c.metrics != nil {
			c.metrics.RecordPassAborted()
		}
		return result
	}

	result.Matched = len(orders) + len(busy)
	result.Skipped = len(busy)
	if c.metrics != nil {
		c.metrics.RecordOrdersMatched(result.Matched)
		for range busy {
			c.metrics.RecordOrderOutcome(metrics.OutcomeSkipped)
		}
	}
	for _, order := range busy {
		logger.WithField("order_id", order.ID).Debug("order is being processed by another pass")
	}

	for _, outcome := range c.processAll(ctx, robot, orders) {
		switch outcome {
		case metrics.OutcomeFulfilled:
			result.Fulfilled++
		case metrics.OutcomeNotifyFailed:
			result.NotifyFailed++
		case metrics.OutcomeInconsistent:
			result.Inconsistent++
		case metrics.OutcomeConflict:
			result.Conflicts++
		default:
			result.Failed++
		}
		if c.metrics != nil {
			c.metrics.RecordOrderOutcome(outcome)
		}
	}

	logger.WithFields(log.Fields{
		"matched":       result.Matched,
		"fulfilled":     result.Fulfilled,
		"notify_failed": result.NotifyFailed,
		"inconsistent":  result.Inconsistent,
		"conflicts":     result.Conflicts,
		"failed":        result.Failed,
		"skipped":       result.Skipped,
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("fulfillment pass finished")

	return result
}

// claimWaitingOrders под блокировкой serial находит ждущие заказы и захватывает
// те, что не обрабатываются другим проходом. Уведомления идут уже без блокировки.
func (c *Coordinator) claimWaitingOrders(ctx context.Context, serial string) (claimed, busy []domain.Order, err error) {
	unlock := c.locks.lock(serial)
	defer unlock()

	orders, err := c.matcher.FindWaitingOrders(ctx, serial)
	if err != nil {
		return nil, nil, err
	}
	claimed, busy = c.claims.claim(orders)
	return claimed, busy, nil
}

// releaseClaim освобождает заказ под блокировкой serial, чтобы параллельный проход
// не успел прочитать его в старом состоянии и захватить повторно.
func (c *Coordinator) releaseClaim(order domain.Order) {
	unlock := c.locks.lock(order.RobotSerial)
	c.claims.release(order.ID)
	unlock()
}

// processAll обрабатывает заказы последовательно или через ограниченный пул.
// Порядок исходов совпадает с порядком заказов.
func (c *Coordinator) processAll(ctx context.Context, robot domain.Robot, orders []domain.Order) []string {
	outcomes := make([]string, len(orders))
	process := func(i int, order domain.Order) {
		defer c.releaseClaim(order)
		outcomes[i] = c.processOrder(ctx, robot, order)
	}

	if c.workers <= 1 || len(orders) <= 1 {
		for i, order := range orders {
			process(i, order)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, order := range orders {
		g.Go(func() error {
			process(i, order)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// processOrder — граница отказа одного заказа: ошибки и panic не выходят за её пределы.
func (c *Coordinator) processOrder(ctx context.Context, robot domain.Robot, order domain.Order) (outcome string) {
	logger := c.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"serial":      order.RobotSerial,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("order processing panicked, order left untouched")
			outcome = metrics.OutcomeFailed
		}
	}()

	customer, err := c.customers.Get(ctx, order.CustomerID)
	if err != nil {
		logger.WithError(domain.StoreError(err)).Warn("cannot load customer, order skipped")
		return metrics.OutcomeFailed
	}

	if err := c.notify(ctx, customer, robot); err != nil {
		c.rejectAfterFailedNotification(ctx, logger, order)
		logger.WithError(err).Warn("notification failed, order stays waiting")
		return metrics.OutcomeNotifyFailed
	}

	fulfilled := order
	if err := fulfilled.Fulfill(c.clock.Now()); err != nil {
		logger.WithError(err).Error("customer notified but order is not waiting")
		return metrics.OutcomeConflict
	}

	event, err := domain.NewOrderFulfilledEvent(fulfilled, robot)
	if err != nil {
		logger.WithError(err).WithField("data_inconsistency", true).Error("customer notified but order not marked fulfilled")
		return metrics.OutcomeInconsistent
	}

	if err := c.orders.SaveFulfilled(ctx, fulfilled, event); err != nil {
		if domain.IsVersionConflict(err) {
			logger.WithError(err).Warn("customer notified but order was changed concurrently")
			return metrics.OutcomeConflict
		}
		logger.WithError(domain.StoreError(err)).WithField("data_inconsistency", true).
			Error("customer notified but order not marked fulfilled")
		return metrics.OutcomeInconsistent
	}

	logger.Info("order fulfilled")
	return metrics.OutcomeFulfilled
}

func (c *Coordinator) notify(ctx context.Context, customer domain.Customer, robot domain.Robot) error {
	send := func() error {
		return c.notifier.Notify(ctx, customer, robot)
	}
	var err error
	if c.metrics != nil {
		err = c.metrics.ObserveNotification(send)
	} else {
		err = send()
	}
	if err != nil {
		return domain.NotificationError(fmt.Errorf("notify %s: %w", customer.Email, err))
	}
	return nil
}

// rejectAfterFailedNotification перечитывает заказ и сверяет версию с прочитанной в начале прохода.
// Локальная копия отбрасывается, в хранилище ничего не пишется.
func (c *Coordinator) rejectAfterFailedNotification(ctx context.Context, logger *log.Entry, snapshot domain.Order) {
	current, err := c.orders.Get(ctx, snapshot.ID)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		logger.Warn("order disappeared during failed notification")
	case err != nil:
		logger.WithError(domain.StoreError(err)).Warn("cannot re-read order after failed notification")
	case current.Version != snapshot.Version || current.Status != snapshot.Status:
		logger.WithFields(log.Fields{
			"read_version":    snapshot.Version,
			"current_version": current.Version,
			"current_status":  current.Status,
		}).Warn("order changed concurrently during failed notification")
	}
}
