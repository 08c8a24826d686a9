package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки одного заказа в проходе выполнения.
const (
	OutcomeFulfilled    = "fulfilled"
	OutcomeNotifyFailed = "notify_failed"
	OutcomeInconsistent = "inconsistent"
	OutcomeConflict     = "conflict"
	OutcomeFailed       = "failed"
	OutcomeSkipped      = "skipped"
)

// FulfillmentMetrics содержит метрики проходов выполнения заказов.
type FulfillmentMetrics struct {
	passesStarted prometheus.Counter
	passesAborted prometheus.Counter
	ordersMatched prometheus.Counter
	orderOutcomes *prometheus.CounterVec

	passDuration   prometheus.Histogram
	notifyDuration prometheus.Histogram

	// Количество уведомлений, отправляемых прямо сейчас.
	notificationsInFlight prometheus.Gauge
}

// NewFulfillmentMetrics создаёт метрики в DefaultRegisterer.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return NewFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewFulfillmentMetricsWithRegisterer создаёт метрики в указанном registerer.
func NewFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		passesStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "r4c_fulfillment_passes_total",
			Help: "Total number of fulfillment passes started",
		}),
		passesAborted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "r4c_fulfillment_passes_aborted_total",
			Help: "Total number of fulfillment passes aborted before processing orders",
		}),
		ordersMatched: registerCounter(registerer, prometheus.CounterOpts{
			Name: "r4c_fulfillment_orders_matched_total",
			Help: "Total number of waiting orders matched to created robots",
		}),
		orderOutcomes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "r4c_fulfillment_order_outcomes_total",
			Help: "Per-order results of fulfillment passes grouped by outcome",
		}, []string{"outcome"}),
		passDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "r4c_fulfillment_pass_duration_seconds",
			Help:    "Duration of fulfillment passes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		notifyDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "r4c_notification_duration_seconds",
			Help:    "Duration of customer notification delivery in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		notificationsInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "r4c_notifications_in_flight",
			Help: "Number of customer notifications currently being delivered",
		}),
	}
}

// RecordPassStarted увеличивает счётчик проходов.
func (m *FulfillmentMetrics) RecordPassStarted() {
	m.passesStarted.Inc()
}

// RecordPassAborted фиксирует проход, прерванный ошибкой поиска заказов.
func (m *FulfillmentMetrics) RecordPassAborted() {
	m.passesAborted.Inc()
}

// RecordOrdersMatched добавляет число найденных ждущих заказов.
func (m *FulfillmentMetrics) RecordOrdersMatched(n int) {
	if n > 0 {
		m.ordersMatched.Add(float64(n))
	}
}

// RecordOrderOutcome увеличивает счётчик исхода обработки заказа.
func (m *FulfillmentMetrics) RecordOrderOutcome(outcome string) {
	m.orderOutcomes.WithLabelValues(outcome).Inc()
}

// RecordPassDuration записывает длительность прохода.
func (m *FulfillmentMetrics) RecordPassDuration(duration time.Duration) {
	m.passDuration.Observe(duration.Seconds())
}

// ObserveNotification оборачивает доставку уведомления: gauge in-flight и гистограмма длительности.
func (m *FulfillmentMetrics) ObserveNotification(fn func() error) error {
	m.notificationsInFlight.Inc()
	start := time.Now()
	defer func() {
		m.notifyDuration.Observe(time.Since(start).Seconds())
		m.notificationsInFlight.Dec()
	}()
	return fn()
}
