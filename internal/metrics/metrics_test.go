package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("failed to write counter: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := h.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	return metric.GetHistogram().GetSampleCount()
}

func TestFulfillmentMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFulfillmentMetricsWithRegisterer(reg)

	m.RecordPassStarted()
	m.RecordPassStarted()
	m.RecordPassAborted()
	m.RecordOrdersMatched(3)
	m.RecordOrdersMatched(0)
	m.RecordOrderOutcome(OutcomeFulfilled)
	m.RecordOrderOutcome(OutcomeFulfilled)
	m.RecordOrderOutcome(OutcomeNotifyFailed)
	m.RecordPassDuration(15 * time.Millisecond)

	if got := counterValue(t, m.passesStarted); got != 2 {
		t.Errorf("expected 2 passes, got %f", got)
	}
	if got := counterValue(t, m.passesAborted); got != 1 {
		t.Errorf("expected 1 aborted pass, got %f", got)
	}
	if got := counterValue(t, m.ordersMatched); got != 3 {
		t.Errorf("expected 3 matched orders, got %f", got)
	}
	if got := counterValue(t, m.orderOutcomes.WithLabelValues(OutcomeFulfilled)); got != 2 {
		t.Errorf("expected 2 fulfilled outcomes, got %f", got)
	}
	if got := counterValue(t, m.orderOutcomes.WithLabelValues(OutcomeNotifyFailed)); got != 1 {
		t.Errorf("expected 1 notify_failed outcome, got %f", got)
	}
	if got := histogramCount(t, m.passDuration); got != 1 {
		t.Errorf("expected 1 pass duration sample, got %d", got)
	}
}

func TestFulfillmentMetrics_ObserveNotification(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFulfillmentMetricsWithRegisterer(reg)

	wantErr := errors.New("smtp down")
	err := m.ObserveNotification(func() error {
		if got := gaugeValue(t, m.notificationsInFlight); got != 1 {
			t.Errorf("expected 1 notification in flight, got %f", got)
		}
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped function error, got %v", err)
	}
	if got := gaugeValue(t, m.notificationsInFlight); got != 0 {
		t.Errorf("expected 0 notifications in flight, got %f", got)
	}
	if got := histogramCount(t, m.notifyDuration); got != 1 {
		t.Errorf("expected 1 notify duration sample, got %d", got)
	}
}

func TestFulfillmentMetrics_ReuseAlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewFulfillmentMetricsWithRegisterer(reg)
	second := NewFulfillmentMetricsWithRegisterer(reg)

	first.RecordPassStarted()
	if got := counterValue(t, second.passesStarted); got != 1 {
		t.Fatalf("expected shared collector, got %f", got)
	}
}

func TestReportMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReportMetricsWithRegisterer(reg)

	m.RecordGenerated(2, 10*time.Millisecond)
	m.RecordGenerated(0, time.Millisecond)
	m.RecordFailed(time.Millisecond)

	if got := counterValue(t, m.reports.WithLabelValues("generated")); got != 1 {
		t.Errorf("expected 1 generated report, got %f", got)
	}
	if got := counterValue(t, m.reports.WithLabelValues("empty")); got != 1 {
		t.Errorf("expected 1 empty report, got %f", got)
	}
	if got := counterValue(t, m.reports.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 failed report, got %f", got)
	}
	if got := gaugeValue(t, m.lastSheets); got != 0 {
		t.Errorf("expected last sheets 0, got %f", got)
	}
	if got := histogramCount(t, m.renderDuration); got != 3 {
		t.Errorf("expected 3 duration samples, got %d", got)
	}
}

func TestOutboxMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetricsWithRegisterer(reg)

	m.RecordPublish("sent")
	m.RecordPublish("sent")
	m.RecordPublish("retry_error")
	m.SetBacklog(4, 90*time.Second)

	if got := counterValue(t, m.publishAttempts.WithLabelValues("sent")); got != 2 {
		t.Errorf("expected 2 sent attempts, got %f", got)
	}
	if got := gaugeValue(t, m.pendingRecords); got != 4 {
		t.Errorf("expected 4 pending records, got %f", got)
	}
	if got := gaugeValue(t, m.oldestPendingAge); got != 90 {
		t.Errorf("expected age 90s, got %f", got)
	}

	m.SetBacklog(0, -time.Second)
	if got := gaugeValue(t, m.oldestPendingAge); got != 0 {
		t.Errorf("negative age must clamp to 0, got %f", got)
	}
}
