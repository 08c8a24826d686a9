package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReportMetrics содержит метрики построения недельного отчёта.
type ReportMetrics struct {
	reports        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	lastSheets     prometheus.Gauge
}

// NewReportMetrics создаёт метрики в DefaultRegisterer.
func NewReportMetrics() *ReportMetrics {
	return NewReportMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewReportMetricsWithRegisterer создаёт метрики в указанном registerer.
func NewReportMetricsWithRegisterer(registerer prometheus.Registerer) *ReportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ReportMetrics{
		reports: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "r4c_reports_total",
			Help: "Total number of summary report requests grouped by result",
		}, []string{"result"}),
		renderDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "r4c_report_duration_seconds",
			Help:    "Duration of summary report generation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		lastSheets: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "r4c_report_last_sheets",
			Help: "Number of sheets in the most recently generated report",
		}),
	}
}

// RecordGenerated фиксирует успешно построенный отчёт.
func (m *ReportMetrics) RecordGenerated(sheets int, duration time.Duration) {
	result := "generated"
	if sheets == 0 {
		result = "empty"
	}
	m.reports.WithLabelValues(result).Inc()
	m.lastSheets.Set(float64(sheets))
	m.renderDuration.Observe(duration.Seconds())
}

// RecordFailed фиксирует ошибку построения отчёта.
func (m *ReportMetrics) RecordFailed(duration time.Duration) {
	m.reports.WithLabelValues("failed").Inc()
	m.renderDuration.Observe(duration.Seconds())
}
