package report

import (
	"bytes"
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/metrics"
)

// Filename задаёт имя файла отчёта для скачивания.
const Filename = "robot_summary_last_week.xlsx"

// Service собирает недельный отчёт целиком: выборка, группировка, рендер и xlsx.
type Service struct {
	aggregator *Aggregator
	metrics    *metrics.ReportMetrics
	logger     *log.Entry
}

// NewService создаёт сервис отчётов. m может быть nil.
func NewService(aggregator *Aggregator, m *metrics.ReportMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "report")
	}
	return &Service{aggregator: aggregator, metrics: m, logger: logger}
}

// LastWeekXLSX возвращает готовый файл отчёта либо ошибку целиком, без частичных книг.
// Пустое окно даёт ErrEmptyWorkbook.
func (s *Service) LastWeekXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	windowStart := s.aggregator.WindowStart()
	logger := s.logger.WithField("window_start", windowStart.Format(time.RFC3339))

	summary, err := s.aggregator.Summarize(ctx, windowStart)
	if err != nil {
		s.recordFailed(start)
		logger.WithError(err).Error("report aggregation failed")
		return nil, err
	}

	wb := Render(summary)
	var buf bytes.Buffer
	if err := EncodeXLSX(wb, &buf); err != nil {
		if errors.Is(err, domain.ErrEmptyWorkbook) {
			s.recordGenerated(0, start)
			logger.Info("report window is empty")
			return nil, err
		}
		s.recordFailed(start)
		logger.WithError(err).Error("report rendering failed")
		return nil, err
	}

	s.recordGenerated(len(wb.Sheets), start)
	logger.WithFields(log.Fields{
		"sheets": len(wb.Sheets),
		"bytes":  buf.Len(),
	}).Info("report generated")
	return buf.Bytes(), nil
}

func (s *Service) recordGenerated(sheets int, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordGenerated(sheets, time.Since(start))
	}
}

func (s *Service) recordFailed(start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordFailed(time.Since(start))
	}
}
