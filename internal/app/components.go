package app

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/clock"
	"github.com/vladislavdragonenkov/r4c/internal/domain"
	"github.com/vladislavdragonenkov/r4c/internal/health"
	"github.com/vladislavdragonenkov/r4c/internal/metrics"
	"github.com/vladislavdragonenkov/r4c/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/r4c/internal/service/notify"
	"github.com/vladislavdragonenkov/r4c/internal/service/orders"
	"github.com/vladislavdragonenkov/r4c/internal/service/report"
	"github.com/vladislavdragonenkov/r4c/internal/service/robots"
	"github.com/vladislavdragonenkov/r4c/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/r4c/internal/version"
)

// components собирает сервисы поверх выбранного хранилища.
type components struct {
	coordinator *fulfillment.Coordinator
	handler     *httpapi.Handler
	health      *health.Handler
}

// buildNotifier выбирает SMTP, если задан хост, иначе пишет уведомления в лог.
func buildNotifier(cfg notify.SMTPConfig, logger *log.Entry) (domain.Notifier, error) {
	if cfg.Host == "" {
		logger.Warn("smtp host is not configured, notifications are written to log")
		return notify.NewLogNotifier(logger.WithField("component", "notify-log")), nil
	}
	notifier, err := notify.NewSMTPNotifier(cfg, logger.WithField("component", "notify-smtp"))
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{"smtp_host": cfg.Host, "smtp_port": cfg.Port}).Info("smtp notifier initialized")
	return notifier, nil
}

func buildComponents(cfg Config, deps *runtimeDependencies, notifier domain.Notifier, logger *log.Entry) *components {
	systemClock := clock.NewSystem()

	coordinator := fulfillment.NewCoordinator(
		deps.orders,
		deps.customers,
		notifier,
		fulfillment.WithLogger(logger.WithField("component", "fulfillment")),
		fulfillment.WithMetrics(metrics.NewFulfillmentMetrics()),
		fulfillment.WithClock(systemClock),
		fulfillment.WithWorkers(cfg.FulfillmentWorkers),
	)

	robotService := robots.NewService(deps.robots, deps.outbox, coordinator, logger.WithField("component", "robots"))
	orderService := orders.NewService(deps.customers, deps.orders, systemClock, logger.WithField("component", "orders"))
	reportService := report.NewService(
		report.NewAggregator(deps.robots, report.WithClock(systemClock), report.WithWindow(cfg.ReportWindow)),
		metrics.NewReportMetrics(),
		logger.WithField("component", "report"),
	)

	handler := httpapi.NewHandler(robotService, reportService, orderService, logger.WithField("component", "http"))

	healthHandler := health.NewHandler(version.ServiceName, version.Version())
	if deps.store != nil {
		healthHandler.RegisterChecker("postgres", health.NewPingChecker("postgres", deps.store))
	}
	healthHandler.RegisterChecker("outbox", health.NewBacklogChecker("outbox", func() (int, time.Time, error) {
		stats, err := deps.outbox.Stats()
		return stats.PendingCount, stats.OldestPendingAt, err
	}, cfg.OutboxMaxPendingAge))

	return &components{
		coordinator: coordinator,
		handler:     handler,
		health:      healthHandler,
	}
}
