package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/r4c/internal/observability"
	"github.com/vladislavdragonenkov/r4c/internal/service/notify"
	"github.com/vladislavdragonenkov/r4c/internal/version"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса r4c.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// SMTP без Host означает, что уведомления пишутся в лог.
	SMTP notify.SMTPConfig

	FulfillmentWorkers int
	ReportWindow       time.Duration

	KafkaBrokers        []string
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	OutboxMaxAttempts   int
	OutboxRetryDelay    time.Duration
	OutboxMaxPendingAge time.Duration

	// Tracing без Endpoint оставляет no-op tracer.
	Tracing observability.TracingConfig

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает базовые адреса и параметры воркеров.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8000",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		SMTP: notify.SMTPConfig{
			Port: 587,
			From: "noreply@r4c.local",
			TLS:  "opportunistic",
		},
		FulfillmentWorkers:  1,
		ReportWindow:        7 * 24 * time.Hour,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		OutboxMaxPendingAge: 5 * time.Minute,
		Tracing: observability.TracingConfig{
			URLPath:        "/v1/traces",
			SampleRatio:    1,
			ServiceName:    version.ServiceName,
			ServiceVersion: version.Version(),
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate проверяет согласованность настроек до запуска компонентов.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.SMTP.Host != "" {
		if err := c.SMTP.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.FulfillmentWorkers < 0 {
		errs = append(errs, errors.New("fulfillment workers must be >= 0"))
	}
	if c.ReportWindow < 0 {
		errs = append(errs, errors.New("report window must be >= 0"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing sample ratio must be within [0, 1]"))
	}
	return errors.Join(errs...)
}
