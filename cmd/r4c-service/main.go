package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/r4c/internal/app"
	"github.com/vladislavdragonenkov/r4c/internal/version"
)

const (
	envHTTPAddr            = "R4C_HTTP_ADDR"
	envMetricsAddr         = "R4C_METRICS_ADDR"
	envLogLevel            = "R4C_LOG_LEVEL"
	envStorageDriver       = "R4C_STORAGE_DRIVER"
	envPostgresDSN         = "R4C_POSTGRES_DSN"
	envPostgresAutoMigrate = "R4C_POSTGRES_AUTO_MIGRATE"
	envSMTPHost            = "R4C_SMTP_HOST"
	envSMTPPort            = "R4C_SMTP_PORT"
	envSMTPUsername        = "R4C_SMTP_USERNAME"
	envSMTPPassword        = "R4C_SMTP_PASSWORD"
	envSMTPTLS             = "R4C_SMTP_TLS"
	envSMTPTimeout         = "R4C_SMTP_TIMEOUT"
	envDefaultFromEmail    = "R4C_DEFAULT_FROM_EMAIL"
	envFulfillmentWorkers  = "R4C_FULFILLMENT_WORKERS"
	envReportWindow        = "R4C_REPORT_WINDOW"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envOutboxPollInterval  = "R4C_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "R4C_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "R4C_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "R4C_OUTBOX_RETRY_DELAY"
	envOutboxMaxPendingAge = "R4C_OUTBOX_MAX_PENDING_AGE"
	envShutdownTimeout     = "R4C_SHUTDOWN_TIMEOUT"
	envOTLPEndpoint        = "R4C_OTLP_ENDPOINT"
	envOTLPInsecure        = "R4C_OTLP_INSECURE"
	envOTLPSampleRatio     = "R4C_OTLP_SAMPLE_RATIO"
	envDotenvFile          = "R4C_ENV_FILE"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if strings.TrimSpace(level) == "" {
		return nil
	}
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	return nil
}

// loadDotenv подгружает .env, не перетирая уже заданные переменные окружения.
func loadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных окружения.
// Некорректные значения пропускаются с предупреждением, остаётся значение по умолчанию.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		if !ok {
			return "", false
		}
		value = strings.TrimSpace(value)
		return value, value != ""
	}
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}
	positiveInt := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	if v, ok := get(envHTTPAddr); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := lookup(envMetricsAddr); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := get(envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := get(envPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get(envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	if v, ok := get(envSMTPHost); ok {
		cfg.SMTP.Host = v
	}
	if v, ok := get(envSMTPPort); ok {
		if parsed, err := parseInt(v, func(p int) bool { return p > 0 && p <= 65535 }, "must be a tcp port"); err != nil {
			warn(envSMTPPort, err)
		} else {
			cfg.SMTP.Port = parsed
		}
	}
	if v, ok := get(envSMTPUsername); ok {
		cfg.SMTP.Username = v
	}
	if v, ok := lookup(envSMTPPassword); ok {
		cfg.SMTP.Password = v
	}
	if v, ok := get(envSMTPTLS); ok {
		cfg.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := get(envSMTPTimeout); ok {
		if parsed, err := parseDuration(v, positiveDuration, "must be > 0"); err != nil {
			warn(envSMTPTimeout, err)
		} else {
			cfg.SMTP.Timeout = parsed
		}
	}
	if v, ok := get(envDefaultFromEmail); ok {
		cfg.SMTP.From = v
	}

	if v, ok := get(envFulfillmentWorkers); ok {
		if parsed, err := parseInt(v, positiveInt, "must be > 0"); err != nil {
			warn(envFulfillmentWorkers, err)
		} else {
			cfg.FulfillmentWorkers = parsed
		}
	}
	if v, ok := get(envReportWindow); ok {
		if parsed, err := parseDuration(v, positiveDuration, "must be > 0"); err != nil {
			warn(envReportWindow, err)
		} else {
			cfg.ReportWindow = parsed
		}
	}

	if v, ok := get(envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	if v, ok := get(envOutboxPollInterval); ok {
		if parsed, err := parseDuration(v, positiveDuration, "must be > 0"); err != nil {
			warn(envOutboxPollInterval, err)
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := get(envOutboxBatchSize); ok {
		if parsed, err := parseInt(v, positiveInt, "must be > 0"); err != nil {
			warn(envOutboxBatchSize, err)
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := get(envOutboxMaxAttempts); ok {
		if parsed, err := parseInt(v, positiveInt, "must be > 0"); err != nil {
			warn(envOutboxMaxAttempts, err)
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v, ok := get(envOutboxRetryDelay); ok {
		if parsed, err := parseDuration(v, nonNegativeDuration, "must be >= 0"); err != nil {
			warn(envOutboxRetryDelay, err)
		} else {
			cfg.OutboxRetryDelay = parsed
		}
	}
	if v, ok := get(envOutboxMaxPendingAge); ok {
		if parsed, err := parseDuration(v, nonNegativeDuration, "must be >= 0"); err != nil {
			warn(envOutboxMaxPendingAge, err)
		} else {
			cfg.OutboxMaxPendingAge = parsed
		}
	}
	if v, ok := get(envShutdownTimeout); ok {
		if parsed, err := parseDuration(v, positiveDuration, "must be > 0"); err != nil {
			warn(envShutdownTimeout, err)
		} else {
			cfg.ShutdownTimeout = parsed
		}
	}

	if v, ok := get(envOTLPEndpoint); ok {
		cfg.Tracing.Endpoint = v
	}
	if v, ok := get(envOTLPInsecure); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envOTLPInsecure, err)
		} else {
			cfg.Tracing.Insecure = parsed
		}
	}
	if v, ok := get(envOTLPSampleRatio); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			warn(envOTLPSampleRatio, fmt.Errorf("invalid float value %q", v))
		case parsed < 0 || parsed > 1:
			warn(envOTLPSampleRatio, fmt.Errorf("value %v must be within [0, 1]", parsed))
		default:
			cfg.Tracing.SampleRatio = parsed
		}
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, constraint string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, constraint)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, constraint string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, constraint)
	}
	return value, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func main() {
	if err := loadDotenv(os.Getenv(envDotenvFile)); err != nil {
		log.WithError(err).Warn("failed to load .env file")
	}
	if err := setupLogger(os.Getenv(envLogLevel)); err != nil {
		log.WithError(err).Warn("invalid log level, using info")
	}

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn("ignoring invalid config value: " + warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  len(cfg.KafkaBrokers) > 0,
		"smtp_enabled":   cfg.SMTP.Host != "",
		"otlp_enabled":   cfg.Tracing.Endpoint != "",
	}).Info("запускаем r4c-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("r4c-service остановлен")
}
