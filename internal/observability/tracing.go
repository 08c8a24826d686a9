// Package observability настраивает OpenTelemetry tracing для сервиса.
package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig — куда и как экспортировать спаны.
type TracingConfig struct {
	// Endpoint host:port OTLP/HTTP коллектора. Пустое значение отключает экспорт.
	Endpoint    string
	URLPath     string
	Insecure    bool
	Headers     map[string]string
	SampleRatio float64

	ServiceName    string
	ServiceVersion string
}

// ShutdownFunc сбрасывает буферы и останавливает провайдер.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// SetupTracing регистрирует глобальный TracerProvider с OTLP/HTTP экспортёром.
// Без Endpoint остаётся no-op провайдер по умолчанию.
func SetupTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Endpoint == "" {
		return noopShutdown, nil
	}

	options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.URLPath != "" {
		options = append(options, otlptracehttp.WithURLPath(cfg.URLPath))
	}
	if cfg.Insecure {
		options = append(options, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		options = append(options, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return noopShutdown, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	provider, err := NewTracerProvider(cfg, sdktrace.WithBatcher(exporter,
		sdktrace.WithMaxQueueSize(2048),
		sdktrace.WithBatchTimeout(5*time.Second),
	))
	if err != nil {
		return noopShutdown, errors.Join(err, exporter.Shutdown(ctx))
	}
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// NewTracerProvider собирает провайдер с ресурсом сервиса и sampler по SampleRatio.
func NewTracerProvider(cfg TracingConfig, options ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	options = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	}, options...)
	return sdktrace.NewTracerProvider(options...), nil
}
