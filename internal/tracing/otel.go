// Package tracing wires the OpenTelemetry SDK.  Without an OTLP endpoint the
// global no-op provider stays in place and spans cost nothing.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/config"
)

// Init installs a batching tracer provider exporting to cfg.Endpoint and
// returns a shutdown func.  Errors are logged and tracing is left disabled.
func Init(cfg config.TracingConfig, log *zap.Logger) func() {
	if cfg.Endpoint == "" {
		return func() {}
	}
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		log.Error("tracing: exporter init failed", zap.Error(err))
		return func() {}
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		log.Error("tracing: resource init failed", zap.Error(err))
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Info("tracing enabled", zap.String("endpoint", cfg.Endpoint))

	return func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("tracing: shutdown failed", zap.Error(err))
		}
	}
}
