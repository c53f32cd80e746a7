package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
)

// Config — параметры трейсинга.
type Config struct {
	Enabled        bool
	Endpoint       string // OTLP/gRPC "host:port"
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	SamplerRatio   float64 // 0…1, вне диапазона → 1
	Timeout        time.Duration
}

// Shutdown сбрасывает буфер span'ов и останавливает провайдер.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Option меняет поведение Setup.
type Option func(*setupOptions)

type setupOptions struct {
	exporter sdktrace.SpanExporter
}

// WithExporter подменяет OTLP-экспортёр (тесты, stdout и т.п.).
// Endpoint в этом случае не обязателен.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *setupOptions) { o.exporter = exp }
}

// Setup ставит глобальный TracerProvider и W3C-пропагатор.
// Enabled=false → провайдер не трогаем, Shutdown пустой.
func Setup(ctx context.Context, cfg Config, log *logger.Logger, opts ...Option) (Shutdown, error) {
	if !cfg.Enabled {
		log.Debug("telemetry: disabled")
		return noopShutdown, nil
	}
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ServiceName == "" {
		return nil, errors.New("telemetry: service name is required")
	}
	if o.exporter == nil && cfg.Endpoint == "" {
		return nil, errors.New("telemetry: endpoint is required")
	}
	if cfg.SamplerRatio < 0 || cfg.SamplerRatio > 1 {
		cfg.SamplerRatio = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	exp := o.exporter
	if exp == nil {
		grpcOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTimeout(cfg.Timeout),
		}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		var err error
		if exp, err = otlptracegrpc.New(initCtx, grpcOpts...); err != nil {
			return nil, fmt.Errorf("telemetry: exporter: %w", err)
		}
	}

	res, err := resource.New(initCtx,
		resource.WithHost(),
		resource.WithProcessPID(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		// частичный ресурс всё равно годится
		log.Warn("telemetry: resource detection incomplete", zap.Error(err))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	log.Info("telemetry: tracer ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sampler_ratio", cfg.SamplerRatio),
	)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown: %w", err)
		}
		return nil
	}, nil
}

// Tracer возвращает именованный трейсер из глобального провайдера.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
