// Package telemetry provides OpenTelemetry instrumentation for costscan.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/yairfalse/costscan/internal/config"
	inventory "github.com/yairfalse/costscan/pkg/resource"
)

const instrumentationName = "github.com/yairfalse/costscan"

// Provider wraps OTEL tracer and meter providers and records check telemetry.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	classify       func(error) string

	checkDuration metric.Float64Histogram
	recordCount   metric.Int64Counter
	checkErrors   metric.Int64Counter
}

// Option configures a Provider.
type Option func(*Provider)

// WithErrorClassifier sets the function that labels failed checks.
func WithErrorClassifier(fn func(error) string) Option {
	return func(p *Provider) { p.classify = fn }
}

// NewProvider creates a telemetry provider. Exporters are only created when
// an endpoint is configured and the signal is enabled; otherwise spans and
// metrics stay in-process.
func NewProvider(ctx context.Context, cfg config.OTELConfig, version string, opts ...Option) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}

	userAgent := grpc.WithUserAgent("costscan/" + version)

	if err := p.setupTracing(ctx, cfg, res, userAgent); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res, userAgent); err != nil {
		_ = p.tracerProvider.Shutdown(ctx)
		return nil, err
	}

	if err := p.init(); err != nil {
		return nil, err
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource, dial grpc.DialOption) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg, dial)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate))
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	return nil
}

func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource, dial grpc.DialOption) error {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg, dial)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	return nil
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig, dial grpc.DialOption) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(dial),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig, dial grpc.DialOption) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithDialOption(dial),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

// init creates the tracer, meter and instruments from the providers.
func (p *Provider) init() error {
	p.tracer = p.tracerProvider.Tracer(instrumentationName)
	p.meter = p.meterProvider.Meter(instrumentationName)
	if p.classify == nil {
		p.classify = func(error) string { return "" }
	}

	var err error

	p.checkDuration, err = p.meter.Float64Histogram(
		"costscan.check.duration",
		metric.WithDescription("Duration of one service check"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create check_duration: %w", err)
	}

	p.recordCount, err = p.meter.Int64Counter(
		"costscan.records",
		metric.WithDescription("Billable resources found"),
	)
	if err != nil {
		return fmt.Errorf("create records: %w", err)
	}

	p.checkErrors, err = p.meter.Int64Counter(
		"costscan.check.errors",
		metric.WithDescription("Service checks that failed"),
	)
	if err != nil {
		return fmt.Errorf("create check_errors: %w", err)
	}

	return nil
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}

// RecordCheck records duration, record count and failure of one check.
func (p *Provider) RecordCheck(ctx context.Context, res inventory.CheckResult) {
	attrs := []attribute.KeyValue{
		attribute.String("service", string(res.Service)),
		attribute.String("region", res.Region),
	}
	p.checkDuration.Record(ctx, res.Duration.Seconds(), metric.WithAttributes(attrs...))

	if res.Failed() {
		p.checkErrors.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String("error_code", p.classify(res.Err)))...,
		))
		return
	}
	p.recordCount.Add(ctx, int64(len(res.Records)), metric.WithAttributes(attrs...))
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
