package emitter

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/yairfalse/costscan/pkg/resource"
)

// PrometheusEmitter writes inventory metrics to a node-exporter textfile.
// Instruments are OTEL; the exporter feeds a private Prometheus registry
// that is serialized after every Emit.
type PrometheusEmitter struct {
	path     string
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
	classify ErrorClassifier

	resources     metric.Int64Gauge
	checkDuration metric.Float64Histogram
	checkErrors   metric.Int64Counter
	runDuration   metric.Float64Gauge
}

// NewPrometheusEmitter creates a textfile emitter writing to path.
func NewPrometheusEmitter(path string, classify ErrorClassifier) (*PrometheusEmitter, error) {
	if classify == nil {
		classify = func(error) string { return "" }
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	e := &PrometheusEmitter{
		path:     path,
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		classify: classify,
	}
	if err := e.initMetrics(e.provider.Meter("costscan")); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *PrometheusEmitter) initMetrics(meter metric.Meter) error {
	var err error

	e.resources, err = meter.Int64Gauge(
		"costscan_resources",
		metric.WithDescription("Billable resources found by the last run"),
	)
	if err != nil {
		return fmt.Errorf("create resources gauge: %w", err)
	}

	e.checkDuration, err = meter.Float64Histogram(
		"costscan_check_duration",
		metric.WithDescription("Time taken by one service check"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create check_duration histogram: %w", err)
	}

	e.checkErrors, err = meter.Int64Counter(
		"costscan_check_errors",
		metric.WithDescription("Service checks that failed"),
	)
	if err != nil {
		return fmt.Errorf("create check_errors counter: %w", err)
	}

	e.runDuration, err = meter.Float64Gauge(
		"costscan_run_duration",
		metric.WithDescription("Wall time of the last run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create run_duration gauge: %w", err)
	}

	return nil
}

// Emit records one gauge sample per check and rewrites the textfile.
func (e *PrometheusEmitter) Emit(ctx context.Context, result resource.ScanResult) error {
	inv, err := inventoryOf(result)
	if err != nil {
		return err
	}

	for _, c := range inv.Checks {
		attrs := metric.WithAttributes(
			attribute.String("service", string(c.Service)),
			attribute.String("region", c.Region),
		)
		e.checkDuration.Record(ctx, c.Duration.Seconds(), attrs)
		if c.Failed() {
			e.checkErrors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("service", string(c.Service)),
				attribute.String("region", c.Region),
				attribute.String("error_code", e.classify(c.Err)),
			))
			continue
		}
		e.resources.Record(ctx, int64(len(c.Records)), attrs)
	}
	e.runDuration.Record(ctx, result.Duration.Seconds(),
		metric.WithAttributes(attribute.String("provider", result.Provider)))

	if err := prometheus.WriteToTextfile(e.path, e.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	log.Debug().Str("path", e.path).Int("checks", len(inv.Checks)).Msg("metrics textfile written")
	return nil
}

// Close shuts down the meter provider.
func (e *PrometheusEmitter) Close() error {
	return e.provider.Shutdown(context.Background())
}
