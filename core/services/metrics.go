package services

import (
	"context"

	"github.com/canirun/canirun/pkg/vram"
	"github.com/mudler/xlog"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricApi "go.opentelemetry.io/otel/sdk/metric"
)

type MetricsService struct {
	Meter         metric.Meter
	ApiTimeMetric metric.Float64Histogram

	checks      metric.Int64Counter
	resolutions metric.Int64Counter
	provider    *metricApi.MeterProvider
	gatherer    prom.Gatherer
}

func (m *MetricsService) ObserveAPICall(method string, path string, duration float64) {
	opts := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	)
	m.ApiTimeMetric.Record(context.Background(), duration, opts)
}

// ObserveCheck counts one compatibility computation by verdict and quantization.
func (m *MetricsService) ObserveCheck(ctx context.Context, verdict vram.Verdict, q vram.Quantization) {
	m.checks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verdict", string(verdict)),
		attribute.String("quantization", string(q)),
	))
}

// ObserveResolution counts one model lookup by outcome.
func (m *MetricsService) ObserveResolution(ctx context.Context, source vram.ModelSource, ok bool) {
	m.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.Bool("ok", ok),
	))
}

// Gatherer is what /metrics serves.
func (m *MetricsService) Gatherer() prom.Gatherer {
	return m.gatherer
}

// NewMetricsService bootstraps the OpenTelemetry pipeline for Prometheus export. A nil
// registry uses the Prometheus default one.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func NewMetricsService(registry *prom.Registry) (*MetricsService, error) {
	var (
		opts     []prometheus.Option
		gatherer prom.Gatherer = prom.DefaultGatherer
	)
	if registry != nil {
		opts = append(opts, prometheus.WithRegisterer(registry))
		gatherer = registry
	}

	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, err
	}
	provider := metricApi.NewMeterProvider(metricApi.WithReader(exporter))
	meter := provider.Meter("github.com/canirun/canirun")

	apiTimeMetric, err := meter.Float64Histogram("api_call", metric.WithDescription("api calls"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	checks, err := meter.Int64Counter("compatibility_checks", metric.WithDescription("compatibility computations by verdict"))
	if err != nil {
		return nil, err
	}
	resolutions, err := meter.Int64Counter("model_resolutions", metric.WithDescription("model metadata lookups"))
	if err != nil {
		return nil, err
	}

	return &MetricsService{
		Meter:         meter,
		ApiTimeMetric: apiTimeMetric,
		checks:        checks,
		resolutions:   resolutions,
		provider:      provider,
		gatherer:      gatherer,
	}, nil
}

func (m *MetricsService) Shutdown() error {
	if err := m.provider.Shutdown(context.Background()); err != nil {
		xlog.Warn("metrics provider shutdown failed", "error", err)
		return err
	}
	return nil
}
