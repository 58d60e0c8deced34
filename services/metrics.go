package services

import (
	"context"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	raffle "github.com/streamraffle/go-raffle"
	"github.com/streamraffle/go-raffle/models"
)

const defaultMetricExportInterval = 30 * time.Second

// MetricService records pipeline counters via the OTel metric SDK. Metrics
// are exported over OTLP/HTTP when an endpoint is configured, otherwise to
// stdout.
type MetricService struct {
	logger     models.Logger
	provider   *sdkmetric.MeterProvider
	meter      metric.Meter
	mu         sync.Mutex
	counters   map[models.MetricName]metric.Int64Counter
	histograms map[models.MetricName]metric.Int64Histogram
}

func NewMetricService(ctx context.Context, logger models.Logger) (*MetricService, error) {
	var exporter sdkmetric.Exporter
	var err error
	if endpoint := os.Getenv(raffle.Env_MetricsEndpoint); len(endpoint) > 0 {
		exporter, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
	} else {
		exporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(defaultMetricExportInterval))),
	)
	return &MetricService{
		logger:     logger,
		provider:   provider,
		meter:      provider.Meter(models.MetricsCallerName),
		counters:   make(map[models.MetricName]metric.Int64Counter),
		histograms: make(map[models.MetricName]metric.Int64Histogram),
	}, nil
}

func (m *MetricService) Count(ctx context.Context, name models.MetricName, val int) error {
	counter, err := m.counter(name)
	if err != nil {
		return err
	}
	counter.Add(ctx, int64(val))
	return nil
}

func (m *MetricService) Distribution(ctx context.Context, name models.MetricName, val int) error {
	histogram, err := m.histogram(name)
	if err != nil {
		return err
	}
	histogram.Record(ctx, int64(val))
	return nil
}

func (m *MetricService) Shutdown(ctx context.Context) {
	if err := m.provider.Shutdown(ctx); err != nil {
		m.logger.Errorf("metrics: error during shutdown: %v", err)
	}
}

func (m *MetricService) counter(name models.MetricName) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, found := m.counters[name]; found {
		return counter, nil
	}
	counter, err := m.meter.Int64Counter(string(name))
	if err != nil {
		return nil, err
	}
	m.counters[name] = counter
	return counter, nil
}

func (m *MetricService) histogram(name models.MetricName) (metric.Int64Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if histogram, found := m.histograms[name]; found {
		return histogram, nil
	}
	histogram, err := m.meter.Int64Histogram(string(name))
	if err != nil {
		return nil, err
	}
	m.histograms[name] = histogram
	return histogram, nil
}
