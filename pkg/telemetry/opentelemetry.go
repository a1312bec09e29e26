package telemetry

import (
	"context"
	"fmt"

	"github.com/goto/salt/log"
	"go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/contrib/samplers/probability/consistent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"google.golang.org/grpc/encoding/gzip"
)

// pipeline holds the started providers. They stop in reverse start order.
type pipeline struct {
	logger log.Logger
	stops  []stopFunc
}

type stopFunc struct {
	name string
	fn   func(context.Context) error
}

func (p *pipeline) add(name string, fn func(context.Context) error) {
	p.stops = append(p.stops, stopFunc{name: name, fn: fn})
}

func (p *pipeline) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()
	for i := len(p.stops) - 1; i >= 0; i-- {
		if err := p.stops[i].fn(ctx); err != nil {
			p.logger.Error("telemetry provider failed to shutdown", "provider", p.stops[i].name, "err", err)
		}
	}
	p.stops = nil
}

func start(ctx context.Context, cfg Config, o options, logger log.Logger) (*pipeline, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reader := o.reader
	if reader == nil {
		if reader, err = newPushReader(ctx, cfg); err != nil {
			return nil, err
		}
	}

	p := &pipeline{logger: logger}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(meterProvider)
	p.add("meter", meterProvider.Shutdown)

	if cfg.Traces.Enabled {
		tracerProvider, err := newTracerProvider(ctx, res, cfg)
		if err != nil {
			p.shutdown()
			return nil, err
		}
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		))
		p.add("tracer", tracerProvider.Shutdown)
	}

	if cfg.RuntimeMetrics {
		if err := host.Start(host.WithMeterProvider(meterProvider)); err != nil {
			p.shutdown()
			return nil, fmt.Errorf("start host metrics: %w", err)
		}
		if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
			p.shutdown()
			return nil, fmt.Errorf("start runtime metrics: %w", err)
		}
	}

	logger.Info("telemetry started",
		"collector", cfg.CollectorAddr,
		"traces", cfg.Traces.Enabled,
		"runtime_metrics", cfg.RuntimeMetrics,
	)
	return p, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.AppName),
			semconv.ServiceVersion(cfg.AppVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create telemetry resource: %w", err)
	}
	return res, nil
}

// newPushReader exports to the collector every cfg.ExportInterval.
func newPushReader(ctx context.Context, cfg Config) (sdkmetric.Reader, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.CollectorAddr),
		otlpmetricgrpc.WithCompressor(gzip.Name),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.ExportInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.ExportInterval))
	}
	return sdkmetric.NewPeriodicReader(exporter, readerOpts...), nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(cfg.CollectorAddr),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithCompressor(gzip.Name),
	))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(consistent.ProbabilityBased(cfg.Traces.SampleRatio)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	), nil
}

func noOp() {}
