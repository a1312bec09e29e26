package telemetry

import (
	"context"
	"time"

	"github.com/goto/salt/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const gracePeriod = 5 * time.Second

type Config struct {
	AppVersion string `yaml:"-" mapstructure:"-"`

	AppName        string        `yaml:"app_name" mapstructure:"app_name" default:"sieve"`
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled" default:"false"`
	CollectorAddr  string        `yaml:"collector_addr" mapstructure:"collector_addr" default:"localhost:4317"`
	ExportInterval time.Duration `yaml:"export_interval" mapstructure:"export_interval" default:"10s"`
	// RuntimeMetrics also reports host and Go runtime metrics.
	RuntimeMetrics bool         `yaml:"runtime_metrics" mapstructure:"runtime_metrics" default:"true"`
	Traces         TracesConfig `yaml:"traces" mapstructure:"traces"`
}

// TracesConfig turns on span export. The CLI records no spans of its own;
// only the instrumented postgres driver does.
type TracesConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled" default:"false"`
	SampleRatio float64 `yaml:"sample_ratio" mapstructure:"sample_ratio" default:"1"`
}

type options struct {
	reader sdkmetric.Reader
}

type Option func(*options)

// WithMetricReader collects metrics with r instead of pushing them to the
// collector.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// Init installs the global meter provider, and the tracer provider when
// traces are enabled. The returned func flushes and stops them; it is safe to
// call when telemetry is disabled.
func Init(ctx context.Context, cfg Config, logger log.Logger, opts ...Option) (cleanUp func(), err error) {
	if logger == nil {
		logger = log.NewNoop()
	}
	if !cfg.Enabled {
		logger.Debug("telemetry is disabled")
		return noOp, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p, err := start(ctx, cfg, o, logger)
	if err != nil {
		return noOp, err
	}
	return p.shutdown, nil
}
