package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name for development mode.
	EnvironmentDevelopment = "development"

	defaultSampleRate     = 1.0
	defaultBatchTimeout   = 5 * time.Second
	defaultExportTimeout  = 30 * time.Second
	defaultMetricInterval = 30 * time.Second
)

// Config defines the configuration for tracing and metrics export.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`

	// Service contains service identification metadata.
	Service ServiceConfig `koanf:"service" mapstructure:"service"`

	// Environment indicates the deployment environment (e.g., production, staging, development).
	Environment string `koanf:"environment" mapstructure:"environment"`

	// Trace contains tracing-specific configuration.
	Trace TraceConfig `koanf:"trace" mapstructure:"trace"`

	// Metrics contains metrics-specific configuration.
	Metrics MetricsConfig `koanf:"metrics" mapstructure:"metrics"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	// Name identifies the service in traces and metrics.
	// This is required when observability is enabled.
	Name    string `koanf:"name" mapstructure:"name"`
	Version string `koanf:"version" mapstructure:"version"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	Enabled  bool              `koanf:"enabled" mapstructure:"enabled"`
	Endpoint string            `koanf:"endpoint" mapstructure:"endpoint"`
	Protocol string            `koanf:"protocol" mapstructure:"protocol"`
	Insecure bool              `koanf:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" mapstructure:"headers"`
	// SampleRate is the ratio of traces sampled, between 0.0 and 1.0.
	// Nil means 1.0; an explicit 0.0 drops all spans.
	SampleRate    *float64      `koanf:"samplerate" mapstructure:"samplerate"`
	BatchTimeout  time.Duration `koanf:"batchtimeout" mapstructure:"batchtimeout"`
	ExportTimeout time.Duration `koanf:"exporttimeout" mapstructure:"exporttimeout"`
}

// MetricsConfig configures periodic metric export. Metrics share the trace
// protocol, TLS and header settings.
type MetricsConfig struct {
	Enabled  bool          `koanf:"enabled" mapstructure:"enabled"`
	Endpoint string        `koanf:"endpoint" mapstructure:"endpoint"`
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(defaultSampleRate)
	}
	if c.Trace.BatchTimeout <= 0 {
		c.Trace.BatchTimeout = defaultBatchTimeout
	}
	if c.Trace.ExportTimeout <= 0 {
		c.Trace.ExportTimeout = defaultExportTimeout
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = c.Trace.Endpoint
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = defaultMetricInterval
	}
	c.Trace.Headers = maps.Clone(c.Trace.Headers)
}

// Validate checks the configuration. Disabled configurations are always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Trace.Protocol != ProtocolHTTP && c.Trace.Protocol != ProtocolGRPC {
		return fmt.Errorf("protocol '%s': %w", c.Trace.Protocol, ErrInvalidProtocol)
	}
	if rate := c.Trace.SampleRate; rate != nil && (*rate < 0 || *rate > 1) {
		return ErrInvalidSampleRate
	}
	if c.Trace.Enabled {
		if err := validateEndpointFormat(c.Trace.Endpoint, c.Trace.Protocol); err != nil {
			return fmt.Errorf("trace endpoint: %w", err)
		}
	}
	if c.Metrics.Enabled {
		if err := validateEndpointFormat(c.Metrics.Endpoint, c.Trace.Protocol); err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
	}
	return nil
}

// validateEndpointFormat rejects gRPC endpoints with a scheme and HTTP endpoints without one.
// The exporters expect host:port for gRPC, and a full URL or host:port for HTTP.
func validateEndpointFormat(endpoint, protocol string) error {
	if endpoint == "" || endpoint == EndpointStdout {
		return nil
	}
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	if protocol == ProtocolGRPC && hasScheme {
		return fmt.Errorf("gRPC endpoint '%s' must use host:port format: %w", endpoint, ErrInvalidEndpointFormat)
	}
	return nil
}
