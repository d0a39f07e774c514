package simtest

import (
	"time"

	"github.com/simlang/simtest/service/toolchain"
	"github.com/simlang/simtest/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service before its first run.
type Option func(s *Service)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithBinary sets the subject compiler.
func WithBinary(binary string) Option {
	return func(s *Service) { s.config.Binary = binary }
}

// WithFixtures sets the fixture tree root.
func WithFixtures(root string) Option {
	return func(s *Service) { s.config.Fixtures = root }
}

// WithTimeout bounds every exchange with the subject.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.config.TimeoutMs = int(timeout.Milliseconds()) }
}

// WithColor toggles ANSI colored diffs in failure reports.
func WithColor(color bool) Option {
	return func(s *Service) { s.config.Color = color }
}

// WithVerbose toggles the per-case report lines.
func WithVerbose(verbose bool) Option {
	return func(s *Service) { s.config.Verbose = verbose }
}

// WithPhases restricts the session to the named phases; the interactive
// phase is selected as "interpreter". Without this option all configured
// phases run.
func WithPhases(phases ...string) Option {
	return func(s *Service) { s.phases = phases }
}

// WithBuild makes the session compile the subject before running fixtures.
func WithBuild(build *toolchain.Build) Option {
	return func(s *Service) { s.config.Build = build }
}

// WithBuildCache sets the location where build outcomes are memoized.
func WithBuildCache(URL string) Option {
	return func(s *Service) { s.config.BuildCache = URL }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
