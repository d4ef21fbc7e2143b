// Package tracing installs the process-wide OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporters accepted by trace_exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// ErrUnknownExporter is returned for an exporter name other than the ones above.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Shutdown flushes buffered spans and releases the provider.
type Shutdown func(ctx context.Context) error

type options struct {
	exporter    string
	serviceName string
	writer      io.Writer
}

// Option configures Init.
type Option func(*options)

// WithExporter selects where spans go. Empty keeps ExporterNone.
func WithExporter(name string) Option {
	return func(o *options) {
		if name != "" {
			o.exporter = name
		}
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithWriter sets the destination of the stdout exporter.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// Init builds a tracer provider for the selected exporter and makes it the
// global one. With ExporterNone the global no-op provider is left in place
// and the returned Shutdown does nothing.
func Init(_ context.Context, opts ...Option) (Shutdown, error) {
	o := options{exporter: ExporterNone, serviceName: "inkscore", writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	switch o.exporter {
	case ExporterNone:
		return func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, o.exporter)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(o.writer))
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", o.serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
