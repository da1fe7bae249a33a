package tracing

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used by all pipeline packages.
const InstrumentationName = "github.com/Aidin1998/mindset_analyzer"

type Config struct {
	Enabled bool
	// Writer receives exported spans; defaults to stdout.
	Writer io.Writer
}

// Setup installs a global tracer provider exporting spans to cfg.Writer.
// When tracing is disabled the global no-op provider stays in place and the
// returned shutdown is a no-op.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error

	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	if !cfg.Enabled {
		return shutdown, nil
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return shutdown, errors.Join(err, shutdown(ctx))
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(0)),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	return shutdown, nil
}

// Tracer returns the pipeline tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
