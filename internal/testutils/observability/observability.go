package observability

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	mnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/stratadb/stratadb/logger"
)

/*
NOP creates observability implementation where everything is no-op.
Use it for tests for which it absolutely doesn't make sense to create
any logs, traces or metrics.
*/
func NOP() *Observability {
	return &Observability{
		mp:  mnoop.NewMeterProvider(),
		tp:  tnoop.NewTracerProvider(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

/*
Default creates observability implementation for tests - metrics and traces
are no-op but log records go to the test's output. The STRATA_TEST_LOG_LEVEL
environment variable can be used to alter the log level (defaults to debug).
*/
func Default(t *testing.T) *Observability {
	log, err := logger.New(&logger.LogConfiguration{
		Level:  level(),
		Writer: testWriter{t: t},
	})
	if err != nil {
		t.Fatalf("creating test logger: %v", err)
	}
	return &Observability{
		mp:  mnoop.NewMeterProvider(),
		tp:  tnoop.NewTracerProvider(),
		log: log,
	}
}

type Observability struct {
	mp  metric.MeterProvider
	tp  trace.TracerProvider
	log *slog.Logger
}

func (o *Observability) Meter(name string, options ...metric.MeterOption) metric.Meter {
	return o.mp.Meter(name, options...)
}

func (o *Observability) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	return o.tp.Tracer(name, options...)
}

func (o *Observability) TracerProvider() trace.TracerProvider { return o.tp }

func (o *Observability) Logger() *slog.Logger { return o.log }

func (o *Observability) MetricsHandler() http.Handler { return nil }

func (o *Observability) PrometheusRegisterer() prometheus.Registerer { return nil }

func (o *Observability) Shutdown() error { return nil }

func level() string {
	if lvl := os.Getenv("STRATA_TEST_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "debug"
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
