package telemetry

import (
  "context"
  "fmt"
  "strings"
  "time"

  "go.opentelemetry.io/otel"
  "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
  "go.opentelemetry.io/otel/propagation"
  "go.opentelemetry.io/otel/sdk/resource"
  sdktrace "go.opentelemetry.io/otel/sdk/trace"
  semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
  "go.opentelemetry.io/otel/trace"
  "go.opentelemetry.io/otel/trace/noop"

  "rebalance-lnd/internal/config"
)

// Provider is the tracer provider lnd RPC spans go to, plus its teardown.
type Provider struct {
  trace.TracerProvider
  shutdown func(context.Context) error
}

func (p *Provider) Shutdown(ctx context.Context) error {
  if p.shutdown == nil {
    return nil
  }
  return p.shutdown(ctx)
}

// Init builds an OTLP/HTTP trace pipeline from cfg and installs it as the
// global provider. When telemetry is disabled it returns a no-op provider and
// leaves the globals alone.
func Init(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
  if !cfg.Enabled {
    return &Provider{TracerProvider: noop.NewTracerProvider()}, nil
  }

  opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
  if cfg.Insecure {
    opts = append(opts, otlptracehttp.WithInsecure())
  }
  if len(cfg.Headers) > 0 {
    opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
  }
  exporter, err := otlptracehttp.New(ctx, opts...)
  if err != nil {
    return nil, fmt.Errorf("create trace exporter: %w", err)
  }

  tp, err := NewTracerProvider(cfg.ServiceName, sdktrace.WithBatcher(exporter,
    sdktrace.WithBatchTimeout(2*time.Second),
  ))
  if err != nil {
    return nil, err
  }
  otel.SetTracerProvider(tp)
  otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
    propagation.TraceContext{},
    propagation.Baggage{},
  ))
  return &Provider{TracerProvider: tp, shutdown: tp.Shutdown}, nil
}

// NewTracerProvider returns an SDK provider tagged with serviceName. Span
// processors and exporters come from opts.
func NewTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
  serviceName = strings.TrimSpace(serviceName)
  if serviceName == "" {
    return nil, fmt.Errorf("service name required for telemetry")
  }
  res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
    semconv.ServiceNameKey.String(serviceName),
  ))
  if err != nil {
    return nil, fmt.Errorf("build resource: %w", err)
  }
  return sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...), nil
}

// ParseHeaders converts an OTEL header string (key=value,foo=bar) into a map.
func ParseHeaders(raw string) map[string]string {
  headers := map[string]string{}
  for _, pair := range strings.Split(raw, ",") {
    key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
    key = strings.TrimSpace(key)
    if !found || key == "" {
      continue
    }
    headers[key] = strings.TrimSpace(value)
  }
  return headers
}
