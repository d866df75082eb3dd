package telemetry

import (
  "context"
  "testing"

  "github.com/stretchr/testify/require"
  "go.opentelemetry.io/otel"
  sdktrace "go.opentelemetry.io/otel/sdk/trace"
  "go.opentelemetry.io/otel/sdk/trace/tracetest"
  semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

  "rebalance-lnd/internal/config"
)

func TestInitDisabledLeavesGlobalProvider(t *testing.T) {
  before := otel.GetTracerProvider()

  p, err := Init(context.Background(), config.TelemetryConfig{})
  require.NoError(t, err)
  require.NotNil(t, p.TracerProvider)
  require.Equal(t, before, otel.GetTracerProvider())
  require.NoError(t, p.Shutdown(context.Background()))
}

func TestInitEnabledInstallsSDKProvider(t *testing.T) {
  p, err := Init(context.Background(), config.TelemetryConfig{
    Enabled: true,
    ServiceName: "rebalance-lnd",
    Endpoint: "127.0.0.1:4318",
    Insecure: true,
    Headers: map[string]string{"x-api-key": "secret"},
  })
  require.NoError(t, err)
  require.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider)
  require.Equal(t, p.TracerProvider, otel.GetTracerProvider())
  require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewTracerProviderTagsService(t *testing.T) {
  recorder := tracetest.NewSpanRecorder()
  tp, err := NewTracerProvider("rebalance-lnd", sdktrace.WithSpanProcessor(recorder))
  require.NoError(t, err)

  _, span := tp.Tracer("test").Start(context.Background(), "QueryRoutes")
  span.End()

  spans := recorder.Ended()
  require.Len(t, spans, 1)
  require.Contains(t, spans[0].Resource().Attributes(), semconv.ServiceNameKey.String("rebalance-lnd"))

  _, err = NewTracerProvider(" ")
  require.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
  tests := []struct {
    raw string
    want map[string]string
  }{
    {raw: "", want: map[string]string{}},
    {raw: "a=1", want: map[string]string{"a": "1"}},
    {raw: " a = 1 , b=2,,=3,c", want: map[string]string{"a": "1", "b": "2"}},
    {raw: "auth=Basic x=y", want: map[string]string{"auth": "Basic x=y"}},
  }

  for _, tc := range tests {
    require.Equal(t, tc.want, ParseHeaders(tc.raw), tc.raw)
  }
}
