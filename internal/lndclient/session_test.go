package lndclient

import (
  "context"
  "net"
  "testing"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/stretchr/testify/require"
  sdktrace "go.opentelemetry.io/otel/sdk/trace"
  "go.opentelemetry.io/otel/sdk/trace/tracetest"
  "google.golang.org/grpc"
  "google.golang.org/grpc/credentials/insecure"
  "google.golang.org/grpc/test/bufconn"
)

type stubLightning struct {
  lnrpc.UnimplementedLightningServer
}

func (stubLightning) GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest) (*lnrpc.GetInfoResponse, error) {
  return &lnrpc.GetInfoResponse{IdentityPubkey: ownPubkey}, nil
}

func TestGRPCSessionTracesCalls(t *testing.T) {
  lis := bufconn.Listen(1 << 20)
  srv := grpc.NewServer()
  lnrpc.RegisterLightningServer(srv, stubLightning{})
  go func() {
    _ = srv.Serve(lis)
  }()
  t.Cleanup(srv.Stop)

  recorder := tracetest.NewSpanRecorder()
  tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
  t.Cleanup(func() {
    _ = tp.Shutdown(context.Background())
  })

  conn, err := grpc.DialContext(context.Background(), "bufnet",
    grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
      return lis.DialContext(ctx)
    }),
    grpc.WithTransportCredentials(insecure.NewCredentials()),
    clientStatsHandler(tp),
  )
  require.NoError(t, err)
  session := NewGRPCSession(conn)
  t.Cleanup(func() {
    _ = session.Close()
  })

  client := New(session)
  pubkey, err := client.GetOwnPubkey(context.Background())
  require.NoError(t, err)
  require.Equal(t, ownPubkey, pubkey)

  spans := recorder.Ended()
  require.Len(t, spans, 1)
  require.Equal(t, "lnrpc.Lightning/GetInfo", spans[0].Name())
}
