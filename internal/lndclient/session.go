package lndclient

import (
  "context"
  "crypto/x509"
  "encoding/hex"
  "errors"
  "os"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
  "github.com/lightningnetwork/lnd/lnrpc/routerrpc"
  "go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
  "go.opentelemetry.io/otel"
  "go.opentelemetry.io/otel/trace"
  "google.golang.org/grpc"
  "google.golang.org/grpc/credentials"
  "gopkg.in/macaroon.v2"
)

const maxGRPCMsgSize = 50 * 1024 * 1024

// Session is the authenticated node connection the facade talks through.
type Session interface {
  GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest) (*lnrpc.GetInfoResponse, error)
  GetNodeInfo(ctx context.Context, req *lnrpc.NodeInfoRequest) (*lnrpc.NodeInfo, error)
  ListChannels(ctx context.Context, req *lnrpc.ListChannelsRequest) (*lnrpc.ListChannelsResponse, error)
  GetChanInfo(ctx context.Context, req *lnrpc.ChanInfoRequest) (*lnrpc.ChannelEdge, error)
  QueryRoutes(ctx context.Context, req *lnrpc.QueryRoutesRequest) (*lnrpc.QueryRoutesResponse, error)
  AddInvoice(ctx context.Context, req *lnrpc.Invoice) (*lnrpc.AddInvoiceResponse, error)
  DecodePayReq(ctx context.Context, req *lnrpc.PayReqString) (*lnrpc.PayReq, error)
  CancelInvoice(ctx context.Context, req *invoicesrpc.CancelInvoiceMsg) (*invoicesrpc.CancelInvoiceResp, error)
  SendToRoute(ctx context.Context, req *routerrpc.SendToRouteRequest) (*lnrpc.HTLCAttempt, error)
}

type macaroonCredential struct {
  macaroon string
}

func (m macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
  return map[string]string{"macaroon": m.macaroon}, nil
}

func (m macaroonCredential) RequireTransportSecurity() bool {
  return true
}

type dialOptions struct {
  tracerProvider trace.TracerProvider
}

type DialOption func(*dialOptions)

// WithTracerProvider sends a span per lnd RPC to tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) DialOption {
  return func(o *dialOptions) {
    if tp != nil {
      o.tracerProvider = tp
    }
  }
}

func clientStatsHandler(tp trace.TracerProvider) grpc.DialOption {
  return grpc.WithStatsHandler(otelgrpc.NewClientHandler(otelgrpc.WithTracerProvider(tp)))
}

// GRPCSession implements Session over a single gRPC connection to lnd.
type GRPCSession struct {
  conn *grpc.ClientConn
  lightning lnrpc.LightningClient
  router routerrpc.RouterClient
  invoices invoicesrpc.InvoicesClient
}

// Dial sets up the connection lazily; no round trip happens until the first
// call. Unreadable or malformed credentials fail here.
func Dial(ctx context.Context, host string, creds Credentials, opts ...DialOption) (*GRPCSession, error) {
  o := dialOptions{tracerProvider: otel.GetTracerProvider()}
  for _, opt := range opts {
    opt(&o)
  }

  tlsCert, err := os.ReadFile(creds.TLSCertPath)
  if err != nil {
    return nil, &CredentialError{Artifact: "tls cert", Path: creds.TLSCertPath, Err: err}
  }
  certPool := x509.NewCertPool()
  if ok := certPool.AppendCertsFromPEM(tlsCert); !ok {
    return nil, &CredentialError{Artifact: "tls cert", Path: creds.TLSCertPath, Err: errors.New("no PEM certificate found")}
  }

  macBytes, err := os.ReadFile(creds.MacaroonPath)
  if err != nil {
    return nil, &CredentialError{Artifact: "macaroon", Path: creds.MacaroonPath, Err: err}
  }
  mac := &macaroon.Macaroon{}
  if err := mac.UnmarshalBinary(macBytes); err != nil {
    return nil, &CredentialError{Artifact: "macaroon", Path: creds.MacaroonPath, Err: err}
  }

  grpcOpts := []grpc.DialOption{
    grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(certPool, "")),
    grpc.WithPerRPCCredentials(macaroonCredential{hex.EncodeToString(macBytes)}),
    grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxGRPCMsgSize)),
    clientStatsHandler(o.tracerProvider),
  }

  conn, err := grpc.DialContext(ctx, host, grpcOpts...)
  if err != nil {
    return nil, err
  }
  return NewGRPCSession(conn), nil
}

func NewGRPCSession(conn *grpc.ClientConn) *GRPCSession {
  return &GRPCSession{
    conn: conn,
    lightning: lnrpc.NewLightningClient(conn),
    router: routerrpc.NewRouterClient(conn),
    invoices: invoicesrpc.NewInvoicesClient(conn),
  }
}

func (s *GRPCSession) Close() error {
  return s.conn.Close()
}

func (s *GRPCSession) GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest) (*lnrpc.GetInfoResponse, error) {
  return s.lightning.GetInfo(ctx, req)
}

func (s *GRPCSession) GetNodeInfo(ctx context.Context, req *lnrpc.NodeInfoRequest) (*lnrpc.NodeInfo, error) {
  return s.lightning.GetNodeInfo(ctx, req)
}

func (s *GRPCSession) ListChannels(ctx context.Context, req *lnrpc.ListChannelsRequest) (*lnrpc.ListChannelsResponse, error) {
  return s.lightning.ListChannels(ctx, req)
}

func (s *GRPCSession) GetChanInfo(ctx context.Context, req *lnrpc.ChanInfoRequest) (*lnrpc.ChannelEdge, error) {
  return s.lightning.GetChanInfo(ctx, req)
}

func (s *GRPCSession) QueryRoutes(ctx context.Context, req *lnrpc.QueryRoutesRequest) (*lnrpc.QueryRoutesResponse, error) {
  return s.lightning.QueryRoutes(ctx, req)
}

func (s *GRPCSession) AddInvoice(ctx context.Context, req *lnrpc.Invoice) (*lnrpc.AddInvoiceResponse, error) {
  return s.lightning.AddInvoice(ctx, req)
}

func (s *GRPCSession) DecodePayReq(ctx context.Context, req *lnrpc.PayReqString) (*lnrpc.PayReq, error) {
  return s.lightning.DecodePayReq(ctx, req)
}

func (s *GRPCSession) CancelInvoice(ctx context.Context, req *invoicesrpc.CancelInvoiceMsg) (*invoicesrpc.CancelInvoiceResp, error) {
  return s.invoices.CancelInvoice(ctx, req)
}

func (s *GRPCSession) SendToRoute(ctx context.Context, req *routerrpc.SendToRouteRequest) (*lnrpc.HTLCAttempt, error) {
  return s.router.SendToRouteV2(ctx, req)
}
