package lndclient

import (
  "context"
  "sync"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
  "github.com/lightningnetwork/lnd/lnrpc/routerrpc"
  "google.golang.org/grpc/codes"
  "google.golang.org/grpc/status"
)

const (
  ownPubkey = "02aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
  peerPubkey = "03bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// mockSession records every request and counts round trips per method.
type mockSession struct {
  mu sync.Mutex
  calls map[string]int

  info *lnrpc.GetInfoResponse
  infoErr error
  aliases map[string]string
  channels []*lnrpc.Channel
  edges map[uint64]*lnrpc.ChannelEdge
  edgeGate chan struct{}

  routes []*lnrpc.Route
  routesErr error
  lastQuery *lnrpc.QueryRoutesRequest

  invoiceResp *lnrpc.AddInvoiceResponse
  lastInvoice *lnrpc.Invoice
  payReqs map[string]*lnrpc.PayReq
  canceled [][]byte

  lastSend *routerrpc.SendToRouteRequest
  attempt *lnrpc.HTLCAttempt
  sendErr error
}

func newMockSession() *mockSession {
  return &mockSession{
    calls: make(map[string]int),
    info: &lnrpc.GetInfoResponse{IdentityPubkey: ownPubkey, Alias: "local"},
    aliases: make(map[string]string),
    edges: make(map[uint64]*lnrpc.ChannelEdge),
    payReqs: make(map[string]*lnrpc.PayReq),
  }
}

func (m *mockSession) count(method string) int {
  m.mu.Lock()
  defer m.mu.Unlock()
  return m.calls[method]
}

func (m *mockSession) record(method string) {
  m.mu.Lock()
  m.calls[method]++
  m.mu.Unlock()
}

func (m *mockSession) GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest) (*lnrpc.GetInfoResponse, error) {
  m.record("GetInfo")
  if m.infoErr != nil {
    return nil, m.infoErr
  }
  return m.info, nil
}

func (m *mockSession) GetNodeInfo(ctx context.Context, req *lnrpc.NodeInfoRequest) (*lnrpc.NodeInfo, error) {
  m.record("GetNodeInfo")
  alias, ok := m.aliases[req.PubKey]
  if !ok {
    return nil, status.Error(codes.NotFound, "unable to find node")
  }
  return &lnrpc.NodeInfo{Node: &lnrpc.LightningNode{PubKey: req.PubKey, Alias: alias}}, nil
}

func (m *mockSession) ListChannels(ctx context.Context, req *lnrpc.ListChannelsRequest) (*lnrpc.ListChannelsResponse, error) {
  m.record("ListChannels")
  resp := &lnrpc.ListChannelsResponse{}
  for _, ch := range m.channels {
    if req.ActiveOnly && !ch.Active {
      continue
    }
    resp.Channels = append(resp.Channels, ch)
  }
  return resp, nil
}

func (m *mockSession) GetChanInfo(ctx context.Context, req *lnrpc.ChanInfoRequest) (*lnrpc.ChannelEdge, error) {
  m.record("GetChanInfo")
  if m.edgeGate != nil {
    select {
    case <-m.edgeGate:
    case <-ctx.Done():
      return nil, ctx.Err()
    }
  }
  edge, ok := m.edges[req.ChanId]
  if !ok {
    return nil, status.Error(codes.Unknown, "edge not found")
  }
  return edge, nil
}

func (m *mockSession) QueryRoutes(ctx context.Context, req *lnrpc.QueryRoutesRequest) (*lnrpc.QueryRoutesResponse, error) {
  m.record("QueryRoutes")
  m.lastQuery = req
  if m.routesErr != nil {
    return nil, m.routesErr
  }
  return &lnrpc.QueryRoutesResponse{Routes: m.routes}, nil
}

func (m *mockSession) AddInvoice(ctx context.Context, req *lnrpc.Invoice) (*lnrpc.AddInvoiceResponse, error) {
  m.record("AddInvoice")
  m.lastInvoice = req
  return m.invoiceResp, nil
}

func (m *mockSession) DecodePayReq(ctx context.Context, req *lnrpc.PayReqString) (*lnrpc.PayReq, error) {
  m.record("DecodePayReq")
  decoded, ok := m.payReqs[req.PayReq]
  if !ok {
    return nil, status.Error(codes.Unknown, "invalid payment request")
  }
  return decoded, nil
}

func (m *mockSession) CancelInvoice(ctx context.Context, req *invoicesrpc.CancelInvoiceMsg) (*invoicesrpc.CancelInvoiceResp, error) {
  m.record("CancelInvoice")
  m.canceled = append(m.canceled, req.PaymentHash)
  return &invoicesrpc.CancelInvoiceResp{}, nil
}

func (m *mockSession) SendToRoute(ctx context.Context, req *routerrpc.SendToRouteRequest) (*lnrpc.HTLCAttempt, error) {
  m.record("SendToRoute")
  m.lastSend = req
  if m.sendErr != nil {
    return nil, m.sendErr
  }
  return m.attempt, nil
}

func localEdge(chanID uint64, localIsNode1 bool, outbound, inbound *lnrpc.RoutingPolicy) *lnrpc.ChannelEdge {
  if localIsNode1 {
    return &lnrpc.ChannelEdge{
      ChannelId: chanID,
      Node1Pub: ownPubkey,
      Node2Pub: peerPubkey,
      Node1Policy: outbound,
      Node2Policy: inbound,
    }
  }
  return &lnrpc.ChannelEdge{
    ChannelId: chanID,
    Node1Pub: peerPubkey,
    Node2Pub: ownPubkey,
    Node1Policy: inbound,
    Node2Policy: outbound,
  }
}
