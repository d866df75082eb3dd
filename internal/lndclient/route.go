package lndclient

import (
  "context"
  "errors"
  "fmt"
  "strings"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnwire"
  "github.com/lightningnetwork/lnd/routing/route"
  "google.golang.org/grpc/codes"
  "google.golang.org/grpc/status"
)

// RouteQuery describes one circular route search back to the local node.
type RouteQuery struct {
  // LastHopPubkey pins the node before the local node (hex, any case).
  // Empty means no pinning.
  LastHopPubkey string
  Amount int64
  IgnoredPairs []*lnrpc.NodePair
  IgnoredNodes [][]byte
  // FirstHopChannelID forces the outgoing channel when non-zero.
  FirstHopChannelID uint64
  // FeeLimitMsat becomes a fixed fee limit when positive.
  FeeLimitMsat int64
}

type RouteErrorKind string

const (
  RouteErrNoPath RouteErrorKind = "no_path"
  RouteErrTransport RouteErrorKind = "transport"
  RouteErrInvalidQuery RouteErrorKind = "invalid_query"
  RouteErrRemote RouteErrorKind = "remote"
)

// RouteError is the reason the last GetRoute call came back empty.
type RouteError struct {
  Kind RouteErrorKind
  Err error
}

func (e *RouteError) Error() string {
  return fmt.Sprintf("route query failed (%s): %v", e.Kind, e.Err)
}

func (e *RouteError) Unwrap() error {
  return e.Err
}

var errNoRoutes = errors.New("no routes returned")

// GetRoute returns the routes lnd proposes for q, or nil when the query fails
// for any reason. The failure is logged, counted by kind and kept for
// LastRouteError.
func (c *Client) GetRoute(ctx context.Context, q RouteQuery) []*lnrpc.Route {
  routes, err := c.queryRoutes(ctx, q)
  if err != nil {
    routeErr := classifyRouteError(err)
    c.metrics.routeFailure(routeErr.Kind)
    if routeErr.Kind == RouteErrNoPath {
      c.logger.Debugf("No route for %d sat (first hop %v, last hop %q): %v", q.Amount, lnwire.NewShortChanIDFromInt(q.FirstHopChannelID), q.LastHopPubkey, err)
    } else {
      c.logger.Warnf("Route query for %d sat failed: %v", q.Amount, routeErr)
    }
    c.setLastRouteError(routeErr)
    return nil
  }

  c.setLastRouteError(nil)
  return routes
}

// LastRouteError reports why the most recent GetRoute returned nil. It is
// nil after a successful query.
func (c *Client) LastRouteError() *RouteError {
  c.routeMu.Lock()
  defer c.routeMu.Unlock()
  return c.lastRouteErr
}

func (c *Client) setLastRouteError(err *RouteError) {
  c.routeMu.Lock()
  c.lastRouteErr = err
  c.routeMu.Unlock()
}

func (c *Client) queryRoutes(ctx context.Context, q RouteQuery) ([]*lnrpc.Route, error) {
  own, err := c.GetOwnPubkey(ctx)
  if err != nil {
    return nil, err
  }

  req, err := buildQueryRoutesRequest(own, q)
  if err != nil {
    return nil, err
  }
  c.logger.Tracef("QueryRoutes request: %v", spewClosure(req))

  c.metrics.rpc("QueryRoutes")
  resp, err := c.session.QueryRoutes(ctx, req)
  if err != nil {
    return nil, err
  }
  if resp == nil || len(resp.Routes) == 0 {
    return nil, &RouteError{Kind: RouteErrNoPath, Err: errNoRoutes}
  }
  return resp.Routes, nil
}

func buildQueryRoutesRequest(ownPubkey string, q RouteQuery) (*lnrpc.QueryRoutesRequest, error) {
  req := &lnrpc.QueryRoutesRequest{
    PubKey: ownPubkey,
    Amt: q.Amount,
    IgnoredPairs: q.IgnoredPairs,
    IgnoredNodes: q.IgnoredNodes,
    UseMissionControl: true,
    OutgoingChanId: q.FirstHopChannelID,
  }
  if q.FeeLimitMsat > 0 {
    req.FeeLimit = &lnrpc.FeeLimit{
      Limit: &lnrpc.FeeLimit_FixedMsat{FixedMsat: q.FeeLimitMsat},
    }
  }
  if hop := strings.TrimSpace(q.LastHopPubkey); hop != "" {
    vertex, err := route.NewVertexFromStr(hop)
    if err != nil {
      return nil, &RouteError{Kind: RouteErrInvalidQuery, Err: fmt.Errorf("last hop pubkey: %w", err)}
    }
    req.LastHopPubkey = vertex[:]
  }
  return req, nil
}

func classifyRouteError(err error) *RouteError {
  var routeErr *RouteError
  if errors.As(err, &routeErr) {
    return routeErr
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    return &RouteError{Kind: RouteErrTransport, Err: err}
  }

  st, ok := status.FromError(err)
  if !ok {
    return &RouteError{Kind: RouteErrRemote, Err: err}
  }
  switch st.Code() {
  case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Unauthenticated, codes.PermissionDenied:
    return &RouteError{Kind: RouteErrTransport, Err: err}
  case codes.InvalidArgument, codes.OutOfRange:
    return &RouteError{Kind: RouteErrInvalidQuery, Err: err}
  case codes.NotFound:
    return &RouteError{Kind: RouteErrNoPath, Err: err}
  }

  msg := strings.ToLower(st.Message())
  if strings.Contains(msg, "unable to find a path") || strings.Contains(msg, "no route") || strings.Contains(msg, "insufficient") {
    return &RouteError{Kind: RouteErrNoPath, Err: err}
  }
  return &RouteError{Kind: RouteErrRemote, Err: err}
}
