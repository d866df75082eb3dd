package lndclient

import (
  "context"
  "errors"
  "fmt"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnrpc/routerrpc"
  "github.com/lightningnetwork/lnd/lntypes"
)

var (
  ErrInvoiceRequired = errors.New("decoded invoice required")
  ErrEmptyRoute = errors.New("route has no hops")
)

type RouteFailureError struct {
  Code lnrpc.Failure_FailureCode
  FailureSourceIndex uint32
  Failure *lnrpc.Failure
}

func (e RouteFailureError) Error() string {
  if e.Failure != nil {
    return fmt.Sprintf("route failed at hop %d: %s", e.FailureSourceIndex, e.Failure.Code.String())
  }
  if e.Code != lnrpc.Failure_RESERVED {
    return fmt.Sprintf("route failed: %s", e.Code.String())
  }
  return "route failed"
}

// SendPayment pays invoice over rt in a single attempt. The last hop of rt is
// updated in place with the invoice's MPP total and payment address before
// submission.
func (c *Client) SendPayment(ctx context.Context, invoice *lnrpc.PayReq, rt *lnrpc.Route) (*lnrpc.HTLCAttempt, error) {
  if invoice == nil {
    return nil, ErrInvoiceRequired
  }
  if rt == nil || len(rt.Hops) == 0 || rt.Hops[len(rt.Hops)-1] == nil {
    return nil, ErrEmptyRoute
  }
  hash, err := lntypes.MakeHashFromStr(invoice.PaymentHash)
  if err != nil {
    return nil, fmt.Errorf("invalid payment hash: %w", err)
  }

  last := rt.Hops[len(rt.Hops)-1]
  if last.MppRecord == nil {
    last.MppRecord = &lnrpc.MPPRecord{}
  }
  last.MppRecord.TotalAmtMsat = invoice.NumMsat
  last.MppRecord.PaymentAddr = invoice.PaymentAddr

  c.logger.Debugf("Sending %d msat for %v over %d hops", rt.TotalAmtMsat, hash, len(rt.Hops))
  c.metrics.rpc("SendToRoute")
  return c.session.SendToRoute(ctx, &routerrpc.SendToRouteRequest{
    PaymentHash: hash[:],
    Route: rt,
  })
}

// AttemptError converts an attempt that did not succeed into a
// RouteFailureError. It returns nil for a succeeded attempt.
func AttemptError(attempt *lnrpc.HTLCAttempt) error {
  if attempt == nil {
    return ErrEmptyResponse
  }
  if attempt.Status == lnrpc.HTLCAttempt_SUCCEEDED {
    return nil
  }
  if attempt.Failure != nil {
    return RouteFailureError{
      Code: attempt.Failure.Code,
      FailureSourceIndex: attempt.Failure.FailureSourceIndex,
      Failure: attempt.Failure,
    }
  }
  return RouteFailureError{Code: lnrpc.Failure_UNKNOWN_FAILURE}
}
