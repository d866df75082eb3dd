package lndclient

import (
  "context"
  "errors"
  "fmt"
  "strings"

  "github.com/lightningnetwork/lnd/lnrpc"
)

var (
  ErrEdgeUnavailable = errors.New("channel edge unavailable")
  ErrPolicyUnavailable = errors.New("channel policy unavailable")
  ErrNotLocalChannel = errors.New("local pubkey not found on channel")
)

// Direction selects one of the two policies of a channel as seen from the
// local node.
type Direction int

const (
  // DirectionTo is traffic flowing into the local node; the counterparty
  // advertises this policy.
  DirectionTo Direction = iota
  // DirectionFrom is traffic leaving the local node under the policy the
  // local node advertises.
  DirectionFrom
)

func (d Direction) String() string {
  switch d {
  case DirectionTo:
    return "to"
  case DirectionFrom:
    return "from"
  default:
    return fmt.Sprintf("direction(%d)", int(d))
  }
}

// resolvePolicy maps the edge's node1/node2 policies onto the local node's
// view. Node1Policy is what node1 charges to forward towards node2, so the
// local endpoint's own record is the outbound (from) policy and the other
// endpoint's record is the inbound (to) policy.
func resolvePolicy(edge *lnrpc.ChannelEdge, localPubkey string, dir Direction) (*lnrpc.RoutingPolicy, error) {
  if edge == nil {
    return nil, ErrEdgeUnavailable
  }
  localPubkey = strings.TrimSpace(localPubkey)
  if localPubkey == "" {
    return nil, errors.New("local pubkey unavailable")
  }

  var local, remote *lnrpc.RoutingPolicy
  switch {
  case strings.EqualFold(edge.Node1Pub, localPubkey):
    local, remote = edge.Node1Policy, edge.Node2Policy
  case strings.EqualFold(edge.Node2Pub, localPubkey):
    local, remote = edge.Node2Policy, edge.Node1Policy
  default:
    return nil, fmt.Errorf("%w: %d", ErrNotLocalChannel, edge.ChannelId)
  }

  var policy *lnrpc.RoutingPolicy
  switch dir {
  case DirectionFrom:
    policy = local
  case DirectionTo:
    policy = remote
  default:
    return nil, fmt.Errorf("unknown policy %v", dir)
  }
  if policy == nil {
    return nil, fmt.Errorf("%w: %d %v", ErrPolicyUnavailable, edge.ChannelId, dir)
  }
  return policy, nil
}

func (c *Client) getPolicy(ctx context.Context, chanID uint64, dir Direction) (*lnrpc.RoutingPolicy, error) {
  edge, err := c.GetEdge(ctx, chanID)
  if err != nil {
    return nil, err
  }
  own, err := c.GetOwnPubkey(ctx)
  if err != nil {
    return nil, err
  }
  return resolvePolicy(edge, own, dir)
}

// GetPolicyTo returns the policy the peer applies to payments entering the
// local node over chanID.
func (c *Client) GetPolicyTo(ctx context.Context, chanID uint64) (*lnrpc.RoutingPolicy, error) {
  return c.getPolicy(ctx, chanID, DirectionTo)
}

// GetPolicyFrom returns the policy the local node applies to payments it
// forwards out over chanID.
func (c *Client) GetPolicyFrom(ctx context.Context, chanID uint64) (*lnrpc.RoutingPolicy, error) {
  return c.getPolicy(ctx, chanID, DirectionFrom)
}

func (c *Client) GetPPMTo(ctx context.Context, chanID uint64) (int64, error) {
  policy, err := c.GetPolicyTo(ctx, chanID)
  if err != nil {
    return 0, err
  }
  return policy.FeeRateMilliMsat, nil
}

func (c *Client) GetPPMFrom(ctx context.Context, chanID uint64) (int64, error) {
  policy, err := c.GetPolicyFrom(ctx, chanID)
  if err != nil {
    return 0, err
  }
  return policy.FeeRateMilliMsat, nil
}
