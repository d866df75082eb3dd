package lndclient

import (
  "context"
  "errors"
  "fmt"
  "strings"
  "sync"

  "github.com/btcsuite/btclog"
  "github.com/davecgh/go-spew/spew"
  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnwire"
  "github.com/prometheus/client_golang/prometheus"
)

var (
  ErrEmptyResponse = errors.New("empty response from lnd")
  ErrNodeUnavailable = errors.New("node not found in graph")
)

// Client is the node facade used by the rebalancer. Read accessors are
// memoized for the lifetime of the instance; there is no invalidation, so a
// Client should live for one rebalancing run.
type Client struct {
  session Session
  logger btclog.Logger
  metrics *metrics

  info *memo[struct{}, *lnrpc.GetInfoResponse]
  aliases *memo[string, string]
  channels *memo[bool, []*lnrpc.Channel]
  maxCapacity *memo[struct{}, int64]
  edges *memo[uint64, *lnrpc.ChannelEdge]

  routeMu sync.Mutex
  lastRouteErr *RouteError
}

type Option func(*options)

type options struct {
  logger btclog.Logger
  registerer prometheus.Registerer
}

func WithLogger(logger btclog.Logger) Option {
  return func(o *options) {
    o.logger = logger
  }
}

// WithRegisterer registers the facade's collectors on reg. Without it the
// collectors exist but are not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
  return func(o *options) {
    o.registerer = reg
  }
}

func New(session Session, opts ...Option) *Client {
  o := options{logger: btclog.Disabled}
  for _, opt := range opts {
    opt(&o)
  }
  if o.logger == nil {
    o.logger = btclog.Disabled
  }

  m := newMetrics(o.registerer)
  return &Client{
    session: session,
    logger: o.logger,
    metrics: m,
    info: newMemo[struct{}, *lnrpc.GetInfoResponse]("get_info", m),
    aliases: newMemo[string, string]("get_node_alias", m),
    channels: newMemo[bool, []*lnrpc.Channel]("get_channels", m),
    maxCapacity: newMemo[struct{}, int64]("get_max_channel_capacity", m),
    edges: newMemo[uint64, *lnrpc.ChannelEdge]("get_edge", m),
  }
}

func (c *Client) GetInfo(ctx context.Context) (*lnrpc.GetInfoResponse, error) {
  return c.info.get(ctx, struct{}{}, func(ctx context.Context) (*lnrpc.GetInfoResponse, error) {
    c.metrics.rpc("GetInfo")
    info, err := c.session.GetInfo(ctx, &lnrpc.GetInfoRequest{})
    if err != nil {
      return nil, err
    }
    if info == nil {
      return nil, ErrEmptyResponse
    }
    c.logger.Debugf("Node identity %s (%s)", info.IdentityPubkey, info.Alias)
    return info, nil
  })
}

func (c *Client) GetOwnPubkey(ctx context.Context) (string, error) {
  info, err := c.GetInfo(ctx)
  if err != nil {
    return "", err
  }
  return info.IdentityPubkey, nil
}

func (c *Client) GetNodeAlias(ctx context.Context, pubKey string) (string, error) {
  return c.aliases.get(ctx, pubKey, func(ctx context.Context) (string, error) {
    c.metrics.rpc("GetNodeInfo")
    resp, err := c.session.GetNodeInfo(ctx, &lnrpc.NodeInfoRequest{
      PubKey: pubKey,
      IncludeChannels: false,
    })
    if err != nil {
      return "", err
    }
    if resp == nil || resp.Node == nil {
      return "", fmt.Errorf("%w: %s", ErrNodeUnavailable, pubKey)
    }
    return resp.Node.Alias, nil
  })
}

// GetChannels caches the active-only and full listings separately.
func (c *Client) GetChannels(ctx context.Context, activeOnly bool) ([]*lnrpc.Channel, error) {
  return c.channels.get(ctx, activeOnly, func(ctx context.Context) ([]*lnrpc.Channel, error) {
    c.metrics.rpc("ListChannels")
    resp, err := c.session.ListChannels(ctx, &lnrpc.ListChannelsRequest{ActiveOnly: activeOnly})
    if err != nil {
      return nil, err
    }
    if resp == nil {
      return nil, ErrEmptyResponse
    }
    c.logger.Debugf("Listed %d channels (active_only=%v)", len(resp.Channels), activeOnly)
    return resp.Channels, nil
  })
}

// GetMaxChannelCapacity scans every channel, active or not.
func (c *Client) GetMaxChannelCapacity(ctx context.Context) (int64, error) {
  return c.maxCapacity.get(ctx, struct{}{}, func(ctx context.Context) (int64, error) {
    channels, err := c.GetChannels(ctx, false)
    if err != nil {
      return 0, err
    }
    return maxCapacity(channels), nil
  })
}

func maxCapacity(channels []*lnrpc.Channel) int64 {
  var max int64
  for _, ch := range channels {
    if ch != nil && ch.Capacity > max {
      max = ch.Capacity
    }
  }
  return max
}

func (c *Client) GetEdge(ctx context.Context, chanID uint64) (*lnrpc.ChannelEdge, error) {
  return c.edges.get(ctx, chanID, func(ctx context.Context) (*lnrpc.ChannelEdge, error) {
    c.metrics.rpc("GetChanInfo")
    edge, err := c.session.GetChanInfo(ctx, &lnrpc.ChanInfoRequest{ChanId: chanID})
    if err != nil {
      return nil, err
    }
    if edge == nil {
      return nil, fmt.Errorf("channel %v: %w", lnwire.NewShortChanIDFromInt(chanID), ErrEdgeUnavailable)
    }
    return edge, nil
  })
}

// logClosure defers expensive formatting until the logger decides to print.
type logClosure func() string

func (c logClosure) String() string {
  return c()
}

func spewClosure(v any) logClosure {
  return func() string {
    return strings.TrimSpace(spew.Sdump(v))
  }
}
