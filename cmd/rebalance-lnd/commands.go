package main

import (
  "context"
  "encoding/hex"
  "errors"
  "fmt"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/jedib0t/go-pretty/v6/table"
  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnwire"
  "github.com/urfave/cli"
  "google.golang.org/protobuf/encoding/protojson"
  "google.golang.org/protobuf/proto"

  "rebalance-lnd/internal/lndclient"
  "rebalance-lnd/internal/server"
)

const rpcTimeout = 60 * time.Second

func printRespJSON(resp proto.Message) {
  b, err := protojson.MarshalOptions{Multiline: true, UseProtoNames: true, EmitUnpopulated: true}.Marshal(resp)
  if err != nil {
    fmt.Println("unable to decode response: ", err)
    return
  }
  fmt.Println(string(b))
}

// withNode connects, runs fn with a bounded context and closes the session.
func withNode(fn func(ctx context.Context, c *cli.Context, n *node) error) cli.ActionFunc {
  return func(c *cli.Context) error {
    n, err := connect(c)
    if err != nil {
      return err
    }
    defer n.Close()

    ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
    defer cancel()
    return fn(ctx, c, n)
  }
}

var infoCommand = cli.Command{
  Name:   "info",
  Usage:  "Show the local node identity and largest channel.",
  Action: withNode(info),
}

func info(ctx context.Context, c *cli.Context, n *node) error {
  resp, err := n.lnd.GetInfo(ctx)
  if err != nil {
    return err
  }
  maxCapacity, err := n.lnd.GetMaxChannelCapacity(ctx)
  if err != nil {
    return err
  }
  fmt.Printf("pubkey:       %s\n", resp.IdentityPubkey)
  fmt.Printf("alias:        %s\n", resp.Alias)
  fmt.Printf("block height: %d\n", resp.BlockHeight)
  fmt.Printf("max capacity: %d sat\n", maxCapacity)
  return nil
}

var channelsCommand = cli.Command{
  Name:  "channels",
  Usage: "List local channels with peer alias and fee rates in both directions.",
  Flags: []cli.Flag{
    cli.BoolFlag{
      Name:  "active-only",
      Usage: "only list channels that are currently active",
    },
  },
  Action: withNode(listChannels),
}

func listChannels(ctx context.Context, c *cli.Context, n *node) error {
  channels, err := n.lnd.GetChannels(ctx, c.Bool("active-only"))
  if err != nil {
    return err
  }

  t := table.NewWriter()
  t.SetOutputMirror(os.Stdout)
  t.SetStyle(table.StyleLight)
  t.AppendHeader(table.Row{"Channel", "Peer", "Active", "Capacity", "Local", "PPM from", "PPM to"})
  for _, ch := range channels {
    alias, err := n.lnd.GetNodeAlias(ctx, ch.RemotePubkey)
    if err != nil {
      alias = ch.RemotePubkey[:min(len(ch.RemotePubkey), 16)]
    }
    ppmFrom, ppmTo := "-", "-"
    if v, err := n.lnd.GetPPMFrom(ctx, ch.ChanId); err == nil {
      ppmFrom = strconv.FormatInt(v, 10)
    }
    if v, err := n.lnd.GetPPMTo(ctx, ch.ChanId); err == nil {
      ppmTo = strconv.FormatInt(v, 10)
    }
    t.AppendRow(table.Row{
      lnwire.NewShortChanIDFromInt(ch.ChanId).String(),
      alias,
      ch.Active,
      ch.Capacity,
      ch.LocalBalance,
      ppmFrom,
      ppmTo,
    })
  }
  t.Render()
  return nil
}

var policyCommand = cli.Command{
  Name:      "policy",
  Usage:     "Show the inbound (to) and outbound (from) policy of a channel.",
  ArgsUsage: "chan_id",
  Action:    withNode(showPolicy),
}

func showPolicy(ctx context.Context, c *cli.Context, n *node) error {
  if c.NArg() != 1 {
    return errors.New("chan_id required")
  }
  chanID, err := strconv.ParseUint(c.Args().First(), 10, 64)
  if err != nil {
    return fmt.Errorf("invalid chan_id: %w", err)
  }

  to, err := n.lnd.GetPolicyTo(ctx, chanID)
  if err != nil {
    return err
  }
  from, err := n.lnd.GetPolicyFrom(ctx, chanID)
  if err != nil {
    return err
  }
  fmt.Println("to:")
  printRespJSON(to)
  fmt.Println("from:")
  printRespJSON(from)
  return nil
}

var routeFlags = []cli.Flag{
  cli.Int64Flag{
    Name:  "amount",
    Usage: "amount to route, in satoshis",
  },
  cli.Uint64Flag{
    Name:  "first-hop",
    Usage: "channel id the route must leave through",
  },
  cli.StringFlag{
    Name:  "last-hop",
    Usage: "hex pubkey of the peer the route must come back through",
  },
  cli.Int64Flag{
    Name:  "fee-limit-msat",
    Usage: "fixed fee limit in msat; 0 means no limit",
  },
  cli.StringSliceFlag{
    Name:  "ignore-node",
    Usage: "hex pubkey of a node to avoid; may be repeated",
  },
}

var routeCommand = cli.Command{
  Name:   "route",
  Usage:  "Query a circular route back to the local node.",
  Flags:  routeFlags,
  Action: withNode(queryRoute),
}

func routeQueryFromFlags(c *cli.Context) (lndclient.RouteQuery, error) {
  amount := c.Int64("amount")
  if amount <= 0 {
    return lndclient.RouteQuery{}, errors.New("positive --amount required")
  }
  q := lndclient.RouteQuery{
    LastHopPubkey: c.String("last-hop"),
    Amount: amount,
    FirstHopChannelID: c.Uint64("first-hop"),
    FeeLimitMsat: c.Int64("fee-limit-msat"),
  }
  for _, node := range c.StringSlice("ignore-node") {
    b, err := hex.DecodeString(strings.TrimSpace(node))
    if err != nil {
      return lndclient.RouteQuery{}, fmt.Errorf("invalid --ignore-node %q", node)
    }
    q.IgnoredNodes = append(q.IgnoredNodes, b)
  }
  return q, nil
}

func queryRoute(ctx context.Context, c *cli.Context, n *node) error {
  q, err := routeQueryFromFlags(c)
  if err != nil {
    return err
  }
  routes := n.lnd.GetRoute(ctx, q)
  if routes == nil {
    if routeErr := n.lnd.LastRouteError(); routeErr != nil {
      return routeErr
    }
    return errors.New("no route")
  }
  printRespJSON(&lnrpc.QueryRoutesResponse{Routes: routes})
  return nil
}

var sendCommand = cli.Command{
  Name:   "send",
  Usage:  "Create an invoice to self, find a route for it and pay it once.",
  Flags:  append([]cli.Flag{cli.StringFlag{Name: "memo", Value: "Rebalance", Usage: "invoice memo"}}, routeFlags...),
  Action: withNode(sendOnce),
}

func sendOnce(ctx context.Context, c *cli.Context, n *node) error {
  q, err := routeQueryFromFlags(c)
  if err != nil {
    return err
  }

  invoice, err := n.lnd.GenerateInvoice(ctx, c.String("memo"), q.Amount)
  if err != nil {
    return err
  }
  routes := n.lnd.GetRoute(ctx, q)
  if len(routes) == 0 {
    cancelErr := n.lnd.CancelInvoice(ctx, invoice.PaymentHash)
    if cancelErr != nil {
      n.log.Warnf("cancel invoice %s: %v", invoice.PaymentHash, cancelErr)
    }
    if routeErr := n.lnd.LastRouteError(); routeErr != nil {
      return routeErr
    }
    return errors.New("no route")
  }

  rt := routes[0]
  n.log.Infof("Paying %d sat over %d hops, fees %d msat", q.Amount, len(rt.Hops), rt.TotalFeesMsat)
  attempt, err := n.lnd.SendPayment(ctx, invoice, rt)
  if err != nil {
    return err
  }
  if err := lndclient.AttemptError(attempt); err != nil {
    if cancelErr := n.lnd.CancelInvoice(ctx, invoice.PaymentHash); cancelErr != nil {
      n.log.Warnf("cancel invoice %s: %v", invoice.PaymentHash, cancelErr)
    }
    return err
  }
  printRespJSON(attempt)
  return nil
}

var invoiceCommand = cli.Command{
  Name:  "invoice",
  Usage: "Create an invoice and print it decoded.",
  Flags: []cli.Flag{
    cli.Int64Flag{Name: "amount", Usage: "invoice amount in satoshis"},
    cli.StringFlag{Name: "memo", Usage: "invoice description"},
  },
  Action: withNode(createInvoice),
}

func createInvoice(ctx context.Context, c *cli.Context, n *node) error {
  decoded, err := n.lnd.GenerateInvoice(ctx, c.String("memo"), c.Int64("amount"))
  if err != nil {
    return err
  }
  printRespJSON(decoded)
  return nil
}

var decodeCommand = cli.Command{
  Name:      "decode",
  Usage:     "Decode a payment request.",
  ArgsUsage: "pay_req",
  Action:    withNode(decodePayReq),
}

func decodePayReq(ctx context.Context, c *cli.Context, n *node) error {
  if c.NArg() != 1 {
    return errors.New("pay_req required")
  }
  decoded, err := n.lnd.DecodePaymentRequest(ctx, c.Args().First())
  if err != nil {
    return err
  }
  printRespJSON(decoded)
  return nil
}

var cancelInvoiceCommand = cli.Command{
  Name:      "cancel-invoice",
  Usage:     "Cancel an open invoice by payment hash.",
  ArgsUsage: "payment_hash",
  Action:    withNode(cancelInvoice),
}

func cancelInvoice(ctx context.Context, c *cli.Context, n *node) error {
  if c.NArg() != 1 {
    return errors.New("payment_hash required")
  }
  return n.lnd.CancelInvoice(ctx, c.Args().First())
}

var serveCommand = cli.Command{
  Name:  "serve",
  Usage: "Serve the read-only HTTP API and metrics.",
  Action: func(c *cli.Context) error {
    n, err := connect(c)
    if err != nil {
      return err
    }
    defer n.Close()

    ctx, cancel := signalContext()
    defer cancel()

    srv := server.New(n.cfg, n.httpLog, n.lnd, n.registry)
    return srv.Run(ctx)
  },
}
