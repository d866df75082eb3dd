package main

import (
  "context"
  "errors"
  "fmt"
  "io"
  "os"
  "os/signal"
  "strings"
  "syscall"
  "time"

  "github.com/btcsuite/btclog"
  "github.com/prometheus/client_golang/prometheus"
  "github.com/prometheus/client_golang/prometheus/collectors"
  "github.com/urfave/cli"

  "rebalance-lnd/internal/config"
  "rebalance-lnd/internal/lndclient"
  "rebalance-lnd/internal/logging"
  "rebalance-lnd/internal/telemetry"
)

func fatal(err error) {
  fmt.Fprintf(os.Stderr, "[rebalance-lnd] %v\n", err)
  os.Exit(1)
}

func main() {
  app := cli.NewApp()
  app.Name = "rebalance-lnd"
  app.Usage = "inspect channels, find circular routes and pay along them"
  app.Flags = []cli.Flag{
    cli.StringFlag{
      Name:  "config",
      Value: config.DefaultPath,
      Usage: "path to config.yaml; defaults are used when it does not exist",
    },
    cli.StringFlag{
      Name:  "lnddir",
      Usage: "override lnd.lnd_dir from the config file",
    },
    cli.StringFlag{
      Name:  "rpcserver",
      Usage: "override lnd.grpc_host from the config file",
    },
    cli.StringFlag{
      Name:  "debuglevel",
      Usage: "override log.level for all subsystems; \"show\" lists the subsystems",
    },
  }
  app.Commands = []cli.Command{
    infoCommand,
    channelsCommand,
    policyCommand,
    routeCommand,
    sendCommand,
    invoiceCommand,
    decodeCommand,
    cancelInvoiceCommand,
    serveCommand,
  }

  if err := app.Run(os.Args); err != nil && !errors.Is(err, errShowSubsystems) {
    fatal(err)
  }
}

// node bundles everything a command needs to talk to lnd.
type node struct {
  cfg *config.Config
  logs *logging.Root
  log btclog.Logger
  httpLog btclog.Logger
  telemetry *telemetry.Provider
  session *lndclient.GRPCSession
  lnd *lndclient.Client
  registry *prometheus.Registry
}

var errShowSubsystems = errors.New("subsystems listed")

func connect(ctx *cli.Context) (*node, error) {
  cfg, err := config.LoadOrDefault(ctx.GlobalString("config"))
  if err != nil {
    return nil, fmt.Errorf("config load failed: %w", err)
  }
  if dir := ctx.GlobalString("lnddir"); dir != "" {
    cfg.LND.LNDDir = dir
  }
  if host := ctx.GlobalString("rpcserver"); host != "" {
    cfg.LND.GRPCHost = host
  }
  if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
    cfg.Telemetry.Enabled = true
    cfg.Telemetry.Endpoint = endpoint
  }
  if headers := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); len(headers) > 0 {
    cfg.Telemetry.Headers = headers
  }

  logs, err := logging.New(cfg.Log)
  if err != nil {
    return nil, err
  }
  n := &node{
    cfg: cfg,
    logs: logs,
    log: logs.Logger("RBLN"),
    httpLog: logs.Logger("HTTP"),
  }
  lndLog := logs.Logger("LNDC")

  if err := applyDebugLevel(logs, ctx.GlobalString("debuglevel"), os.Stdout); err != nil {
    _ = logs.Close()
    return nil, err
  }

  n.telemetry, err = telemetry.Init(context.Background(), cfg.Telemetry)
  if err != nil {
    _ = logs.Close()
    return nil, err
  }

  creds, err := lndclient.ResolveCredentials(cfg.LND)
  if err != nil {
    n.Close()
    return nil, err
  }
  n.log.Debugf("Using macaroon %s and TLS cert %s", creds.MacaroonPath, creds.TLSCertPath)

  n.session, err = lndclient.Dial(context.Background(), cfg.LND.GRPCHost, creds,
    lndclient.WithTracerProvider(n.telemetry.TracerProvider),
  )
  if err != nil {
    n.Close()
    return nil, err
  }

  n.registry = prometheus.NewRegistry()
  n.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
  n.lnd = lndclient.New(n.session,
    lndclient.WithLogger(lndLog),
    lndclient.WithRegisterer(n.registry),
  )
  return n, nil
}

// applyDebugLevel handles --debuglevel: empty keeps the configured level,
// "show" lists the subsystems and stops the command.
func applyDebugLevel(logs *logging.Root, level string, out io.Writer) error {
  switch level {
  case "":
    return nil
  case "show":
    fmt.Fprintln(out, "Supported subsystems", logs.Subsystems())
    return errShowSubsystems
  default:
    return logs.SetLevel(level)
  }
}

func (n *node) Close() {
  if n.session != nil {
    if err := n.session.Close(); err != nil {
      n.log.Warnf("closing lnd connection: %v", err)
    }
  }
  if n.telemetry != nil {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    if err := n.telemetry.Shutdown(ctx); err != nil {
      n.log.Warnf("flushing traces: %v", err)
    }
    cancel()
  }
  _ = n.logs.Close()
}

func signalContext() (context.Context, context.CancelFunc) {
  return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
