package server

import (
  "context"
  "errors"
  "fmt"
  "net/http"
  "time"

  "github.com/btcsuite/btclog"
  "github.com/prometheus/client_golang/prometheus"

  "rebalance-lnd/internal/config"
  "rebalance-lnd/internal/lndclient"
)

// Registry receives the API's own collectors and backs /metrics.
type Registry interface {
  prometheus.Registerer
  prometheus.Gatherer
}

type Server struct {
  cfg    *config.Config
  logger btclog.Logger
  lnd    *lndclient.Client
  registry Registry
  requestDuration *prometheus.HistogramVec
}

func New(cfg *config.Config, logger btclog.Logger, lnd *lndclient.Client, registry Registry) *Server {
  if logger == nil {
    logger = btclog.Disabled
  }
  if registry == nil {
    registry = prometheus.NewRegistry()
  }
  return &Server{
    cfg:    cfg,
    logger: logger,
    lnd:    lnd,
    registry: registry,
    requestDuration: newRequestDuration(registry),
  }
}

func (s *Server) Handler() http.Handler {
  return s.routes()
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
  addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

  httpServer := &http.Server{
    Addr:              addr,
    Handler:           s.routes(),
    ReadHeaderTimeout: 10 * time.Second,
  }

  errCh := make(chan error, 1)
  go func() {
    s.logger.Infof("listening on http://%s", addr)
    errCh <- httpServer.ListenAndServe()
  }()

  select {
  case err := <-errCh:
    return err
  case <-ctx.Done():
  }

  shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := httpServer.Shutdown(shutdownCtx); err != nil {
    return err
  }
  if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
    return err
  }
  return nil
}
