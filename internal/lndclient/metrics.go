package lndclient

import (
  "errors"

  "github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "rebalance_lnd"

type metrics struct {
  rpcCalls *prometheus.CounterVec
  cacheLookups *prometheus.CounterVec
  routeFailures *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
  m := &metrics{
    rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
      Namespace: metricsNamespace,
      Name: "rpc_calls_total",
      Help: "Round trips issued to the lnd node, by method.",
    }, []string{"method"}),
    cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
      Namespace: metricsNamespace,
      Name: "cache_lookups_total",
      Help: "Memoized accessor lookups, by accessor and hit/miss.",
    }, []string{"accessor", "result"}),
    routeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
      Namespace: metricsNamespace,
      Name: "route_failures_total",
      Help: "Route queries that returned no route, by failure kind.",
    }, []string{"kind"}),
  }
  if reg == nil {
    return m
  }
  m.rpcCalls = register(reg, m.rpcCalls)
  m.cacheLookups = register(reg, m.cacheLookups)
  m.routeFailures = register(reg, m.routeFailures)
  return m
}

// register reuses an already registered collector so several facades can
// share one registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
  if err := reg.Register(c); err != nil {
    var already prometheus.AlreadyRegisteredError
    if errors.As(err, &already) {
      if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
        return existing
      }
    }
  }
  return c
}

func (m *metrics) rpc(method string) {
  m.rpcCalls.WithLabelValues(method).Inc()
}

func (m *metrics) cache(accessor string, hit bool) {
  result := "miss"
  if hit {
    result = "hit"
  }
  m.cacheLookups.WithLabelValues(accessor, result).Inc()
}

func (m *metrics) routeFailure(kind RouteErrorKind) {
  m.routeFailures.WithLabelValues(string(kind)).Inc()
}
