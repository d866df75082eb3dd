package server

import (
  "net/http"

  "github.com/go-chi/chi/v5"
  "github.com/go-chi/chi/v5/middleware"
  "github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
  r := chi.NewRouter()
  r.Use(middleware.Recoverer)
  r.Use(s.requestLogger())

  r.Get("/api/health", s.handleHealth)
  r.Get("/api/info", s.handleInfo)
  r.Get("/api/nodes/{pubkey}/alias", s.handleNodeAlias)
  r.Post("/api/routes", s.handleQueryRoutes)
  r.Post("/api/invoices/decode", s.handleDecodeInvoice)

  r.Get("/api/channels", s.handleChannels)
  r.Get("/api/channels/{chanID}/policy", s.handleChannelPolicy)

  r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

  return r
}
