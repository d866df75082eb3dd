package server

import (
  "errors"
  "net/http"
  "strconv"
  "time"

  "github.com/go-chi/chi/v5"
  "github.com/prometheus/client_golang/prometheus"
)

func newRequestDuration(reg prometheus.Registerer) *prometheus.HistogramVec {
  h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
    Namespace: "rebalance_lnd",
    Subsystem: "http",
    Name: "request_duration_seconds",
    Help: "HTTP API latency, by route pattern and status code.",
    Buckets: []float64{.005, .025, .1, .5, 1, 2.5, 5, 15},
  }, []string{"route", "code"})
  if err := reg.Register(h); err != nil {
    var already prometheus.AlreadyRegisteredError
    if errors.As(err, &already) {
      if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
        return existing
      }
    }
  }
  return h
}

// requestLogger times every request against its chi route pattern, so
// /api/channels/{chanID}/policy is one series rather than one per channel.
// Responses that failed on the lnd side are logged at warn level.
func (s *Server) requestLogger() func(http.Handler) http.Handler {
  return func(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
      start := time.Now()
      ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

      next.ServeHTTP(ww, r)

      pattern := "unmatched"
      if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
        pattern = rctx.RoutePattern()
      }
      duration := time.Since(start)
      s.requestDuration.WithLabelValues(pattern, strconv.Itoa(ww.status)).Observe(duration.Seconds())

      if ww.status >= http.StatusInternalServerError {
        s.logger.Warnf("%s %s -> %d in %v", r.Method, r.URL.Path, ww.status, duration)
        return
      }
      s.logger.Debugf("%s %s -> %d in %v", r.Method, r.URL.Path, ww.status, duration)
    })
  }
}

type responseWriter struct {
  http.ResponseWriter
  status int
}

func (w *responseWriter) WriteHeader(status int) {
  w.status = status
  w.ResponseWriter.WriteHeader(status)
}
