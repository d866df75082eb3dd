package server

import (
  "context"
  "encoding/hex"
  "encoding/json"
  "net/http"
  "strconv"
  "strings"
  "time"

  "github.com/go-chi/chi/v5"
  "github.com/lightningnetwork/lnd/lnrpc"
  "google.golang.org/grpc/codes"
  "google.golang.org/grpc/status"

  "rebalance-lnd/internal/lndclient"
)

const lndRPCTimeout = 15 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
  writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
  ctx, cancel := context.WithTimeout(r.Context(), lndRPCTimeout)
  defer cancel()

  info, err := s.lnd.GetInfo(ctx)
  if err != nil {
    writeError(w, http.StatusBadGateway, lndRPCErrorMessage(err))
    return
  }
  maxCapacity, err := s.lnd.GetMaxChannelCapacity(ctx)
  if err != nil {
    writeError(w, http.StatusBadGateway, lndRPCErrorMessage(err))
    return
  }

  writeJSON(w, http.StatusOK, map[string]any{
    "pubkey": info.IdentityPubkey,
    "alias": info.Alias,
    "block_height": info.BlockHeight,
    "synced_to_graph": info.SyncedToGraph,
    "max_channel_capacity_sat": maxCapacity,
  })
}

func (s *Server) handleNodeAlias(w http.ResponseWriter, r *http.Request) {
  pubkey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "pubkey")))
  if pubkey == "" {
    writeError(w, http.StatusBadRequest, "pubkey required")
    return
  }

  ctx, cancel := context.WithTimeout(r.Context(), lndRPCTimeout)
  defer cancel()

  alias, err := s.lnd.GetNodeAlias(ctx, pubkey)
  if err != nil {
    writeError(w, http.StatusBadGateway, lndRPCErrorMessage(err))
    return
  }
  writeJSON(w, http.StatusOK, map[string]string{"pubkey": pubkey, "alias": alias})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
  activeOnly := false
  if raw := strings.TrimSpace(r.URL.Query().Get("active_only")); raw != "" {
    parsed, err := strconv.ParseBool(raw)
    if err != nil {
      writeError(w, http.StatusBadRequest, "invalid active_only")
      return
    }
    activeOnly = parsed
  }

  ctx, cancel := context.WithTimeout(r.Context(), lndRPCTimeout)
  defer cancel()

  channels, err := s.lnd.GetChannels(ctx, activeOnly)
  if err != nil {
    writeError(w, http.StatusBadGateway, lndRPCErrorMessage(err))
    return
  }
  writeJSON(w, http.StatusOK, map[string]any{
    "active_only": activeOnly,
    "channels": protoJSONList(channels),
  })
}

func (s *Server) handleChannelPolicy(w http.ResponseWriter, r *http.Request) {
  chanID, err := strconv.ParseUint(chi.URLParam(r, "chanID"), 10, 64)
  if err != nil {
    writeError(w, http.StatusBadRequest, "invalid channel id")
    return
  }

  ctx, cancel := context.WithTimeout(r.Context(), lndRPCTimeout)
  defer cancel()

  to, err := s.lnd.GetPolicyTo(ctx, chanID)
  if err != nil {
    writeError(w, http.StatusBadGateway, lndRPCErrorMessage(err))
    return
  }
  from, err := s.lnd.GetPolicyFrom(ctx, chanID)
  if err != nil {
    writeError(w, http.StatusBadGateway, lndRPCErrorMessage(err))
    return
  }

  writeJSON(w, http.StatusOK, map[string]any{
    "chan_id": strconv.FormatUint(chanID, 10),
    "to": protoJSON(to),
    "from": protoJSON(from),
    "ppm_to": to.FeeRateMilliMsat,
    "ppm_from": from.FeeRateMilliMsat,
  })
}

type routeQueryRequest struct {
  LastHopPubkey string `json:"last_hop_pubkey"`
  AmountSat int64 `json:"amount_sat"`
  FirstHopChanID uint64 `json:"first_hop_chan_id"`
  FeeLimitMsat int64 `json:"fee_limit_msat"`
  IgnoredNodes []string `json:"ignored_nodes"`
  IgnoredPairs []struct {
    From string `json:"from"`
    To string `json:"to"`
  } `json:"ignored_pairs"`
}

func (s *Server) handleQueryRoutes(w http.ResponseWriter, r *http.Request) {
  var req routeQueryRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  if req.AmountSat <= 0 {
    writeError(w, http.StatusBadRequest, "amount_sat must be positive")
    return
  }

  query := lndclient.RouteQuery{
    LastHopPubkey: req.LastHopPubkey,
    Amount: req.AmountSat,
    FirstHopChannelID: req.FirstHopChanID,
    FeeLimitMsat: req.FeeLimitMsat,
  }
  for _, node := range req.IgnoredNodes {
    b, err := hex.DecodeString(strings.TrimSpace(node))
    if err != nil {
      writeError(w, http.StatusBadRequest, "invalid ignored node")
      return
    }
    query.IgnoredNodes = append(query.IgnoredNodes, b)
  }
  for _, pair := range req.IgnoredPairs {
    from, fromErr := hex.DecodeString(strings.TrimSpace(pair.From))
    to, toErr := hex.DecodeString(strings.TrimSpace(pair.To))
    if fromErr != nil || toErr != nil {
      writeError(w, http.StatusBadRequest, "invalid ignored pair")
      return
    }
    query.IgnoredPairs = append(query.IgnoredPairs, &lnrpc.NodePair{From: from, To: to})
  }

  ctx, cancel := context.WithTimeout(r.Context(), lndRPCTimeout)
  defer cancel()

  routes := s.lnd.GetRoute(ctx, query)
  if routes == nil {
    resp := map[string]string{"error": "no route"}
    if routeErr := s.lnd.LastRouteError(); routeErr != nil {
      resp["kind"] = string(routeErr.Kind)
      resp["detail"] = lndRPCErrorMessage(routeErr.Err)
    }
    writeJSON(w, http.StatusNotFound, resp)
    return
  }
  writeJSON(w, http.StatusOK, map[string][]json.RawMessage{"routes": protoJSONList(routes)})
}

func (s *Server) handleDecodeInvoice(w http.ResponseWriter, r *http.Request) {
  var req struct {
    PaymentRequest string `json:"payment_request"`
  }
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  payReq := strings.TrimSpace(req.PaymentRequest)
  if payReq == "" {
    writeError(w, http.StatusBadRequest, "payment_request required")
    return
  }

  ctx, cancel := context.WithTimeout(r.Context(), lndRPCTimeout)
  defer cancel()

  decoded, err := s.lnd.DecodePaymentRequest(ctx, payReq)
  if err != nil {
    writeError(w, decodeErrorStatus(err), lndRPCErrorMessage(err))
    return
  }
  w.Header().Set("Content-Type", "application/json")
  w.WriteHeader(http.StatusOK)
  _, _ = w.Write(protoJSON(decoded))
}

// decodeErrorStatus blames the client only when lnd rejected the payment
// request itself; lnd reports decode failures as Unknown or InvalidArgument.
func decodeErrorStatus(err error) int {
  st, ok := status.FromError(err)
  if !ok {
    return http.StatusBadGateway
  }
  switch st.Code() {
  case codes.InvalidArgument, codes.Unknown:
    return http.StatusBadRequest
  default:
    return http.StatusBadGateway
  }
}
