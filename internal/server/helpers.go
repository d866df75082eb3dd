package server

import (
  "encoding/json"
  "net/http"
  "strings"

  "google.golang.org/grpc/status"
  "google.golang.org/protobuf/encoding/protojson"
  "google.golang.org/protobuf/proto"
)

var protoMarshaler = protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true}

func writeJSON(w http.ResponseWriter, status int, payload any) {
  w.Header().Set("Content-Type", "application/json")
  w.WriteHeader(status)
  if payload != nil {
    _ = json.NewEncoder(w).Encode(payload)
  }
}

func readJSON(r *http.Request, dst any) error {
  dec := json.NewDecoder(r.Body)
  dec.DisallowUnknownFields()
  return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, message string) {
  writeJSON(w, status, map[string]string{"error": message})
}

// protoJSON renders an lnrpc message the way lnd's REST proxy does, so it can
// be embedded in a plain JSON response.
func protoJSON(msg proto.Message) json.RawMessage {
  b, err := protoMarshaler.Marshal(msg)
  if err != nil {
    return json.RawMessage("null")
  }
  return b
}

func protoJSONList[M proto.Message](msgs []M) []json.RawMessage {
  out := make([]json.RawMessage, 0, len(msgs))
  for _, msg := range msgs {
    out = append(out, protoJSON(msg))
  }
  return out
}

func lndRPCErrorMessage(err error) string {
  if err == nil {
    return ""
  }
  if st, ok := status.FromError(err); ok {
    if msg := strings.TrimSpace(st.Message()); msg != "" {
      return msg
    }
  }
  msg := strings.TrimSpace(err.Error())
  if msg == "" {
    return "LND error"
  }
  return msg
}
