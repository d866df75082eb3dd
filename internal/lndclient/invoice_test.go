package lndclient

import (
  "context"
  "encoding/hex"
  "strings"
  "testing"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/stretchr/testify/require"
)

func TestGenerateInvoiceDecodesCreatedRequest(t *testing.T) {
  session := newMockSession()
  session.invoiceResp = &lnrpc.AddInvoiceResponse{PaymentRequest: "lnbc1500n1rebalance"}
  session.payReqs["lnbc1500n1rebalance"] = testInvoice()
  client := New(session)

  decoded, err := client.GenerateInvoice(context.Background(), "Rebalance of 150000 sat", 150_000)
  require.NoError(t, err)
  require.Equal(t, paymentHashHex, decoded.PaymentHash)
  require.EqualValues(t, 150_000_000, decoded.NumMsat)

  require.Equal(t, "Rebalance of 150000 sat", session.lastInvoice.Memo)
  require.EqualValues(t, 150_000, session.lastInvoice.Value)
  require.Equal(t, 1, session.count("AddInvoice"))
  require.Equal(t, 1, session.count("DecodePayReq"))
}

func TestGenerateInvoiceEmptyResponse(t *testing.T) {
  session := newMockSession()
  session.invoiceResp = &lnrpc.AddInvoiceResponse{}
  client := New(session)

  _, err := client.GenerateInvoice(context.Background(), "memo", 1)
  require.ErrorIs(t, err, ErrEmptyResponse)
  require.Zero(t, session.count("DecodePayReq"))
}

func TestCancelInvoice(t *testing.T) {
  session := newMockSession()
  client := New(session)

  require.NoError(t, client.CancelInvoice(context.Background(), strings.ToUpper(paymentHashHex)))
  want, err := hex.DecodeString(paymentHashHex)
  require.NoError(t, err)
  require.Equal(t, [][]byte{want}, session.canceled)

  require.Error(t, client.CancelInvoice(context.Background(), "abcd"))
  require.Equal(t, 1, session.count("CancelInvoice"))
}

func TestDecodePaymentRequest(t *testing.T) {
  session := newMockSession()
  session.payReqs["lnbc1"] = testInvoice()
  client := New(session)

  decoded, err := client.DecodePaymentRequest(context.Background(), "lnbc1")
  require.NoError(t, err)
  require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, decoded.PaymentAddr)

  _, err = client.DecodePaymentRequest(context.Background(), "garbage")
  require.Error(t, err)
}
