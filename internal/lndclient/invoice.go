package lndclient

import (
  "context"
  "fmt"
  "strings"

  "github.com/lightningnetwork/lnd/lnrpc"
  "github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
  "github.com/lightningnetwork/lnd/lntypes"
)

// GenerateInvoice adds an invoice for amount sat and returns it decoded.
func (c *Client) GenerateInvoice(ctx context.Context, memo string, amount int64) (*lnrpc.PayReq, error) {
  c.metrics.rpc("AddInvoice")
  resp, err := c.session.AddInvoice(ctx, &lnrpc.Invoice{
    Memo: memo,
    Value: amount,
  })
  if err != nil {
    return nil, err
  }
  if resp == nil || resp.PaymentRequest == "" {
    return nil, ErrEmptyResponse
  }
  return c.DecodePaymentRequest(ctx, resp.PaymentRequest)
}

func (c *Client) CancelInvoice(ctx context.Context, paymentHash string) error {
  hash, err := lntypes.MakeHashFromStr(strings.TrimSpace(paymentHash))
  if err != nil {
    return fmt.Errorf("invalid payment hash: %w", err)
  }

  c.metrics.rpc("CancelInvoice")
  if _, err := c.session.CancelInvoice(ctx, &invoicesrpc.CancelInvoiceMsg{PaymentHash: hash[:]}); err != nil {
    return err
  }
  c.logger.Debugf("Canceled invoice %v", hash)
  return nil
}

func (c *Client) DecodePaymentRequest(ctx context.Context, paymentRequest string) (*lnrpc.PayReq, error) {
  c.metrics.rpc("DecodePayReq")
  decoded, err := c.session.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: paymentRequest})
  if err != nil {
    return nil, err
  }
  if decoded == nil {
    return nil, ErrEmptyResponse
  }
  return decoded, nil
}
