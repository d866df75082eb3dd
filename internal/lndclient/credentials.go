package lndclient

import (
  "errors"
  "fmt"
  "os"
  "path/filepath"
  "strings"

  "github.com/lightningnetwork/lnd/lncfg"

  "rebalance-lnd/internal/config"
)

const (
  credPathEnv = "LND_CRED_PATH"
  macaroonFile = "admin.macaroon"
  tlsCertFile = "tls.cert"
)

// CredentialError reports a macaroon or TLS certificate that could not be
// located or read during bootstrap.
type CredentialError struct {
  Artifact string
  Path string
  Err error
}

func (e *CredentialError) Error() string {
  if e.Path == "" {
    return fmt.Sprintf("lnd %s: %v", e.Artifact, e.Err)
  }
  return fmt.Sprintf("lnd %s %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *CredentialError) Unwrap() error {
  return e.Err
}

type Credentials struct {
  MacaroonPath string
  TLSCertPath string
}

// ResolveCredentials picks the macaroon and TLS certificate for the node.
// Explicit paths win; otherwise lnd_dir implies the lnd data layout, and
// without lnd_dir the LND_CRED_PATH directory holds both files side by side.
// With neither set, the default lnd directory is used.
func ResolveCredentials(cfg config.LNDConfig) (Credentials, error) {
  macPath := strings.TrimSpace(cfg.MacaroonPath)
  certPath := strings.TrimSpace(cfg.TLSCertPath)

  if macPath == "" || certPath == "" {
    base, nested := credentialBase(cfg)
    if macPath == "" {
      if nested {
        network := cfg.Network
        if network == "" {
          network = "mainnet"
        }
        macPath = filepath.Join(base, "data", "chain", "bitcoin", network, macaroonFile)
      } else {
        macPath = filepath.Join(base, macaroonFile)
      }
    }
    if certPath == "" {
      certPath = filepath.Join(base, tlsCertFile)
    }
  }

  macAbs, err := absExisting("macaroon", macPath)
  if err != nil {
    return Credentials{}, err
  }
  certAbs, err := absExisting("tls cert", certPath)
  if err != nil {
    return Credentials{}, err
  }

  return Credentials{MacaroonPath: macAbs, TLSCertPath: certAbs}, nil
}

func credentialBase(cfg config.LNDConfig) (string, bool) {
  if dir := strings.TrimSpace(cfg.LNDDir); dir != "" {
    return lncfg.CleanAndExpandPath(dir), true
  }
  if dir := strings.TrimSpace(os.Getenv(credPathEnv)); dir != "" {
    return lncfg.CleanAndExpandPath(dir), false
  }
  return lncfg.CleanAndExpandPath(config.DefaultLNDDir), true
}

func absExisting(artifact string, path string) (string, error) {
  abs, err := filepath.Abs(lncfg.CleanAndExpandPath(path))
  if err != nil {
    return "", &CredentialError{Artifact: artifact, Path: path, Err: err}
  }
  info, err := os.Stat(abs)
  if err != nil {
    return "", &CredentialError{Artifact: artifact, Path: abs, Err: err}
  }
  if info.IsDir() {
    return "", &CredentialError{Artifact: artifact, Path: abs, Err: errors.New("is a directory")}
  }
  return abs, nil
}
