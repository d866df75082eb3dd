package config

import (
  "os"
  "path/filepath"
  "testing"

  "github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
  t.Helper()
  path := filepath.Join(t.TempDir(), "config.yaml")
  require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
  return path
}

func TestLoadAppliesDefaults(t *testing.T) {
  path := writeConfig(t, "lnd:\n  lnd_dir: ~/.lnd\n")

  cfg, err := Load(path)
  require.NoError(t, err)
  require.Equal(t, "127.0.0.1:10009", cfg.LND.GRPCHost)
  require.Equal(t, "~/.lnd", cfg.LND.LNDDir)
  require.Equal(t, "mainnet", cfg.LND.Network)
  require.Equal(t, "info", cfg.Log.Level)
  require.Equal(t, 10, cfg.Log.MaxSizeMB)
  require.Equal(t, 8090, cfg.Server.Port)
  require.False(t, cfg.Telemetry.Enabled)
  require.Equal(t, "rebalance-lnd", cfg.Telemetry.ServiceName)
  require.Equal(t, "localhost:4318", cfg.Telemetry.Endpoint)
}

func TestLoadTelemetrySection(t *testing.T) {
  path := writeConfig(t, `
telemetry:
  enabled: true
  endpoint: collector:4318
  insecure: true
  headers:
    x-api-key: secret
`)

  cfg, err := Load(path)
  require.NoError(t, err)
  require.True(t, cfg.Telemetry.Enabled)
  require.True(t, cfg.Telemetry.Insecure)
  require.Equal(t, "collector:4318", cfg.Telemetry.Endpoint)
  require.Equal(t, map[string]string{"x-api-key": "secret"}, cfg.Telemetry.Headers)
  require.Equal(t, "rebalance-lnd", cfg.Telemetry.ServiceName)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
  path := writeConfig(t, `
lnd:
  grpc_host: 10.0.0.2:10009
  network: Testnet
  tls_cert_path: /creds/tls.cert
  macaroon_path: /creds/admin.macaroon
log:
  level: debug
  file: /var/log/rebalance-lnd.log
server:
  port: 9000
`)

  cfg, err := Load(path)
  require.NoError(t, err)
  require.Equal(t, "10.0.0.2:10009", cfg.LND.GRPCHost)
  require.Equal(t, "testnet", cfg.LND.Network)
  require.Equal(t, "/creds/tls.cert", cfg.LND.TLSCertPath)
  require.Equal(t, "/creds/admin.macaroon", cfg.LND.MacaroonPath)
  require.Equal(t, "debug", cfg.Log.Level)
  require.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
  tests := []struct {
    name string
    body string
  }{
    {name: "network", body: "lnd:\n  network: litecoin\n"},
    {name: "log level", body: "log:\n  level: loud\n"},
    {name: "port", body: "server:\n  port: 70000\n"},
    {name: "yaml", body: "lnd: [\n"},
  }

  for _, tc := range tests {
    tc := tc
    t.Run(tc.name, func(t *testing.T) {
      _, err := Load(writeConfig(t, tc.body))
      require.Error(t, err)
    })
  }
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
  cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
  require.NoError(t, err)
  require.Equal(t, Default(), cfg)
}
