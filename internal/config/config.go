package config

import (
  "errors"
  "fmt"
  "os"
  "strings"

  "github.com/btcsuite/btclog"
  "gopkg.in/yaml.v3"
)

const (
  DefaultPath = "/etc/rebalance-lnd/config.yaml"
  DefaultLNDDir = "~/.lnd"
)

type Config struct {
  LND    LNDConfig    `yaml:"lnd"`
  Log    LogConfig    `yaml:"log"`
  Server ServerConfig `yaml:"server"`
  Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LNDConfig struct {
  GRPCHost string `yaml:"grpc_host"`
  // LNDDir is the node's data directory. When set, credentials follow the
  // lnd layout below it; when empty they come from LND_CRED_PATH, and
  // DefaultLNDDir is used when that is unset too.
  LNDDir string `yaml:"lnd_dir"`
  Network string `yaml:"network"`
  TLSCertPath string `yaml:"tls_cert_path"`
  MacaroonPath string `yaml:"macaroon_path"`
}

type LogConfig struct {
  Level string `yaml:"level"`
  File string `yaml:"file"`
  MaxSizeMB int `yaml:"max_size_mb"`
  MaxBackups int `yaml:"max_backups"`
}

type ServerConfig struct {
  Host string `yaml:"host"`
  Port int    `yaml:"port"`
}

// TelemetryConfig controls OTLP/HTTP trace export of lnd RPCs.
type TelemetryConfig struct {
  Enabled bool `yaml:"enabled"`
  ServiceName string `yaml:"service_name"`
  Endpoint string `yaml:"endpoint"`
  Insecure bool `yaml:"insecure"`
  Headers map[string]string `yaml:"headers"`
}

var validNetworks = map[string]struct{}{
  "mainnet": {},
  "testnet": {},
  "testnet4": {},
  "signet": {},
  "regtest": {},
  "simnet": {},
}

func Default() *Config {
  cfg := &Config{}
  cfg.applyDefaults()
  return cfg
}

func Load(path string) (*Config, error) {
  b, err := os.ReadFile(path)
  if err != nil {
    return nil, err
  }

  var cfg Config
  if err := yaml.Unmarshal(b, &cfg); err != nil {
    return nil, fmt.Errorf("parse %s: %w", path, err)
  }

  cfg.applyDefaults()
  if err := cfg.Validate(); err != nil {
    return nil, err
  }
  return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
  cfg, err := Load(path)
  if errors.Is(err, os.ErrNotExist) {
    return Default(), nil
  }
  return cfg, err
}

func (c *Config) applyDefaults() {
  if c.LND.GRPCHost == "" {
    c.LND.GRPCHost = "127.0.0.1:10009"
  }
  if c.LND.Network == "" {
    c.LND.Network = "mainnet"
  }
  c.LND.Network = strings.ToLower(strings.TrimSpace(c.LND.Network))
  if c.Log.Level == "" {
    c.Log.Level = "info"
  }
  if c.Log.MaxSizeMB == 0 {
    c.Log.MaxSizeMB = 10
  }
  if c.Log.MaxBackups == 0 {
    c.Log.MaxBackups = 3
  }
  if c.Server.Host == "" {
    c.Server.Host = "127.0.0.1"
  }
  if c.Server.Port == 0 {
    c.Server.Port = 8090
  }
  if c.Telemetry.ServiceName == "" {
    c.Telemetry.ServiceName = "rebalance-lnd"
  }
  if c.Telemetry.Endpoint == "" {
    c.Telemetry.Endpoint = "localhost:4318"
  }
}

func (c *Config) Validate() error {
  if _, ok := validNetworks[c.LND.Network]; !ok {
    return fmt.Errorf("unknown lnd network %q", c.LND.Network)
  }
  if _, ok := btclog.LevelFromString(c.Log.Level); !ok {
    return fmt.Errorf("invalid log level %q", c.Log.Level)
  }
  if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
    return errors.New("log rotation limits must not be negative")
  }
  if c.Server.Port < 0 || c.Server.Port > 65535 {
    return fmt.Errorf("invalid server port %d", c.Server.Port)
  }
  return nil
}
