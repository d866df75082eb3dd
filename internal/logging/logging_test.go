package logging

import (
  "bytes"
  "os"
  "path/filepath"
  "testing"

  "github.com/btcsuite/btclog"
  "github.com/stretchr/testify/require"

  "rebalance-lnd/internal/config"
)

func TestSubLoggersShareBackend(t *testing.T) {
  var buf bytes.Buffer
  root, err := NewWithWriter(config.LogConfig{Level: "info"}, &buf)
  require.NoError(t, err)

  lndc := root.Logger("LNDC")
  require.Same(t, lndc, root.Logger("LNDC"))

  lndc.Infof("edge %d cached", 42)
  lndc.Debugf("hidden")
  require.Contains(t, buf.String(), "LNDC: edge 42 cached")
  require.NotContains(t, buf.String(), "hidden")
  require.Equal(t, []string{"LNDC"}, root.Subsystems())
}

func TestSetLevelAppliesToExistingLoggers(t *testing.T) {
  var buf bytes.Buffer
  root, err := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)
  require.NoError(t, err)

  http := root.Logger("HTTP")
  require.Equal(t, btclog.LevelWarn, http.Level())

  require.NoError(t, root.SetLevel("debug"))
  require.Equal(t, btclog.LevelDebug, http.Level())
  require.Error(t, root.SetLevel("chatty"))
}

func TestLogFileIsWritten(t *testing.T) {
  path := filepath.Join(t.TempDir(), "rebalance.log")
  var buf bytes.Buffer
  root, err := NewWithWriter(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1, MaxBackups: 1}, &buf)
  require.NoError(t, err)

  root.Logger("RBLN").Infof("starting")
  require.NoError(t, root.Close())

  data, err := os.ReadFile(path)
  require.NoError(t, err)
  require.Contains(t, string(data), "RBLN: starting")
}

func TestInvalidLevel(t *testing.T) {
  _, err := NewWithWriter(config.LogConfig{Level: "nope"}, &bytes.Buffer{})
  require.Error(t, err)
}
