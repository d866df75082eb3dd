package logging

import (
  "fmt"
  "io"
  "os"
  "sort"
  "sync"

  "github.com/btcsuite/btclog"
  "gopkg.in/natefinch/lumberjack.v2"

  "rebalance-lnd/internal/config"
)

// Root owns the log backend and every sub-logger handed out from it, so a
// level change applies to all subsystems at once.
type Root struct {
  backend *btclog.Backend
  rotator *lumberjack.Logger
  level btclog.Level

  mu sync.Mutex
  subLoggers map[string]btclog.Logger
}

func New(cfg config.LogConfig) (*Root, error) {
  return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg config.LogConfig, stdout io.Writer) (*Root, error) {
  level, ok := btclog.LevelFromString(cfg.Level)
  if !ok {
    return nil, fmt.Errorf("invalid log level %q", cfg.Level)
  }

  var out io.Writer = stdout
  var rotator *lumberjack.Logger
  if cfg.File != "" {
    rotator = &lumberjack.Logger{
      Filename: cfg.File,
      MaxSize: cfg.MaxSizeMB,
      MaxBackups: cfg.MaxBackups,
      Compress: true,
    }
    out = io.MultiWriter(stdout, rotator)
  }

  return &Root{
    backend: btclog.NewBackend(out),
    rotator: rotator,
    level: level,
    subLoggers: make(map[string]btclog.Logger),
  }, nil
}

// Logger returns the sub-logger for tag, creating it on first use.
func (r *Root) Logger(tag string) btclog.Logger {
  r.mu.Lock()
  defer r.mu.Unlock()

  if l, ok := r.subLoggers[tag]; ok {
    return l
  }
  l := r.backend.Logger(tag)
  l.SetLevel(r.level)
  r.subLoggers[tag] = l
  return l
}

func (r *Root) SetLevel(level string) error {
  lvl, ok := btclog.LevelFromString(level)
  if !ok {
    return fmt.Errorf("invalid log level %q", level)
  }

  r.mu.Lock()
  defer r.mu.Unlock()

  r.level = lvl
  for _, l := range r.subLoggers {
    l.SetLevel(lvl)
  }
  return nil
}

func (r *Root) Subsystems() []string {
  r.mu.Lock()
  defer r.mu.Unlock()

  tags := make([]string, 0, len(r.subLoggers))
  for tag := range r.subLoggers {
    tags = append(tags, tag)
  }
  sort.Strings(tags)
  return tags
}

func (r *Root) Close() error {
  if r.rotator == nil {
    return nil
  }
  return r.rotator.Close()
}
