package lndclient

import (
  "context"
  "fmt"
  "sync"
  "time"

  "golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared fill once it is detached from the caller that
// started it.
const fetchTimeout = time.Minute

// memo is a per-facade key/value store filled on first lookup. Entries are
// never invalidated and never mutated after insertion; failed fetches are not
// stored. Concurrent misses on one key share a single fetch, and each caller
// waits on it only as long as its own context allows.
type memo[K comparable, V any] struct {
  name string
  metrics *metrics

  mu sync.Mutex
  entries map[K]V
  group singleflight.Group
}

func newMemo[K comparable, V any](name string, m *metrics) *memo[K, V] {
  return &memo[K, V]{
    name: name,
    metrics: m,
    entries: make(map[K]V),
  }
}

func (m *memo[K, V]) lookup(key K) (V, bool) {
  m.mu.Lock()
  defer m.mu.Unlock()
  v, ok := m.entries[key]
  return v, ok
}

func (m *memo[K, V]) get(ctx context.Context, key K, fetch func(context.Context) (V, error)) (V, error) {
  var zero V
  if v, ok := m.lookup(key); ok {
    m.metrics.cache(m.name, true)
    return v, nil
  }
  m.metrics.cache(m.name, false)

  // The fill outlives a cancelled first caller so that other waiters on the
  // same key are unaffected. Values from ctx are kept.
  ch := m.group.DoChan(fmt.Sprint(key), func() (any, error) {
    if v, ok := m.lookup(key); ok {
      return v, nil
    }
    fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
    defer cancel()

    v, err := fetch(fetchCtx)
    if err != nil {
      return nil, err
    }
    m.mu.Lock()
    m.entries[key] = v
    m.mu.Unlock()
    return v, nil
  })

  select {
  case <-ctx.Done():
    return zero, ctx.Err()
  case res := <-ch:
    if res.Err != nil {
      return zero, res.Err
    }
    return res.Val.(V), nil
  }
}

func (m *memo[K, V]) size() int {
  m.mu.Lock()
  defer m.mu.Unlock()
  return len(m.entries)
}
