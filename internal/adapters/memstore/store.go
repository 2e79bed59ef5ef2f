// Package memstore is an in-process ports.StateStore for replays and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"btcTrendAnalyzer/internal/ports"
)

// Store keeps values in a map. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
	fail error
	sets int
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Set stores a copy of value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("set %s: %w: %w", key, ports.ErrContextCanceled, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.fail != nil {
		return fmt.Errorf("set %s: %w: %w", key, ports.ErrStoreTransient, s.fail)
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, ports.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

// Keys lists stored keys in lexical order.
func (s *Store) Keys(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Dump returns a copy of every key and value.
func (s *Store) Dump() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// FailWith makes every following Set fail with err until called with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// SetCalls counts Set invocations, failed ones included.
func (s *Store) SetCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
