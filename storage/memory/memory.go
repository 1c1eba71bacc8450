// Package memory provides a thread-safe in-memory implementation of storage.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jmcleod/carepoint/storage"
)

// FaultFunc decides whether an operation on key should fail. op is one of
// "get", "set" or "remove". Returning a non-nil error aborts the operation
// before the map is touched.
type FaultFunc func(op, key string) error

// Store is a thread-safe in-memory implementation of storage.Store.
// Suitable for testing, demos, and single-process use cases.
type Store struct {
	mu    sync.RWMutex
	data  map[string]string
	fault FaultFunc
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

// SetFault installs fn as the fault injector. Pass nil to clear it.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

func (s *Store) check(op, key string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, key)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get", key); err != nil {
		return "", err
	}
	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("set", key); err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("remove", key); err != nil {
		return err
	}
	delete(s.data, key)
	return nil
}

// MultiRemove deletes keys one at a time and stops at the first injected
// fault, leaving earlier keys removed.
func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if err := s.check("remove", k); err != nil {
			return err
		}
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
