// Package redis provides a Redis-backed key-value store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jmcleod/carepoint/storage"
)

const scanBatch = 100

// Store implements storage.Store on top of a Redis client. Every key is
// stored under prefix so one Redis can hold several devices' entries.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps client. namespace may be empty.
func NewStore(client goredis.UniversalClient, namespace string) *Store {
	prefix := "carepoint:"
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &Store{client: client, prefix: prefix}
}

// NewStoreFromAddr dials a single-node Redis at addr.
func NewStoreFromAddr(ctx context.Context, addr, password, namespace string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewStore(client, namespace), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores value without a TTL. Session expiry is judged by the reader,
// so stale records stay until explicitly cleared.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
