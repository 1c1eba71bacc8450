// Package postgres implements storage.Store backed by PostgreSQL.
//
// Entries live in a single kv_entries table keyed by (namespace, key). The
// namespace lets several devices or test runs share one database without
// seeing each other's session records.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/carepoint/storage"
)

// DefaultNamespace is used when no namespace is supplied.
const DefaultNamespace = "default"

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
}

var _ storage.Store = (*Store)(nil)

// NewStore returns a Store backed by the given pgx connection pool.
func NewStore(pool *pgxpool.Pool, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{pool: pool, namespace: namespace}
}

// NewStoreFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Store.
func NewStoreFromDSN(ctx context.Context, dsn, namespace string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewStore(pool, namespace), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`,
		s.namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET value = $3, updated_at = now()`,
		s.namespace, key, value)
	return err
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`,
		s.namespace, key)
	return err
}

func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM kv_entries WHERE namespace = $1 AND key = ANY($2)`,
		s.namespace, keys)
	return err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_entries WHERE namespace = $1 ORDER BY key`,
		s.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
