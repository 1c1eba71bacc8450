// Package sealed wraps a storage.Store so that every value is encrypted at
// rest. Keys stay in the clear; each value is bound to its key through the
// AEAD additional data, so a value copied under another key fails to open.
package sealed

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmcleod/carepoint/internal/util"
	"github.com/jmcleod/carepoint/storage"
)

const (
	// saltKey holds the hex Argon2id salt for passphrase-derived keys.
	saltKey   = "__carepoint_sealed_salt"
	saltLen   = 16
	hkdfInfo  = "carepoint:kv:v1"
	aadPrefix = "carepoint:kv:"
)

// ErrUnsealable is returned when a stored value cannot be decrypted, usually
// because the key changed or the value was written by something else.
var ErrUnsealable = errors.New("value could not be unsealed")

// Store encrypts values before handing them to the wrapped store.
type Store struct {
	inner storage.Store
	key   []byte
}

var _ storage.Store = (*Store)(nil)

// New wraps inner using a value key derived from master via HKDF-SHA256.
func New(inner storage.Store, master []byte) (*Store, error) {
	if len(master) < 16 {
		return nil, fmt.Errorf("master key must be at least 16 bytes, got %d", len(master))
	}
	key, err := util.DeriveSubkey(master, hkdfInfo)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, key: key}, nil
}

// NewFromPassphrase wraps inner using a key stretched from passphrase with
// Argon2id. The salt is created on first use and kept in inner.
func NewFromPassphrase(ctx context.Context, inner storage.Store, passphrase string, params util.Argon2idParams) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	salt, err := loadOrCreateSalt(ctx, inner)
	if err != nil {
		return nil, err
	}
	key, err := util.DeriveArgon2idKey(util.NormalizePassphrase(passphrase), salt, params)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, key: key}, nil
}

func loadOrCreateSalt(ctx context.Context, inner storage.Store) ([]byte, error) {
	raw, err := inner.Get(ctx, saltKey)
	if err == nil {
		salt, err := hex.DecodeString(raw)
		if err != nil || len(salt) != saltLen {
			return nil, fmt.Errorf("stored salt is malformed")
		}
		return salt, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("reading salt: %w", err)
	}
	salt, err := util.RandomBytes(saltLen)
	if err != nil {
		return nil, err
	}
	if err := inner.Set(ctx, saltKey, hex.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("persisting salt: %w", err)
	}
	return salt, nil
}

// Close wipes the value key. The wrapped store is not closed.
func (s *Store) Close() {
	util.WipeBytes(s.key)
}

func aad(key string) []byte {
	return []byte(aadPrefix + key)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", fmt.Errorf("%s: %w", key, ErrUnsealable)
	}
	plain, err := Open(s.key, &env, aad(key))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", key, ErrUnsealable, err)
	}
	return string(plain), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == saltKey {
		return fmt.Errorf("%s is reserved", saltKey)
	}
	env, err := Seal(s.key, []byte(value), aad(key))
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, string(data))
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if key == saltKey {
		return nil
	}
	return s.inner.Remove(ctx, key)
}

func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	filtered := keys[:0:0]
	for _, k := range keys {
		if k != saltKey {
			filtered = append(filtered, k)
		}
	}
	return s.inner.MultiRemove(ctx, filtered...)
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.inner.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if k != saltKey {
			out = append(out, k)
		}
	}
	return out, nil
}
