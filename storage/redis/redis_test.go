package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/carepoint/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("CAREPOINT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAREPOINT_TEST_REDIS_ADDR not set; skipping Redis tests")
	}
	ctx := context.Background()
	s, err := NewStoreFromAddr(ctx, addr, os.Getenv("CAREPOINT_TEST_REDIS_PASSWORD"), "test-"+t.Name())
	require.NoError(t, err)

	keys, _ := s.Keys(ctx)
	s.MultiRemove(ctx, keys...) //nolint:errcheck
	t.Cleanup(func() {
		keys, _ := s.Keys(ctx)
		s.MultiRemove(ctx, keys...) //nolint:errcheck
		s.Close()
	})
	return s
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "userData")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "userData", `{"name":"Arun"}`))
	got, err := s.Get(ctx, "userData")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Arun"}`, got)

	require.NoError(t, s.Set(ctx, "userToken", "tok"))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"userData", "userToken"}, keys)

	require.NoError(t, s.MultiRemove(ctx, "userData", "userToken"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NoError(t, s.Remove(ctx, "userData"))
}

func TestRedisKeyPrefix(t *testing.T) {
	s := NewStore(nil, "device-1")
	assert.Equal(t, "carepoint:device-1:otpResponse", s.key("otpResponse"))
	assert.Equal(t, "carepoint:otpResponse", NewStore(nil, "").key("otpResponse"))
}
