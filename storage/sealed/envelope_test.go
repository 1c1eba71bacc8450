package sealed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/carepoint/internal/util"
)

func TestEnvelope(t *testing.T) {
	key, err := util.NewKey()
	require.NoError(t, err)
	plain := []byte(`{"token":"secret"}`)
	aad := []byte("carepoint:kv:loginResponse")

	env, err := Seal(key, plain, aad)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Ver)
	assert.Len(t, env.Nonce, 12)

	got, err := Open(key, env, aad)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	t.Run("WrongAAD", func(t *testing.T) {
		_, err := Open(key, env, []byte("carepoint:kv:userData"))
		assert.Error(t, err)
	})

	t.Run("WrongKey", func(t *testing.T) {
		wrong, _ := util.NewKey()
		_, err := Open(wrong, env, aad)
		assert.Error(t, err)
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		bad := *env
		bad.Ver = 99
		_, err := Open(key, &bad, aad)
		assert.Error(t, err)
	})

	t.Run("UnsupportedScheme", func(t *testing.T) {
		bad := *env
		bad.Scheme = "unknown"
		_, err := Open(key, &bad, aad)
		assert.Error(t, err)
	})
}
