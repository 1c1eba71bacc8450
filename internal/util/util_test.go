package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenGCM(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	aad := []byte("carepoint:kv:loginResponse")
	plaintext := []byte(`{"token":"tok"}`)

	nonce, ct, err := SealGCM(key, plaintext, aad)
	require.NoError(t, err)
	assert.Len(t, nonce, 12)
	assert.NotEqual(t, plaintext, ct)

	got, err := OpenGCM(key, nonce, ct, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	t.Run("wrong aad", func(t *testing.T) {
		_, err := OpenGCM(key, nonce, ct, []byte("carepoint:kv:userData"))
		assert.Error(t, err)
	})
	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte(nil), ct...)
		bad[0] ^= 0xff
		_, err := OpenGCM(key, nonce, bad, aad)
		assert.Error(t, err)
	})
	t.Run("short key", func(t *testing.T) {
		_, _, err := SealGCM([]byte("too short"), plaintext, aad)
		assert.ErrorContains(t, err, "invalid key size")
	})
	t.Run("bad nonce", func(t *testing.T) {
		_, err := OpenGCM(key, nonce[:4], ct, aad)
		assert.Error(t, err)
	})
}

func TestArgon2id(t *testing.T) {
	params := Argon2idParams{Time: 1, MemoryKiB: 1024, Parallelism: 1, KeyLen: 32}
	salt := []byte("0123456789abcdef")

	key1, err := DeriveArgon2idKey("correct horse battery staple", salt, params)
	require.NoError(t, err)
	assert.Len(t, key1, KeySize)

	key2, _ := DeriveArgon2idKey("correct horse battery staple", salt, params)
	assert.Equal(t, key1, key2)

	key3, _ := DeriveArgon2idKey("wrong passphrase", salt, params)
	assert.NotEqual(t, key1, key3)

	bad := params
	bad.KeyLen = 16
	_, err = DeriveArgon2idKey("p", salt, bad)
	assert.Error(t, err)

	bad = params
	bad.Time = 0
	_, err = DeriveArgon2idKey("p", salt, bad)
	assert.Error(t, err)
}

func TestDefaultArgon2idParams(t *testing.T) {
	p := DefaultArgon2idParams()
	assert.GreaterOrEqual(t, p.Time, uint32(3))
	assert.GreaterOrEqual(t, p.MemoryKiB, uint32(64*1024))
	assert.Equal(t, uint32(KeySize), p.KeyLen)
}

func TestDeriveSubkey(t *testing.T) {
	master := []byte("0123456789abcdef0123456789abcdef")

	k1, err := DeriveSubkey(master, "carepoint:kv:v1")
	require.NoError(t, err)
	assert.Len(t, k1, KeySize)

	k2, _ := DeriveSubkey(master, "carepoint:kv:v1")
	assert.Equal(t, k1, k2)

	k3, _ := DeriveSubkey(master, "carepoint:other")
	assert.NotEqual(t, k1, k3)
}

func TestNormalizePassphrase(t *testing.T) {
	assert.Equal(t, NormalizePassphrase("café"), NormalizePassphrase("café"))
}

func TestRandomAndWipe(t *testing.T) {
	b1, err := RandomBytes(32)
	require.NoError(t, err)
	b2, _ := RandomBytes(32)
	assert.Len(t, b1, 32)
	assert.NotEqual(t, b1, b2)

	WipeBytes(b1)
	assert.Equal(t, make([]byte, 32), b1)
}
