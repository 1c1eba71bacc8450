package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bbolt", cfg.Store.Driver)
	assert.Equal(t, "/doctors", cfg.Backend.DoctorsPath)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr())
	assert.False(t, cfg.Store.RepairOnRead)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAREPOINT_STORE", "sqlite")
	t.Setenv("CAREPOINT_STORE_DSN", ":memory:")
	t.Setenv("CAREPOINT_PORT", "9000")
	t.Setenv("CAREPOINT_API_TIMEOUT", "2s")
	t.Setenv("CAREPOINT_REPAIR_ON_READ", "true")
	t.Setenv("CAREPOINT_IMAGE_BASE_URL", "https://X/")
	t.Setenv("CAREPOINT_ACTIVITY_WEBHOOK_URL", "https://hooks.example.com/carepoint")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Store.RepairOnRead)
	assert.Equal(t, "https://X/", cfg.Profile.ImageBaseURL)
	assert.Equal(t, "https://hooks.example.com/carepoint", cfg.Server.ActivityWebhookURL)
	assert.Empty(t, cfg.Server.ActivityWebhookAuth)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAREPOINT_PORT", "eighty")
	_, err := Load()
	assert.ErrorContains(t, err, "CAREPOINT_PORT")
}
