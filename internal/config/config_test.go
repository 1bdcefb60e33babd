package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, "America/Los_Angeles", cfg.App.Timezone)
	assert.True(t, cfg.RateLimit.Enabled)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", loc.String())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("ADMIN_KEYS", "alpha, ,beta")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, 5432, cfg.Store.DefaultPort())
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Admin.ValidKeys())
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("STORE_TYPE", "oracle")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}
