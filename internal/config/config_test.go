package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_SESSION_SECRET", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DevSessionSecret, cfg.Auth.SessionSecret)
	assert.Equal(t, 7, cfg.Auth.SessionTTLDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, "development", cfg.App.Env)
	assert.False(t, cfg.App.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_SESSION_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	t.Setenv("AUTH_SESSION_SECRET", "strong-production-secret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestSessionTTLFallsBackToSevenDays(t *testing.T) {
	cfg := AuthConfig{SessionTTLDays: -1}
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL())
}
