package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DB_USER", "inventory")
	t.Setenv("DB_NAME", "inventory")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET_KEY", "jwt-secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("BODY_LIMIT_BYTES", "")
	t.Setenv("BODY_LIMIT_MB", "")
	t.Setenv("DEFAULT_CURRENCY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 4*1024*1024, cfg.BodyLimitBytes)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, []byte("jwt-secret"), cfg.JWTSecret)
	assert.Contains(t, cfg.DSN(), "dbname=inventory")
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("BODY_LIMIT_BYTES", "1024")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "5")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "fallback")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 3306, cfg.DBPort)
	assert.Equal(t, 1024, cfg.BodyLimitBytes)
	assert.Equal(t, 5*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, []byte("fallback"), cfg.JWTSecret)
	assert.Contains(t, cfg.DSN(), "@tcp(")
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}
