package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("AUTH_ADMIN_AUTO_APPROVE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.False(t, cfg.Auth.AdminAutoApprove)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("AUTH_LOGIN_WINDOW_SECONDS", "60")
	t.Setenv("AUTH_ADMIN_AUTO_APPROVE", "true")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")
	t.Setenv("APP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, time.Minute, cfg.Auth.LoginWindow())
	assert.True(t, cfg.Auth.AdminAutoApprove)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "9000", cfg.App.Port)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "ftp")
	t.Setenv("AUTH_BCRYPT_COST", "40")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "AUTH_BCRYPT_COST")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestValidateAcceptsS3(t *testing.T) {
	cfg := &Config{
		App:     AppConfig{Env: "production"},
		Auth:    AuthConfig{JWTSecret: "real-secret", BcryptCost: 10},
		Storage: StorageConfig{Backend: "S3"},
	}
	assert.NoError(t, cfg.Validate())
}
