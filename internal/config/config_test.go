package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COOKIE_SAMESITE", "none")

	cfg, err := LoadServer(nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, http.SameSiteNoneMode, cfg.CookieSameSite)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadServer([]string{"-jwt-secret", "from-flag", "-store", "memory"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.JWTSecret)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadServerValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServer(nil)
	assert.Error(t, err)

	_, err = LoadServer([]string{"-jwt-secret", "x", "-store", "redis"})
	assert.Error(t, err)

	_, err = LoadServer([]string{"-jwt-secret", "x", "-cookie-samesite", "sometimes"})
	assert.Error(t, err)
}
