package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"SECRET_KEY", "DEBUG", "ALLOWED_HOSTS", "DATABASE_URL", "CORS_ORIGINS", "LOG_LEVEL", "ACCESS_TOKEN_LIFETIME", "REFRESH_TOKEN_LIFETIME"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "", cfg.SecretKey)
	assert.False(t, cfg.Debug)
	assert.Equal(t, []string{"*"}, cfg.AllowedHosts)
	assert.Nil(t, cfg.CORSOrigins)
	assert.Equal(t, 6*time.Hour, cfg.AccessTokenLifetime)
	assert.Equal(t, 14*24*time.Hour, cfg.RefreshTokenLifetime)
	assert.Equal(t, "/media/", cfg.MediaURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("DEBUG", "True")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ALLOWED_HOSTS", "api.example.com, .example.org ,")
	t.Setenv("CORS_ORIGINS", "http://localhost:8081,exp://192.168.1.2:8081")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/moodwave")
	t.Setenv("ACCESS_TOKEN_LIFETIME", "30m")

	cfg := FromEnv()

	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"api.example.com", ".example.org"}, cfg.AllowedHosts)
	assert.Equal(t, []string{"http://localhost:8081", "exp://192.168.1.2:8081"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/moodwave", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenLifetime)
}

func TestDebugRequiresTrueLiteral(t *testing.T) {
	t.Setenv("DEBUG", "true")
	assert.False(t, FromEnv().Debug)
}
