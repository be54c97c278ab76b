package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/yamdb")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 72*time.Hour, cfg.ConfirmationCodeTTL)
	assert.Equal(t, "file", cfg.MailBackend)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/yamdb")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SMTPRequiresHost(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/yamdb")
	t.Setenv("MAIL_BACKEND", "smtp")
	t.Setenv("SMTP_HOST", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "notanint")
	t.Setenv("TEST_DURATION", "5s")
	t.Setenv("TEST_LIST", " a, b ,,c ")

	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.Equal(t, 5*time.Second, getEnvAsDuration("TEST_DURATION", "1m"))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("TEST_LIST", ""))
}
