package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("LOCALEVENTS_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("LOCALEVENTS_MODERATION_REPORT_THRESHOLD", "7")
	t.Setenv("LOCALEVENTS_GEOCODE_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 7, cfg.Moderation.ReportThreshold)
	assert.Equal(t, 2*time.Second, cfg.Geocode.Timeout)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "events@app.com", cfg.Mail.From)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("LOCALEVENTS_AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestValidate_RejectsNonPositiveThreshold(t *testing.T) {
	cfg := Config{
		Auth:       AuthConfig{JWTSecret: "x", TokenTTL: time.Hour, ResetTokenTTL: time.Hour},
		Moderation: ModerationConfig{ReportThreshold: 0},
		Geocode:    GeocodeConfig{Timeout: time.Second},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report_threshold")
}
