package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 168*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, int64(100), cfg.RateLimitLimit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitPeriod)
	assert.Equal(t, "1500", cfg.CommissionAmount.String())
	assert.Equal(t, "ARS", cfg.CommissionCurrency)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ProductionRequiresOrigins(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CORS_ALLOWED_ORIGINS")
}

func TestLoad_ParsesOriginsAndCommission(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example,")
	t.Setenv("COMMISSION_AMOUNT", "2500.50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "2500.5", cfg.CommissionAmount.String())
}

func TestLoad_RejectsNegativeCommission(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("COMMISSION_AMOUNT", "-1")

	_, err := Load()
	assert.Error(t, err)
}
