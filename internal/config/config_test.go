package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "RespectCircle", cfg.AppName)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 50, cfg.FeedPageSize)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 30, cfg.RateLimitBurst)
	assert.True(t, cfg.RolloverEnabled)
	assert.False(t, cfg.DemoEnabled)
	assert.False(t, cfg.StorageEnabled())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("DEMO_ENABLED", "true")
	t.Setenv("DEMO_RESET_TIMEOUT", "5s")
	t.Setenv("FEED_PAGE_SIZE", "-3")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ROLLOVER_ENABLED", "nope")
	t.Setenv("ROLLOVER_TIMEZONE", "Europe/Berlin")
	t.Setenv("S3_BUCKET", "exports")

	cfg := Load()

	assert.True(t, cfg.DemoEnabled)
	assert.Equal(t, 5*time.Second, cfg.DemoResetTimeout)
	assert.Equal(t, 50, cfg.FeedPageSize)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.True(t, cfg.RolloverEnabled)
	assert.True(t, cfg.StorageEnabled())

	loc := cfg.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestTrustedProxies(t *testing.T) {
	setRequired(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7, not-an-ip, ::ffff:198.51.100.1")

	cfg := Load()

	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.7/32"),
		netip.MustParsePrefix("198.51.100.1/32"),
	}, cfg.TrustedProxies)
}

func TestSanitizedDropsSecrets(t *testing.T) {
	cfg := &Config{
		AppName:            "RespectCircle",
		JWTSecret:          "secret",
		ResendAPIKey:       "re_123",
		GoogleClientSecret: "gsecret",
		S3SecretKey:        "s3secret",
		MetricsPass:        "pass",
		DBConnection:       "postgres://user:pw@host/db",
		DemoEnabled:        true,
	}

	safe := cfg.Sanitized()

	assert.Equal(t, "RespectCircle", safe.AppName)
	assert.True(t, safe.DemoEnabled)
	assert.Empty(t, safe.JWTSecret)
	assert.Empty(t, safe.ResendAPIKey)
	assert.Empty(t, safe.GoogleClientSecret)
	assert.Empty(t, safe.S3SecretKey)
	assert.Empty(t, safe.MetricsPass)
	assert.Empty(t, safe.DBConnection)
}
