package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "abc")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BOOL_BAD", "maybe")
	t.Setenv("TEST_DUR", "90s")
	t.Setenv("TEST_FLOAT", "2.5")

	n, err := envInt("TEST_INT", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = envInt("TEST_INT_MISSING", 99)
	require.NoError(t, err)
	assert.Equal(t, 99, n)

	_, err = envInt("TEST_INT_BAD", 0)
	require.Error(t, err)
	assert.Equal(t, `TEST_INT_BAD="abc" is not a valid integer`, err.Error())

	b, err := envBool("TEST_BOOL", false)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = envBool("TEST_BOOL_BAD", false)
	require.Error(t, err)
	assert.Equal(t, `TEST_BOOL_BAD="maybe" is not a valid boolean`, err.Error())

	d, err := envDuration("TEST_DUR", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	f, err := envFloat("TEST_FLOAT", 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, f, 1e-9)

	assert.Equal(t, "fallback", envStr("TEST_STR_MISSING", "fallback"))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 125, cfg.RepresentativesBatch)
	assert.Equal(t, DefaultRepresentativesByAddressURL, cfg.RepresentativesByAddressURL)
	assert.Equal(t, 10*time.Minute, cfg.BatchLease)
	assert.False(t, cfg.RequireAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEVOTE_PORT", "9090")
	t.Setenv("WEVOTE_REQUIRE_API_KEY", "true")
	t.Setenv("WEVOTE_CIVIC_RPS", "0.5")
	t.Setenv("WEVOTE_SCAN_TIMEOUT", "5s")
	t.Setenv("WE_VOTE_ID_PREFIX", "cali")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.RequireAPIKey)
	assert.InDelta(t, 0.5, cfg.CivicRPS, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout)
	assert.Equal(t, "cali", cfg.WeVoteIDPrefix)
}

func TestLoadReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("WEVOTE_PORT", "eighty")
	t.Setenv("WEVOTE_BATCH_LEASE", "forever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEVOTE_PORT")
	assert.Contains(t, err.Error(), "WEVOTE_BATCH_LEASE")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"bad prefix", func(c *Config) { c.WeVoteIDPrefix = "has space" }, "WE_VOTE_ID_PREFIX"},
		{"half a key pair", func(c *Config) { c.JWTPrivateKeyPath = "/tmp/priv.pem" }, "must be set together"},
		{"batch without civic key", func(c *Config) { c.BatchEnabled = true }, "GOOGLE_CIVIC_API_KEY"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "WEVOTE_LOG_LEVEL"},
		{"zero rate", func(c *Config) { c.RateLimitRPS = 0 }, "WEVOTE_RATE_LIMIT_RPS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
