package config

import (
	"strings"
	"testing"
	"time"

	"squadvault/engine"
	"squadvault/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_URL", "DATABASE_NAME", "HTTP_ADDR", "NATS_SERVERS", "MINT_AUTHORITIES",
	"MAX_SQUAD_MEMBERS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RECONCILE_SCHEDULE",
	"TOKEN_MAX_AGE", "LOG_LEVEL", "ENVIRONMENT",
}

// clearEnv blanks every key so values from the host or a .env file do not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432")
	t.Setenv("RECONCILE_SCHEDULE", "@every 5m")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.Equal(t, 5*time.Minute, cfg.TokenMaxAge)
	assert.Equal(t, engine.MaxSquadMembers, cfg.MaxSquadMembers)
	assert.Equal(t, "@every 5m", cfg.ReconcileSchedule)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.MintAuthorities)
	assert.Empty(t, cfg.NATSServers)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	minter := ledger.Identity{0x01, 0x02}
	t.Setenv("DATABASE_URL", "postgres://localhost:5432")
	t.Setenv("DATABASE_NAME", "treasury")
	t.Setenv("MINT_AUTHORITIES", " "+minter.String()+" ,")
	t.Setenv("MAX_SQUAD_MEMBERS", "500")
	t.Setenv("TOKEN_MAX_AGE", "90s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, []ledger.Identity{minter}, cfg.MintAuthorities)
	assert.Equal(t, engine.MaxSquadMembers, cfg.MaxSquadMembers)
	assert.Equal(t, 90*time.Second, cfg.TokenMaxAge)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://localhost:5432/treasury?sslmode=disable", cfg.GetDatabaseURL())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MINT_AUTHORITIES", "not-hex"},
		{"TOKEN_MAX_AGE", "forever"},
		{"RATE_LIMIT_BURST", "-1"},
		{"MAX_SQUAD_MEMBERS", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost:5432")
			t.Setenv(tt.key, tt.value)

			_, err := load()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.key))
		})
	}
}

func TestLoad_RequiresDatabaseOutsideTests(t *testing.T) {
	clearEnv(t)

	_, err := load()
	assert.EqualError(t, err, "DATABASE_URL is required")

	t.Setenv("ENVIRONMENT", "test")
	_, err = load()
	assert.NoError(t, err)
}

func TestSetTestConfig(t *testing.T) {
	defer ResetConfig()

	testCfg := NewTestConfig()
	SetTestConfig(testCfg)
	assert.Same(t, testCfg, Get())
}
