package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "https://tonapi.io", cfg.Tonapi.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Tonapi.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Tonapi.RequestInterval)
	assert.Equal(t, "EQCS4UEa5UaJLzOyyKieqQOQ2P9M-7kXpkO5HnP3Bv250cN3", cfg.Fetch.Account)
	assert.Equal(t, 50, cfg.Fetch.Limit)
	assert.Equal(t, int32(9), cfg.Pool.TONDecimals)
	assert.Equal(t, int32(6), cfg.Pool.USDTDecimals)
	assert.Equal(t, uint64(3326308581), cfg.Pool.SuccessExitCode)
	assert.False(t, cfg.Pool.RequireMatch)
	assert.Equal(t, "0x7362d09c", cfg.Opcodes.Notify)
	assert.False(t, cfg.Analysis.CrossBlock)
	assert.Equal(t, 1, cfg.Analysis.BlockGap)
	assert.Equal(t, "inline", cfg.Analysis.BlockSource)
	assert.Equal(t, 10, cfg.Analysis.BaselineWindow)
	assert.Equal(t, 1000.0, cfg.Analysis.RateScale)
	assert.Equal(t, 5, cfg.Analysis.TopHits)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  cross_block: true
  block_gap: 2
  min_rate_impact: 0.001
  sanity:
    ton_to_usdt:
      min: 1000
      max: 10000
pool:
  require_match: true
`), 0o644))

	t.Setenv("TONMEV_ANALYSIS_BLOCK_GAP", "1")
	t.Setenv("TONMEV_TONAPI_API_KEY", "secret")

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.True(t, cfg.Analysis.CrossBlock)
	assert.Equal(t, 1, cfg.Analysis.BlockGap, "env overrides the file")
	assert.Equal(t, 0.001, cfg.Analysis.MinRateImpact)
	assert.Equal(t, 1000.0, cfg.Analysis.Sanity.TONToUSDT.Min)
	assert.Equal(t, 10000.0, cfg.Analysis.Sanity.TONToUSDT.Max)
	assert.True(t, cfg.Pool.RequireMatch)
	assert.Equal(t, "secret", cfg.Tonapi.APIKey)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "negative gap", mutate: func(c *Config) { c.Analysis.BlockGap = -1 }, want: "block_gap"},
		{name: "cross block without blocks", mutate: func(c *Config) {
			c.Analysis.CrossBlock = true
			c.Analysis.BlockSource = "none"
		}, want: "cross_block"},
		{name: "unknown block source", mutate: func(c *Config) { c.Analysis.BlockSource = "toncenter" }, want: "block_source"},
		{name: "negative impact", mutate: func(c *Config) { c.Analysis.MinRateImpact = -0.1 }, want: "min_rate_impact"},
		{name: "zero scale", mutate: func(c *Config) { c.Analysis.RateScale = 0 }, want: "rate_scale"},
		{name: "bad decimals", mutate: func(c *Config) { c.Pool.TONDecimals = 40 }, want: "ton_decimals"},
		{name: "unknown format", mutate: func(c *Config) { c.Analysis.Format = "csv" }, want: "format"},
		{name: "inverted sanity", mutate: func(c *Config) {
			c.Analysis.Sanity.USDTToTON = BoundsConfig{Min: 5000, Max: 1000}
		}, want: "usdt_to_ton.min exceeds max"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, want: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CrossBlockAllowed(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Analysis.CrossBlock = true
	cfg.Analysis.BlockGap = 3
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.WideGap())

	cfg.Analysis.BlockGap = 1
	assert.False(t, cfg.WideGap())
}

func TestValidateInput(t *testing.T) {
	cfg := loadDefaults(t)
	assert.True(t, errors.Is(cfg.ValidateInput(), ErrInvalidConfig))

	dir := t.TempDir()
	cfg.Analysis.Input = filepath.Join(dir, "missing.ndjson")
	assert.True(t, errors.Is(cfg.ValidateInput(), ErrInvalidConfig))

	cfg.Analysis.Input = dir
	assert.Error(t, cfg.ValidateInput())

	cfg.Analysis.Input = filepath.Join(dir, "raw.ndjson")
	require.NoError(t, os.WriteFile(cfg.Analysis.Input, []byte("\n"), 0o644))
	assert.NoError(t, cfg.ValidateInput())
}

func TestValidateFetch(t *testing.T) {
	cfg := loadDefaults(t)
	assert.NoError(t, cfg.ValidateFetch())

	cfg.Fetch.Limit = 0
	cfg.Fetch.Account = ""
	err := cfg.ValidateFetch()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "fetch.account")
	assert.Contains(t, err.Error(), "fetch.limit")
}
