package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned for configurations that cannot run
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix prefixes environment overrides, e.g. TONMEV_ANALYSIS_BLOCK_GAP
const EnvPrefix = "TONMEV"

// Config holds all configuration for ton-mev
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tonapi   TonapiConfig   `mapstructure:"tonapi"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Opcodes  OpcodesConfig  `mapstructure:"opcodes"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// LoggingConfig selects the zap level and encoder
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TonapiConfig contains the indexer client configuration
type TonapiConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
}

// FetchConfig controls paging through the router history
type FetchConfig struct {
	Account  string        `mapstructure:"account"`
	Limit    int           `mapstructure:"limit"`
	Pages    int           `mapstructure:"pages"`
	BeforeLT uint64        `mapstructure:"before_lt"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	Output   string        `mapstructure:"output"`
}

// PoolConfig describes the USDT/pTON pool swaps are reconstructed for
type PoolConfig struct {
	USDTWallet      string `mapstructure:"usdt_wallet"`
	PTONWallet      string `mapstructure:"pton_wallet"`
	USDTDecimals    int32  `mapstructure:"usdt_decimals"`
	TONDecimals     int32  `mapstructure:"ton_decimals"`
	RequireMatch    bool   `mapstructure:"require_match"`
	SuccessExitCode uint64 `mapstructure:"success_exit_code"`
}

// OpcodesConfig holds the four router opcodes in 0x form
type OpcodesConfig struct {
	Notify   string `mapstructure:"notify"`
	Swap     string `mapstructure:"swap"`
	Pay      string `mapstructure:"pay"`
	Transfer string `mapstructure:"transfer"`
}

// AnalysisConfig contains indicator engine and output configuration
type AnalysisConfig struct {
	Input          string       `mapstructure:"input"`
	Output         string       `mapstructure:"output"`
	Format         string       `mapstructure:"format"`
	RecordsOut     string       `mapstructure:"records_out"`
	CrossBlock     bool         `mapstructure:"cross_block"`
	BlockGap       int          `mapstructure:"block_gap"`
	BlockSource    string       `mapstructure:"block_source"`
	MinRateImpact  float64      `mapstructure:"min_rate_impact"`
	BaselineWindow int          `mapstructure:"baseline_window"`
	RateScale      float64      `mapstructure:"rate_scale"`
	Sanity         SanityConfig `mapstructure:"sanity"`
	TopHits        int          `mapstructure:"top_hits"`
}

// SanityConfig bounds the scaled rate per direction
type SanityConfig struct {
	TONToUSDT BoundsConfig `mapstructure:"ton_to_usdt"`
	USDTToTON BoundsConfig `mapstructure:"usdt_to_ton"`
}

// BoundsConfig is an inclusive range; 0/0 disables it
type BoundsConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// APIKey guards the reload endpoint; empty leaves it open
	APIKey            string `mapstructure:"api_key"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	BurstSize         int    `mapstructure:"burst_size"`
}

// MetricsConfig contains batch metrics output
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// StorageConfig contains the optional postgres sink
type StorageConfig struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// Load reads configuration from v: defaults, then the config file if one
// was set or found, then TONMEV_ environment variables, then bound flags.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks the settings every command relies on
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		add("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Pool.TONDecimals < 0 || c.Pool.TONDecimals > 18 {
		add("pool.ton_decimals must be within [0,18], got %d", c.Pool.TONDecimals)
	}
	if c.Pool.USDTDecimals < 0 || c.Pool.USDTDecimals > 18 {
		add("pool.usdt_decimals must be within [0,18], got %d", c.Pool.USDTDecimals)
	}

	a := c.Analysis
	if a.BlockGap < 0 {
		add("analysis.block_gap must be >= 0, got %d", a.BlockGap)
	}
	switch a.BlockSource {
	case "inline", "tonapi", "none":
	default:
		add("analysis.block_source must be inline, tonapi or none, got %q", a.BlockSource)
	}
	if a.CrossBlock && a.BlockSource == "none" {
		add("analysis.cross_block needs a block source other than none")
	}
	if a.MinRateImpact < 0 {
		add("analysis.min_rate_impact must be >= 0, got %v", a.MinRateImpact)
	}
	if a.BaselineWindow < 0 {
		add("analysis.baseline_window must be >= 0, got %d", a.BaselineWindow)
	}
	if a.RateScale <= 0 {
		add("analysis.rate_scale must be > 0, got %v", a.RateScale)
	}
	if a.TopHits < 0 {
		add("analysis.top_hits must be >= 0, got %d", a.TopHits)
	}
	switch a.Format {
	case "text", "json":
	default:
		add("analysis.format must be text or json, got %q", a.Format)
	}
	for name, b := range map[string]BoundsConfig{
		"ton_to_usdt": a.Sanity.TONToUSDT,
		"usdt_to_ton": a.Sanity.USDTToTON,
	} {
		if b.Min < 0 || b.Max < 0 {
			add("analysis.sanity.%s bounds must be >= 0", name)
		}
		if b.Max > 0 && b.Min > b.Max {
			add("analysis.sanity.%s.min exceeds max", name)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateFetch checks the fetch settings
func (c *Config) ValidateFetch() error {
	var problems []string
	if c.Fetch.Account == "" {
		problems = append(problems, "fetch.account is required")
	}
	if c.Fetch.Limit < 1 || c.Fetch.Limit > 1000 {
		problems = append(problems, fmt.Sprintf("fetch.limit must be within [1,1000], got %d", c.Fetch.Limit))
	}
	if c.Fetch.Pages < 0 {
		problems = append(problems, fmt.Sprintf("fetch.pages must be >= 0, got %d", c.Fetch.Pages))
	}
	if c.Fetch.Output == "" {
		problems = append(problems, "fetch.output is required")
	}
	if c.Tonapi.BaseURL == "" {
		problems = append(problems, "tonapi.base_url is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateInput checks that the analysis input names an existing file
func (c *Config) ValidateInput() error {
	if c.Analysis.Input == "" {
		return fmt.Errorf("%w: analysis.input is required", ErrInvalidConfig)
	}
	info, err := os.Stat(c.Analysis.Input)
	if err != nil {
		return fmt.Errorf("%w: analysis.input: %v", ErrInvalidConfig, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: analysis.input %s is a directory", ErrInvalidConfig, c.Analysis.Input)
	}
	return nil
}

// WideGap reports whether cross-block scans may pair swaps two or more blocks apart
func (c *Config) WideGap() bool {
	return c.Analysis.CrossBlock && c.Analysis.BlockGap >= 2
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("tonapi.base_url", "https://tonapi.io")
	v.SetDefault("tonapi.api_key", "")
	v.SetDefault("tonapi.timeout", "30s")
	v.SetDefault("tonapi.max_retries", 3)
	v.SetDefault("tonapi.retry_delay", "1s")
	v.SetDefault("tonapi.max_delay", "10s")
	v.SetDefault("tonapi.request_interval", "50ms")

	v.SetDefault("fetch.account", "EQCS4UEa5UaJLzOyyKieqQOQ2P9M-7kXpkO5HnP3Bv250cN3") // STON.fi router v2
	v.SetDefault("fetch.limit", 50)
	v.SetDefault("fetch.pages", 20)
	v.SetDefault("fetch.before_lt", 0)
	v.SetDefault("fetch.max_age", "0s")
	v.SetDefault("fetch.output", "data/stonfi_raw.ndjson")

	v.SetDefault("pool.usdt_wallet", "0:922d627d7d8edbd00e4e23bdb0c54a76ee5e1f46573a1af4417857fa3e23e91f")
	v.SetDefault("pool.pton_wallet", "0:9220c181a6cfeacd11b7b8f62138df1bb9cc82b6ed2661d2f5faee204b3efb20")
	v.SetDefault("pool.usdt_decimals", 6)
	v.SetDefault("pool.ton_decimals", 9)
	v.SetDefault("pool.require_match", false)
	v.SetDefault("pool.success_exit_code", uint64(3326308581)) // swap_ok

	v.SetDefault("opcodes.notify", "0x7362d09c")
	v.SetDefault("opcodes.swap", "0x6664de2a")
	v.SetDefault("opcodes.pay", "0x657b54f5")
	v.SetDefault("opcodes.transfer", "0x0f8a7ea5")

	v.SetDefault("analysis.input", "")
	v.SetDefault("analysis.output", "")
	v.SetDefault("analysis.format", "text")
	v.SetDefault("analysis.records_out", "")
	v.SetDefault("analysis.cross_block", false)
	v.SetDefault("analysis.block_gap", 1)
	v.SetDefault("analysis.block_source", "inline")
	v.SetDefault("analysis.min_rate_impact", 0.0)
	v.SetDefault("analysis.baseline_window", 10)
	v.SetDefault("analysis.rate_scale", 1000.0)
	v.SetDefault("analysis.sanity.ton_to_usdt.min", 0.0)
	v.SetDefault("analysis.sanity.ton_to_usdt.max", 0.0)
	v.SetDefault("analysis.sanity.usdt_to_ton.min", 0.0)
	v.SetDefault("analysis.sanity.usdt_to_ton.max", 0.0)
	v.SetDefault("analysis.top_hits", 5)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.requests_per_minute", 100)
	v.SetDefault("server.burst_size", 20)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("storage.postgres_dsn", "")
}
