package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Market   MarketConfig   `mapstructure:"market"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type MarketConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	WSURL     string        `mapstructure:"ws_url"` // optional; empty disables the ticker feed
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TradingConfig holds every tunable the trade cycle consumes.
type TradingConfig struct {
	CycleInterval  time.Duration `mapstructure:"cycle_interval"`  // target spacing between cycle starts
	MinCycleSleep  time.Duration `mapstructure:"min_cycle_sleep"` // floor for interval-minus-elapsed
	Strategy       string        `mapstructure:"strategy"`        // "threshold" or "band"
	LookbackWindow string        `mapstructure:"lookback_window"` // "1h", "12h", "1d", "1w"
	MinDataPoints  int           `mapstructure:"min_data_points"` // snapshots required before trading

	Sensitivity       float64 `mapstructure:"sensitivity"`     // stddev multiplier applied to the mean
	FallbackSpread    int64   `mapstructure:"fallback_spread"` // fixed spread when stddev is flat
	MinBalanceReserve int64   `mapstructure:"min_balance_reserve"`
	MinUnitsReserve   int64   `mapstructure:"min_units_reserve"`
	TradeFraction     float64 `mapstructure:"trade_fraction"`

	MaxCallsPerMinute int           `mapstructure:"max_calls_per_minute"`
	ThrottleMargin    int           `mapstructure:"throttle_margin"`
	ThrottleDelay     time.Duration `mapstructure:"throttle_delay"`
	MaxChunkSize      int64         `mapstructure:"max_chunk_size"`
	ChunkDelay        time.Duration `mapstructure:"chunk_delay"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`

	SnapshotRetention time.Duration `mapstructure:"snapshot_retention"` // 0 keeps everything

	// Static bands for the band strategy. Buy bands ascending by price,
	// sell bands descending.
	BuyBands  []BandConfig `mapstructure:"buy_bands"`
	SellBands []BandConfig `mapstructure:"sell_bands"`
}

// BandConfig is one static price band for the band strategy.
type BandConfig struct {
	Price    int64   `mapstructure:"price"`
	Fraction float64 `mapstructure:"fraction"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // listen address for /metrics; empty disables
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	setDefaults(v)

	// Support environment variables with dot notation (e.g., MARKET_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("market.timeout", "10s")

	v.SetDefault("trading.cycle_interval", "60s")
	v.SetDefault("trading.min_cycle_sleep", "5s")
	v.SetDefault("trading.strategy", "threshold")
	v.SetDefault("trading.lookback_window", "12h")
	v.SetDefault("trading.min_data_points", 10)
	v.SetDefault("trading.sensitivity", 1.5)
	v.SetDefault("trading.fallback_spread", 2)
	v.SetDefault("trading.min_balance_reserve", 0)
	v.SetDefault("trading.min_units_reserve", 0)
	v.SetDefault("trading.trade_fraction", 0.25)
	v.SetDefault("trading.max_calls_per_minute", 60)
	v.SetDefault("trading.throttle_margin", 5)
	v.SetDefault("trading.throttle_delay", "2s")
	v.SetDefault("trading.max_chunk_size", 200)
	v.SetDefault("trading.chunk_delay", "500ms")
	v.SetDefault("trading.initial_backoff", "1s")
	v.SetDefault("trading.max_backoff", "60s")
}
