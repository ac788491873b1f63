package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradelog/backtest"
	"github.com/rustyeddy/tradelog/indicators"
	"github.com/rustyeddy/tradelog/market"
	"github.com/rustyeddy/tradelog/strategies"
)

// EnvPrefix prefixes environment overrides, e.g. TRADELOG_SERVER_ADDR.
const EnvPrefix = "TRADELOG"

// Config represents the complete tradelog configuration
type Config struct {
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Data     DataConfig     `json:"data" yaml:"data" mapstructure:"data"`
	Yahoo    YahooConfig    `json:"yahoo" yaml:"yahoo" mapstructure:"yahoo"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest" mapstructure:"backtest"`
	Scan     ScanConfig     `json:"scan" yaml:"scan" mapstructure:"scan"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // "json" or "console"
}

// DataConfig lists the candle sources, tried in order until one returns data.
type DataConfig struct {
	Sources    []string `json:"sources" yaml:"sources" mapstructure:"sources"` // yahoo, csv, sqlite
	CSVPath    string   `json:"csv_path,omitempty" yaml:"csv_path,omitempty" mapstructure:"csv_path"`
	SQLitePath string   `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	SignalsCSV string   `json:"signals_csv,omitempty" yaml:"signals_csv,omitempty" mapstructure:"signals_csv"`
}

// YahooConfig tunes the Yahoo Finance client.
type YahooConfig struct {
	ChartURL   string        `json:"chart_url" yaml:"chart_url" mapstructure:"chart_url"`
	SearchURL  string        `json:"search_url" yaml:"search_url" mapstructure:"search_url"`
	RateLimit  float64       `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	Burst      int           `json:"burst" yaml:"burst" mapstructure:"burst"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	Backoff    time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
}

// BacktestConfig holds the run defaults the CLI flags and API params override.
type BacktestConfig struct {
	Symbol      string                 `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Interval    string                 `json:"interval" yaml:"interval" mapstructure:"interval"`
	Strategy    string                 `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Params      strategies.Params      `json:"params" yaml:"params" mapstructure:"params"`
	Policy      string                 `json:"policy" yaml:"policy" mapstructure:"policy"`
	Aggregation string                 `json:"aggregation" yaml:"aggregation" mapstructure:"aggregation"`
	Overlays    indicators.OverlaySpec `json:"overlays" yaml:"overlays" mapstructure:"overlays"`
	ExportDir   string                 `json:"export_dir,omitempty" yaml:"export_dir,omitempty" mapstructure:"export_dir"`
}

// ScanConfig contains the symbols `tradelog scan` walks.
type ScanConfig struct {
	Symbols     []string `json:"symbols" yaml:"symbols" mapstructure:"symbols"`
	Concurrency int      `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig contains HTTP API parameters
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Data: DataConfig{
			Sources: []string{"yahoo"},
		},
		Yahoo: YahooConfig{
			ChartURL:   "https://query1.finance.yahoo.com",
			SearchURL:  "https://query2.finance.yahoo.com",
			RateLimit:  2,
			Burst:      1,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			Backoff:    time.Second,
		},
		Backtest: BacktestConfig{
			Symbol:      "AAPL",
			Interval:    "1d",
			Strategy:    "ema-cross",
			Params:      strategies.DefaultParams(),
			Policy:      string(backtest.PolicyGreedyNearestSell),
			Aggregation: string(backtest.AggregateSum),
			Overlays:    indicators.DefaultOverlaySpec(),
		},
		Scan: ScanConfig{
			Symbols:     []string{"AAPL", "MSFT", "GOOGL"},
			Concurrency: 2,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
	}
}

// Load reads configuration from path, if given, on top of the defaults.
// TRADELOG_* environment variables override both, with dots in key names
// replaced by underscores.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key of def so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, def *Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", m)

	// Optional keys left out of the marshalled defaults.
	for _, key := range []string{"data.csv_path", "data.sqlite_path", "data.signals_csv", "backtest.export_dir"} {
		v.SetDefault(key, "")
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}

	if len(c.Data.Sources) == 0 {
		return errors.New("data.sources needs at least one source")
	}
	for _, s := range c.Data.Sources {
		switch s {
		case "yahoo":
		case "csv":
			if c.Data.CSVPath == "" {
				return errors.New("data.csv_path required for the csv source")
			}
		case "sqlite":
			if c.Data.SQLitePath == "" {
				return errors.New("data.sqlite_path required for the sqlite source")
			}
		default:
			return fmt.Errorf("unknown data source %q (supported: yahoo, csv, sqlite)", s)
		}
	}

	if c.Yahoo.RateLimit <= 0 {
		return errors.New("yahoo.rate_limit must be positive")
	}
	if c.Yahoo.MaxRetries < 1 {
		return errors.New("yahoo.max_retries must be at least 1")
	}

	b := c.Backtest
	if err := market.ValidateInterval(b.Interval); err != nil {
		return fmt.Errorf("backtest.interval: %w", err)
	}
	if _, ok := strategies.Resolve(b.Strategy); !ok && c.Data.SignalsCSV == "" {
		return fmt.Errorf("unknown strategy %q", b.Strategy)
	}
	if b.Params.ShortLength < 1 || b.Params.LongLength < 1 {
		return errors.New("backtest.params ema lengths must be positive")
	}
	if _, err := backtest.MatcherFor(backtest.MatchPolicy(b.Policy)); err != nil {
		return fmt.Errorf("backtest.policy: %w", err)
	}
	if _, err := backtest.ParseAggregationMode(b.Aggregation); err != nil {
		return fmt.Errorf("backtest.aggregation: %w", err)
	}
	o := b.Overlays
	if o.FastEMA < 0 || o.SlowEMA < 0 || o.RSIPeriod < 0 || o.SupertrendPeriod < 0 {
		return errors.New("backtest.overlays lengths must not be negative")
	}
	if o.SupertrendPeriod > 0 && !(o.SupertrendMultiplier > 0) {
		return errors.New("backtest.overlays.supertrend_multiplier must be positive")
	}

	if c.Scan.Concurrency < 1 {
		return errors.New("scan.concurrency must be at least 1")
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}
