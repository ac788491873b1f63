package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "1d", cfg.Backtest.Interval)
	assert.Equal(t, 20, cfg.Backtest.Params.ShortLength)
	assert.Equal(t, 50, cfg.Backtest.Params.LongLength)
	assert.Equal(t, "sum", cfg.Backtest.Aggregation)
	assert.Equal(t, []string{"yahoo"}, cfg.Data.Sources)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"no sources", func(c *Config) { c.Data.Sources = nil }, "at least one source"},
		{"unknown source", func(c *Config) { c.Data.Sources = []string{"bloomberg"} }, "unknown data source"},
		{"csv without path", func(c *Config) { c.Data.Sources = []string{"csv"} }, "data.csv_path"},
		{"sqlite without path", func(c *Config) { c.Data.Sources = []string{"sqlite", "yahoo"} }, "data.sqlite_path"},
		{"zero rate limit", func(c *Config) { c.Yahoo.RateLimit = 0 }, "yahoo.rate_limit"},
		{"zero retries", func(c *Config) { c.Yahoo.MaxRetries = 0 }, "yahoo.max_retries"},
		{"bad interval", func(c *Config) { c.Backtest.Interval = "3d" }, "invalid interval: 3d"},
		{"unknown strategy", func(c *Config) { c.Backtest.Strategy = "martingale" }, "unknown strategy"},
		{"strategy alias", func(c *Config) { c.Backtest.Strategy = "emacross" }, ""},
		{"noop alias", func(c *Config) { c.Backtest.Strategy = "None" }, ""},
		{"signals csv replaces strategy", func(c *Config) {
			c.Backtest.Strategy = "external"
			c.Data.SignalsCSV = "signals.csv"
		}, ""},
		{"zero ema length", func(c *Config) { c.Backtest.Params.ShortLength = 0 }, "ema lengths"},
		{"bad policy", func(c *Config) { c.Backtest.Policy = "optimal" }, "backtest.policy"},
		{"bad aggregation", func(c *Config) { c.Backtest.Aggregation = "mean" }, "backtest.aggregation"},
		{"negative overlay", func(c *Config) { c.Backtest.Overlays.RSIPeriod = -1 }, "must not be negative"},
		{"zero multiplier", func(c *Config) { c.Backtest.Overlays.SupertrendMultiplier = 0 }, "supertrend_multiplier"},
		{"overlay off", func(c *Config) {
			c.Backtest.Overlays.SupertrendPeriod = 0
			c.Backtest.Overlays.SupertrendMultiplier = 0
		}, ""},
		{"zero concurrency", func(c *Config) { c.Scan.Concurrency = 0 }, "scan.concurrency"},
		{"no addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := Default()
	cfg.Backtest.Symbol = "TCS.NS"
	cfg.Backtest.Params.ShortLength = 9
	cfg.Data.Sources = []string{"sqlite", "yahoo"}
	cfg.Data.SQLitePath = "/data/candles.sqlite"
	cfg.Yahoo.Timeout = 5 * time.Second

	path := filepath.Join(t.TempDir(), "tradelog.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backtest:\n  symbol: MSFT\n  params:\n    ema_short: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", cfg.Backtest.Symbol)
	assert.Equal(t, 5, cfg.Backtest.Params.ShortLength)
	assert.Equal(t, 50, cfg.Backtest.Params.LongLength)
	assert.Equal(t, "1d", cfg.Backtest.Interval)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRADELOG_SERVER_ADDR", ":9090")
	t.Setenv("TRADELOG_BACKTEST_INTERVAL", "1h")
	t.Setenv("TRADELOG_YAHOO_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "1h", cfg.Backtest.Interval)
	assert.Equal(t, 2*time.Second, cfg.Yahoo.Timeout)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backtest:\n  interval: 7m\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
