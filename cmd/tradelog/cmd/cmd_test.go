package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/backtest"
)

// resetFlags puts every flag back to its default so commands can be
// executed more than once in a process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeFixture writes a csv-backed config whose candles cross on the third
// day with EMA lengths 1 and 3. The CSV path is templated on the symbol.
func writeFixture(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()

	csv := "time,open,high,low,close\n" +
		"2024-01-01,10,11,9,10\n" +
		"2024-01-02,10,11,9,10\n" +
		"2024-01-03,12,13,11,12\n" +
		"2024-01-04,8,9,7,8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TEST.csv"), []byte(csv), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ALSO.csv"), []byte(csv), 0o644))

	cfgPath = filepath.Join(dir, "tradelog.yaml")
	yaml := "data:\n  sources: [csv]\n  csv_path: " + filepath.Join(dir, "{symbol}.csv") + "\n" +
		"backtest:\n  symbol: TEST\n  params:\n    ema_short: 1\n    ema_long: 3\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	return cfgPath, dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tradelog version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradelog.yaml")

	out, err := execute(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "AAPL 1d with ema-cross (20/50)")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("backtest:\n  aggregation: mean\n"), 0o644))
	_, err = execute(t, "config", "validate", "--file", bad)
	assert.Error(t, err)
}

func TestBacktestCommand(t *testing.T) {
	cfgPath, dir := writeFixture(t)
	export := filepath.Join(dir, "out")

	out, err := execute(t, "backtest", "--config", cfgPath, "--export", export, "--to", "2024-01-04")
	require.NoError(t, err)
	assert.Contains(t, out, "TEST")
	assert.Contains(t, out, "ema-cross(1,3)")
	assert.Contains(t, out, "12.00")
	assert.Contains(t, out, "Win Rate:      0.00%")
	assert.Contains(t, out, "Range start to 2024-01-04")

	trades, err := filepath.Glob(filepath.Join(export, "TEST_1d_*_trades.csv"))
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestBacktestJSON(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	out, err := execute(t, "backtest", "--config", cfgPath, "--json", "--overlays", "--aggregation", "compound")
	require.NoError(t, err)

	var rep backtest.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	require.Len(t, rep.Trades, 1)
	assert.Equal(t, -4.0, rep.Trades[0].Returns)
	assert.Equal(t, backtest.AggregateCompound, rep.Summary.Mode)
	assert.Nil(t, rep.Overlays)
	assert.NotEmpty(t, rep.Notes)
}

func TestBacktestStrategyAlias(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	out, err := execute(t, "backtest", "--config", cfgPath, "--strategy", "emacross")
	require.NoError(t, err)
	assert.Contains(t, out, "ema-cross(1,3)")
}

func TestBacktestErrors(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	_, err := execute(t, "backtest", "--config", cfgPath, "--from", "01/02/2024")
	assert.ErrorContains(t, err, "invalid date")

	_, err = execute(t, "backtest", "--config", cfgPath, "--strategy", "martingale")
	assert.ErrorContains(t, err, "unknown strategy")

	_, err = execute(t, "backtest", "--config", cfgPath, "--symbol", "NOPE")
	assert.Error(t, err)
}

func TestIndicatorsCommand(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	out, err := execute(t, "indicators", "--config", cfgPath,
		"--fast", "1", "--slow", "3", "--rsi", "2", "--st-period", "2", "--st-mult", "1", "--last", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "TEST 1d, 4 candles")
	assert.Contains(t, out, "2024-01-04 00:00")
	assert.NotContains(t, out, "2024-01-02 00:00")

	_, err = execute(t, "indicators", "--config", cfgPath, "--slow", "50")
	assert.ErrorContains(t, err, "not enough candles")
}

func TestScanCommand(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	out, err := execute(t, "scan", "--config", cfgPath, "--quiet", "--workers", "2", "test", "also", "missing", "TEST")
	require.NoError(t, err)
	assert.Contains(t, out, "Symbols: 3  Failed: 1")
	assert.Contains(t, out, "ALSO")
	assert.Contains(t, out, "MISSING")
}

func TestScanTargets(t *testing.T) {
	cfgPath, _ := writeFixture(t)
	_, err := execute(t, "version", "--config", cfgPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, scanTargets([]string{"a", " b ", "A", ""}))

	scanSymbols = "x,y"
	defer func() { scanSymbols = "" }()
	assert.Equal(t, []string{"X", "Y"}, scanTargets(nil))

	scanSymbols = ""
	assert.Equal(t, cfg.Scan.Symbols, scanTargets(nil))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2024-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC), d)

	d, err = parseDate("", true)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDate("March 1", false)
	assert.Error(t, err)
}
