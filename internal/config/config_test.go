package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/internal/config"
	"github.com/YaganovValera/ohlcv-bridge/internal/sink"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, _, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "spot", cfg.Binance.Market)
	assert.Equal(t, "BTCUSDT", cfg.Binance.Symbol)
	assert.Equal(t, "1m", cfg.Binance.Interval)
	assert.Equal(t, 20*time.Second, cfg.Binance.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.Binance.PingTimeout)
	assert.Equal(t, 5*time.Second, cfg.Reconnect.Delay)
	assert.Equal(t, 10, cfg.Reconnect.MaxAttempts)
	assert.True(t, cfg.Output.Enabled)
	assert.Equal(t, sink.FormatJSON, cfg.Output.Format)
	assert.Equal(t, "ohlcv_data.json", cfg.Output.Path)
	assert.Equal(t, "127.0.0.1:8888", cfg.HTTP.Addr())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)

	assert.Equal(t, "wss://stream.binance.com:9443/stream?streams=btcusdt@kline_1m", cfg.StreamURL())
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("BRIDGE_BINANCE_MARKET", "futures")
	t.Setenv("BRIDGE_BINANCE_SYMBOL", "ethusdt")
	t.Setenv("BRIDGE_BINANCE_INTERVAL", "5m")
	t.Setenv("BRIDGE_OUTPUT_FORMAT", "CSV")
	t.Setenv("BRIDGE_OUTPUT_ENABLED", "false")
	t.Setenv("BRIDGE_RECONNECT_DELAY", "250ms")
	t.Setenv("BRIDGE_RECONNECT_JITTER", "0.2")

	cfg, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Binance.Symbol)
	assert.Equal(t, sink.FormatCSV, cfg.Output.Format)
	assert.False(t, cfg.Output.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Reconnect.Delay)
	assert.InDelta(t, 0.2, cfg.Reconnect.Jitter, 1e-9)
	assert.Equal(t, "wss://fstream.binance.com/stream?streams=ethusdt@kline_5m", cfg.StreamURL())
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("SYMBOL", "solusdt")
	t.Setenv("INTERVAL", "1h")
	t.Setenv("MARKET_TYPE", "FUTURES")
	t.Setenv("API_PORT", "9999")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FILE", "binance_connector.log")

	cfg, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", cfg.Binance.Symbol)
	assert.Equal(t, "1h", cfg.Binance.Interval)
	assert.Equal(t, "futures", cfg.Binance.Market)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "binance_connector.log", cfg.Logging.File)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
binance:
  symbol: bnbusdt
  interval: 15m
  ws_url: ws://127.0.0.1:9000
output:
  format: csv
  path: /tmp/ohlcv.csv
http:
  port: 8081
`), 0o600))

	cfg, v, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, v.ConfigFileUsed())
	assert.Equal(t, "BNBUSDT", cfg.Binance.Symbol)
	assert.Equal(t, "/tmp/ohlcv.csv", cfg.Output.Path)
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, "ws://127.0.0.1:9000/stream?streams=bnbusdt@kline_15m", cfg.StreamURL())

	re, err := config.Reload(v)
	require.NoError(t, err)
	assert.Equal(t, cfg.Binance.Symbol, re.Binance.Symbol)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"market":       {"BRIDGE_BINANCE_MARKET": "options"},
		"interval":     {"BRIDGE_BINANCE_INTERVAL": "2m"},
		"format":       {"BRIDGE_OUTPUT_FORMAT": "xml"},
		"max attempts": {"BRIDGE_RECONNECT_MAX_ATTEMPTS": "0"},
		"delay":        {"BRIDGE_RECONNECT_DELAY": "0s"},
		"port":         {"BRIDGE_HTTP_PORT": "70000"},
		"log level":    {"BRIDGE_LOGGING_LEVEL": "loud"},
		"multiplier":   {"BRIDGE_RECONNECT_MULTIPLIER": "0.5"},
		"jitter":       {"BRIDGE_RECONNECT_JITTER": "1.5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, _, err := config.Load("")
			require.Error(t, err)
		})
	}
}
