// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/YaganovValera/ohlcv-bridge/common/configloader"
	"github.com/YaganovValera/ohlcv-bridge/internal/sink"
	"github.com/YaganovValera/ohlcv-bridge/pkg/binance"
)

// EnvPrefix is prepended to every environment key: binance.symbol → BRIDGE_BINANCE_SYMBOL.
const EnvPrefix = "BRIDGE"

/*
   --------------------------------------------------------------------------
   СТРУКТУРЫ
   --------------------------------------------------------------------------
*/

// Config — все настройки сервиса.
type Config struct {
	ServiceName    string          `mapstructure:"service_name"`
	ServiceVersion string          `mapstructure:"service_version"`
	Binance        BinanceConfig   `mapstructure:"binance"`
	Reconnect      ReconnectConfig `mapstructure:"reconnect"`
	Output         sink.Config     `mapstructure:"output"`
	HTTP           HTTPConfig      `mapstructure:"http"`
	Logging        Logging         `mapstructure:"logging"`
	Telemetry      Telemetry       `mapstructure:"telemetry"`
}

// BinanceConfig хранит настройки подписки на kline-стрим.
type BinanceConfig struct {
	Market           string        `mapstructure:"market"`
	Symbol           string        `mapstructure:"symbol"`
	Interval         string        `mapstructure:"interval"`
	WSURL            string        `mapstructure:"ws_url"` // пусто → хост по market
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	ReadLimit        int64         `mapstructure:"read_limit"`
}

// ReconnectConfig — политика переподключения.
type ReconnectConfig struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Multiplier  float64       `mapstructure:"multiplier"` // 1 → фиксированная задержка
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      float64       `mapstructure:"jitter"` // доля ±разброса задержки, 0…1
}

// HTTPConfig хранит конфигурацию HTTP API.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	HealthzPath     string        `mapstructure:"healthz_path"`
	ReadyzPath      string        `mapstructure:"readyz_path"`
	RateLimit       float64       `mapstructure:"rate_limit"` // req/s, 0 → без ограничения
	RateBurst       int           `mapstructure:"rate_burst"`
}

// Logging хранит настройки логгера.
type Logging struct {
	Level   string `mapstructure:"level"`
	DevMode bool   `mapstructure:"dev_mode"`
	File    string `mapstructure:"file"` // дубль логов в файл, пусто → только stderr
}

// Telemetry хранит настройки OpenTelemetry.
type Telemetry struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otel_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SamplerRatio float64 `mapstructure:"sampler_ratio"`
}

/*
   --------------------------------------------------------------------------
   LOADER
   --------------------------------------------------------------------------
*/

func defaults() map[string]any {
	return map[string]any{
		"service_name":    "ohlcv-bridge",
		"service_version": "v1.0.0",

		"binance.market":            string(binance.MarketSpot),
		"binance.symbol":            "BTCUSDT",
		"binance.interval":          "1m",
		"binance.ws_url":            "",
		"binance.ping_interval":     "20s",
		"binance.ping_timeout":      "10s",
		"binance.handshake_timeout": "10s",
		"binance.write_timeout":     "5s",
		"binance.read_limit":        1 << 20,

		"reconnect.delay":        "5s",
		"reconnect.max_attempts": 10,
		"reconnect.multiplier":   1.0,
		"reconnect.max_delay":    "60s",
		"reconnect.jitter":       0.0,

		"output.enabled":       true,
		"output.format":        string(sink.FormatJSON),
		"output.path":          "ohlcv_data.json",
		"output.queue_size":    1,
		"output.flush_timeout": "3s",

		"http.host":             "127.0.0.1",
		"http.port":             8888,
		"http.read_timeout":     "10s",
		"http.write_timeout":    "15s",
		"http.idle_timeout":     "60s",
		"http.shutdown_timeout": "5s",
		"http.metrics_path":     "/metrics",
		"http.healthz_path":     "/healthz",
		"http.readyz_path":      "/readyz",
		"http.rate_limit":       0.0,
		"http.rate_burst":       20,

		"logging.level":    "info",
		"logging.dev_mode": false,
		"logging.file":     "",

		"telemetry.enabled":       false,
		"telemetry.otel_endpoint": "otel-collector:4317",
		"telemetry.insecure":      true,
		"telemetry.sampler_ratio": 1.0,
	}
}

// legacyEnv — имена переменных окружения, которые понимал старый коннектор.
var legacyEnv = map[string][]string{
	"binance.market":   {"MARKET_TYPE"},
	"binance.symbol":   {"SYMBOL"},
	"binance.interval": {"INTERVAL"},
	"http.port":        {"API_PORT"},
	"logging.level":    {"LOG_LEVEL"},
	"logging.file":     {"LOG_FILE"},
}

// Load загружает и валидирует конфиг. Если path пустой — читаются только ENV и defaults.
// Возвращённый *viper.Viper нужен для WatchConfig.
func Load(path string) (*Config, *viper.Viper, error) {
	var cfg Config
	v, err := configloader.Load(path, EnvPrefix, defaults(), legacyEnv, &cfg)
	if err != nil {
		return nil, nil, err
	}
	return &cfg, v, nil
}

// Reload декодирует текущее состояние v (после изменения файла).
func Reload(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := configloader.Decode(v, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

/*
   --------------------------------------------------------------------------
   VALIDATION
   --------------------------------------------------------------------------
*/

// Validate нормализует регистр и проверяет значения.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	// Binance
	c.Binance.Market = strings.ToLower(c.Binance.Market)
	c.Binance.Symbol = strings.ToUpper(strings.TrimSpace(c.Binance.Symbol))
	if _, err := binance.BaseURL(binance.Market(c.Binance.Market)); err != nil {
		return fmt.Errorf("binance.market must be one of [spot, futures], got %q", c.Binance.Market)
	}
	if c.Binance.Symbol == "" {
		return fmt.Errorf("binance.symbol is required")
	}
	if !binance.ValidInterval(c.Binance.Interval) {
		return fmt.Errorf("binance.interval %q is not one of %v", c.Binance.Interval, binance.Intervals)
	}
	if c.Binance.PingInterval <= 0 || c.Binance.PingTimeout <= 0 {
		return fmt.Errorf("binance.ping_interval and binance.ping_timeout must be > 0")
	}

	// Reconnect
	if c.Reconnect.Delay <= 0 {
		return fmt.Errorf("reconnect.delay must be > 0")
	}
	if c.Reconnect.MaxAttempts < 1 {
		return fmt.Errorf("reconnect.max_attempts must be >= 1")
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be >= 1")
	}
	if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter > 1 {
		return fmt.Errorf("reconnect.jitter must be in [0, 1]")
	}

	// Output
	c.Output.Format = sink.Format(strings.ToLower(string(c.Output.Format)))
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	// Logging
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	// Telemetry
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otel_endpoint is required when telemetry is enabled")
	}

	return validateHTTP(&c.HTTP)
}

func validateHTTP(h *HTTPConfig) error {
	if h.Port <= 0 || h.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535")
	}
	durations := map[string]time.Duration{
		"http.read_timeout":     h.ReadTimeout,
		"http.write_timeout":    h.WriteTimeout,
		"http.idle_timeout":     h.IdleTimeout,
		"http.shutdown_timeout": h.ShutdownTimeout,
	}
	for k, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", k)
		}
	}
	paths := map[string]string{
		"http.metrics_path": h.MetricsPath,
		"http.healthz_path": h.HealthzPath,
		"http.readyz_path":  h.ReadyzPath,
	}
	for k, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/'", k)
		}
	}
	if h.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must be >= 0")
	}
	return nil
}

/*
   --------------------------------------------------------------------------
   DERIVED
   --------------------------------------------------------------------------
*/

// StreamURL возвращает полный адрес kline-стрима.
func (c *Config) StreamURL() string {
	base := c.Binance.WSURL
	if base == "" {
		base, _ = binance.BaseURL(binance.Market(c.Binance.Market))
	}
	return binance.StreamURL(base, c.Binance.Symbol, c.Binance.Interval)
}

// Addr — адрес HTTP API.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}
