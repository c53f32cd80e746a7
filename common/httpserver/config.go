package httpserver

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Paths — служебные маршруты, которые сервер монтирует сам.
type Paths struct {
	Metrics string
	Healthz string
	Readyz  string
}

// Config определяет настройки HTTP-сервера.
type Config struct {
	Addr            string // "host:port"; порт 0 → любой свободный
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Paths           Paths
}

var defaultConfig = Config{
	ReadTimeout:     10 * time.Second,
	WriteTimeout:    15 * time.Second,
	IdleTimeout:     60 * time.Second,
	ShutdownTimeout: 5 * time.Second,
	Paths: Paths{
		Metrics: "/metrics",
		Healthz: "/healthz",
		Readyz:  "/readyz",
	},
}

// withDefaults заполняет нулевые поля значениями из defaultConfig.
func (c Config) withDefaults() Config {
	pick := func(v, d time.Duration) time.Duration {
		if v <= 0 {
			return d
		}
		return v
	}
	path := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	c.ReadTimeout = pick(c.ReadTimeout, defaultConfig.ReadTimeout)
	c.WriteTimeout = pick(c.WriteTimeout, defaultConfig.WriteTimeout)
	c.IdleTimeout = pick(c.IdleTimeout, defaultConfig.IdleTimeout)
	c.ShutdownTimeout = pick(c.ShutdownTimeout, defaultConfig.ShutdownTimeout)
	c.Paths.Metrics = path(c.Paths.Metrics, defaultConfig.Paths.Metrics)
	c.Paths.Healthz = path(c.Paths.Healthz, defaultConfig.Paths.Healthz)
	c.Paths.Readyz = path(c.Paths.Readyz, defaultConfig.Paths.Readyz)
	return c
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("httpserver: addr is required")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("httpserver: addr %q: %w", c.Addr, err)
	}
	seen := make(map[string]bool, 3)
	for _, p := range []string{c.Paths.Metrics, c.Paths.Healthz, c.Paths.Readyz} {
		if !strings.HasPrefix(p, "/") || p == "/" {
			return fmt.Errorf("httpserver: invalid probe path %q", p)
		}
		if seen[p] {
			return fmt.Errorf("httpserver: duplicate probe path %q", p)
		}
		seen[p] = true
	}
	return nil
}
