// pkg/binance/config.go
package binance

import (
	"fmt"
	"time"
)

// Config holds websocket session settings for the kline connector.
type Config struct {
	URL              string        // full stream endpoint, see StreamURL
	HandshakeTimeout time.Duration // TCP+TLS+upgrade budget
	PingInterval     time.Duration // how often we ping the peer
	PingTimeout      time.Duration // extra grace after PingInterval before the session is dead
	WriteTimeout     time.Duration // deadline for control frames
	ReadLimit        int64         // max inbound frame size, bytes
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
}

func (c Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("binance: URL is required")
	}
	return nil
}

// readWindow is how long a session may stay silent on the control channel.
func (c Config) readWindow() time.Duration { return c.PingInterval + c.PingTimeout }
