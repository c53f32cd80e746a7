package sink

import (
	"fmt"
	"time"
)

// Format of the mirror file.
type Format string

const (
	FormatJSON Format = "json" // one indented object
	FormatCSV  Format = "csv"  // one line t,o,h,l,c,v
)

// Config controls the file mirror.
type Config struct {
	Enabled      bool          `mapstructure:"enabled"`
	Format       Format        `mapstructure:"format"`
	Path         string        `mapstructure:"path"`
	QueueSize    int           `mapstructure:"queue_size"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

func (c *Config) applyDefaults() {
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 3 * time.Second
	}
}

// Validate is used by the service config as well.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Format {
	case FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("sink: unknown format %q (want json|csv)", c.Format)
	}
	if c.Path == "" {
		return fmt.Errorf("sink: path is required when enabled")
	}
	return nil
}
