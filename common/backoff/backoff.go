// common/backoff/backoff.go
package backoff

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackOff is the delay policy consumed by reconnect loops.
type BackOff = backoff.BackOff

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config contains tunables for the reconnect delay.
//
// Multiplier == 1 gives a fixed delay (every wait equals InitialInterval),
// anything above grows the delay exponentially up to MaxInterval.
type Config struct {
	// InitialInterval is the first delay before retrying.
	InitialInterval time.Duration

	// RandomizationFactor adds ±jitter to each delay.
	// Accepted range: 0.0 ≤ f ≤ 1.0
	RandomizationFactor float64

	// Multiplier multiplies the previous delay to get the next one.
	Multiplier float64

	// MaxInterval caps each individual delay.
	MaxInterval time.Duration
}

// applyDefaults fills cfg with safe defaults in-place.
func (c *Config) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = 5 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 1
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = time.Minute
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
}

func (c Config) validate() error {
	if c.RandomizationFactor < 0 || c.RandomizationFactor > 1 {
		return fmt.Errorf("backoff: RandomizationFactor must be in [0,1]")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("backoff: Multiplier must be ≥ 1")
	}
	return nil
}

// NewPolicy builds the delay policy described by cfg.
// The returned policy never stops: the attempt budget belongs to the caller.
func NewPolicy(cfg Config) (BackOff, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("backoff: invalid config: %w", err)
	}

	if cfg.Multiplier == 1 && cfg.RandomizationFactor == 0 {
		return backoff.NewConstantBackOff(cfg.InitialInterval), nil
	}
	// джиттер без роста: экспоненциальная политика с множителем 1
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.RandomizationFactor = cfg.RandomizationFactor
	exp.Multiplier = cfg.Multiplier
	exp.MaxInterval = cfg.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp, nil
}
