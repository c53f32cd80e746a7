package backoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/common/backoff"
)

func TestNewPolicy_FixedDelay(t *testing.T) {
	bo, err := backoff.NewPolicy(backoff.Config{InitialInterval: 5 * time.Second})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 5*time.Second, bo.NextBackOff())
	}
}

func TestNewPolicy_Exponential(t *testing.T) {
	bo, err := backoff.NewPolicy(backoff.Config{
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxInterval:     4 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Second, bo.NextBackOff())
	assert.Equal(t, 2*time.Second, bo.NextBackOff())
	assert.Equal(t, 4*time.Second, bo.NextBackOff())
	assert.Equal(t, 4*time.Second, bo.NextBackOff())

	bo.Reset()
	assert.Equal(t, time.Second, bo.NextBackOff())
}

func TestNewPolicy_JitterStaysInBounds(t *testing.T) {
	bo, err := backoff.NewPolicy(backoff.Config{
		InitialInterval:     time.Second,
		RandomizationFactor: 0.5,
	})
	require.NoError(t, err)

	// множитель 1: каждая задержка в [0.5s, 1.5s], без роста
	for i := 0; i < 50; i++ {
		d := bo.NextBackOff()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestNewPolicy_InvalidConfig(t *testing.T) {
	_, err := backoff.NewPolicy(backoff.Config{Multiplier: 0.5})
	require.Error(t, err)

	_, err = backoff.NewPolicy(backoff.Config{RandomizationFactor: 2})
	require.Error(t, err)
}
