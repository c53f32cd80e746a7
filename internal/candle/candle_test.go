package candle_test

import (
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
)

func sample() candle.Record {
	return candle.Record{
		Symbol:     "BTCUSDT",
		Interval:   "1m",
		OpenTime:   1700000040000,
		Open:       decimal.RequireFromString("100"),
		High:       decimal.RequireFromString("101"),
		Low:        decimal.RequireFromString("99"),
		Close:      decimal.RequireFromString("100.5"),
		Volume:     decimal.RequireFromString("10"),
		IsClosed:   true,
		IngestedAt: 1700000100000,
	}
}

func TestCSV(t *testing.T) {
	assert.Equal(t, "1700000040000,100,101,99,100.5,10", sample().CSV())
}

func TestPayload_JSON(t *testing.T) {
	b, err := json.Marshal(sample().Payload())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"timestamp": 1700000040000,
		"datetime": "2023-11-14T22:14:00Z",
		"open": 100, "high": 101, "low": 99, "close": 100.5, "volume": 10,
		"is_closed": true,
		"symbol": "BTCUSDT", "interval": "1m",
		"ingested_at": 1700000100000
	}`, string(b))
}

func TestPayload_KeepsPrecision(t *testing.T) {
	r := sample()
	r.Close = decimal.RequireFromString("0.00000123")
	assert.Equal(t, json.Number("0.00000123"), r.Payload().Close)
}

func TestAge(t *testing.T) {
	r := sample()
	now := time.UnixMilli(r.IngestedAt + 1500)
	assert.Equal(t, 1500*time.Millisecond, r.Age(now))
}
