package kline_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
	"github.com/YaganovValera/ohlcv-bridge/internal/kline"
)

const combinedFrame = `{
  "stream": "btcusdt@kline_1m",
  "data": {
    "e": "kline", "E": 1700000059999, "s": "BTCUSDT",
    "k": {
      "t": 1700000040000, "T": 1700000099999, "s": "btcusdt", "i": "1m",
      "f": 100, "L": 200,
      "o": "100.00", "c": "100.50", "h": "101.00", "l": "99.00",
      "v": "10.000", "n": 100, "x": true, "q": "1000.0", "V": "5.0", "Q": "500.0", "B": "0"
    }
  }
}`

func TestDecode_CombinedEnvelope(t *testing.T) {
	rec, err := kline.Decode([]byte(combinedFrame))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", rec.Symbol)
	assert.Equal(t, "1m", rec.Interval)
	assert.Equal(t, int64(1700000040000), rec.OpenTime)
	assert.True(t, rec.Open.Equal(decimal.RequireFromString("100")))
	assert.True(t, rec.High.Equal(decimal.RequireFromString("101")))
	assert.True(t, rec.Low.Equal(decimal.RequireFromString("99")))
	assert.True(t, rec.Close.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, rec.Volume.Equal(decimal.RequireFromString("10")))
	assert.True(t, rec.IsClosed)
	assert.Zero(t, rec.IngestedAt)
}

func TestDecode_RawStreamEnvelope(t *testing.T) {
	frame := `{"e":"kline","E":1,"s":"ETHUSDT","k":{"t":60000,"s":"ETHUSDT","i":"5m",
		"o":"1","h":"2","l":"0.5","c":"1.5","v":"3","x":false}}`
	rec, err := kline.Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", rec.Symbol)
	assert.Equal(t, "5m", rec.Interval)
	assert.False(t, rec.IsClosed)
}

func TestDecode_NumericPrices(t *testing.T) {
	frame := `{"data":{"k":{"t":1,"s":"X","i":"1m","o":1.25,"h":2,"l":0.5,"c":1,"v":0,"x":true}}}`
	rec, err := kline.Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, "1.25", rec.Open.String())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		kind  kline.Kind
		field string
	}{
		{"not json", `{oops`, kline.KindMalformedPayload, ""},
		{"no k", `{"stream":"x","data":{"e":"kline"}}`, kline.KindMalformedPayload, ""},
		{"null k", `{"data":{"k":null}}`, kline.KindMalformedPayload, ""},
		{"k not object", `{"data":{"k":"str"}}`, kline.KindMalformedPayload, ""},
		{"data not object", `{"data":42}`, kline.KindMalformedPayload, ""},
		{"missing close", `{"data":{"k":{"t":1,"s":"X","i":"1m","o":"1","h":"1","l":"1","v":"1","x":true}}}`, kline.KindFieldError, "c"},
		{"missing symbol", `{"data":{"k":{"t":1,"i":"1m","o":"1","h":"1","l":"1","c":"1","v":"1","x":true}}}`, kline.KindFieldError, "s"},
		{"non numeric price", `{"data":{"k":{"t":1,"s":"X","i":"1m","o":"abc","h":"1","l":"1","c":"1","v":"1","x":true}}}`, kline.KindFieldError, "o"},
		{"bool price", `{"data":{"k":{"t":1,"s":"X","i":"1m","o":"1","h":true,"l":"1","c":"1","v":"1","x":true}}}`, kline.KindFieldError, "h"},
		{"null volume", `{"data":{"k":{"t":1,"s":"X","i":"1m","o":"1","h":"1","l":"1","c":"1","v":null,"x":true}}}`, kline.KindFieldError, "v"},
		{"string time", `{"data":{"k":{"t":"1","s":"X","i":"1m","o":"1","h":"1","l":"1","c":"1","v":"1","x":true}}}`, kline.KindFieldError, "t"},
		{"string closed flag", `{"data":{"k":{"t":1,"s":"X","i":"1m","o":"1","h":"1","l":"1","c":"1","v":"1","x":"yes"}}}`, kline.KindFieldError, "x"},
		{"empty interval", `{"data":{"k":{"t":1,"s":"X","i":"","o":"1","h":"1","l":"1","c":"1","v":"1","x":true}}}`, kline.KindFieldError, "i"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kline.Decode([]byte(tt.frame))
			require.Error(t, err)

			var de *kline.DecodeError
			require.True(t, errors.As(err, &de), "want *DecodeError, got %T", err)
			assert.Equal(t, tt.kind, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	records := []candle.Record{
		{
			Symbol: "BTCUSDT", Interval: "1m", OpenTime: 1700000040000,
			Open: decimal.RequireFromString("100"), High: decimal.RequireFromString("101"),
			Low: decimal.RequireFromString("99"), Close: decimal.RequireFromString("100.5"),
			Volume: decimal.RequireFromString("10"), IsClosed: true,
		},
		{
			Symbol: "SHIBUSDT", Interval: "1s", OpenTime: 1,
			Open: decimal.RequireFromString("0.00000812345678"), High: decimal.RequireFromString("0.000009"),
			Low: decimal.RequireFromString("0.0000080000001"), Close: decimal.RequireFromString("0.00000899"),
			Volume: decimal.RequireFromString("123456789012345678.123456789"), IsClosed: false,
		},
	}

	for _, want := range records {
		frame, err := kline.Encode(want)
		require.NoError(t, err)

		got, err := kline.Decode(frame)
		require.NoError(t, err)

		assert.Equal(t, want.Symbol, got.Symbol)
		assert.Equal(t, want.Interval, got.Interval)
		assert.Equal(t, want.OpenTime, got.OpenTime)
		assert.Equal(t, want.IsClosed, got.IsClosed)
		assert.True(t, want.Open.Equal(got.Open))
		assert.True(t, want.High.Equal(got.High))
		assert.True(t, want.Low.Equal(got.Low))
		assert.True(t, want.Close.Equal(got.Close))
		assert.True(t, want.Volume.Equal(got.Volume))
	}
}
