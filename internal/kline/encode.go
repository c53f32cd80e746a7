package kline

import (
	"github.com/segmentio/encoding/json"

	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
	"github.com/YaganovValera/ohlcv-bridge/pkg/binance"
)

type wireKline struct {
	OpenTime int64  `json:"t"`
	Symbol   string `json:"s"`
	Interval string `json:"i"`
	Open     string `json:"o"`
	Close    string `json:"c"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

type wireEvent struct {
	Type   string    `json:"e"`
	Time   int64     `json:"E"`
	Symbol string    `json:"s"`
	Kline  wireKline `json:"k"`
}

type wireCombined struct {
	Stream string    `json:"stream"`
	Data   wireEvent `json:"data"`
}

// Encode renders rec as a combined-stream kline frame, the inverse of Decode.
// Used by fake upstreams and replay tooling.
func Encode(rec candle.Record) ([]byte, error) {
	return json.Marshal(wireCombined{
		Stream: binance.StreamName(rec.Symbol, rec.Interval),
		Data: wireEvent{
			Type:   "kline",
			Time:   rec.IngestedAt,
			Symbol: rec.Symbol,
			Kline: wireKline{
				OpenTime: rec.OpenTime,
				Symbol:   rec.Symbol,
				Interval: rec.Interval,
				Open:     rec.Open.String(),
				Close:    rec.Close.String(),
				High:     rec.High.String(),
				Low:      rec.Low.String(),
				Volume:   rec.Volume.String(),
				Closed:   rec.IsClosed,
			},
		},
	})
}
