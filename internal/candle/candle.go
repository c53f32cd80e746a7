// Package candle holds the canonical OHLCV record shared by the decoder,
// the store, the file mirror and the query surface.
package candle

import (
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
)

// Record is one kline bucket as accepted from upstream.
// Values are immutable once published; share by value or by pointer to a copy.
type Record struct {
	Symbol     string
	Interval   string
	OpenTime   int64 // bucket start, epoch ms
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	IsClosed   bool
	IngestedAt int64 // local accept time, epoch ms
}

// Payload is the structured JSON view of a record. Prices keep their exact
// decimal text and are emitted as JSON numbers.
type Payload struct {
	Timestamp  int64       `json:"timestamp"`
	Datetime   string      `json:"datetime"`
	Open       json.Number `json:"open"`
	High       json.Number `json:"high"`
	Low        json.Number `json:"low"`
	Close      json.Number `json:"close"`
	Volume     json.Number `json:"volume"`
	IsClosed   bool        `json:"is_closed"`
	Symbol     string      `json:"symbol"`
	Interval   string      `json:"interval"`
	IngestedAt int64       `json:"ingested_at"`
}

// Payload returns the structured view.
func (r Record) Payload() Payload {
	return Payload{
		Timestamp:  r.OpenTime,
		Datetime:   time.UnixMilli(r.OpenTime).UTC().Format(time.RFC3339),
		Open:       json.Number(r.Open.String()),
		High:       json.Number(r.High.String()),
		Low:        json.Number(r.Low.String()),
		Close:      json.Number(r.Close.String()),
		Volume:     json.Number(r.Volume.String()),
		IsClosed:   r.IsClosed,
		Symbol:     r.Symbol,
		Interval:   r.Interval,
		IngestedAt: r.IngestedAt,
	}
}

// CSV returns the fixed-column line "t,o,h,l,c,v" without a trailing newline.
func (r Record) CSV() string {
	return strings.Join([]string{
		strconv.FormatInt(r.OpenTime, 10),
		r.Open.String(),
		r.High.String(),
		r.Low.String(),
		r.Close.String(),
		r.Volume.String(),
	}, ",")
}

// Age returns how old the record is at now, by ingest time.
func (r Record) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-r.IngestedAt) * time.Millisecond
}
