// Package kline converts Binance kline stream frames into candle records.
//
// Both the combined-stream envelope ({"stream":..,"data":{"k":{..}}}) and the
// raw-stream form ({"e":"kline",..,"k":{..}}) are accepted.
package kline

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
)

// RequiredFields are the keys Decode expects inside the "k" object.
var RequiredFields = []string{"t", "o", "h", "l", "c", "v", "x", "s", "i"}

var (
	errMissing = errors.New("missing")
	errNull    = errors.New("null value")
)

type envelope struct {
	Data json.RawMessage `json:"data"`
	K    json.RawMessage `json:"k"`
}

// Decode parses one frame. It is pure: no logging, no shared state.
// IngestedAt is left zero; the caller stamps it when accepting the record.
func Decode(frame []byte) (candle.Record, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return candle.Record{}, malformed(fmt.Errorf("envelope: %w", err))
	}

	raw := env.K
	if !isAbsent(env.Data) {
		var inner envelope
		if err := json.Unmarshal(env.Data, &inner); err != nil {
			return candle.Record{}, malformed(fmt.Errorf("data: %w", err))
		}
		raw = inner.K
	}
	if isAbsent(raw) {
		return candle.Record{}, malformed(errors.New("no kline object"))
	}

	var k map[string]json.RawMessage
	if err := json.Unmarshal(raw, &k); err != nil {
		return candle.Record{}, malformed(fmt.Errorf("kline object: %w", err))
	}
	for _, f := range RequiredFields {
		v, ok := k[f]
		if !ok {
			return candle.Record{}, fieldErr(f, errMissing)
		}
		if isAbsent(v) {
			return candle.Record{}, fieldErr(f, errNull)
		}
	}

	var (
		rec candle.Record
		err error
	)
	if err = json.Unmarshal(k["t"], &rec.OpenTime); err != nil {
		return candle.Record{}, fieldErr("t", err)
	}
	if err = json.Unmarshal(k["x"], &rec.IsClosed); err != nil {
		return candle.Record{}, fieldErr("x", err)
	}
	if rec.Symbol, err = nonEmptyString(k["s"]); err != nil {
		return candle.Record{}, fieldErr("s", err)
	}
	rec.Symbol = strings.ToUpper(rec.Symbol)
	if rec.Interval, err = nonEmptyString(k["i"]); err != nil {
		return candle.Record{}, fieldErr("i", err)
	}

	for _, p := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"o", &rec.Open},
		{"h", &rec.High},
		{"l", &rec.Low},
		{"c", &rec.Close},
		{"v", &rec.Volume},
	} {
		if *p.dst, err = parseDecimal(k[p.key]); err != nil {
			return candle.Record{}, fieldErr(p.key, err)
		}
	}
	return rec, nil
}

// parseDecimal accepts a numeric string ("100.5") or a bare JSON number.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	text := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, err
		}
		text = s
	} else if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return decimal.Decimal{}, fmt.Errorf("not a number: %s", raw)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", text)
	}
	return d, nil
}

func nonEmptyString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	if s == "" {
		return "", errors.New("empty string")
	}
	return s, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
