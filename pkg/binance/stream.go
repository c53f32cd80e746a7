// pkg/binance/stream.go
package binance

import (
	"fmt"
	"slices"
	"strings"
)

// Market is the Binance market segment the stream is taken from.
type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures" // USDT-M perpetuals
)

var baseURLs = map[Market]string{
	MarketSpot:    "wss://stream.binance.com:9443",
	MarketFutures: "wss://fstream.binance.com",
}

// Intervals lists kline widths accepted by Binance streams.
var Intervals = []string{
	"1s", "1m", "3m", "5m", "15m", "30m",
	"1h", "2h", "4h", "6h", "8h", "12h",
	"1d", "3d", "1w", "1M",
}

// BaseURL returns the websocket host for the market segment.
func BaseURL(m Market) (string, error) {
	u, ok := baseURLs[Market(strings.ToLower(string(m)))]
	if !ok {
		return "", fmt.Errorf("binance: unknown market %q", m)
	}
	return u, nil
}

// ValidInterval reports whether iv is a known kline width. Case matters: "1M" is a month.
func ValidInterval(iv string) bool {
	return slices.Contains(Intervals, iv)
}

// StreamName derives the kline stream name, e.g. ("BTCUSDT","1m") → "btcusdt@kline_1m".
func StreamName(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}

// StreamURL joins base host and stream name into a combined-stream endpoint.
func StreamURL(base, symbol, interval string) string {
	base = strings.TrimSuffix(strings.TrimRight(base, "/"), "/stream")
	return base + "/stream?streams=" + StreamName(symbol, interval)
}
