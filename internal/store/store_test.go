package store_test

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
	"github.com/YaganovValera/ohlcv-bridge/internal/store"
)

func rec(openTime int64) candle.Record {
	p := decimal.NewFromInt(openTime)
	return candle.Record{
		Symbol: "BTCUSDT", Interval: "1m", OpenTime: openTime,
		Open: p, High: p, Low: p, Close: p, Volume: p,
	}
}

func TestLatest_Empty(t *testing.T) {
	_, ok := store.New().Latest()
	assert.False(t, ok)
}

func TestPublish_LastWriteWins(t *testing.T) {
	s := store.New()
	// open_time goes backwards on purpose: no reordering, no rejection
	for _, ot := range []int64{300, 100, 200} {
		s.Publish(rec(ot))
	}
	got, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(200), got.OpenTime)
}

func TestLatest_ReturnsCopy(t *testing.T) {
	s := store.New()
	s.Publish(rec(1))

	got, _ := s.Latest()
	got.Symbol = "MUTATED"

	again, _ := s.Latest()
	assert.Equal(t, "BTCUSDT", again.Symbol)
}

// Readers never see a torn record: every field of an observed record
// must come from the same publish.
func TestConcurrentReadersSeeWholeRecords(t *testing.T) {
	s := store.New()
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= n; i++ {
			s.Publish(rec(i))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				got, ok := s.Latest()
				if !ok {
					continue
				}
				want := decimal.NewFromInt(got.OpenTime)
				if !got.Close.Equal(want) || !got.Volume.Equal(want) {
					t.Errorf("torn record: %+v", got)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(n), got.OpenTime)
}
