// Package store keeps the single latest candle record.
package store

import (
	"sync/atomic"

	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
)

// Store is a single-slot, last-write-wins holder. One writer, many readers;
// neither side ever blocks beyond one atomic pointer operation.
type Store struct {
	latest atomic.Pointer[candle.Record]
}

func New() *Store { return &Store{} }

// Publish replaces the held record unconditionally. rec is copied.
func (s *Store) Publish(rec candle.Record) {
	s.latest.Store(&rec)
}

// Latest returns a copy of the held record; ok is false until the first Publish.
func (s *Store) Latest() (candle.Record, bool) {
	p := s.latest.Load()
	if p == nil {
		return candle.Record{}, false
	}
	return *p, true
}
