// Package sink mirrors the latest candle record into a file, off the hot path.
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/safe"
	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
	"github.com/YaganovValera/ohlcv-bridge/internal/metrics"
)

// Sink owns one writer goroutine fed by a small coalescing queue:
// when the queue is full the oldest pending record is replaced, so the
// record mirrored last is always the one that ends up on disk.
type Sink struct {
	cfg   Config
	fs    afero.Fs
	log   *logger.Logger
	queue chan candle.Record
	stop  chan struct{}
	done  <-chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts the writer. A disabled sink accepts Mirror calls and ignores them.
func New(cfg Config, fs afero.Fs, log *logger.Logger) (*Sink, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &Sink{
		cfg: cfg,
		fs:  fs,
		log: log.Named("sink"),
	}
	if !cfg.Enabled {
		s.closed.Store(true)
		return s, nil
	}
	s.queue = make(chan candle.Record, cfg.QueueSize)
	s.stop = make(chan struct{})
	s.done = safe.Go(s.log, "sink-writer", s.run)
	s.log.Info("sink: started",
		zap.String("path", cfg.Path),
		zap.String("format", string(cfg.Format)),
	)
	return s, nil
}

// Config returns the effective settings.
func (s *Sink) Config() Config { return s.cfg }

// Mirror schedules rec for writing and returns immediately.
// Only the connection manager calls it, so there is a single producer.
func (s *Sink) Mirror(rec candle.Record) {
	if s.closed.Load() {
		return
	}
	select {
	case s.queue <- rec:
		return
	default:
	}
	select {
	case <-s.queue:
		metrics.SinkDrops.Inc()
	default:
	}
	select {
	case s.queue <- rec:
	default:
		metrics.SinkDrops.Inc()
	}
}

// Close stops accepting records and waits for pending writes, bounded by ctx.
func (s *Sink) Close(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sink: drain: %w", ctx.Err())
	}
}

func (s *Sink) run() {
	for {
		select {
		case rec := <-s.queue:
			s.write(rec)
		case <-s.stop:
			for {
				select {
				case rec := <-s.queue:
					s.write(rec)
				default:
					return
				}
			}
		}
	}
}

// write never propagates errors: failures are logged and counted.
func (s *Sink) write(rec candle.Record) {
	if err := s.writeFile(rec); err != nil {
		metrics.SinkWrites.WithLabelValues("error").Inc()
		s.log.Warn("sink: write failed", zap.String("path", s.cfg.Path), zap.Error(err))
		return
	}
	metrics.SinkWrites.WithLabelValues("ok").Inc()
}

func (s *Sink) writeFile(rec candle.Record) error {
	data, err := Render(s.cfg.Format, rec)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.cfg.Path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	// temp + rename: читатель файла никогда не увидит половину записи
	tmp := s.cfg.Path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.cfg.Path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Render produces the file content for rec in the given format.
func Render(f Format, rec candle.Record) ([]byte, error) {
	switch f {
	case FormatCSV:
		return []byte(rec.CSV() + "\n"), nil
	case FormatJSON:
		b, err := json.MarshalIndent(rec.Payload(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}

