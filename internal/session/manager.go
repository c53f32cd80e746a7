// Package session owns the upstream kline stream: dial, keep-alive,
// decode-and-publish loop and bounded reconnects.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/backoff"
	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/telemetry"
	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
	"github.com/YaganovValera/ohlcv-bridge/internal/kline"
	"github.com/YaganovValera/ohlcv-bridge/internal/metrics"
	"github.com/YaganovValera/ohlcv-bridge/pkg/binance"
)

// Publisher receives every accepted record (the store).
type Publisher interface {
	Publish(candle.Record)
}

// Mirror receives a copy of every accepted record (the file sink). Must not block.
type Mirror interface {
	Mirror(candle.Record)
}

// Config of the reconnect policy.
type Config struct {
	Symbol      string
	Interval    string
	MaxAttempts int            // consecutive failed handshakes before Stopped
	Backoff     backoff.Config // delay between attempts
}

// Snapshot is a point-in-time view for diagnostics.
type Snapshot struct {
	State      State
	Attempts   int
	Reconnects int
	LastError  string
	Since      time.Time
}

// Manager is the single writer of the store.
type Manager struct {
	cfg    Config
	dialer binance.Dialer
	pub    Publisher
	mirror Mirror
	policy backoff.BackOff
	log    *logger.Logger
	tracer trace.Tracer
	now    func() time.Time

	mu         sync.RWMutex
	state      State
	attempts   int
	reconnects int
	lastErr    error
	since      time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for ingest timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a manager; mirror may be nil.
func NewManager(cfg Config, dialer binance.Dialer, pub Publisher, mirror Mirror, log *logger.Logger, opts ...Option) (*Manager, error) {
	if dialer == nil || pub == nil {
		return nil, errors.New("session: dialer and publisher are required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("session: MaxAttempts must be ≥ 1, got %d", cfg.MaxAttempts)
	}
	policy, err := backoff.NewPolicy(cfg.Backoff)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		pub:    pub,
		mirror: mirror,
		policy: policy,
		log:    log.Named("session"),
		tracer: telemetry.Tracer("ohlcv-bridge/session"),
		now:    time.Now,
		state:  Disconnected,
	}
	for _, o := range opts {
		o(m)
	}
	m.since = m.now()
	metrics.State.Set(float64(Disconnected))
	return m, nil
}

// Snapshot returns the current state without blocking on network I/O.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		State:      m.state,
		Attempts:   m.attempts,
		Reconnects: m.reconnects,
		Since:      m.since,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Run drives the state machine until ctx is cancelled (returns nil) or the
// reconnect budget is spent (returns an error wrapping ErrRetryExhausted).
func (m *Manager) Run(ctx context.Context) error {
	m.fire(EventStart, nil)

	for {
		sess, err := m.dial(ctx)
		if ctx.Err() != nil {
			if sess != nil {
				_ = sess.Close()
			}
			m.fire(EventStop, nil)
			return nil
		}

		if err != nil {
			m.fire(EventHandshakeFailed, err)
			if n := m.Snapshot().Attempts; n >= m.cfg.MaxAttempts {
				m.fire(EventRetryExhausted, nil)
				m.log.Error("session: giving up",
					zap.Int("attempts", n),
					zap.Error(err),
				)
				return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, n, err)
			}
		} else {
			m.policy.Reset()
			m.fire(EventHandshakeOK, nil)
			err = m.consume(ctx, sess)
			if ctx.Err() != nil {
				m.fire(EventStop, nil)
				return nil
			}
			m.fire(EventSessionLost, &SessionError{Err: err})
		}

		delay := m.policy.NextBackOff()
		m.log.Warn("session: reconnecting",
			zap.Duration("delay", delay),
			zap.Int("attempt", m.Snapshot().Attempts+1),
			zap.Error(err),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			m.fire(EventStop, nil)
			return nil
		case <-t.C:
		}
		m.fire(EventDelayElapsed, nil)
	}
}

func (m *Manager) dial(ctx context.Context) (binance.Session, error) {
	attempt := m.Snapshot().Attempts + 1
	ctx, span := m.tracer.Start(ctx, "binance.dial", trace.WithAttributes(
		attribute.String("symbol", m.cfg.Symbol),
		attribute.String("interval", m.cfg.Interval),
		attribute.Int("attempt", attempt),
	))
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = logger.ContextWithTraceID(ctx, sc.TraceID().String())
	}
	log := m.log.WithContext(ctx)

	sess, err := m.dialer.Dial(ctx)
	if err != nil {
		log.Debug("session: dial failed", zap.Int("attempt", attempt), zap.Error(err))
		metrics.Connects.WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, &ConnectError{Attempt: attempt, Err: err}
	}
	metrics.Connects.WithLabelValues("success").Inc()
	log.Info("session: connected",
		zap.String("symbol", m.cfg.Symbol),
		zap.String("interval", m.cfg.Interval),
	)
	return sess, nil
}

// consume reads frames until the session dies or ctx is cancelled.
// A single bad frame never ends the session.
func (m *Manager) consume(ctx context.Context, sess binance.Session) error {
	// отмена ctx закрывает сессию и выбивает ReadFrame из ожидания
	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer func() {
		stop()
		_ = sess.Close()
	}()

	for {
		frame, err := sess.ReadFrame()
		if err != nil {
			return err
		}

		rec, err := kline.Decode(frame)
		if err != nil {
			kind := "unknown"
			var de *kline.DecodeError
			if errors.As(err, &de) {
				kind = de.Kind.String()
			}
			metrics.Frames.WithLabelValues("rejected").Inc()
			metrics.DecodeErrors.WithLabelValues(kind).Inc()
			m.log.Warn("session: frame rejected", zap.String("kind", kind), zap.Error(err))
			continue
		}

		rec.IngestedAt = m.now().UnixMilli()
		m.pub.Publish(rec)
		if m.mirror != nil {
			m.mirror.Mirror(rec)
		}
		metrics.Frames.WithLabelValues("accepted").Inc()
		metrics.LastIngest.Set(float64(rec.IngestedAt))

		if rec.IsClosed {
			m.log.Info("session: candle closed",
				zap.String("symbol", rec.Symbol),
				zap.Int64("open_time", rec.OpenTime),
				zap.String("open", rec.Open.String()),
				zap.String("high", rec.High.String()),
				zap.String("low", rec.Low.String()),
				zap.String("close", rec.Close.String()),
				zap.String("volume", rec.Volume.String()),
			)
		} else {
			m.log.Debug("session: candle update",
				zap.Int64("open_time", rec.OpenTime),
				zap.String("close", rec.Close.String()),
			)
		}
	}
}

// fire applies ev and its bookkeeping. An invalid transition is a bug and is
// only logged: the manager keeps its current state.
func (m *Manager) fire(ev Event, cause error) {
	m.mu.Lock()
	from := m.state
	to, err := Next(from, ev)
	if err != nil {
		m.mu.Unlock()
		m.log.Error("session: transition rejected", zap.Error(err))
		return
	}
	switch ev {
	case EventHandshakeOK:
		m.attempts = 0
	case EventHandshakeFailed:
		m.attempts++
	}
	if to == Reconnecting {
		m.reconnects++
	}
	if cause != nil {
		m.lastErr = cause
	}
	m.state = to
	m.since = m.now()
	m.mu.Unlock()

	metrics.State.Set(float64(to))
	if to == Reconnecting {
		metrics.Reconnects.Inc()
	}
	m.log.Debug("session: transition",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Stringer("event", ev),
	)
}
