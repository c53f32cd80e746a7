// internal/app/bridge.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/YaganovValera/ohlcv-bridge/common/backoff"
	"github.com/YaganovValera/ohlcv-bridge/common/httpserver"
	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/middleware"
	"github.com/YaganovValera/ohlcv-bridge/common/shutdown"
	"github.com/YaganovValera/ohlcv-bridge/common/telemetry"
	"github.com/YaganovValera/ohlcv-bridge/internal/api"
	"github.com/YaganovValera/ohlcv-bridge/internal/config"
	"github.com/YaganovValera/ohlcv-bridge/internal/metrics"
	"github.com/YaganovValera/ohlcv-bridge/internal/session"
	"github.com/YaganovValera/ohlcv-bridge/internal/sink"
	"github.com/YaganovValera/ohlcv-bridge/internal/store"
	"github.com/YaganovValera/ohlcv-bridge/pkg/binance"
)

// Bridge wires store, sink, connection manager and HTTP API together.
// Manager and HTTP server share only the store and the running flag.
type Bridge struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	sink    *sink.Sink
	mgr     *session.Manager
	srv     *httpserver.Server
	running atomic.Bool
}

type options struct {
	dialer binance.Dialer
	fs     afero.Fs
}

// Option customises a Bridge.
type Option func(*options)

// WithDialer replaces the websocket connector (tests, replay).
func WithDialer(d binance.Dialer) Option { return func(o *options) { o.dialer = d } }

// WithFs replaces the filesystem used by the file mirror.
func WithFs(fs afero.Fs) Option { return func(o *options) { o.fs = fs } }

// New builds every component but starts nothing.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Bridge, error) {
	o := options{fs: afero.NewOsFs()}
	for _, fn := range opts {
		fn(&o)
	}
	metrics.Register(nil)

	b := &Bridge{
		cfg:   cfg,
		log:   log.Named("bridge"),
		store: store.New(),
	}

	if o.dialer == nil {
		conn, err := binance.NewConnector(binance.Config{
			URL:              cfg.StreamURL(),
			HandshakeTimeout: cfg.Binance.HandshakeTimeout,
			PingInterval:     cfg.Binance.PingInterval,
			PingTimeout:      cfg.Binance.PingTimeout,
			WriteTimeout:     cfg.Binance.WriteTimeout,
			ReadLimit:        cfg.Binance.ReadLimit,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("binance connector init: %w", err)
		}
		o.dialer = conn
	}

	var err error
	b.sink, err = sink.New(cfg.Output, o.fs, log)
	if err != nil {
		return nil, fmt.Errorf("sink init: %w", err)
	}

	b.mgr, err = session.NewManager(session.Config{
		Symbol:      cfg.Binance.Symbol,
		Interval:    cfg.Binance.Interval,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
		Backoff: backoff.Config{
			InitialInterval:     cfg.Reconnect.Delay,
			Multiplier:          cfg.Reconnect.Multiplier,
			MaxInterval:         cfg.Reconnect.MaxDelay,
			RandomizationFactor: cfg.Reconnect.Jitter,
		},
	}, o.dialer, b.store, b.sink, log)
	if err != nil {
		return nil, fmt.Errorf("session manager init: %w", err)
	}

	handler := api.New(api.Info{
		Service:  cfg.ServiceName,
		Version:  cfg.ServiceVersion,
		Symbol:   cfg.Binance.Symbol,
		Interval: cfg.Binance.Interval,
		Sink:     b.sink.Config(),
	}, b.store, b.mgr, b.running.Load, log,
		api.WithRateLimit(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst),
	)

	b.srv, err = httpserver.New(httpserver.Config{
		Addr:            cfg.HTTP.Addr(),
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Paths: httpserver.Paths{
			Metrics: cfg.HTTP.MetricsPath,
			Healthz: cfg.HTTP.HealthzPath,
			Readyz:  cfg.HTTP.ReadyzPath,
		},
	},
		b.ready,
		log,
		handler.Routes(),
		middleware.RequestID(),
		middleware.Metrics(api.Paths...),
	)
	if err != nil {
		return nil, fmt.Errorf("httpserver init: %w", err)
	}
	return b, nil
}

// Handler exposes the full HTTP stack for in-process tests.
func (b *Bridge) Handler() http.Handler { return b.srv.Handler() }

// Running reports the supervisor's running flag.
func (b *Bridge) Running() bool { return b.running.Load() }

// ready: connected upstream and at least one record.
func (b *Bridge) ready() error {
	if st := b.mgr.Snapshot().State; st != session.Connected {
		return fmt.Errorf("upstream %s", st)
	}
	if _, ok := b.store.Latest(); !ok {
		return errors.New("no data yet")
	}
	return nil
}

// Run blocks until ctx is cancelled (returns nil) or a component fails.
// Reconnect exhaustion is fatal: HTTP is shut down too and an error wrapping
// session.ErrRetryExhausted is returned. The sink is drained in both cases.
func (b *Bridge) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	b.running.Store(true)
	stopFlag := context.AfterFunc(gctx, func() { b.running.Store(false) })
	defer stopFlag()

	b.log.Info("bridge: starting",
		zap.String("symbol", b.cfg.Binance.Symbol),
		zap.String("interval", b.cfg.Binance.Interval),
		zap.String("stream", b.cfg.StreamURL()),
		zap.String("http", b.cfg.HTTP.Addr()),
	)

	g.Go(func() error { return b.srv.Start(gctx) })
	g.Go(func() error {
		if err := b.mgr.Run(gctx); err != nil {
			b.log.Error("bridge: connection manager stopped", zap.Error(err))
			return err
		}
		return nil
	})

	err := g.Wait()
	b.running.Store(false)

	_ = shutdown.GracefulShutdown("sink", b.cfg.Output.FlushTimeout, b.sink.Close, b.log)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.log.Info("bridge: stopped")
	return nil
}

// Run — точка входа сервиса: трейсер, сборка компонентов, запуск.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	shutdownTracer, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Insecure:       cfg.Telemetry.Insecure,
		SamplerRatio:   cfg.Telemetry.SamplerRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		_ = shutdown.GracefulShutdown("telemetry", cfg.HTTP.ShutdownTimeout, shutdownTracer, log)
	}()

	b, err := New(cfg, log)
	if err != nil {
		return err
	}
	return b.Run(ctx)
}
