package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/middleware"
	"github.com/YaganovValera/ohlcv-bridge/common/prometheus"
)

// ReadyChecker returns nil if the service is ready to serve.
type ReadyChecker func() error

// Server — HTTP-сервер приложения со служебными маршрутами.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	bound           atomic.Pointer[string]
	log             *logger.Logger
}

// New constructs a Server. app serves every path not taken by the
// probe routes; mws wrap the whole mux, outermost first, after Recover.
func New(cfg Config, check ReadyChecker, log *logger.Logger, app http.Handler, mws ...middleware.Middleware) (*Server, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("http-server")

	mux := http.NewServeMux()
	mountProbes(mux, cfg.Paths, check)
	if app != nil {
		mux.Handle("/", app)
	}

	chain := append([]middleware.Middleware{Recover(log)}, mws...)
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           middleware.Compose(chain...)(mux),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
	}, nil
}

func mountProbes(mux *http.ServeMux, p Paths, check ReadyChecker) {
	mux.Handle(p.Metrics, prometheus.Handler())
	mux.HandleFunc(p.Healthz, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc(p.Readyz, func(w http.ResponseWriter, _ *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				http.Error(w, "NOT READY: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("READY"))
	})
}

// Handler returns the fully wrapped handler (used by tests).
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Addr — фактический адрес после Start (с портом при ":0"), до Start — из конфига.
func (s *Server) Addr() string {
	if a := s.bound.Load(); a != nil {
		return *a
	}
	return s.srv.Addr
}

// Start binds the listener, serves until ctx is done and then shuts down,
// giving in-flight requests up to ShutdownTimeout. Returns nil after a
// clean shutdown, the bind/serve error otherwise.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.srv.Addr, err)
	}
	addr := ln.Addr().String()
	s.bound.Store(&addr)
	s.log.Info("http: serving", zap.String("addr", addr))

	serveErr := make(chan error, 1)
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("httpserver: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http: graceful shutdown failed", zap.Error(err))
		return err
	}
	s.log.Info("http: stopped")
	return <-serveErr
}
