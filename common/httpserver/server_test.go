package httpserver_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/common/httpserver"
	"github.com/YaganovValera/ohlcv-bridge/common/logger"
)

func TestNew_ConfigValidation(t *testing.T) {
	cases := map[string]httpserver.Config{
		"empty addr":     {},
		"no port":        {Addr: "localhost"},
		"relative path":  {Addr: ":0", Paths: httpserver.Paths{Metrics: "metrics"}},
		"duplicate path": {Addr: ":0", Paths: httpserver.Paths{Healthz: "/p", Readyz: "/p"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := httpserver.New(cfg, nil, logger.NewNop(), nil)
			require.Error(t, err)
		})
	}
}

func TestNew_CustomProbePaths(t *testing.T) {
	srv, err := httpserver.New(httpserver.Config{
		Addr:  "127.0.0.1:0",
		Paths: httpserver.Paths{Healthz: "/live"},
	}, nil, logger.NewNop(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestProbes(t *testing.T) {
	ready := errors.New("not connected")
	srv, err := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0"},
		func() error { return ready }, logger.NewNop(), nil)
	require.NoError(t, err)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not connected")

	ready = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecover_PanicBecomes500(t *testing.T) {
	app := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	srv, err := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0"}, nil, logger.NewNop(), app)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"code":500,"message":"internal server error"}}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	app := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := httpserver.CORS()(app)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://terminal.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	srv, err := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, nil, logger.NewNop(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_AddrInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv, err := httpserver.New(httpserver.Config{Addr: l.Addr().String()}, nil, logger.NewNop(), nil)
	require.NoError(t, err)
	require.Error(t, srv.Start(context.Background()))
}
