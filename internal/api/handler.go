// Package api serves the latest candle and service diagnostics over HTTP.
// Handlers only read the store and the session snapshot; they never wait on
// the upstream connection.
package api

import (
	"net/http"
	"time"

	"github.com/segmentio/encoding/json"
	"golang.org/x/time/rate"

	"github.com/YaganovValera/ohlcv-bridge/common/httpserver"
	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/middleware"
	"github.com/YaganovValera/ohlcv-bridge/internal/candle"
	"github.com/YaganovValera/ohlcv-bridge/internal/session"
	"github.com/YaganovValera/ohlcv-bridge/internal/sink"
)

// FreshnessWindow: a record younger than this (by ingest time) is fresh.
const FreshnessWindow = 120 * time.Second

const msgNoData = "No data available yet"

// Reader is the read side of the store.
type Reader interface {
	Latest() (candle.Record, bool)
}

// StateReader exposes the connection manager's snapshot.
type StateReader interface {
	Snapshot() session.Snapshot
}

// Info is static service metadata shown by / and /status.
type Info struct {
	Service  string
	Version  string
	Symbol   string
	Interval string
	Sink     sink.Config
}

// Handler implements the query surface.
type Handler struct {
	info    Info
	store   Reader
	sess    StateReader
	running func() bool
	now     func() time.Time
	limit   rate.Limit
	burst   int
	log     *logger.Logger
}

// Option customises a Handler.
type Option func(*Handler)

// WithClock overrides the server clock.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithRateLimit caps the request rate of the whole surface; limit 0 disables it.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(h *Handler) {
		h.limit = limit
		h.burst = burst
	}
}

// New builds a Handler. running reports the supervisor's running flag.
func New(info Info, store Reader, sess StateReader, running func() bool, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		info:    info,
		store:   store,
		sess:    sess,
		running: running,
		now:     time.Now,
		log:     log.Named("api"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Paths lists every route served by Routes.
var Paths = []string{"/", "/ohlcv", "/ohlcv/csv", "/health", "/status", "/ping"}

// Routes returns the mux wrapped with CORS, cache suppression and the rate
// limit, in that order, so a 429 carries the same headers as any other reply.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /ohlcv", h.ohlcv)
	mux.HandleFunc("GET /ohlcv/csv", h.ohlcvCSV)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /ping", h.ping)
	mux.HandleFunc("/", notFound)

	return middleware.Compose(
		httpserver.CORS(),
		middleware.NoCache(),
		middleware.RateLimit(h.limit, h.burst),
	)(mux)
}

var known = func() map[string]bool {
	m := make(map[string]bool, len(Paths))
	for _, p := range Paths {
		m[p] = true
	}
	return m
}()

// notFound: известный путь с чужим методом → 405, остальное → 404.
func notFound(w http.ResponseWriter, r *http.Request) {
	if known[r.URL.Path] {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	writeError(w, http.StatusNotFound, "Not Found")
}

func (h *Handler) serverTime() int64 { return h.now().UnixMilli() }

func (h *Handler) isRunning() bool { return h.running == nil || h.running() }

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	status := "stopped"
	if h.isRunning() {
		status = "running"
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{
		"service":  h.info.Service,
		"version":  h.info.Version,
		"status":   status,
		"symbol":   h.info.Symbol,
		"interval": h.info.Interval,
		"endpoints": map[string]string{
			"ohlcv":     "/ohlcv",
			"ohlcv_csv": "/ohlcv/csv",
			"health":    "/health",
			"status":    "/status",
			"ping":      "/ping",
		},
	})
}

type ohlcvResponse struct {
	Timestamp  int64       `json:"timestamp"`
	Open       json.Number `json:"open"`
	High       json.Number `json:"high"`
	Low        json.Number `json:"low"`
	Close      json.Number `json:"close"`
	Volume     json.Number `json:"volume"`
	IsClosed   bool        `json:"is_closed"`
	ServerTime int64       `json:"server_time"`
}

func (h *Handler) ohlcv(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, msgNoData)
		return
	}
	p := rec.Payload()
	writeJSON(w, h.log, http.StatusOK, ohlcvResponse{
		Timestamp:  p.Timestamp,
		Open:       p.Open,
		High:       p.High,
		Low:        p.Low,
		Close:      p.Close,
		Volume:     p.Volume,
		IsClosed:   p.IsClosed,
		ServerTime: h.serverTime(),
	})
}

func (h *Handler) ohlcvCSV(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.store.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, msgNoData)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]string{"csv": rec.CSV()})
}

type healthResponse struct {
	Status             string `json:"status"`
	WebsocketConnected bool   `json:"websocket_connected"`
	LastDataTimestamp  *int64 `json:"last_data_timestamp"`
	DataAgeMs          *int64 `json:"data_age_ms"`
	IsDataFresh        bool   `json:"is_data_fresh"`
	ReconnectCount     int    `json:"reconnect_count"`
	ServerTime         int64  `json:"server_time"`
}

// Freshness computes data age at now and whether it is within FreshnessWindow.
// With no record the age is nil and the data is never fresh.
func Freshness(now time.Time, rec candle.Record, ok bool) (age *int64, fresh bool) {
	if !ok {
		return nil, false
	}
	d := rec.Age(now)
	a := d.Milliseconds()
	return &a, d < FreshnessWindow
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	rec, ok := h.store.Latest()
	snap := h.sess.Snapshot()
	age, fresh := Freshness(now, rec, ok)

	connected := snap.State == session.Connected
	resp := healthResponse{
		Status:             "unhealthy",
		WebsocketConnected: connected,
		DataAgeMs:          age,
		IsDataFresh:        fresh,
		ReconnectCount:     snap.Reconnects,
		ServerTime:         now.UnixMilli(),
	}
	if ok {
		ts := rec.IngestedAt
		resp.LastDataTimestamp = &ts
	}
	if h.isRunning() && connected && fresh {
		resp.Status = "healthy"
	}
	writeJSON(w, h.log, http.StatusOK, resp)
}

type statusResponse struct {
	Connector struct {
		Running        bool   `json:"running"`
		State          string `json:"state"`
		Attempts       int    `json:"attempts"`
		ReconnectCount int    `json:"reconnect_count"`
		LastError      string `json:"last_error,omitempty"`
		StateSince     int64  `json:"state_since"`
		Symbol         string `json:"symbol"`
		Interval       string `json:"interval"`
	} `json:"connector"`
	LatestCandle struct {
		Available bool            `json:"available"`
		Data      *candle.Payload `json:"data"`
	} `json:"latest_candle"`
	Config struct {
		FileOutput   bool   `json:"file_output"`
		OutputFile   string `json:"output_file"`
		OutputFormat string `json:"output_format"`
	} `json:"config"`
	ServerTime int64 `json:"server_time"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	snap := h.sess.Snapshot()
	rec, ok := h.store.Latest()

	var resp statusResponse
	resp.Connector.Running = h.isRunning()
	resp.Connector.State = snap.State.String()
	resp.Connector.Attempts = snap.Attempts
	resp.Connector.ReconnectCount = snap.Reconnects
	resp.Connector.LastError = snap.LastError
	resp.Connector.StateSince = snap.Since.UnixMilli()
	resp.Connector.Symbol = h.info.Symbol
	resp.Connector.Interval = h.info.Interval

	resp.LatestCandle.Available = ok
	if ok {
		p := rec.Payload()
		resp.LatestCandle.Data = &p
	}

	resp.Config.FileOutput = h.info.Sink.Enabled
	resp.Config.OutputFile = h.info.Sink.Path
	resp.Config.OutputFormat = string(h.info.Sink.Format)
	resp.ServerTime = h.serverTime()

	writeJSON(w, h.log, http.StatusOK, resp)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, map[string]int64{"pong": h.serverTime()})
}
