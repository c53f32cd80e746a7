package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	promcommon "github.com/YaganovValera/ohlcv-bridge/common/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ohlcv_bridge", Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route, method and status class",
	}, []string{"route", "method", "class"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ohlcv_bridge", Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
	}, []string{"route"})
)

// Metrics считает запросы и их длительность.
// В метку route попадают только пути из routes, остальное → "other".
func Metrics(routes ...string) Middleware {
	registerOnce.Do(func() {
		promcommon.MustRegisterMany(nil, httpRequests, httpLatency)
	})
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			route := "other"
			if _, ok := known[r.URL.Path]; ok {
				route = r.URL.Path
			}
			httpRequests.WithLabelValues(route, r.Method, statusClass(sw.code())).Inc()
			httpLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
