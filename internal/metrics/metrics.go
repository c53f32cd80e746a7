// internal/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	promcommon "github.com/YaganovValera/ohlcv-bridge/common/prometheus"
)

const namespace = "ohlcv_bridge"

var (
	once sync.Once

	Frames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "frames_total",
		Help: "Inbound frames by result (accepted/rejected)",
	}, []string{"result"})

	DecodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "decode_errors_total",
		Help: "Rejected frames by error kind",
	}, []string{"kind"})

	LastIngest = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ingest", Name: "last_ingest_timestamp_ms",
		Help: "Epoch ms of the last accepted record",
	})

	Connects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session", Name: "connects_total",
		Help: "Upstream handshake attempts by status",
	}, []string{"status"})

	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session", Name: "reconnects_total",
		Help: "Transitions into Reconnecting",
	})

	State = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "session", Name: "state",
		Help: "Current session state (0=disconnected 1=connecting 2=connected 3=reconnecting 4=stopped)",
	})

	SinkWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "sink", Name: "writes_total",
		Help: "Mirror file writes by status",
	}, []string{"status"})

	SinkDrops = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "sink", Name: "coalesced_total",
		Help: "Pending mirror writes replaced by a newer record before being written",
	})
)

// Register adds all collectors to reg (nil → default registry). Safe to call repeatedly.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		promcommon.MustRegisterMany(reg,
			Frames, DecodeErrors, LastIngest,
			Connects, Reconnects, State,
			SinkWrites, SinkDrops,
		)
	})
}
