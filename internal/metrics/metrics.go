package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ControlRequests counts control socket requests by command verb and outcome
	ControlRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifid",
			Name:      "control_requests_total",
			Help:      "Total number of requests sent to the supplicant control socket",
		},
		[]string{"command", "result"},
	)

	// Events counts unsolicited supplicant events by name
	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifid",
			Name:      "events_total",
			Help:      "Total number of supplicant events received",
		},
		[]string{"event"},
	)

	// ConnectionAttempts counts network selections by how they ended
	ConnectionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifid",
			Name:      "connection_attempts_total",
			Help:      "Total number of connection attempts by outcome",
		},
		[]string{"outcome"},
	)

	// DaemonStarts counts supplicant launches
	DaemonStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wifid",
			Name:      "daemon_starts_total",
			Help:      "Total number of supplicant process launches by result",
		},
		[]string{"result"},
	)

	// SessionState is the numeric session state (0 disabled .. 3 enabled)
	SessionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wifid",
			Name:      "session_state",
			Help:      "Current Wi-Fi session state",
		},
	)

	// ScanResults is the size of the current scan result set
	ScanResults = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wifid",
			Name:      "scan_results",
			Help:      "Number of access points in the current scan result set",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// Safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ControlRequests)
		prometheus.DefaultRegisterer.Register(Events)
		prometheus.DefaultRegisterer.Register(ConnectionAttempts)
		prometheus.DefaultRegisterer.Register(DaemonStarts)
		prometheus.DefaultRegisterer.Register(SessionState)
		prometheus.DefaultRegisterer.Register(ScanResults)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
