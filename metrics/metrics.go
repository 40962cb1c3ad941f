package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	statusError   = "error"
)

var (
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rootstock_mcp_tool_calls_total",
			Help: "Total number of tool dispatches",
		},
		[]string{"tool", "status"}, // status: success|<error kind>
	)

	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rootstock_mcp_tool_duration_seconds",
			Help:    "Tool dispatch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	RPCRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rootstock_mcp_rpc_requests_total",
			Help: "Total number of chain RPC requests",
		},
		[]string{"method", "status"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ToolCalls, ToolDuration, RPCRequests)
	})
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordToolCall records one finished dispatch.
func RecordToolCall(tool, status string, started time.Time) {
	ToolCalls.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(time.Since(started).Seconds())
}

// RecordRPC records one chain RPC round trip.
func RecordRPC(method string, err error) {
	status := StatusSuccess
	if err != nil {
		status = statusError
	}
	RPCRequests.WithLabelValues(method, status).Inc()
}
