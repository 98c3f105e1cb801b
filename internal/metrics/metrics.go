// Package metrics defines the Prometheus instruments exported by the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "echorelay"

// Delivery outcome label values.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Disconnect reason label values.
const (
	ReasonClosed   = "closed"
	ReasonError    = "error"
	ReasonShutdown = "shutdown"
)

// RelayMetrics holds the connection and fan-out instruments.
type RelayMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesReceived  prometheus.Counter
	Deliveries        *prometheus.CounterVec
	Disconnects       *prometheus.CounterVec
	RejectedUpgrades  prometheus.Counter
}

// NewRelayMetrics creates the relay instruments and registers them on reg.
// A nil reg leaves them unregistered, which is useful in tests.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of connections currently in the registry.",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_received_total",
			Help:      "Total number of text messages received from clients.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "deliveries_total",
			Help:      "Per-recipient fan-out outcomes.",
		}, []string{"result"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "disconnects_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		RejectedUpgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_upgrades_total",
			Help:      "Upgrade requests refused because of capacity or shutdown.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.ActiveConnections, m.MessagesReceived, m.Deliveries, m.Disconnects, m.RejectedUpgrades)
	}
	return m
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
