// Package metrics exposes the Prometheus collectors of the raffle client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rafflefront"

// Registry owns a private Prometheus registry. A nil *Registry is a valid no-op sink.
type Registry struct {
	registry         *prometheus.Registry
	contractCalls    *prometheus.CounterVec
	contractDuration *prometheus.HistogramVec
	entryTransitions *prometheus.CounterVec
	walletConnected  prometheus.Gauge
	viewers          prometheus.Gauge
	replays          prometheus.Counter
}

func New() *Registry {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "operations_total",
		Help:      "Count of raffle contract calls.",
	}, []string{"operation", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "operation_duration_seconds",
		Help:      "Duration of raffle contract calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entry_transitions_total",
		Help:      "Raffle entry attempts by reached status.",
	}, []string{"status"})

	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wallet_connected",
		Help:      "1 while a wallet session is connected.",
	})

	viewers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_viewers",
		Help:      "Open live view streams.",
	})

	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Entry requests answered from the replay cache.",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(calls, duration, entries, connected, viewers, replays)

	return &Registry{
		registry:         r,
		contractCalls:    calls,
		contractDuration: duration,
		entryTransitions: entries,
		walletConnected:  connected,
		viewers:          viewers,
		replays:          replays,
	}
}

func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records a single contract call outcome and duration.
func (m *Registry) ObserveCall(operation string, err error, started time.Time) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.contractCalls.WithLabelValues(operation, status).Inc()
	m.contractDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

func (m *Registry) IncEntry(status string) {
	if m == nil {
		return
	}
	m.entryTransitions.WithLabelValues(status).Inc()
}

func (m *Registry) SetWalletConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.walletConnected.Set(1)
		return
	}
	m.walletConnected.Set(0)
}

func (m *Registry) ViewerOpened() {
	if m == nil {
		return
	}
	m.viewers.Inc()
}

func (m *Registry) ViewerClosed() {
	if m == nil {
		return
	}
	m.viewers.Dec()
}

func (m *Registry) IncReplay() {
	if m == nil {
		return
	}
	m.replays.Inc()
}
