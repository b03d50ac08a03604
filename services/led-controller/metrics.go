package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics sdružuje Prometheus metriky ovladače.
type Metrics struct {
	transmissions *prometheus.CounterVec
	samples       prometheus.Counter
	connection    prometheus.Gauge
}

// NewMetrics zaregistruje metriky do reg (v main prometheus.DefaultRegisterer).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	transmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socket_transmissions_total",
		Help: "Transmission edges by outcome (edge=publish|persist).",
	}, []string{"edge", "result"})
	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socket_samples_total",
		Help: "Sampling ticks of the noise field.",
	})
	connection := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socket_broker_connection_state",
		Help: "Broker connection state: 0 disconnected, 1 connecting, 2 connected.",
	})

	reg.MustRegister(transmissions, samples, connection)

	return &Metrics{
		transmissions: transmissions,
		samples:       samples,
		connection:    connection,
	}
}

func (m *Metrics) edge(edge, result string) {
	m.transmissions.WithLabelValues(edge, result).Inc()
}
