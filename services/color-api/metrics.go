package main

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics počítá požadavky na API historie.
type Metrics struct {
	requests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "color_api_requests_total",
		Help: "History API requests by route and status code.",
	}, []string{"route", "code"})
	reg.MustRegister(requests)
	return &Metrics{requests: requests}
}

func (m *Metrics) observe(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
