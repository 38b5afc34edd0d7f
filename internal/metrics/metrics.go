// Package metrics exposes Prometheus counters for the logger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the logger's collectors and the registry they are registered in.
type Metrics struct {
	Messages     prometheus.Counter
	DecodeErrors prometheus.Counter
	Rows         *prometheus.CounterVec // by log
	WriteErrors  *prometheus.CounterVec // by log
	Transitions  *prometheus.CounterVec // by event

	registry *prometheus.Registry
}

// New creates collectors under namespace in a fresh registry, together with
// the Go runtime and process collectors.
func New(namespace string) *Metrics {
	m := &Metrics{
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Number of MQTT messages received.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Number of messages dropped because the payload could not be decoded.",
		}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Number of rows appended, by log.",
		}, []string{"log"}),
		WriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_errors_total",
			Help:      "Number of failed appends, by log.",
		}, []string{"log"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Number of detected transitions, by event.",
		}, []string{"event"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Messages,
		m.DecodeErrors,
		m.Rows,
		m.WriteErrors,
		m.Transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
