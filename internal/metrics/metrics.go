package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	AuthDecisions *prometheus.CounterVec
	MediaBatches  *prometheus.CounterVec
	EventsFailed  *prometheus.CounterVec
}

// New builds the collectors on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gogomedia_auth_decisions_total",
			Help: "Authorization gate outcomes by result",
		}, []string{"result"}),
		MediaBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gogomedia_media_batches_total",
			Help: "Media upsert batches by result",
		}, []string{"result"}),
		EventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gogomedia_event_publish_failures_total",
			Help: "Domain events that could not be published",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.AuthDecisions,
		m.MediaBatches,
		m.EventsFailed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) AuthDecision(result string) {
	m.AuthDecisions.WithLabelValues(result).Inc()
}

func (m *Metrics) MediaBatch(result string) {
	m.MediaBatches.WithLabelValues(result).Inc()
}

func (m *Metrics) EventFailed(eventType string) {
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
