package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox publish results.
const (
	PublishOK       = "published"
	PublishRetry    = "retry"
	PublishTerminal = "terminal"
)

// OutboxMetrics tracks outbox publisher results per event type.
type OutboxMetrics struct {
	results *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "publish_results_total",
		Help:      "Outbox rows handled by the publisher by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(results)
	return &OutboxMetrics{results: results}
}

// Inc counts one publish attempt result.
func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
