package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation channels used as metric labels.
const (
	channelWebhook  = "webhook"
	channelSimulate = "simulate"
)

// Metrics exposes Prometheus collectors for the agent.
type Metrics struct {
	replies            *prometheus.CounterVec
	personaFallbacks   prometheus.Counter
	generationFailures *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
}

// MustNewMetrics registers the agent collectors with reg. Registration errors
// panic, mirroring the promauto helpers. Tests should pass a fresh registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "closerflow",
			Name:      "webhook_replies_total",
			Help:      "Inbound webhook requests by terminal outcome.",
		}, []string{"outcome"}),
		personaFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "closerflow",
			Name:      "persona_fallback_total",
			Help:      "Requests served with the built-in persona because the environment persona was invalid.",
		}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "closerflow",
			Name:      "generation_failures_total",
			Help:      "Completion calls that failed.",
		}, []string{"channel"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "closerflow",
			Name:      "generation_duration_seconds",
			Help:      "Latency of completion calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	reg.MustRegister(m.replies, m.personaFallbacks, m.generationFailures, m.generationDuration)
	return m
}

func (m *Metrics) observeReply(outcome Outcome) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) incPersonaFallback() {
	if m == nil {
		return
	}
	m.personaFallbacks.Inc()
}

func (m *Metrics) observeGeneration(channel string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(channel).Observe(took.Seconds())
	if err != nil {
		m.generationFailures.WithLabelValues(channel).Inc()
	}
}
