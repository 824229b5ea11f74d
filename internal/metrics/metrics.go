package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/orderpush/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EventsReceived         *prometheus.CounterVec
	EventsSkipped          *prometheus.CounterVec
	EventsFailed           prometheus.Counter
	DispatchOutcomes       *prometheus.CounterVec
	CredentialsInvalidated prometheus.Counter
	DispatchLatency        prometheus.Histogram
	ConsumerRedeliveries   prometheus.Counter
	ConsumerDropped        prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_events_received_total",
			Help: "Order change events received, by trigger kind.",
		}, []string{"trigger"}),

		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_events_skipped_total",
			Help: "Events that ended as an informational no-op, by reason.",
		}, []string{"reason"}),

		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_events_failed_total",
			Help: "Events aborted for redelivery (upstream unavailable or batch in flight).",
		}),

		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_dispatch_outcomes_total",
			Help: "Per-recipient dispatch outcomes, by kind.",
		}, []string{"kind"}),

		CredentialsInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_credentials_invalidated_total",
			Help: "Identities whose push credential was cleared after a permanent failure.",
		}),

		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "push_dispatch_seconds",
			Help:    "Latency of one batch send to the push provider.",
			Buckets: prometheus.DefBuckets,
		}),

		ConsumerRedeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consumer_redeliveries_total",
			Help: "Change events retried by a Kafka worker after a redeliverable error.",
		}),

		ConsumerDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consumer_dropped_total",
			Help: "Change events committed without success after exhausting redeliveries.",
		}),
	}

	reg.MustRegister(
		m.EventsReceived,
		m.EventsSkipped,
		m.EventsFailed,
		m.DispatchOutcomes,
		m.CredentialsInvalidated,
		m.DispatchLatency,
		m.ConsumerRedeliveries,
		m.ConsumerDropped,
	)

	return m
}

// PipelineHooks carries the metric callbacks injected into the dispatch
// service. Any nil field is treated as a no-op by the service.
type PipelineHooks struct {
	OnReceived   func(trigger string)
	OnSkipped    func(reason domain.SkipReason)
	OnFailed     func()
	OnDispatched func(outcomes []domain.DispatchOutcome, latency time.Duration)
	OnCleared    func(n int)
}

// Hooks centralises the prometheus observation calls so the pipeline only
// sees plain callbacks.
func (m *Metrics) Hooks() PipelineHooks {
	return PipelineHooks{
		OnReceived: func(trigger string) {
			m.EventsReceived.WithLabelValues(trigger).Inc()
		},
		OnSkipped: func(reason domain.SkipReason) {
			m.EventsSkipped.WithLabelValues(string(reason)).Inc()
		},
		OnFailed: func() {
			m.EventsFailed.Inc()
		},
		OnDispatched: func(outcomes []domain.DispatchOutcome, latency time.Duration) {
			for _, o := range outcomes {
				m.DispatchOutcomes.WithLabelValues(string(o.Kind)).Inc()
			}
			m.DispatchLatency.Observe(latency.Seconds())
		},
		OnCleared: func(n int) {
			m.CredentialsInvalidated.Add(float64(n))
		},
	}
}

// WorkerHooks returns the callbacks for the Kafka consumer workers.
func (m *Metrics) WorkerHooks() (onRedelivered, onDropped func()) {
	onRedelivered = func() { m.ConsumerRedeliveries.Inc() }
	onDropped = func() { m.ConsumerDropped.Inc() }
	return
}
