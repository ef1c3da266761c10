package relay

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports dispatcher outcomes to Prometheus.
type Metrics struct {
	Notifications *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the relay metrics with reg.
// Panics if registration fails (prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discordbot_notifications_total",
				Help: "MQTT notifications handled, by outcome and recipient kind",
			},
			[]string{"outcome", "kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "discordbot_delivery_duration_seconds",
				Help:    "Time from MQTT receipt to Discord response",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.Notifications)
	reg.MustRegister(m.Duration)

	return m
}

// Record implements Recorder.
func (m *Metrics) Record(_ context.Context, o Outcome) {
	kind := string(o.Kind)
	if kind == "" {
		kind = "none"
	}
	m.Notifications.WithLabelValues(string(o.Status), kind).Inc()
	m.Duration.WithLabelValues(string(o.Status)).Observe(o.Duration.Seconds())
}
