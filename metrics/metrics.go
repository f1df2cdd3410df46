// Package metrics exposes Prometheus collectors fed by educonnect activity
// events.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-educonnect"
)

const namespace = "educonnect"

// Collectors groups the EduConnect metrics registered on one registry.
type Collectors struct {
	// AuthEvents counts activity events by type and role.
	AuthEvents *prometheus.CounterVec

	// Instances tracks live application instances.
	Instances prometheus.Gauge

	// BootstrapDuration measures the initial session lookup.
	BootstrapDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		AuthEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_events_total",
				Help:      "Total number of auth and session activity events",
			},
			[]string{"event", "role"},
		),
		Instances: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "instances",
				Help:      "Number of live application instances",
			},
		),
		BootstrapDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bootstrap_duration_seconds",
				Help:      "Duration of the initial session lookup in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
	}
}

// Sink returns an ActivitySink updating c.
func (c *Collectors) Sink() educonnect.ActivitySink {
	return educonnect.ActivitySinkFunc(func(_ context.Context, event educonnect.ActivityEvent) error {
		c.Record(event)
		return nil
	})
}

// Record updates the collectors for event.
func (c *Collectors) Record(event educonnect.ActivityEvent) {
	role := string(event.Role)
	if role == "" {
		role = "none"
	}
	c.AuthEvents.WithLabelValues(string(event.EventType), role).Inc()

	switch event.EventType {
	case educonnect.ActivityEventInstanceCreated:
		c.Instances.Inc()
	case educonnect.ActivityEventInstanceClosed:
		c.Instances.Dec()
	case educonnect.ActivityEventBootstrapComplete:
		c.observeBootstrap("success", event)
	case educonnect.ActivityEventBootstrapFailure:
		c.observeBootstrap("failure", event)
	}
}

func (c *Collectors) observeBootstrap(outcome string, event educonnect.ActivityEvent) {
	if elapsed, ok := event.Metadata["elapsed"].(float64); ok {
		c.BootstrapDuration.WithLabelValues(outcome).Observe(elapsed)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
