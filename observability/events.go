package observability

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"jarvault/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured module events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jarvault",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of module events segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record increments the event counter for the supplied event type.
func (m *eventMetrics) Record(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
}

// MetricsEmitter counts every module event by type before forwarding it to
// the wrapped emitter, when one is set.
type MetricsEmitter struct {
	Next events.Emitter
}

// Emit implements the events.Emitter interface.
func (m MetricsEmitter) Emit(e events.Event) {
	Events().Record(e.EventType())
	if m.Next != nil {
		m.Next.Emit(e)
	}
}

// LogEmitter writes every module event to the structured log at info level.
type LogEmitter struct {
	Log *slog.Logger
}

// Emit implements the events.Emitter interface.
func (l LogEmitter) Emit(e events.Event) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("module event", "type", e.EventType())
}
