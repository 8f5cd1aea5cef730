// Package metrics exposes the dispatch loop's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for the events_dropped counter.
const (
	ReasonUnrouted    = "unrouted"
	ReasonNoScheduler = "no_scheduler"
)

type Set struct {
	EventsDispatched  prometheus.Counter
	EventsDropped     *prometheus.CounterVec
	PipelineFailures  prometheus.Counter
	PipelinesInFlight prometheus.Gauge
}

// New registers the metric set against reg. Pass a fresh registry in tests
// to avoid duplicate registration.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		EventsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_events_dispatched_total",
			Help: "Events handed to a pipeline scheduler",
		}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_events_dropped_total",
			Help: "Events discarded before reaching a scheduler",
		}, []string{"reason"}),
		PipelineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_pipeline_failures_total",
			Help: "Pipeline executions that ended with an error or panic",
		}),
		PipelinesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parley_pipelines_inflight",
			Help: "Pipeline executions currently running",
		}),
	}
}
