// Package metrics exposes Prometheus instrumentation for the admission
// pipeline and tracker ingest path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalward/signalward/internal/filters"
)

// Collector owns a private registry so tests and embedded uses never fight
// over the global default registry.
type Collector struct {
	registry *prometheus.Registry

	verdicts        *prometheus.CounterVec
	filterFailures  *prometheus.CounterVec
	evalDuration    prometheus.Histogram
	recordsIngested prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalward",
			Name:      "verdicts_total",
			Help:      "Admission verdicts by result.",
		}, []string{"result"}),
		filterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signalward",
			Name:      "filter_failures_total",
			Help:      "Evaluator failures by evaluator name.",
		}, []string{"evaluator"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signalward",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating one signal through the pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		recordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signalward",
			Name:      "execution_records_total",
			Help:      "Execution records ingested by the tracker.",
		}),
	}
	c.registry.MustRegister(c.verdicts, c.filterFailures, c.evalDuration, c.recordsIngested)
	return c
}

// Registry exposes the underlying registry for promhttp handlers.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordVerdict counts one pipeline decision plus every failing evaluator.
func (c *Collector) RecordVerdict(v *filters.Verdict, elapsed time.Duration) {
	result := "blocked"
	if v.Allow {
		result = "admitted"
	}
	c.verdicts.WithLabelValues(result).Inc()
	for name, res := range v.Results {
		if !res.Passes {
			c.filterFailures.WithLabelValues(name).Inc()
		}
	}
	c.evalDuration.Observe(elapsed.Seconds())
}

// RecordIngest counts execution records accepted by the tracker.
func (c *Collector) RecordIngest(n int) {
	c.recordsIngested.Add(float64(n))
}
