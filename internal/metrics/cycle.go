package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/venuewatch/venuewatch/internal/models"
)

// CycleCollector records collection pass outcomes.
type CycleCollector struct {
	cycles     *prometheus.CounterVec
	candidates *prometheus.CounterVec
	newEvents  *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
}

// NewCycleCollector registers the cycle metrics on reg.
func NewCycleCollector(reg prometheus.Registerer) (*CycleCollector, error) {
	c := &CycleCollector{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Completed collection passes.",
		}, []string{"kind"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "candidates_total",
			Help:      "Candidate events collected, per source channel.",
		}, []string{"source"}),
		newEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "events_new_total",
			Help:      "Events persisted as new, per source channel.",
		}, []string{"source"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duplicates_total",
			Help:      "Candidates dropped because the event was already stored.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "failures_total",
			Help:      "Candidates that could not be persisted.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Wall time of collection passes.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "fallbacks_total",
			Help:      "Enrichment steps that fell back to static content.",
		}, []string{"kind"}),
	}

	for _, collector := range []prometheus.Collector{
		c.cycles, c.candidates, c.newEvents, c.duplicates, c.failures, c.duration, c.fallbacks,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveCandidates counts candidates collected from one channel.
func (c *CycleCollector) ObserveCandidates(source models.SourceChannel, n int) {
	if n <= 0 {
		return
	}
	c.candidates.WithLabelValues(string(source)).Add(float64(n))
}

// ObserveCycle records a finished pass.
func (c *CycleCollector) ObserveCycle(result models.CycleResult) {
	kind := string(result.Kind)
	c.cycles.WithLabelValues(kind).Inc()
	c.duration.WithLabelValues(kind).Observe(result.Duration.Seconds())
	c.duplicates.WithLabelValues(kind).Add(float64(result.Duplicates))
	c.failures.WithLabelValues(kind).Add(float64(result.Failed))
	for source, n := range result.NewBySource {
		c.newEvents.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveFallback counts an enrichment fallback. Its signature matches
// enrichment.WithFallbackHook.
func (c *CycleCollector) ObserveFallback(kind string) {
	c.fallbacks.WithLabelValues(kind).Inc()
}
