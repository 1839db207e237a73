// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Validation runs are short-lived batch jobs, so instead of exposing a scrape
// endpoint the collected series are pushed to a Pushgateway when the run
// flushes. The job name is the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"sblar/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	phaseCounter   *prometheus.CounterVec
	phaseDuration  *prometheus.SummaryVec
	recordCounter  *prometheus.CounterVec
	findingCounter *prometheus.CounterVec
}

// NewBackend constructs a Prometheus Pushgateway backend.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sblar"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		phaseCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.PhaseTotal,
			Help: "Validation phases executed, partitioned by phase and status.",
		}, []string{"phase", "status"}),
		phaseDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.PhaseDuration,
			Help:       "Duration of validation phases in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"phase", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Records validated, per phase.",
		}, []string{"phase"}),
		findingCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FindingsTotal,
			Help: "Validation failures per phase, severity and scope.",
		}, []string{"phase", "severity", "scope"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"phase counter":   b.phaseCounter,
		"phase summary":   b.phaseDuration,
		"record counter":  b.recordCounter,
		"finding counter": b.findingCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.PhaseTotal:
		b.phaseCounter.WithLabelValues(labels["phase"], labels["status"]).Add(delta)
	case metrics.RecordsTotal:
		b.recordCounter.WithLabelValues(labels["phase"]).Add(delta)
	case metrics.FindingsTotal:
		b.findingCounter.WithLabelValues(labels["phase"], labels["severity"], labels["scope"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.PhaseDuration {
		return
	}
	b.phaseDuration.WithLabelValues(labels["phase"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
