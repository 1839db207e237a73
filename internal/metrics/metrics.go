// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from validation runs.
//
// A global, pluggable Backend defaults to a no-op implementation, so the
// engine can always record without checking whether metrics are configured.
// Concrete systems live in subpackages (prompush for a Prometheus
// Pushgateway, datadog for DogStatsD) and are installed by the CLI.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by this package.
const (
	PhaseTotal    = "sblar_phase_total"
	PhaseDuration = "sblar_phase_duration_seconds"
	RecordsTotal  = "sblar_records_total"
	FindingsTotal = "sblar_findings_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordPhase counts one validation phase and its duration, labelled with
// success or failure.
func RecordPhase(job, phase string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"phase":  phase,
		"status": status,
	}
	b := current()
	b.IncCounter(PhaseTotal, 1, lbls)
	b.ObserveHistogram(PhaseDuration, d.Seconds(), lbls)
}

// RecordRows adds validated rows for a phase.
func RecordRows(job, phase string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":   job,
		"phase": phase,
	})
}

// RecordFindings adds failures for one severity and scope bucket.
func RecordFindings(job, phase, severity, scope string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(FindingsTotal, float64(delta), Labels{
		"job":      job,
		"phase":    phase,
		"severity": severity,
		"scope":    scope,
	})
}
