// Package datadog sends run metrics to a DogStatsD agent.
//
// Names follow Datadog's dotted convention, so sblar_findings_total is sent
// as sblar.findings and sblar_phase_duration_seconds as the distribution
// sblar.phase.duration. Labels become "key:value" tags.
package datadog

import (
	"errors"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"sblar/internal/metrics"
)

// Config selects the agent and the tags added to every metric.
type Config struct {
	// Addr is "host:port" or "unix:///path/to/dsd.socket".
	Addr string
	// Namespace is prepended to every name, e.g. "lending.".
	Namespace string
	// Tags are added to every metric, e.g. "env:prod".
	Tags []string
}

// client is the part of statsd.ClientInterface the backend uses.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Distribution(name string, value float64, tags []string, rate float64) error
	Close() error
}

// Backend implements metrics.Backend.
type Backend struct {
	client client
}

// NewBackend connects to cfg.Addr. DogStatsD is fire and forget, so an agent
// that is not running does not make this fail.
func NewBackend(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("datadog: agent address is required")
	}
	opts := []statsd.Option{statsd.WithTags(cfg.Tags)}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Backend{client: c}, nil
}

// IncCounter sends delta, truncated to an integer, as a count.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil || delta < 1 {
		return
	}
	_ = b.client.Count(dotted(name), int64(delta), tags(labels), 1)
}

// ObserveHistogram sends value as a distribution so percentiles are computed
// across hosts.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Distribution(dotted(name), value, tags(labels), 1)
}

// Flush closes the client, sending anything buffered. Call it once at exit.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// dotted turns a Prometheus style name into a Datadog one.
func dotted(name string) string {
	name = strings.TrimSuffix(name, "_total")
	name = strings.TrimSuffix(name, "_seconds")
	return strings.ReplaceAll(name, "_", ".")
}

// tags renders labels sorted by key. Empty values are dropped.
func tags(labels metrics.Labels) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for k, v := range labels {
		if v != "" {
			out = append(out, k+":"+v)
		}
	}
	sort.Strings(out)
	return out
}
