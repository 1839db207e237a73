package main

import (
	"go.uber.org/zap"

	"sblar/internal/config"
	"sblar/internal/metrics"
	"sblar/internal/metrics/datadog"
	"sblar/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns the function that
// flushes it at exit. A backend that fails to start leaves metrics disabled.
func setupMetrics(m config.Metrics, job string, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      m.DatadogAddr,
			Namespace: m.Namespace,
			Tags:      m.Tags,
		})
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", m.Backend))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; metrics disabled", zap.String("backend", m.Backend), zap.Error(err))
		return func() {}
	}
	log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("job", job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}
}
