package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics of the sync runs, pushed to a prometheus push gateway at the end of a run
type Metrics struct {
	registry    *prometheus.Registry
	gateway     string
	job         string
	found       *prometheus.GaugeVec
	loaded      *prometheus.GaugeVec
	errors      *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// NewMetrics creates the metrics. If gateway is empty, Push does nothing
func NewMetrics(gateway, job string) *Metrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stac_ingester",
			Name:      name,
			Help:      help,
		}, []string{"collection"})
	}
	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		gateway:     gateway,
		job:         job,
		found:       gauge("found_records", "Number of records found upstream by the last run"),
		loaded:      gauge("loaded_items", "Number of STAC items loaded by the last run"),
		errors:      gauge("failed_records", "Number of records that could not be transformed by the last run"),
		duration:    gauge("run_duration_seconds", "Duration of the last run"),
		lastSuccess: gauge("last_success_timestamp_seconds", "Time of the last successful run"),
	}
	m.registry.MustRegister(m.found, m.loaded, m.errors, m.duration, m.lastSuccess)
	return m
}

// Observe records the result of a run
func (m *Metrics) Observe(collection string, r Report, d time.Duration, err error) {
	m.found.WithLabelValues(collection).Set(float64(r.Found))
	m.loaded.WithLabelValues(collection).Set(float64(r.Loaded))
	m.errors.WithLabelValues(collection).Set(float64(len(r.Errors)))
	m.duration.WithLabelValues(collection).Set(d.Seconds())
	if err == nil {
		m.lastSuccess.WithLabelValues(collection).SetToCurrentTime()
	}
}

// Push sends the metrics to the push gateway
func (m *Metrics) Push(ctx context.Context) error {
	if m.gateway == "" {
		return nil
	}
	if err := push.New(m.gateway, m.job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("Metrics.Push: %w", err)
	}
	return nil
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
