// Package metrics exposes harvest counters in Prometheus format. The tool
// runs as a batch job, so the registry is written to a node_exporter
// textfile at the end of a run instead of being served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wgharvest"

// Fetch results
const (
	FetchOK      = "ok"
	FetchFailed  = "failed"
	FetchSkipped = "skipped"
)

// Metrics holds every collector for one process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsTotal    *prometheus.CounterVec
	FetchesTotal     *prometheus.CounterVec
	PublishesTotal   *prometheus.CounterVec
	ArchiveFiles     prometheus.Gauge
	ArchiveGroups    prometheus.Gauge
	LedgerSize       prometheus.Gauge
	LastRunTimestamp *prometheus.GaugeVec
}

// New creates a Metrics bound to a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Portal sessions by outcome",
		}, []string{"outcome"}),
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Catalog entries by fetch result",
		}, []string{"result"}),
		PublishesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Archive deliveries by destination and result",
		}, []string{"destination", "result"}),
		ArchiveFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_files",
			Help:      "Files in the last archive written",
		}),
		ArchiveGroups: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_categories",
			Help:      "Categories in the last archive written",
		}),
		LedgerSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_entries",
			Help:      "Identifiers recorded in the ledger",
		}),
		LastRunTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time a run finished, by termination reason",
		}, []string{"reason"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Session(outcome string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Fetch(result string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Publish(destination string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.PublishesTotal.WithLabelValues(destination, result).Inc()
}

func (m *Metrics) Archive(files, categories int) {
	if m == nil {
		return
	}
	m.ArchiveFiles.Set(float64(files))
	m.ArchiveGroups.Set(float64(categories))
}

func (m *Metrics) Ledger(size int) {
	if m == nil {
		return
	}
	m.LedgerSize.Set(float64(size))
}

func (m *Metrics) RunFinished(reason string) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.WithLabelValues(reason).SetToCurrentTime()
}

// WriteTextfile writes the registry to path in the text exposition format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
