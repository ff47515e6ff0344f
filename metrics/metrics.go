// Package metrics provides Prometheus metrics for saycmd.
// There is no HTTP listener; metrics are written to a node-exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and gauges for one process.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal  *prometheus.CounterVec
	parseTotal     *prometheus.CounterVec
	indexEntries   *prometheus.GaugeVec
	crawlDuration  prometheus.Gauge
	choicesTotal   prometheus.Counter
	arbitrationErr prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saycmd_commands_total",
				Help: "Total number of dispatched commands by action and final status",
			},
			[]string{"action", "status"},
		),
		parseTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saycmd_parse_total",
				Help: "Total number of parsed utterances by the tier that produced the command",
			},
			[]string{"tier"},
		),
		indexEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "saycmd_index_entries",
				Help: "Number of entries in the loaded index snapshot",
			},
			[]string{"kind"},
		),
		crawlDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "saycmd_crawl_duration_seconds",
				Help: "Duration of the last crawl in seconds",
			},
		),
		choicesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "saycmd_choices_requested_total",
				Help: "Total number of disambiguation prompts issued",
			},
		),
		arbitrationErr: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "saycmd_arbitration_errors_total",
				Help: "Total number of accelerator hand-over failures",
			},
		),
	}
}

// RecordCommand counts a finished command.
func (m *Metrics) RecordCommand(action, status string) {
	if action == "" {
		action = "none"
	}
	m.commandsTotal.WithLabelValues(action, status).Inc()
}

// RecordParse counts which parser tier handled an utterance.
func (m *Metrics) RecordParse(tier string) {
	m.parseTotal.WithLabelValues(tier).Inc()
}

// RecordSnapshot sets the entry gauges for a freshly loaded snapshot.
func (m *Metrics) RecordSnapshot(files, dirs int) {
	m.indexEntries.WithLabelValues("file").Set(float64(files))
	m.indexEntries.WithLabelValues("directory").Set(float64(dirs))
}

// RecordCrawl records the duration of a finished crawl.
func (m *Metrics) RecordCrawl(elapsed time.Duration) {
	m.crawlDuration.Set(elapsed.Seconds())
}

// RecordChoice counts a disambiguation prompt.
func (m *Metrics) RecordChoice() {
	m.choicesTotal.Inc()
}

// RecordArbitrationError counts a failed accelerator hand-over.
func (m *Metrics) RecordArbitrationError() {
	m.arbitrationErr.Inc()
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
