package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/appworld/pkg/world"
)

// StatsSource is anything that can report world access statistics.
// Every wrapper instantiation satisfies it.
type StatsSource interface {
	Stats() world.Stats
}

// WorldCollector exposes a world's access statistics as Prometheus
// metrics. Stats() is a lock-free snapshot, so scrapes never contend
// with readers or mutations.
type WorldCollector struct {
	source StatsSource

	handles  *prometheus.Desc
	readers  *prometheus.Desc
	mutating *prometheus.Desc
	poisoned *prometheus.Desc
	reads    *prometheus.Desc
	msgs     *prometheus.Desc
}

// NewWorldCollector creates a collector reading from the given source
func NewWorldCollector(source StatsSource) *WorldCollector {
	return &WorldCollector{
		source: source,
		handles: prometheus.NewDesc(
			"appworld_handles",
			"Live wrapper handles sharing the world",
			nil, nil,
		),
		readers: prometheus.NewDesc(
			"appworld_readers_active",
			"Read views currently executing",
			nil, nil,
		),
		mutating: prometheus.NewDesc(
			"appworld_mutating",
			"1 while a message is being applied",
			nil, nil,
		),
		poisoned: prometheus.NewDesc(
			"appworld_poisoned",
			"1 if an aborted mutation has poisoned the world",
			nil, nil,
		),
		reads: prometheus.NewDesc(
			"appworld_reads_total",
			"Read views completed since startup",
			nil, nil,
		),
		msgs: prometheus.NewDesc(
			"appworld_msgs_total",
			"Messages applied since startup",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *WorldCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.handles
	ch <- c.readers
	ch <- c.mutating
	ch <- c.poisoned
	ch <- c.reads
	ch <- c.msgs
}

// Collect implements prometheus.Collector
func (c *WorldCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.handles, prometheus.GaugeValue, float64(s.Handles))
	ch <- prometheus.MustNewConstMetric(c.readers, prometheus.GaugeValue, float64(s.Readers))
	ch <- prometheus.MustNewConstMetric(c.mutating, prometheus.GaugeValue, boolValue(s.Mutating))
	ch <- prometheus.MustNewConstMetric(c.poisoned, prometheus.GaugeValue, boolValue(s.Poisoned))
	ch <- prometheus.MustNewConstMetric(c.reads, prometheus.CounterValue, float64(s.Reads))
	ch <- prometheus.MustNewConstMetric(c.msgs, prometheus.CounterValue, float64(s.Msgs))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
