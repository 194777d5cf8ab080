package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatabaseSource reports the loaded databases. storage.Engine implements
// it.
type DatabaseSource interface {
	Databases() []string
}

// Collector samples the storage engine at scrape time.
type Collector struct {
	source DatabaseSource
	loaded *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source DatabaseSource) *Collector {
	return &Collector{
		source: source,
		loaded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "databases_loaded"),
			"Databases held in memory.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.loaded
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.loaded, prometheus.GaugeValue, float64(len(c.source.Databases())))
}
