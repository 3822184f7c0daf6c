package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a Registry in the Prometheus exposition format. Timers
// are reported as summaries in seconds.
type Collector struct {
	registry  *Registry
	namespace string
}

// NewCollector creates a collector over r. It is an unchecked collector
// since the label sets are only known once metrics are recorded.
func NewCollector(r *Registry, namespace string) *Collector {
	return &Collector{registry: r, namespace: namespace}
}

// Describe sends nothing, which marks the collector as unchecked
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect converts the current snapshot into constant metrics
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.registry.GetAllMetrics()

	for _, m := range snap.Counters {
		c.collectValue(ch, m, prometheus.CounterValue)
	}
	for _, m := range snap.Gauges {
		c.collectValue(ch, m, prometheus.GaugeValue)
	}
	for _, t := range snap.Timers {
		names, values := splitLabels(t.Labels)
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", t.Name+"_seconds"),
			"Duration of "+t.Name,
			names, nil,
		)
		quantiles := map[float64]float64{
			0.95: t.P95 / 1000,
			0.99: t.P99 / 1000,
		}
		metric, err := prometheus.NewConstSummary(desc, uint64(t.Count), t.Sum/1000, quantiles, values...)
		if err != nil {
			metric = prometheus.NewInvalidMetric(desc, err)
		}
		ch <- metric
	}
}

func (c *Collector) collectValue(ch chan<- prometheus.Metric, m Metric, valueType prometheus.ValueType) {
	names, values := splitLabels(m.Labels)
	help := m.Description
	if help == "" {
		help = m.Name
	}
	desc := prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "", m.Name), help, names, nil)
	metric, err := prometheus.NewConstMetric(desc, valueType, m.Value, values...)
	if err != nil {
		metric = prometheus.NewInvalidMetric(desc, err)
	}
	ch <- metric
}

// splitLabels returns label names in sorted order with matching values
func splitLabels(labels map[string]string) ([]string, []string) {
	if len(labels) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	for i, k := range names {
		values[i] = labels[k]
	}
	return names, values
}

var _ prometheus.Collector = (*Collector)(nil)
