//go:build !tinygo

package platform

import (
	"github.com/prometheus/client_golang/prometheus"
)

type clockCollector struct {
	health func() Health

	offsetSeconds   *prometheus.Desc
	smoothedSeconds *prometheus.Desc
	lastSyncSeconds *prometheus.Desc
	synced          *prometheus.Desc
}

// Collector exposes the sync health of p as Prometheus metrics.
func (p *Platform) Collector() prometheus.Collector {
	return &clockCollector{
		health: p.Health,
		offsetSeconds: prometheus.NewDesc(
			"timesvc_clock_offset_seconds",
			"Offset applied by the last successful sync. Positive means the clock was behind the server.",
			nil, nil,
		),
		smoothedSeconds: prometheus.NewDesc(
			"timesvc_clock_offset_smoothed_seconds",
			"Moving average of recent sync offsets.",
			nil, nil,
		),
		lastSyncSeconds: prometheus.NewDesc(
			"timesvc_clock_last_sync_unix",
			"Unix time of the last successful sync.",
			nil, nil,
		),
		synced: prometheus.NewDesc(
			"timesvc_clock_synced",
			"1 once the clock has been synced, otherwise 0.",
			nil, nil,
		),
	}
}

func (c *clockCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offsetSeconds
	ch <- c.smoothedSeconds
	ch <- c.lastSyncSeconds
	ch <- c.synced
}

func (c *clockCollector) Collect(ch chan<- prometheus.Metric) {
	h := c.health()
	var lastSync float64
	if !h.LastSync.IsZero() {
		lastSync = float64(h.LastSync.Unix())
	}
	var synced float64
	if h.Synced {
		synced = 1
	}
	ch <- prometheus.MustNewConstMetric(c.offsetSeconds, prometheus.GaugeValue, h.Offset.Seconds())
	ch <- prometheus.MustNewConstMetric(c.smoothedSeconds, prometheus.GaugeValue, h.Smoothed.Seconds())
	ch <- prometheus.MustNewConstMetric(c.lastSyncSeconds, prometheus.GaugeValue, lastSync)
	ch <- prometheus.MustNewConstMetric(c.synced, prometheus.GaugeValue, synced)
}
