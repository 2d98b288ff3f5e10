package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tsinspect"

// pcrHz is the rate of the 27 MHz system clock.
const pcrHz = 27_000_000

type collector struct {
	t *Tracker

	packets   *prometheus.Desc
	errors    *prometheus.Desc
	resyncs   *prometheus.Desc
	skipped   *prometheus.Desc
	evictions *prometheus.Desc

	pidPackets         *prometheus.Desc
	pidPCRs            *prometheus.Desc
	pidLastPCR         *prometheus.Desc
	pidDTSs            *prometheus.Desc
	pidLastDTS         *prometheus.Desc
	pidDiscontinuities *prometheus.Desc
}

// Collector returns a Prometheus collector reporting the tracker's
// counters. Values are read from a fresh Snapshot on every scrape.
func (t *Tracker) Collector() prometheus.Collector {
	pidLabels := []string{"pid"}
	return &collector{
		t: t,
		packets: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "packets_total"),
			"Transport stream packets decoded.", nil, nil),
		errors: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "decode_errors_total"),
			"Inputs that failed with a read or decode error.", nil, nil),
		resyncs: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "resyncs_total"),
			"Times packet alignment was lost and recovered.", nil, nil),
		skipped: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "skipped_bytes_total"),
			"Bytes discarded while resynchronising.", nil, nil),
		evictions: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "pid_evictions_total"),
			"PIDs evicted from the bounded PID table.", nil, nil),
		pidPackets: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pid", "packets_total"),
			"Packets decoded per PID.", pidLabels, nil),
		pidPCRs: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pid", "pcr_total"),
			"Packets carrying a program clock reference per PID.", pidLabels, nil),
		pidLastPCR: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pid", "last_pcr_seconds"),
			"Most recent program clock reference per PID.", pidLabels, nil),
		pidDTSs: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pid", "dts_total"),
			"PES starts carrying a decode timestamp per PID.", pidLabels, nil),
		pidLastDTS: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pid", "last_dts_seconds"),
			"Most recent decode timestamp per PID.", pidLabels, nil),
		pidDiscontinuities: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pid", "discontinuities_total"),
			"Packets with the discontinuity indicator set per PID.", pidLabels, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packets
	ch <- c.errors
	ch <- c.resyncs
	ch <- c.skipped
	ch <- c.evictions
	ch <- c.pidPackets
	ch <- c.pidPCRs
	ch <- c.pidLastPCR
	ch <- c.pidDTSs
	ch <- c.pidLastDTS
	ch <- c.pidDiscontinuities
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.t.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(s.Packets))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
	ch <- prometheus.MustNewConstMetric(c.resyncs, prometheus.CounterValue, float64(s.Resyncs))
	ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue, float64(s.SkippedBytes))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evicted))

	for _, p := range s.PIDs {
		pid := strconv.Itoa(int(p.PID))
		ch <- prometheus.MustNewConstMetric(c.pidPackets, prometheus.CounterValue, float64(p.Packets), pid)
		ch <- prometheus.MustNewConstMetric(c.pidDiscontinuities, prometheus.CounterValue, float64(p.Discontinuities), pid)
		if p.PCRs > 0 {
			ch <- prometheus.MustNewConstMetric(c.pidPCRs, prometheus.CounterValue, float64(p.PCRs), pid)
			ch <- prometheus.MustNewConstMetric(c.pidLastPCR, prometheus.GaugeValue, float64(p.LastPCR)/pcrHz, pid)
		}
		if p.DTSs > 0 {
			ch <- prometheus.MustNewConstMetric(c.pidDTSs, prometheus.CounterValue, float64(p.DTSs), pid)
			ch <- prometheus.MustNewConstMetric(c.pidLastDTS, prometheus.GaugeValue, float64(p.LastDTS)/pcrHz, pid)
		}
	}
}
