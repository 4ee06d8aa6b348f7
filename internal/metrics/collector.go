// Package metrics exposes GSM signal quality as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
	"github.com/cellwatch/cell-surveillance/internal/modem"
)

// LatestSource yields the most recent signal reading, if any.
// *modem.History satisfies it.
type LatestSource interface {
	Latest() (modem.Reading, bool)
}

// Collector implements prometheus.Collector over the most recent
// reading. Fields the modem reported as unknown are simply absent from
// the scrape instead of being exported with a sentinel value.
type Collector struct {
	source LatestSource

	asuDesc   *prometheus.Desc
	berDesc   *prometheus.Desc
	taDesc    *prometheus.Desc
	dbmDesc   *prometheus.Desc
	levelDesc *prometheus.Desc
	ageDesc   *prometheus.Desc
}

// NewCollector creates a Collector reading from source.
func NewCollector(source LatestSource) *Collector {
	labels := []string{"modem", "modem_id"}

	return &Collector{
		source: source,

		asuDesc: prometheus.NewDesc(
			"gsm_signal_asu",
			"GSM signal strength in ASU (0-31, TS 27.007 Sec 8.5)",
			labels,
			nil,
		),
		berDesc: prometheus.NewDesc(
			"gsm_signal_bit_error_rate",
			"GSM channel bit error rate (0-7, TS 27.007 Sec 8.5)",
			labels,
			nil,
		),
		taDesc: prometheus.NewDesc(
			"gsm_signal_timing_advance",
			"GSM timing advance in symbol periods (TS 45.010 Sec 5.8)",
			labels,
			nil,
		),
		dbmDesc: prometheus.NewDesc(
			"gsm_signal_dbm",
			"GSM signal power in dBm",
			labels,
			nil,
		),
		levelDesc: prometheus.NewDesc(
			"gsm_signal_level",
			"Coarse signal level (0=none/unknown, 4=great)",
			labels,
			nil,
		),
		ageDesc: prometheus.NewDesc(
			"gsm_signal_last_reading_timestamp_seconds",
			"Unix timestamp of the most recent signal reading",
			labels,
			nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.asuDesc
	ch <- c.berDesc
	ch <- c.taDesc
	ch <- c.dbmDesc
	ch <- c.levelDesc
	ch <- c.ageDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	reading, ok := c.source.Latest()
	if !ok {
		return // nothing measured yet
	}

	m := reading.Measurement
	labels := []string{reading.ModemType, reading.ModemID}

	if v := m.SignalStrength(); v != gsm.Unknown && v != 99 {
		ch <- prometheus.MustNewConstMetric(c.asuDesc, prometheus.GaugeValue, float64(v), labels...)
	}
	if v := m.BitErrorRate(); v != gsm.Unknown && v != 99 {
		ch <- prometheus.MustNewConstMetric(c.berDesc, prometheus.GaugeValue, float64(v), labels...)
	}
	if v := m.TimingAdvance(); v != gsm.Unknown {
		ch <- prometheus.MustNewConstMetric(c.taDesc, prometheus.GaugeValue, float64(v), labels...)
	}
	if v := m.Dbm(); v != gsm.Unknown {
		ch <- prometheus.MustNewConstMetric(c.dbmDesc, prometheus.GaugeValue, float64(v), labels...)
	}

	ch <- prometheus.MustNewConstMetric(c.levelDesc, prometheus.GaugeValue, float64(m.Level()), labels...)
	ch <- prometheus.MustNewConstMetric(c.ageDesc, prometheus.GaugeValue, float64(reading.Timestamp.Unix()), labels...)
}

// Counters tracks poll outcomes; the orchestrator increments them as
// readings arrive.
type Counters struct {
	Readings    prometheus.Counter
	StoreErrors prometheus.Counter
}

// NewCounters creates and registers the poll counters.
func NewCounters(reg prometheus.Registerer) *Counters {
	c := &Counters{
		Readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gsm_readings_total",
			Help: "Total number of signal readings received from the modem",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gsm_store_errors_total",
			Help: "Total number of failed measurement store operations",
		}),
	}
	reg.MustRegister(c.Readings, c.StoreErrors)
	return c
}
