package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
	"github.com/cellwatch/cell-surveillance/internal/modem"
)

type staticSource struct {
	reading modem.Reading
	ok      bool
}

func (s staticSource) Latest() (modem.Reading, bool) {
	return s.reading, s.ok
}

func gather(t *testing.T, source LatestSource) map[string]float64 {
	t.Helper()

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(source)); err != nil {
		t.Fatalf("registering collector: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	return values
}

func TestCollector_FullReading(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	values := gather(t, staticSource{
		reading: modem.Reading{
			Timestamp:   ts,
			Measurement: gsm.NewFromRaw(18, 2, 30),
			ModemType:   "serial-at",
			ModemID:     "/dev/ttyUSB2",
		},
		ok: true,
	})

	want := map[string]float64{
		"gsm_signal_asu":            18,
		"gsm_signal_bit_error_rate": 2,
		"gsm_signal_timing_advance": 30,
		"gsm_signal_dbm":            -77,
		"gsm_signal_level":          4,
		"gsm_signal_last_reading_timestamp_seconds": float64(ts.Unix()),
	}
	for name, wantValue := range want {
		got, ok := values[name]
		if !ok {
			t.Errorf("metric %s missing", name)
			continue
		}
		if got != wantValue {
			t.Errorf("%s = %v, want %v", name, got, wantValue)
		}
	}
}

func TestCollector_UnknownFieldsOmitted(t *testing.T) {
	values := gather(t, staticSource{
		reading: modem.Reading{
			Timestamp:   time.Now(),
			Measurement: gsm.NewFromSignal(99, 99),
			ModemType:   "serial-at",
			ModemID:     "/dev/ttyUSB2",
		},
		ok: true,
	})

	for _, name := range []string{"gsm_signal_asu", "gsm_signal_bit_error_rate", "gsm_signal_timing_advance", "gsm_signal_dbm"} {
		if _, ok := values[name]; ok {
			t.Errorf("metric %s exported for an unknown field", name)
		}
	}

	if got := values["gsm_signal_level"]; got != 0 {
		t.Errorf("gsm_signal_level = %v, want 0", got)
	}
}

func TestCollector_NoReadings(t *testing.T) {
	values := gather(t, staticSource{})
	if len(values) != 0 {
		t.Errorf("expected no metrics before the first reading, got %v", values)
	}
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	counters := NewCounters(reg)

	counters.Readings.Add(3)
	counters.StoreErrors.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}

	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			got[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	if got["gsm_readings_total"] != 3 {
		t.Errorf("gsm_readings_total = %v, want 3", got["gsm_readings_total"])
	}
	if got["gsm_store_errors_total"] != 1 {
		t.Errorf("gsm_store_errors_total = %v, want 1", got["gsm_store_errors_total"])
	}
}
