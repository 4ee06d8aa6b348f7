package app

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cellwatch/cell-surveillance/internal/cell"
	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

func writeCapture(t *testing.T, measurements []*gsm.SignalMeasurement, extra []byte) string {
	t.Helper()

	var buf bytes.Buffer
	for _, m := range measurements {
		if err := m.EncodeTo(&buf); err != nil {
			t.Fatalf("EncodeTo() error = %v", err)
		}
	}
	buf.Write(extra)

	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing capture file: %v", err)
	}
	return path
}

func TestReadCapture(t *testing.T) {
	measurements := []*gsm.SignalMeasurement{
		gsm.NewFromRaw(18, 2, 4),
		gsm.NewFromSignal(7, 0),
		gsm.New(),
	}

	config := NewConfig()
	config.CapturePath = writeCapture(t, measurements, nil)

	data, err := readCapture(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("readCapture() error = %v", err)
	}

	if got, want := len(data.Points), len(measurements); got != want {
		t.Fatalf("readCapture() returned %d points, want %d", got, want)
	}
	for i, p := range data.Points {
		if !p.Measurement.Equal(measurements[i]) {
			t.Errorf("point %d = %s, want %s", i, p.Measurement, measurements[i])
		}
		if !p.Timestamp.IsZero() {
			t.Errorf("point %d carries a timestamp, capture streams have none", i)
		}
	}
}

func TestReadCapture_TruncatedTail(t *testing.T) {
	measurements := []*gsm.SignalMeasurement{gsm.NewFromRaw(18, 2, 4)}

	config := NewConfig()
	config.CapturePath = writeCapture(t, measurements, []byte{0x01, 0x02, 0x03})

	data, err := readCapture(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("readCapture() error = %v", err)
	}
	if got, want := len(data.Points), len(measurements); got != want {
		t.Fatalf("readCapture() returned %d points, want %d", got, want)
	}
}

func TestTimelineDataTimeRange(t *testing.T) {
	m := gsm.NewFromRaw(18, 2, 4)
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	data := &TimelineData{Points: []TimelinePoint{
		{Measurement: m},
		{Timestamp: t0, Measurement: m},
		{Timestamp: t0.Add(time.Minute), Measurement: m},
	}}

	start, end, ok := data.TimeRange()
	if !ok {
		t.Fatal("TimeRange() ok = false, want true")
	}
	if !start.Equal(t0) || !end.Equal(t0.Add(time.Minute)) {
		t.Errorf("TimeRange() = %s..%s, want %s..%s", start, end, t0, t0.Add(time.Minute))
	}

	data = &TimelineData{Points: []TimelinePoint{{Measurement: m}}}
	if _, _, ok = data.TimeRange(); ok {
		t.Error("TimeRange() ok = true for capture-only points, want false")
	}
}

func TestRender(t *testing.T) {
	data := &TimelineData{
		Points: []TimelinePoint{
			{Measurement: gsm.NewFromRaw(18, 2, 4)},
			{Measurement: gsm.NewFromSignal(99, 99)},
			{Measurement: gsm.New()},
		},
		Source: "test",
	}

	img, err := Render(data, 4)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	size := img.Bounds().Size()
	if size.X < minWidth {
		t.Errorf("image width = %d, want at least %d", size.X, minWidth)
	}
	if want := headerHeight + barsHeight + legendHeight; size.Y != want {
		t.Errorf("image height = %d, want %d", size.Y, want)
	}

	if _, err = Render(&TimelineData{}, 4); err == nil {
		t.Error("Render() with no points succeeded, want error")
	}
}

func TestLevelColor(t *testing.T) {
	seen := make(map[[4]uint8]cell.Level)
	for _, level := range []cell.Level{
		cell.LevelNoneOrUnknown,
		cell.LevelPoor,
		cell.LevelModerate,
		cell.LevelGood,
		cell.LevelGreat,
	} {
		c := levelColor(level)
		key := [4]uint8{c.R, c.G, c.B, c.A}
		if prev, ok := seen[key]; ok {
			t.Errorf("levels %s and %s share a color", prev, level)
		}
		seen[key] = level
	}

	if levelColor(cell.Level(42)) != levelColor(cell.LevelNoneOrUnknown) {
		t.Error("unknown level should fall back to the none color")
	}
}
