package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/cellwatch/cell-surveillance/internal/cell"
	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

const (
	marginX      = 16
	headerHeight = 40
	barsHeight   = 160
	legendHeight = 30
	minWidth     = 320

	// dBm range used to place the power trace inside the bars area;
	// this is the nominal GSM ASU 0..31 span.
	traceMinDbm = -113
	traceMaxDbm = -51
)

var (
	backgroundColor = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	traceColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	levelColors = map[cell.Level]color.RGBA{
		cell.LevelNoneOrUnknown: {R: 90, G: 90, B: 96, A: 255},
		cell.LevelPoor:          {R: 214, G: 69, B: 65, A: 255},
		cell.LevelModerate:      {R: 230, G: 150, B: 40, A: 255},
		cell.LevelGood:          {R: 170, G: 200, B: 60, A: 255},
		cell.LevelGreat:         {R: 70, G: 180, B: 85, A: 255},
	}
)

// TimelinePoint is a single reading on the rendered timeline. The
// timestamp is zero when the source is a raw capture stream, which
// carries no timing information.
type TimelinePoint struct {
	Timestamp   time.Time
	Measurement *gsm.SignalMeasurement
}

// TimelineData holds the readings of one rendering run in order.
type TimelineData struct {
	Points []TimelinePoint
	Source string // where the readings came from, for the summary line
}

// TimeRange returns the first and last non-zero timestamps, and false
// when the timeline carries no timing information.
func (d *TimelineData) TimeRange() (start, end time.Time, ok bool) {
	for _, p := range d.Points {
		if p.Timestamp.IsZero() {
			continue
		}
		if !ok {
			start, end, ok = p.Timestamp, p.Timestamp, true
			continue
		}
		end = p.Timestamp
	}
	return
}

// levelColor returns the display color for a bars level.
func levelColor(l cell.Level) color.RGBA {
	if c, ok := levelColors[l]; ok {
		return c
	}
	return levelColors[cell.LevelNoneOrUnknown]
}

// Render draws the level timeline: one column per reading whose height
// and color encode the bars level, with a white dBm trace overlaid
// where power is known.
func Render(data *TimelineData, columnWidth int) (*image.RGBA, error) {
	if len(data.Points) == 0 {
		return nil, fmt.Errorf("no readings to render")
	}

	width := len(data.Points)*columnWidth + 2*marginX
	if width < minWidth {
		width = minWidth
	}
	height := headerHeight + barsHeight + legendHeight

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	barsTop := headerHeight
	barsBottom := headerHeight + barsHeight

	for i, p := range data.Points {
		level := p.Measurement.Level()
		barHeight := barsHeight * (int(level) + 1) / 5

		x0 := marginX + i*columnWidth
		fill := levelColor(level)
		for x := x0; x < x0+columnWidth && x < width-marginX; x++ {
			for y := barsBottom - barHeight; y < barsBottom; y++ {
				img.SetRGBA(x, y, fill)
			}
		}

		if dbm := p.Measurement.Dbm(); dbm != gsm.Unknown {
			y := traceY(dbm, barsTop, barsBottom)
			for x := x0; x < x0+columnWidth && x < width-marginX; x++ {
				img.SetRGBA(x, y, traceColor)
				img.SetRGBA(x, y+1, traceColor)
			}
		}
	}

	return img, nil
}

// traceY maps a dBm value onto the bars area, clamping outside the
// nominal range.
func traceY(dbm int32, top, bottom int) int {
	normalized := float64(dbm-traceMinDbm) / float64(traceMaxDbm-traceMinDbm)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	y := bottom - 2 - int(normalized*float64(bottom-top-2))
	if y < top {
		y = top
	}
	return y
}
