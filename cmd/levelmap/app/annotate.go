package app

import (
	"fmt"
	"image"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/cellwatch/cell-surveillance/internal/cell"
)

const (
	dpi     float64 = 72
	hinting string  = "full"
	size    float64 = 13
	spacing float64 = 1.1
)

type Annotator struct {
	context *freetype.Context
}

func NewAnnotator() (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetSrc(image.White)

	switch hinting {
	case "full":
		context.SetHinting(font.HintingFull)
	default:
		context.SetHinting(font.HintingNone)
	}

	return &Annotator{context: context}, nil
}

func (a *Annotator) Annotate(img *image.RGBA, data *TimelineData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *TimelineData) error
	}{
		{"drawing summary", a.drawSummary},
		{"drawing legend", a.drawLegend},
	}
	for _, op := range ops {
		if err := op.fn(img, data); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *Annotator) drawSummary(img *image.RGBA, data *TimelineData) error {
	summary := fmt.Sprintf("%s readings from %s", humanize.Comma(int64(len(data.Points))), data.Source)
	if start, end, ok := data.TimeRange(); ok {
		summary += fmt.Sprintf(", %s to %s", start.Format("2006-01-02 15:04:05"), end.Format("15:04:05"))
	}

	pt := freetype.Pt(marginX, int(a.context.PointToFixed(size)>>6)+4)
	if _, err := a.context.DrawString(summary, pt); err != nil {
		return err
	}

	pt.Y += a.context.PointToFixed(size * spacing)
	trace := fmt.Sprintf("white trace: power, %d to %d dBm", traceMinDbm, traceMaxDbm)
	_, err := a.context.DrawString(trace, pt)
	return err
}

func (a *Annotator) drawLegend(img *image.RGBA, data *TimelineData) error {
	imgSize := img.Bounds().Size()
	top := imgSize.Y - legendHeight

	levels := []cell.Level{
		cell.LevelNoneOrUnknown,
		cell.LevelPoor,
		cell.LevelModerate,
		cell.LevelGood,
		cell.LevelGreat,
	}

	x := marginX
	swatch := 12
	for _, level := range levels {
		fill := levelColor(level)
		for sx := x; sx < x+swatch; sx++ {
			for sy := top + 8; sy < top+8+swatch; sy++ {
				img.SetRGBA(sx, sy, fill)
			}
		}

		pt := freetype.Pt(x+swatch+4, top+8+swatch-2)
		adv, err := a.context.DrawString(level.String(), pt)
		if err != nil {
			return err
		}

		x += swatch + 4 + int(adv.X>>6) + 16
	}

	return nil
}
