package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
	"github.com/cellwatch/cell-surveillance/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	var (
		data *TimelineData
		err  error
	)
	switch {
	case config.DBPath != "":
		data, err = readSession(ctx, config, logger)
	default:
		data, err = readCapture(config, logger)
	}
	if err != nil {
		return err
	}

	return render(data, config, logger)
}

func readSession(ctx context.Context, config *Config, logger *slog.Logger) (*TimelineData, error) {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return nil, fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	logger.Info("reading session measurements",
		slog.Int64("sessionID", session.ID),
		slog.String("modem", session.ModemType),
		slog.String("startTime", session.StartTime.Local().Format(time.DateTime)))

	records, err := store.Measurements(ctx, config.SessionID)
	if err != nil {
		return nil, fmt.Errorf("reading measurements: %w", err)
	}

	data := &TimelineData{
		Points: make([]TimelinePoint, 0, len(records)),
		Source: fmt.Sprintf("%s session %d", filepath.Base(config.DBPath), config.SessionID),
	}
	for _, rec := range records {
		data.Points = append(data.Points, TimelinePoint{
			Timestamp:   rec.Timestamp,
			Measurement: rec.Measurement,
		})
	}
	return data, nil
}

func readCapture(config *Config, logger *slog.Logger) (*TimelineData, error) {
	f, err := os.Open(config.CapturePath)
	if err != nil {
		return nil, fmt.Errorf("opening capture file: %w", err)
	}
	defer f.Close()

	data := &TimelineData{Source: filepath.Base(config.CapturePath)}

	r := bufio.NewReader(f)
	for {
		m, err := gsm.DecodeFrom(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Warn("capture file ends mid-record, dropping the tail",
					slog.Int("readings", len(data.Points)))
				break
			}
			return nil, fmt.Errorf("decoding capture file: %w", err)
		}
		data.Points = append(data.Points, TimelinePoint{Measurement: m})
	}

	return data, nil
}

func render(data *TimelineData, config *Config, logger *slog.Logger) error {
	logger.Info("rendering level timeline",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("readings", len(data.Points)),
		))

	img, err := Render(data, config.ColumnWidth)
	if err != nil {
		return fmt.Errorf("rendering level timeline: %w", err)
	}

	if !config.NoAnnotations {
		annotator, err := NewAnnotator()
		if err != nil {
			return fmt.Errorf("creating annotator: %w", err)
		}
		if err = annotator.Annotate(img, data); err != nil {
			return fmt.Errorf("annotating level timeline: %w", err)
		}
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
