package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cellwatch/cell-surveillance/internal/metrics"
	"github.com/cellwatch/cell-surveillance/internal/modem"
	"github.com/cellwatch/cell-surveillance/internal/storage"
)

const (
	maxBatchSize  = 100
	flushInterval = 10 * time.Second
)

// WithMaxBatchSize sets the maximum number of readings stored within a
// single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		if size > 0 {
			o.maxBatchSize = size
		}
	}
}

// WithCapture mirrors every measurement to w in its binary wire
// encoding, producing a raw capture stream that can be replayed or
// rendered without the database.
func WithCapture(w io.Writer) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.capture = w
	}
}

// WithCounters sets the Prometheus poll counters to update.
func WithCounters(counters *metrics.Counters) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.counters = counters
	}
}

// Orchestrator consumes modem readings and fans them out to the
// database, the in-memory history behind the HTTP API, the Prometheus
// counters and the optional raw capture stream.
type Orchestrator struct {
	store     *storage.Store
	sessionID int64
	history   *modem.History
	logger    *slog.Logger

	capture  io.Writer
	counters *metrics.Counters

	maxBatchSize int
	batch        []modem.Reading
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(store *storage.Store, sessionID int64, history *modem.History, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		store:        store,
		sessionID:    sessionID,
		history:      history,
		logger:       logger,
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&o)
	}

	o.batch = make([]modem.Reading, 0, o.maxBatchSize)
	return &o
}

// Run consumes readings until the channel is closed, flushing batches
// to storage as they fill up or on a timer. The final partial batch is
// flushed on exit regardless of context state.
func (o *Orchestrator) Run(ctx context.Context, readings <-chan modem.Reading) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case reading, ok := <-readings:
			if !ok {
				o.flush(context.Background())
				return
			}
			o.handle(ctx, reading)

		case <-ticker.C:
			o.flush(ctx)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, reading modem.Reading) {
	o.history.Append(reading)
	if o.counters != nil {
		o.counters.Readings.Inc()
	}

	o.logger.Debug("signal reading",
		slog.String("measurement", reading.Measurement.String()),
		slog.String("level", reading.Measurement.Level().String()),
	)

	if o.capture != nil {
		if err := reading.Measurement.EncodeTo(o.capture); err != nil {
			o.logger.Error(fmt.Sprintf("writing capture: %s", err.Error()))
		}
	}

	o.batch = append(o.batch, reading)
	if len(o.batch) >= o.maxBatchSize {
		o.flush(ctx)
	}
}

func (o *Orchestrator) flush(ctx context.Context) {
	if len(o.batch) == 0 {
		return
	}

	if err := o.store.BatchInsertMeasurements(ctx, o.sessionID, o.batch); err != nil {
		o.logger.Error(fmt.Sprintf("storing measurements: %s", err.Error()))
		if o.counters != nil {
			o.counters.StoreErrors.Inc()
		}
	}

	o.batch = o.batch[:0]
}
