package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// QueryErrorsThreshold defines the number of consecutive query errors allowed
	QueryErrorsThreshold = 5

	// DefaultInterval is the default polling interval
	DefaultInterval = 5 * time.Second
)

// ErrTooManyQueryErrors is returned when the number of consecutive query errors exceeds the threshold
var ErrTooManyQueryErrors = errors.New("too many consecutive query errors")

// WithLogger sets the logger for the poller
func WithLogger(logger *slog.Logger) func(p *Poller) {
	return func(p *Poller) {
		p.logger = logger.With(
			slog.String("modem", p.backend.Device()),
			slog.String("modemID", p.modemID),
		)
	}
}

// WithInterval sets the polling interval
func WithInterval(interval time.Duration) func(p *Poller) {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithQueryErrorsThreshold sets the threshold for consecutive query errors
func WithQueryErrorsThreshold(threshold uint8) func(p *Poller) {
	return func(p *Poller) {
		p.queryErrorsThreshold = threshold
	}
}

// Poller periodically queries a modem backend for signal quality and
// publishes the readings to a channel. A run is aborted when the
// backend fails too many consecutive times.
type Poller struct {
	modemID string
	backend Backend

	isPolling atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	interval             time.Duration
	queryErrorsThreshold uint8
	logger               *slog.Logger
}

// NewPoller creates a new Poller instance with a discard logger
func NewPoller(modemID string, backend Backend, options ...func(p *Poller)) *Poller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	p := Poller{
		modemID:              modemID,
		backend:              backend,
		interval:             DefaultInterval,
		queryErrorsThreshold: QueryErrorsThreshold,
		logger:               logger,
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// Device returns the backend type of the underlying modem
func (p *Poller) Device() string {
	return p.backend.Device()
}

// ModemID returns the modem identifier this poller was created with
func (p *Poller) ModemID() string {
	return p.modemID
}

// BeginPolling starts the polling loop, sending readings to the given
// channel until the context is cancelled or the backend fails
// repeatedly. The returned channel reports the terminal error, if any.
func (p *Poller) BeginPolling(ctx context.Context, readings chan<- Reading) (<-chan error, error) {
	if p.isPolling.Load() {
		return nil, fmt.Errorf("poller is already running")
	}

	p.isPolling.Store(true)
	ctx, p.cancel = context.WithCancel(ctx)

	pollingStopped := make(chan error)

	p.wg.Add(1)
	go func() {
		defer close(pollingStopped)

		p.logger.Info("starting signal polling...")

		err := p.poll(ctx, readings)

		p.logger.Info("signal polling stopped")
		p.isPolling.Store(false)

		p.wg.Done()

		if err != nil {
			p.logger.Error(err.Error())
			pollingStopped <- err
		}
	}()

	return pollingStopped, nil
}

// Stop cancels the polling loop and waits for it to finish
func (p *Poller) Stop() {
	if !p.isPolling.Load() {
		return // already stopped
	}

	p.cancel()
	p.wg.Wait()
	p.isPolling.Store(false)
}

// IsPolling returns true if the poller is running
func (p *Poller) IsPolling() bool {
	return p.isPolling.Load()
}

func (p *Poller) poll(ctx context.Context, readings chan<- Reading) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var queryErrors uint8
	for {
		measurement, err := p.backend.Query(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}

			queryErrors++
			p.logger.Warn(fmt.Sprintf("error querying modem: %s", err.Error()))

			if queryErrors >= p.queryErrorsThreshold {
				return ErrTooManyQueryErrors
			}
		} else {
			queryErrors = 0 // reset counter

			reading := Reading{
				Timestamp:   time.Now().UTC(),
				Measurement: measurement,
				ModemType:   p.backend.Device(),
				ModemID:     p.modemID,
			}

			select {
			case readings <- reading:
			case <-ctx.Done():
				return nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
