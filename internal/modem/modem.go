// Package modem acquires GSM signal quality measurements from a
// telephony modem, either over a serial AT command session or by
// shelling out to ModemManager's mmcli.
package modem

import (
	"context"
	"time"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

// Reading is a single timestamped measurement emitted by a Poller.
type Reading struct {
	Timestamp   time.Time
	Measurement *gsm.SignalMeasurement
	ModemType   string // backend description, e.g. "serial-at" or "mmcli"
	ModemID     string // port path or modem index (human-readable)
}

// Backend is a modem transport capable of answering a single signal
// quality query. Implementations do not need to be safe for concurrent
// use; the Poller serializes access.
type Backend interface {
	// Query performs one signal quality request and returns the raw
	// measurement. The measurement fields a backend cannot observe are
	// left as gsm.Unknown.
	Query(ctx context.Context) (*gsm.SignalMeasurement, error)

	// Device returns the backend type, e.g. "serial-at".
	Device() string

	// Close releases the underlying transport.
	Close() error
}
