package storage

import (
	"time"

	"github.com/cellwatch/cell-surveillance/internal/cell"
	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

// SessionData represents a single survey session with one modem.
type SessionData struct {
	ID        int64     // Unique identifier for the session
	StartTime time.Time // When the survey session began
	ModemType string    // Backend type used (e.g. "serial-at", "mmcli")
	ModemID   string    // Identifier of the specific modem (port path or index)
	Config    *string   // Optional backend configuration in JSON format
}

// MeasurementRecord is a stored signal measurement together with its
// database identity and capture timestamp. Dbm and Level carry the
// values derived at ingestion time; they match what the measurement
// computes unless the classification rules changed between writes.
type MeasurementRecord struct {
	ID          int64
	SessionID   int64
	Timestamp   time.Time
	Measurement *gsm.SignalMeasurement
	Dbm         int32 // gsm.Unknown when the power could not be derived
	Level       cell.Level
}
