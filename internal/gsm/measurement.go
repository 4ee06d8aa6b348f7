// Package gsm models a single GSM signal quality measurement and its
// derived classifications (bars level, dBm power, ASU), together with a
// fixed-layout binary wire encoding for transport across process
// boundaries.
package gsm

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/cellwatch/cell-surveillance/internal/cell"
)

// Unknown marks a field for which the modem reported no data. It is
// deliberately out of band for every field: valid ASU values are 0-31
// (99 meaning "not measurable"), bit error rates 0-7 (or 99), and
// timing advances 0-219.
const Unknown int32 = math.MaxInt32

// ASU thresholds for the bars level, per TS 27.007 Sec 8.5.
const (
	asuGreat    = 12
	asuGood     = 8
	asuModerate = 5
)

// SignalMeasurement is a snapshot of GSM signal quality as reported by
// the radio interface. Values are stored verbatim: out-of-range input
// is accepted and propagates unchecked into classification, matching
// the unvalidated hardware source.
//
// A measurement is treated as immutable once it has been handed to
// another goroutine; CopyFrom exists for storage reuse and must only
// be called on an instance that is not yet shared.
type SignalMeasurement struct {
	signalStrength int32 // ASU, 0-31 or 99, per TS 27.007 Sec 8.5
	bitErrorRate   int32 // RXQUAL, 0-7 or 99, per TS 27.007 Sec 8.5
	timingAdvance  int32 // symbol periods, 0-219, per TS 45.010 Sec 5.8
}

// New returns a measurement with all fields set to Unknown.
func New() *SignalMeasurement {
	return &SignalMeasurement{
		signalStrength: Unknown,
		bitErrorRate:   Unknown,
		timingAdvance:  Unknown,
	}
}

// NewFromRaw builds a measurement from raw radio interface values.
// No validation or clamping is applied.
func NewFromRaw(signalStrength, bitErrorRate, timingAdvance int32) *SignalMeasurement {
	return &SignalMeasurement{
		signalStrength: signalStrength,
		bitErrorRate:   bitErrorRate,
		timingAdvance:  timingAdvance,
	}
}

// NewFromSignal builds a measurement from signal strength and bit error
// rate alone, leaving the timing advance Unknown. This is the shape of
// an AT+CSQ response, which carries no timing information.
func NewFromSignal(signalStrength, bitErrorRate int32) *SignalMeasurement {
	return NewFromRaw(signalStrength, bitErrorRate, Unknown)
}

// CopyFrom overwrites all fields from other. It exists to reuse
// storage; it must never be invoked on a measurement that is already
// visible to other goroutines.
func (m *SignalMeasurement) CopyFrom(other *SignalMeasurement) {
	m.signalStrength = other.signalStrength
	m.bitErrorRate = other.bitErrorRate
	m.timingAdvance = other.timingAdvance
}

// Clone returns a new, independent measurement with identical fields.
func (m *SignalMeasurement) Clone() *SignalMeasurement {
	c := New()
	c.CopyFrom(m)
	return c
}

// Copy implements cell.SignalStrength.
func (m *SignalMeasurement) Copy() cell.SignalStrength {
	return m.Clone()
}

// SignalStrength returns the raw ASU value, including 99 or Unknown.
func (m *SignalMeasurement) SignalStrength() int32 {
	return m.signalStrength
}

// BitErrorRate returns the raw reported channel bit error rate.
func (m *SignalMeasurement) BitErrorRate() int32 {
	return m.bitErrorRate
}

// TimingAdvance returns the GSM timing advance between 0..219 symbol
// periods (normally 0..63), or Unknown when there is no RR connection.
// Refer to 3GPP 45.010 Sec 5.8.
func (m *SignalMeasurement) TimingAdvance() int32 {
	return m.timingAdvance
}

// Level returns the coarse bars level for the measurement.
//
// ASU ranges from 0 to 31 (TS 27.007 Sec 8.5). asu = 0 is -113 dBm or
// less, a signal so weak it is reported as no bars; asu = 99 means the
// strength is not measurable, and an absent value classifies the same
// way.
func (m *SignalMeasurement) Level() cell.Level {
	asu := m.signalStrength
	switch {
	case asu <= 2 || asu == 99 || asu == Unknown:
		return cell.LevelNoneOrUnknown
	case asu >= asuGreat:
		return cell.LevelGreat
	case asu >= asuGood:
		return cell.LevelGood
	case asu >= asuModerate:
		return cell.LevelModerate
	default:
		return cell.LevelPoor
	}
}

// AsuLevel returns the signal level as an ASU value between 0..31,
// with 99 meaning unknown. The raw value is returned unchanged.
func (m *SignalMeasurement) AsuLevel() int32 {
	return m.signalStrength
}

// Dbm returns the signal strength in dBm, or Unknown when the ASU
// value is 99 or absent. The linear conversion is applied to any other
// value, including out-of-range ones; adding clamping here would
// change observable output for permissive raw input.
func (m *SignalMeasurement) Dbm() int32 {
	asu := m.signalStrength
	if asu == 99 || asu == Unknown {
		return Unknown
	}
	return -113 + 2*asu
}

// Equal reports whether other is a GSM measurement with identical
// fields. A value of any other type compares as not equal.
func (m *SignalMeasurement) Equal(other any) bool {
	var s *SignalMeasurement
	switch v := other.(type) {
	case *SignalMeasurement:
		s = v
	case SignalMeasurement:
		s = &v
	default:
		return false
	}
	if s == nil {
		return false
	}
	return m.signalStrength == s.signalStrength &&
		m.bitErrorRate == s.bitErrorRate &&
		m.timingAdvance == s.timingAdvance
}

// Hash returns a combined hash of all three fields, consistent with
// Equal: equal measurements produce equal hashes.
func (m *SignalMeasurement) Hash() uint64 {
	var buf [EncodedSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.signalStrength))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.bitErrorRate))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.timingAdvance))

	h := fnv.New64a()
	h.Write(buf[:]) // fnv.Write never fails
	return h.Sum64()
}

// String returns the canonical debug representation. The field order
// and labels are stable and relied upon by snapshot tooling.
func (m *SignalMeasurement) String() string {
	return fmt.Sprintf("SignalMeasurement: ss=%d ber=%d mTa=%d",
		m.signalStrength, m.bitErrorRate, m.timingAdvance)
}
