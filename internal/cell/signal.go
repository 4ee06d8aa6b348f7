// Package cell defines the radio-technology agnostic signal strength
// abstraction shared by all technology-specific measurement types.
package cell

// Level is a coarse "bars" classification of signal quality, suitable
// for human-facing display. Levels are ordinal: a higher level always
// means a better signal.
type Level int

const (
	LevelNoneOrUnknown Level = iota // No signal, or signal strength unknown
	LevelPoor
	LevelModerate
	LevelGood
	LevelGreat
)

func (l Level) String() string {
	switch l {
	case LevelNoneOrUnknown:
		return "none"
	case LevelPoor:
		return "poor"
	case LevelModerate:
		return "moderate"
	case LevelGood:
		return "good"
	case LevelGreat:
		return "great"
	default:
		return "invalid"
	}
}

// SignalStrength is the capability every radio-technology specific
// measurement type (GSM, LTE, ...) must satisfy.
type SignalStrength interface {
	// Level returns the coarse bars level derived from the measurement.
	Level() Level

	// Dbm returns the signal power in decibel-milliwatts, or the
	// technology's unknown marker when the power cannot be derived.
	Dbm() int32

	// AsuLevel returns the measurement expressed in Arbitrary Strength
	// Units as defined by the technology's 3GPP specification.
	AsuLevel() int32

	// Copy returns an independent copy of the measurement.
	Copy() SignalStrength
}
