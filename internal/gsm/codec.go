package gsm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// EncodedSize is the fixed wire size of a measurement: three
// little-endian signed 32-bit integers.
const EncodedSize = 12

// ErrTruncated is returned by DecodeFrom when the source holds fewer
// than EncodedSize bytes.
var ErrTruncated = errors.New("truncated measurement input")

// EncodeTo writes the measurement in its fixed wire layout: the signal
// strength, bit error rate and timing advance as consecutive
// little-endian int32 values. There is no version field and no
// checksum; the layout is positional and must stay the exact inverse
// of DecodeFrom.
func (m *SignalMeasurement) EncodeTo(w io.Writer) error {
	var buf [EncodedSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.signalStrength))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.bitErrorRate))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.timingAdvance))

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("writing measurement: %w", err)
	}
	return nil
}

// DecodeFrom reads exactly EncodedSize bytes from r and reconstructs
// the measurement. A source holding fewer bytes fails with an error
// wrapping ErrTruncated.
func DecodeFrom(r io.Reader) (*SignalMeasurement, error) {
	var buf [EncodedSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		return nil, fmt.Errorf("reading measurement: %w", err)
	}

	return NewFromRaw(
		int32(binary.LittleEndian.Uint32(buf[0:4])),
		int32(binary.LittleEndian.Uint32(buf[4:8])),
		int32(binary.LittleEndian.Uint32(buf[8:12])),
	), nil
}
