package modem

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

const (
	SerialDevice = "serial-at"

	csqCommand      = "AT+CSQ\r"
	csqPrefix       = "+CSQ:"
	responseTimeout = 2 * time.Second
	readBackoff     = 50 * time.Millisecond
)

// SerialConfig holds the settings for a direct serial AT session.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// SerialBackend queries signal quality over a serial AT command
// session using AT+CSQ (TS 27.007 Sec 8.5). CSQ carries no timing
// advance, so that field is always gsm.Unknown.
type SerialBackend struct {
	port io.ReadWriteCloser
}

// NewSerialBackend opens the modem serial port.
func NewSerialBackend(config SerialConfig) (*SerialBackend, error) {
	if config.Port == "" {
		return nil, fmt.Errorf("serial backend: port is required")
	}
	if config.Baud <= 0 {
		config.Baud = 115200
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        config.Port,
		Baud:        config.Baud,
		ReadTimeout: readBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", config.Port, err)
	}

	return &SerialBackend{port: port}, nil
}

// Query sends AT+CSQ and parses the response into a measurement.
func (b *SerialBackend) Query(ctx context.Context) (*gsm.SignalMeasurement, error) {
	if _, err := b.port.Write([]byte(csqCommand)); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}

	response, err := b.collectResponse(ctx)
	if err != nil {
		return nil, err
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, csqPrefix) {
			return parseCSQ(line)
		}
	}

	return nil, fmt.Errorf("no %s line in modem response", csqPrefix)
}

// collectResponse accumulates serial output until the modem terminates
// the response with OK or ERROR. Reads are short with a small timeout;
// empty reads are retried until the overall deadline.
func (b *SerialBackend) collectResponse(ctx context.Context) (string, error) {
	deadline := time.After(responseTimeout)

	var response strings.Builder
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			return "", fmt.Errorf("modem response timeout after %s", responseTimeout)
		default:
		}

		n, err := b.port.Read(buf)
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading response: %w", err)
		}
		if n == 0 {
			continue // read timed out, keep waiting
		}

		response.Write(buf[:n])

		text := response.String()
		if strings.Contains(text, "\nOK") || strings.HasSuffix(strings.TrimSpace(text), "OK") {
			return text, nil
		}
		if strings.Contains(text, "ERROR") {
			return "", fmt.Errorf("modem returned error: %s", strings.TrimSpace(text))
		}
	}
}

// Device returns the backend type
func (b *SerialBackend) Device() string {
	return SerialDevice
}

// Close closes the serial port
func (b *SerialBackend) Close() error {
	return b.port.Close()
}

// parseCSQ parses a "+CSQ: <rssi>,<ber>" line. Values are stored
// verbatim; 99 means "not known or not detectable" and is passed
// through for the classifier to handle.
func parseCSQ(line string) (*gsm.SignalMeasurement, error) {
	fields := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, csqPrefix)), ",")
	if len(fields) != 2 {
		return nil, fmt.Errorf("invalid CSQ response: %q", line)
	}

	rssi, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid CSQ signal strength: %w", err)
	}

	ber, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid CSQ bit error rate: %w", err)
	}

	return gsm.NewFromSignal(int32(rssi), int32(ber)), nil
}
