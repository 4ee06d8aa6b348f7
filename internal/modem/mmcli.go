package modem

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cellwatch/cell-surveillance/internal/gsm"
)

const (
	MMCLIDevice  = "mmcli"
	mmcliRuntime = "mmcli"

	mmcliKeyRSSI      = "modem.signal.gsm.rssi"
	mmcliKeyErrorRate = "modem.signal.gsm.error-rate"
)

// MMCLIConfig holds the settings for the ModemManager backend.
type MMCLIConfig struct {
	ModemIndex int `yaml:"modemIndex"`
}

// MMCLIBackend queries signal quality through ModemManager's mmcli
// tool, one invocation per poll. ModemManager reports GSM power in
// dBm; it is converted back to ASU so the measurement carries the same
// raw unit as a direct CSQ query. Timing advance is not exposed over
// this interface and stays gsm.Unknown.
type MMCLIBackend struct {
	binPath    string
	modemIndex int
}

// NewMMCLIBackend locates the mmcli binary and creates a backend for
// the modem at the given index.
func NewMMCLIBackend(config MMCLIConfig) (*MMCLIBackend, error) {
	binPath, err := exec.LookPath(mmcliRuntime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	return &MMCLIBackend{binPath: binPath, modemIndex: config.ModemIndex}, nil
}

// Query runs mmcli --signal-get and parses its key/value output.
func (b *MMCLIBackend) Query(ctx context.Context) (*gsm.SignalMeasurement, error) {
	cmd := exec.CommandContext(ctx, b.binPath,
		"-m", strconv.Itoa(b.modemIndex),
		"--signal-get",
		"--output-keyvalue",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", mmcliRuntime, err)
	}

	return parseMMCLIOutput(string(out))
}

// Device returns the backend type
func (b *MMCLIBackend) Device() string {
	return MMCLIDevice
}

// Close is a no-op; each query runs a standalone process.
func (b *MMCLIBackend) Close() error {
	return nil
}

// parseMMCLIOutput extracts the GSM signal values from mmcli
// key/value output, e.g.:
//
//	modem.signal.refresh.rate : 10
//	modem.signal.gsm.rssi     : -77.00
//	modem.signal.gsm.error-rate : 1.20
//
// Missing or "--" values stay unknown.
func parseMMCLIOutput(output string) (*gsm.SignalMeasurement, error) {
	signalStrength := gsm.Unknown
	bitErrorRate := gsm.Unknown

	var seen bool
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "" || value == "--" {
			continue
		}

		switch key {
		case mmcliKeyRSSI:
			dbm, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q: %w", mmcliKeyRSSI, value, err)
			}
			signalStrength = dbmToASU(dbm)
			seen = true

		case mmcliKeyErrorRate:
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q: %w", mmcliKeyErrorRate, value, err)
			}
			bitErrorRate = int32(rate)
			seen = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s output: %w", mmcliRuntime, err)
	}
	if !seen {
		return nil, fmt.Errorf("no GSM signal values in %s output", mmcliRuntime)
	}

	return gsm.NewFromSignal(signalStrength, bitErrorRate), nil
}

// dbmToASU inverts the TS 27.007 conversion dBm = -113 + 2*asu,
// clamping to the reportable 0..31 range the way a modem firmware
// would before emitting a CSQ value.
func dbmToASU(dbm float64) int32 {
	asu := math.Round((dbm + 113) / 2)
	if asu < 0 {
		return 0
	}
	if asu > 31 {
		return 31
	}
	return int32(asu)
}
