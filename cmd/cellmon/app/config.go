package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cellwatch/cell-surveillance/internal/modem"
)

const (
	BackendSerial = "serial"
	BackendMMCLI  = "mmcli"

	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 100
	defaultHistorySize  = 720 // one hour at the default poll interval
	defaultListenAddr   = ":9595"
)

// Duration wraps time.Duration with YAML support for values like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Modem    ModemConfig   `yaml:"modem"`
	Storage  StorageConfig `yaml:"storage"`
	Capture  CaptureConfig `yaml:"capture"`
	Server   ServerConfig  `yaml:"server"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SlogLevel maps the configured level name onto slog; unknown names
// fall back to info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ModemConfig represents the modem backend configuration
type ModemConfig struct {
	Backend      string             `yaml:"backend"`
	Name         string             `yaml:"name"`
	PollInterval Duration           `yaml:"pollInterval"`
	Serial       modem.SerialConfig `yaml:"serial"`
	MMCLI        modem.MMCLIConfig  `yaml:"mmcli"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// CaptureConfig controls the raw binary capture of measurements.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// ServerConfig represents the HTTP API settings
type ServerConfig struct {
	ListenAddr  string `yaml:"listenAddr"`
	HistorySize int    `yaml:"historySize"`
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Config{
		Modem: ModemConfig{
			PollInterval: Duration(defaultPollInterval),
		},
		Storage: StorageConfig{
			MaxBatchSize: defaultBatchSize,
		},
		Server: ServerConfig{
			ListenAddr:  defaultListenAddr,
			HistorySize: defaultHistorySize,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Modem.Backend {
	case BackendSerial:
		if c.Modem.Serial.Port == "" {
			return fmt.Errorf("modem.serial.port is required for the serial backend")
		}
	case BackendMMCLI:
		if c.Modem.MMCLI.ModemIndex < 0 {
			return fmt.Errorf("modem.mmcli.modemIndex must not be negative")
		}
	default:
		return fmt.Errorf("unknown modem backend '%s'", c.Modem.Backend)
	}

	if time.Duration(c.Modem.PollInterval) <= 0 {
		return fmt.Errorf("modem.pollInterval must be positive")
	}
	if c.Storage.MaxBatchSize <= 0 {
		return fmt.Errorf("storage.maxBatchSize must be positive")
	}
	if c.Server.HistorySize <= 0 {
		return fmt.Errorf("server.historySize must be positive")
	}
	if c.Capture.Enabled && c.Capture.File == "" {
		return fmt.Errorf("capture.file is required when capture is enabled")
	}
	return nil
}
