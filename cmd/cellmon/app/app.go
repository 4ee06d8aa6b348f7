package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cellwatch/cell-surveillance/internal/metrics"
	"github.com/cellwatch/cell-surveillance/internal/modem"
	"github.com/cellwatch/cell-surveillance/internal/storage"
)

const storageDir = "data"

// Run wires the modem poller, storage, metrics and HTTP API together
// and blocks until the context is cancelled or polling fails.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	backend, err := createBackend(&config.Modem)
	if err != nil {
		return fmt.Errorf("failed to create modem backend: %w", err)
	}
	defer backend.Close()

	modemID := config.Modem.Name
	if modemID == "" {
		modemID = defaultModemID(&config.Modem)
	}

	sessionID, err := store.CreateSession(ctx, backend.Device(), modemID, config.Modem)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	history, err := modem.NewHistory(config.Server.HistorySize)
	if err != nil {
		return fmt.Errorf("failed to create history: %w", err)
	}

	registry := prometheus.NewRegistry()
	if err = registry.Register(metrics.NewCollector(history)); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	counters := metrics.NewCounters(registry)

	options := []func(*Orchestrator){
		WithMaxBatchSize(config.Storage.MaxBatchSize),
		WithCounters(counters),
	}
	if config.Capture.Enabled {
		capture, err := os.OpenFile(config.Capture.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer capture.Close()

		options = append(options, WithCapture(capture))
	}

	orchestrator := NewOrchestrator(store, sessionID, history, logger, options...)

	server := newServer(config.Server.ListenAddr, history, registry)
	go func() {
		logger.Info("HTTP API listening", slog.String("addr", config.Server.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("HTTP server failed: %s", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	poller := modem.NewPoller(modemID, backend,
		modem.WithLogger(logger),
		modem.WithInterval(time.Duration(config.Modem.PollInterval)),
	)

	readings := make(chan modem.Reading, 1)
	pollingStopped, err := poller.BeginPolling(ctx, readings)
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	defer poller.Stop()

	logger.Info("survey session started",
		slog.Int64("sessionID", sessionID),
		slog.String("modem", backend.Device()),
		slog.String("modemID", modemID),
	)

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		orchestrator.Run(ctx, readings)
	}()

	select {
	case err = <-pollingStopped:
	case <-ctx.Done():
		err = ctx.Err()
	}

	poller.Stop()
	close(readings)
	<-orchestratorDone

	return err
}

func createBackend(config *ModemConfig) (modem.Backend, error) {
	switch config.Backend {
	case BackendSerial:
		return modem.NewSerialBackend(config.Serial)
	case BackendMMCLI:
		return modem.NewMMCLIBackend(config.MMCLI)
	default:
		return nil, fmt.Errorf("unknown modem backend '%s'", config.Backend)
	}
}

func defaultModemID(config *ModemConfig) string {
	if config.Backend == BackendSerial {
		return config.Serial.Port
	}
	return fmt.Sprintf("modem-%d", config.MMCLI.ModemIndex)
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("cell_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), nil
}
