package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/metamindiq/quantum-sync/internal/archive"
	"github.com/metamindiq/quantum-sync/internal/config"
	"github.com/metamindiq/quantum-sync/internal/httpapi"
	"github.com/metamindiq/quantum-sync/internal/logging"
	"github.com/metamindiq/quantum-sync/internal/registry"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	archivePath := flag.String("archive", "", "archive database path (overrides config)")
	maxHistory := flag.Int("max-history", 0, "retained versions, 0 = unbounded (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if v := envOr("QSYNC_ADDR", ""); v != "" {
		cfg.ListenAddr = v
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *archivePath != "" {
		cfg.ArchivePath = *archivePath
	}
	if *maxHistory > 0 {
		cfg.MaxHistory = *maxHistory
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg, logger); err != nil {
		logger.Error("syncd failed", "err", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(cfg config.Config, logger *slog.Logger) error {
	opts := registry.Options{
		MaxHistory: cfg.MaxHistory,
		Logger:     logger,
	}

	if cfg.ArchivePath != "" {
		store, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer store.Close()
		opts.Archive = store
		logger.Info("archive enabled", "path", cfg.ArchivePath)
	}

	reg := registry.New(opts)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewHandler(reg, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("syncd listening", "addr", cfg.ListenAddr, "session_id", reg.SessionID())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// #endregion run

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
