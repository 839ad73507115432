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
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/schedsim/internal/config"
	"github.com/me/schedsim/internal/logging"
	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/internal/server"
	"github.com/me/schedsim/internal/store"
	"github.com/me/schedsim/internal/tracing"
)

func main() {
	cfg := config.DefaultServerConfig()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Run database path, :memory: for a throwaway store")
	flag.IntVar(&cfg.MaxTicks, "max-ticks", cfg.MaxTicks, "Upper tick limit for submitted workloads")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	traceFile := flag.String("trace-file", "", "Write OpenTelemetry spans to this file")

	flag.Parse()

	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	if err := serve(cfg, *traceFile, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// serve runs the API until SIGINT or SIGTERM.
func serve(cfg config.ServerConfig, traceFile string, logger *slog.Logger) error {
	if traceFile != "" {
		if err := tracing.Init("schedsim-server", server.Version, traceFile); err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			if err := tracing.Shutdown(context.Background()); err != nil {
				logger.Warn("tracing shutdown", "error", err)
			}
		}()
	}

	st, err := openStore(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := sched.NewDefaultRegistry(logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cfg, st, reg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "policies", reg.Names(), "max_ticks", cfg.MaxTicks)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore opens the run database, creating its directory first.
func openStore(path string, logger *slog.Logger) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", "path", path)
	return st, nil
}
