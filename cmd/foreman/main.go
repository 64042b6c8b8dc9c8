// foreman launches a pool of counting workers at a fixed cadence and drives
// them from an interactive console. Commands: info, new [value], kill <id>,
// reset <id> [value], history [n], stop.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dlots/foreman/internal/api"
	"github.com/dlots/foreman/internal/config"
	"github.com/dlots/foreman/internal/console"
	"github.com/dlots/foreman/internal/journal"
	"github.com/dlots/foreman/internal/model"
	"github.com/dlots/foreman/internal/registry"
)

const serverShutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	workers := flag.Int("workers", cfg.Workers, "number of workers to start")
	delay := flag.Int("delay", int(cfg.StartDelay/time.Second), "seconds between worker starts")
	flag.Parse()
	if *workers < 0 || *delay < 0 {
		log.Fatalf("--workers and --delay must be non-negative")
	}
	cfg.Workers = *workers
	cfg.StartDelay = time.Duration(*delay) * time.Second

	// Logs go to stderr so console output on stdout stays readable.
	runID := model.NewRunID()
	logger := config.NewLogger(os.Stderr, cfg.LogLevel).With("run_id", runID)

	logger.Info("foreman: starting",
		"workers", cfg.Workers,
		"start_delay", cfg.StartDelay.String(),
		"tick", cfg.Tick.String(),
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	jnl, err := journal.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer jnl.Close()

	broker := journal.NewBroker()
	reg := registry.New(cfg.Tick, runID, jnl, broker, logger)

	srv := api.NewServer(cfg.ListenAddr, reg, jnl, broker, logger)
	srvErr := srv.Start()

	initializer := registry.NewInitializer(reg, cfg.Workers, cfg.StartDelay, logger)
	initializer.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Blocks until a stop command, closed stdin, or a signal; on return the
	// shutdown signal is set and every worker has been joined.
	console.New(reg, jnl, os.Stdout, logger).Run(ctx, os.Stdin)

	<-initializer.Done()
	broker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := <-srvErr; err != nil {
		logger.Error("server error", "error", err)
	}

	logger.Info("foreman: stopped")
}
