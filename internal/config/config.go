package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	defaultStartDelayS = 1
	defaultTick        = time.Second
	defaultListenAddr  = ":8090"
	defaultDBPath      = "foreman.db"

	envWorkers    = "FOREMAN_WORKERS"
	envStartDelay = "FOREMAN_START_DELAY"
	envTick       = "FOREMAN_TICK"
	envListenAddr = "FOREMAN_LISTEN_ADDR"
	envDBPath     = "FOREMAN_DB_PATH"
	envLogLevel   = "FOREMAN_LOG_LEVEL"
)

// Config holds application configuration loaded from environment variables.
// Command-line flags in cmd/foreman may override Workers and StartDelay.
type Config struct {
	// Workers is the number of workers the initializer starts.
	Workers int
	// StartDelay is the pause between consecutive initializer spawns.
	StartDelay time.Duration
	// Tick is the period of every worker's increment loop.
	Tick time.Duration
	// ListenAddr is the observability HTTP server address.
	ListenAddr string
	// DBPath is the SQLite journal path (":memory:" for ephemeral).
	DBPath   string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with sensible defaults.
// Workers defaults to the available hardware parallelism. Counts must be
// non-negative; malformed values are rejected rather than silently defaulted
// because a wrong worker count is a startup error, not an operator command.
func Load() (Config, error) {
	cfg := Config{
		Workers:    runtime.NumCPU(),
		StartDelay: defaultStartDelayS * time.Second,
		Tick:       defaultTick,
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
	}

	if v := os.Getenv(envWorkers); v != "" {
		n, err := parseCount(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envWorkers, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(envStartDelay); v != "" {
		n, err := parseCount(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", envStartDelay, err)
		}
		cfg.StartDelay = time.Duration(n) * time.Second
	}
	if v := os.Getenv(envTick); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: not a positive duration: %q", envTick, v)
		}
		cfg.Tick = d
	}
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg, nil
}

// parseCount parses a non-negative integer.
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be non-negative: %d", n)
	}
	return n, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
