// Package logger provides structured logging setup for the broker.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/switchboard-hq/switchboard/internal/config"
)

// New creates a *slog.Logger from the given Logging config. Output is JSON
// to stdout. Every record carries the service name and pid: the broker,
// hook invocations, and MCP proxies are separate processes sharing one
// machine, and the pid is what tells their logs apart.
func New(cfg config.Logging) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler).With("service", cfg.Service, "pid", os.Getpid())
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
