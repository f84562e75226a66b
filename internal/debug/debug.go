// Package debug provides environment-gated diagnostic logging. Library code
// logs through here and never prints; output goes to stderr and, when a log
// file is configured, to a size-rotated file.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	logger  *slog.Logger
	enabled = os.Getenv("COHORTC_DEBUG") != ""
)

// Enabled reports whether debug logging is on.
func Enabled() bool { return enabled }

// Enable turns debug logging on programmatically (used by --debug flags).
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
}

// SetLogFile mirrors debug output into a rotating file.
func SetLogFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	logger = slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, rotated), handlerOpts()))
}

func handlerOpts() *slog.HandlerOptions {
	return &slog.HandlerOptions{Level: slog.LevelDebug}
}

func active() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, handlerOpts()))
	}
	return logger
}

// Logf emits a formatted debug line when debug logging is enabled.
func Logf(format string, args ...any) {
	if !enabled {
		return
	}
	active().Debug(fmt.Sprintf(format, args...))
}

// Warnf emits a warning regardless of the debug gate. Used for cleanup
// failures that must not abort the run.
func Warnf(format string, args ...any) {
	active().Warn(fmt.Sprintf(format, args...))
}
