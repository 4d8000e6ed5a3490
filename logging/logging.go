package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	logger  = newLogger(os.Stderr, slog.LevelWarn, nil)
	logFile *os.File
	mu      sync.Mutex
	isSetup bool
)

// fanoutHandler sends each record to every handler that accepts its level
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, child := range h {
		if !child.Enabled(ctx, r.Level) {
			continue
		}
		if err := child.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, child := range h {
		out[i] = child.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, child := range h {
		out[i] = child.WithGroup(name)
	}
	return out
}

func newLogger(console io.Writer, level slog.Level, file io.Writer) *slog.Logger {
	handlers := fanoutHandler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}),
	}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(handlers)
}

// SetupLogger configures the console level and, when logFilePath is not
// empty, mirrors every message at debug level into that file.
func SetupLogger(logFilePath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}

	var file io.Writer
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		file = f
	}

	logger = newLogger(os.Stderr, level, file)
	logger.Debug("imagededup log started", "at", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// SetOutput replaces the logger with one writing to w at the given level.
// Used by tests to capture log output.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, level, nil)
}

// CloseLogger closes the log file and restores the default stderr logger
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Debug("imagededup log closed", "at", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
	}
	logger = newLogger(os.Stderr, slog.LevelWarn, nil)
	isSetup = false
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// LogInfo logs an informational message
func LogInfo(format string, args ...interface{}) {
	current().Info(fmt.Sprintf(format, args...))
}

// DebugLog logs a message visible only in debug mode or in the log file
func DebugLog(format string, args ...interface{}) {
	current().Debug(fmt.Sprintf(format, args...))
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	current().Warn(fmt.Sprintf(format, args...))
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	current().Error(fmt.Sprintf(format, args...))
}

// LogImageProcessed records the fingerprinting outcome of one file
func LogImageProcessed(path string, err error) {
	if err != nil {
		current().Error("failed to process image", "path", path, "error", err)
		return
	}
	current().Debug("processed image", "path", path)
}
