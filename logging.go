package layerstack

import (
	"fmt"
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the default slog logger with a text handler,
// honoring the LAYERSTACK_LOG_LEVEL environment variable (DEBUG, WARN,
// ERROR; defaults to INFO). Applications that embed this package may call
// this at startup; the package itself never calls it.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("LAYERSTACK_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel changes the level set up by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// Diagnostics receives coding-error strings from the registry (spec.md §6,
// §7 InvalidIdentifier). It does not affect control flow beyond the
// registry's own early return.
type Diagnostics interface {
	CodingError(format string, args ...any)
}

// SlogDiagnostics is the default Diagnostics sink, logging through log/slog.
type SlogDiagnostics struct{}

// CodingError logs at Error level via the default slog logger.
func (SlogDiagnostics) CodingError(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
}
