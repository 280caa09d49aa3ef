// Package logger is the leveled logger used by the vistoria core packages.
// Debug and Info messages are only emitted in verbose mode; warnings and
// errors are always emitted. Everything goes through the standard log
// package so the output follows log.SetOutput.
package logger

import (
	"fmt"
	"log"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

func emit(level, format string, args ...any) {
	log.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	if IsVerbose() {
		emit("DEBUG", format, args...)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	if IsVerbose() {
		emit("INFO", format, args...)
	}
}

// Warn prints a warning. Warnings are never suppressed.
func Warn(format string, args ...any) {
	emit("WARN", format, args...)
}

// Error prints an error message. Errors are never suppressed.
func Error(format string, args ...any) {
	emit("ERROR", format, args...)
}
