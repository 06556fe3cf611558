// Package logger provides leveled logging for docchat.
// Debug messages are only written in verbose mode; everything else is
// written to stderr with a colored level tag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	debugTag = color.New(color.FgHiBlack).SprintFunc()
	infoTag  = color.New(color.FgBlue).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
)

// SetVerbose enables or disables debug logging.
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

// SetOutput sets the writer logs go to. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(tag string, format string, args ...any) {
	fmt.Fprintf(output, "%s %s %s\n", time.Now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		write(debugTag("[DEBUG]"), format, args...)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(infoTag("[INFO]"), format, args...)
}

// Warn prints a warning.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(warnTag("[WARN]"), format, args...)
}

// Error prints an error.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write(errorTag("[ERROR]"), format, args...)
}
