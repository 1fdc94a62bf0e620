package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/reqtrace/reqtrace/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

// warnOutput is the writer for user-visible warnings (defaults to stderr)
var warnOutput io.Writer = os.Stderr

// debugMutex protects access to the output writers
var debugMutex sync.Mutex

// runtimeEnabled turns debug mode on at runtime (e.g. from a --verbose flag)
var runtimeEnabled bool

// Enable turns on debug mode for the rest of the process lifetime.
func Enable() {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	runtimeEnabled = true
}

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// SetWarnOutput redirects warning output. Pass nil to silence warnings.
func SetWarnOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	warnOutput = w
}

// InitDebugLogFile initializes debug logging to a file.
// Returns the path to the log file, or an error if initialization fails.
// Call CloseDebugLog when done to ensure the file is properly closed.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "reqtrace-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled returns true if debug mode is enabled
func IsDebugEnabled() bool {
	debugMutex.Lock()
	enabled := runtimeEnabled
	debugMutex.Unlock()
	if enabled || EnableDebug == "true" {
		return true
	}

	// Allow runtime override via environment variable
	if v := os.Getenv("REQTRACE_DEBUG"); v == "1" || v == "true" {
		return true
	}

	return false
}

// getDebugWriter returns the writer for debug output, or nil if none is configured
func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when debug mode is enabled and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG] "+format, args...)
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogScan provides debug logging specifically for tree/file scanning
func LogScan(format string, args ...interface{}) {
	Log("SCAN", format, args...)
}

// LogIndex provides debug logging specifically for index store operations
func LogIndex(format string, args ...interface{}) {
	Log("INDEX", format, args...)
}

// LogWrite provides debug logging specifically for marker writing
func LogWrite(format string, args ...interface{}) {
	Log("WRITE", format, args...)
}

// Warnf reports a non-fatal problem (skipped file, failed save) to the
// warning writer. Warnings are always emitted regardless of debug mode.
func Warnf(format string, args ...interface{}) {
	debugMutex.Lock()
	w := warnOutput
	debugMutex.Unlock()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[WARN] "+format, args...)
}
