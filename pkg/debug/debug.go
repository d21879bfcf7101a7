// Package debug provides conditional debug logging for graphlens.
//
// Debug logging is enabled by setting the GRAPHLENS_DEBUG environment
// variable:
//
//	GRAPHLENS_DEBUG=1 graphlens view graph.json
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("loaded %d nodes", n)
//	defer debug.LogEnterExit("reload")()
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = discard()
)

func init() {
	if os.Getenv("GRAPHLENS_DEBUG") != "" {
		SetEnabled(true)
	}
}

func discard() *log.Logger {
	return log.New(io.Discard)
}

// NewLogger creates a logger with timestamp formatting that writes to w and
// filters messages below level.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled turns debug logging on (to stderr) or off.
func SetEnabled(e bool) {
	if e {
		SetOutput(os.Stderr)
		return
	}
	mu.Lock()
	enabled = false
	logger = discard()
	mu.Unlock()
}

// SetOutput enables debug logging to w.
func SetOutput(w io.Writer) {
	l := NewLogger(w, log.DebugLevel)
	l.SetPrefix("debug")
	mu.Lock()
	enabled = true
	logger = l
	mu.Unlock()
}

// Logger returns the debug logger. It discards everything while debug
// logging is disabled, so components can always log through it.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	Logger().Debug(fmt.Sprintf(format, args...))
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	Logger().Debug("timing", "op", name, "took", d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	l := Logger()
	l.Debug("-> " + name)
	start := time.Now()
	return func() {
		l.Debug("<- "+name, "took", time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !Enabled() {
		return
	}
	Logger().Debug(fmt.Sprintf("%s: %T = %+v", name, v, v))
}
