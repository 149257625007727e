// Package logging provides the structured logger used by every component of
// the driver: the planner, the MDG integrator, the module build planner, and
// the CLI all take a *Logger rather than writing to a package-level default,
// so tests can assert on captured output without global state. Alongside the
// usual severity-keyed Debug/Info/Warn/Error calls it carries a second,
// parallel channel — Remark — for the driver's own lifecycle vocabulary
// (§4.K), which "--driver-show-incremental" needs on even when the
// configured Level would otherwise suppress it.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// DebugLevel for debug messages
	DebugLevel LogLevel = "debug"
	// InfoLevel for informational messages
	InfoLevel LogLevel = "info"
	// WarnLevel for warning messages
	WarnLevel LogLevel = "warn"
	// ErrorLevel for error messages
	ErrorLevel LogLevel = "error"
)

var logLevelPriority = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

// Format represents the output format for logs
type Format string

const (
	// JSONFormat outputs logs as JSON
	JSONFormat Format = "json"
	// HumanFormat outputs logs in human-readable format
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // Optional, defaults to stdout

	// RemarksEnabled forces every Remark call to emit regardless of
	// Level, for the "--driver-show-incremental" path (§6) where an
	// operator wants the lifecycle stream without also asking for
	// Debug-level logging of everything else.
	RemarksEnabled bool
}

// Event names a driver lifecycle moment recorded via Remark: a point where
// the build advanced from one state to another and an operator running
// with "--driver-show-incremental" would expect to see a line (§4.K). Event
// lives on Logger rather than on a caller package so a typo'd event name
// fails to compile at the Remark call site instead of silently logging
// under the wrong key.
type Event string

const (
	EventSchedulingNew         Event = "scheduling-new"
	EventQueuingInitial        Event = "queuing-initial"
	EventSkipping              Event = "skipping"
	EventReadingDeps           Event = "reading-deps"
	EventFingerprintChanged    Event = "fingerprint-changed"
	EventInvalidatedExternally Event = "invalidated-externally"
	EventDisablingIncremental  Event = "disabling-incremental"
	EventDiscardingPriors      Event = "discarding-priors"
	EventModuleRebuild         Event = "module-rebuild"
	EventOldestOutputCurrent   Event = "oldest-output-current"
)

// Logger provides structured logging
type Logger struct {
	config Config
	writer io.Writer
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}

	return &Logger{
		config: config,
		writer: writer,
	}
}

// logEntry represents a single log entry
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) shouldLog(level LogLevel) bool {
	configPriority := logLevelPriority[l.config.Level]
	messagePriority := logLevelPriority[level]
	return messagePriority >= configPriority
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.emit(level, message, fields, l.shouldLog(level))
}

// emit renders and writes one entry, gated by ok rather than re-deriving
// the gate from level: Remark needs to force emission past the configured
// Level, which plain severity-based logging never does.
func (l *Logger) emit(level LogLevel, message string, fields map[string]interface{}, ok bool) {
	if !ok {
		return
	}

	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    fields,
	}

	if l.config.Format == JSONFormat {
		l.logJSON(entry)
	} else {
		l.logHuman(entry)
	}
}

func (l *Logger) logJSON(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(l.writer, string(data))
}

func (l *Logger) logHuman(entry logEntry) {
	levelStr := fmt.Sprintf("[%s]", entry.Level)
	_, _ = fmt.Fprintf(l.writer, "%s %s %s", entry.Timestamp, levelStr, entry.Message)

	if len(entry.Fields) > 0 {
		_, _ = fmt.Fprintf(l.writer, " | ")
		first := true
		for k, v := range entry.Fields {
			if !first {
				_, _ = fmt.Fprintf(l.writer, ", ")
			}
			_, _ = fmt.Fprintf(l.writer, "%s=%v", k, v)
			first = false
		}
	}
	_, _ = fmt.Fprintln(l.writer)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DebugLevel, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(InfoLevel, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WarnLevel, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ErrorLevel, message, fields)
}

// Remark logs a driver lifecycle event as a structured debug entry keyed
// by "event", so a consumer can grep the log stream for a specific
// lifecycle phase instead of matching on free text. It emits whenever
// plain Debug logging would, and also whenever RemarksEnabled is set,
// since "--driver-show-incremental" is a request for the lifecycle stream
// independent of the configured severity Level.
func (l *Logger) Remark(event Event, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["event"] = string(event)
	l.emit(DebugLevel, string(event), merged, l.config.RemarksEnabled || l.shouldLog(DebugLevel))
}
