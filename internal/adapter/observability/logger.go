// Package observability provides structured logging for the review runtime.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Logger is the structured logging interface threaded through the run
// orchestrator and adapters.
type Logger interface {
	LogDebug(ctx context.Context, message string, fields map[string]interface{})
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLevel maps a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarning
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// DefaultLogger writes structured log lines to the given writer.
type DefaultLogger struct {
	level  LogLevel
	format LogFormat
	out    io.Writer
	now    func() time.Time
}

// NewDefaultLogger creates a logger with the specified level and format.
func NewDefaultLogger(level LogLevel, format LogFormat, out io.Writer) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		format: format,
		out:    out,
		now:    time.Now,
	}
}

// LogDebug logs a debug message with structured fields.
func (l *DefaultLogger) LogDebug(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelDebug, "debug", message, fields)
}

// LogInfo logs an informational message with structured fields.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelInfo, "info", message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelWarning, "warning", message, fields)
}

// LogError logs an error message with structured fields.
func (l *DefaultLogger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelError, "error", message, fields)
}

func (l *DefaultLogger) write(level LogLevel, name, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	if l.format == LogFormatJSON {
		entry := map[string]interface{}{
			"level":     name,
			"timestamp": l.now().UTC().Format(time.RFC3339),
			"message":   message,
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, `{"level":"error","message":"log marshal failed: %v"}`+"\n", err)
			return
		}
		fmt.Fprintln(l.out, string(data))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(name), message)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, fields[k])
		}
		b.WriteString(")")
	}
	fmt.Fprintln(l.out, b.String())
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) LogDebug(context.Context, string, map[string]interface{})   {}
func (NopLogger) LogInfo(context.Context, string, map[string]interface{})    {}
func (NopLogger) LogWarning(context.Context, string, map[string]interface{}) {}
func (NopLogger) LogError(context.Context, string, map[string]interface{})   {}

var (
	_ Logger = (*DefaultLogger)(nil)
	_ Logger = NopLogger{}
)
