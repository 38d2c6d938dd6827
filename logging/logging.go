// Package logging provides leveled, structured console logging for the bus
// and agent runtime. Loggers never return errors and never panic; logging is
// best-effort real-time output, not a forensic record.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger is the logging contract consumed by the bus and agents.
// Implementations must never panic.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
}

// ConsoleLogger writes structured log lines to a writer.
type ConsoleLogger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

var _ Logger = (*ConsoleLogger)(nil)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new ConsoleLogger writing to stdout at INFO level.
func New() *ConsoleLogger {
	return &ConsoleLogger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *ConsoleLogger) WithComponent(component string) *ConsoleLogger {
	return &ConsoleLogger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *ConsoleLogger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *ConsoleLogger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *ConsoleLogger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *ConsoleLogger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Domain event helpers ---
// Convenience methods used by the bus and agent runtime so log lines stay
// consistent across callers.

// HandlerFailure logs a subscriber handler error. Handler failures never
// fail the originating send, so the log line is the only trace.
func HandlerFailure(l Logger, pattern, messageID string, err error) {
	l.Error("handler_failure", map[string]interface{}{
		"pattern":    pattern,
		"message_id": messageID,
		"error":      err.Error(),
	})
}

// Eviction logs a delivery dropped under queue pressure.
func Eviction(l Logger, messageID, priority string) {
	l.Warn("delivery_evicted", map[string]interface{}{
		"message_id": messageID,
		"priority":   priority,
	})
}

// Lifecycle logs an agent health state transition.
func Lifecycle(l Logger, agentID, from, to string) {
	l.Info("lifecycle", map[string]interface{}{
		"agent": agentID,
		"from":  from,
		"to":    to,
	})
}

// Delegation logs a delegation decision.
func Delegation(l Logger, agentID, target, task string, allowed bool, reason string) {
	fields := map[string]interface{}{
		"agent":   agentID,
		"target":  target,
		"task":    task,
		"allowed": allowed,
	}
	if reason != "" {
		fields["reason"] = reason
	}
	if allowed {
		l.Debug("delegation", fields)
	} else {
		l.Warn("delegation_denied", fields)
	}
}

// PluginFailure logs a plugin that failed to load during initialization.
func PluginFailure(l Logger, agentID, plugin string, err error) {
	l.Error("plugin_load_failure", map[string]interface{}{
		"agent":  agentID,
		"plugin": plugin,
		"error":  err.Error(),
	})
}

// Nop is a Logger that discards everything. Useful as a default when the
// host supplies no logger.
type Nop struct{}

var _ Logger = Nop{}

func (Nop) Debug(string, ...map[string]interface{}) {}
func (Nop) Info(string, ...map[string]interface{})  {}
func (Nop) Warn(string, ...map[string]interface{})  {}
func (Nop) Error(string, ...map[string]interface{}) {}
