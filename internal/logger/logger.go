// Package logger provides the leveled logging interface used by wgjoin
// components. Progress meant for the operator goes through internal/ui;
// this package carries diagnostics that help explain what happened.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// DebugEnv enables debug output when set to any non-empty value.
const DebugEnv = "WGJOIN_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// writerLogger writes prefixed lines to an io.Writer.
type writerLogger struct {
	out    *log.Logger
	prefix string
	debug  func() bool
}

// NewWriterLogger creates a logger writing to w. Debug lines are emitted only
// when debug is true.
func NewWriterLogger(w io.Writer, prefix string, debug bool) Logger {
	return &writerLogger{
		out:    log.New(w, "", log.LstdFlags),
		prefix: prefix,
		debug:  func() bool { return debug },
	}
}

// NewEnvLogger creates a stderr logger that emits debug lines while
// WGJOIN_DEBUG is set. The prefix is prepended to every line (e.g. "[keys]").
func NewEnvLogger(prefix string) Logger {
	return &writerLogger{
		out:    log.New(os.Stderr, "", log.LstdFlags),
		prefix: prefix,
		debug:  func() bool { return os.Getenv(DebugEnv) != "" },
	}
}

func (l *writerLogger) line(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch {
	case l.prefix != "" && level != "":
		l.out.Printf("%s %s: %s", l.prefix, level, msg)
	case l.prefix != "":
		l.out.Printf("%s %s", l.prefix, msg)
	case level != "":
		l.out.Printf("%s: %s", level, msg)
	default:
		l.out.Print(msg)
	}
}

func (l *writerLogger) Debug(format string, args ...interface{}) {
	if l.debug() {
		l.line("DEBUG", format, args...)
	}
}

func (l *writerLogger) Info(format string, args ...interface{}) {
	l.line("", format, args...)
}

func (l *writerLogger) Warn(format string, args ...interface{}) {
	l.line("WARN", format, args...)
}

func (l *writerLogger) Error(format string, args ...interface{}) {
	l.line("ERROR", format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Info(format string, args ...interface{})  {}
func (noopLogger) Warn(format string, args ...interface{})  {}
func (noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for test assertions.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

var defaultLogger = NewEnvLogger("")

// Default returns the package-level logger.
func Default() Logger {
	return defaultLogger
}

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	defaultLogger = l
}
