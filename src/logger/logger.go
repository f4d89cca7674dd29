// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level is the severity of a log message.
type Level int32

const (
	// LevelDebug is used for verbose progress messages (state transitions, successful verification).
	LevelDebug Level = iota
	// LevelInfo is used for regular operational messages.
	LevelInfo
	// LevelWarn is used for conditions that do not stop a session from being established.
	LevelWarn
	// LevelError is used for failures.
	LevelError
)

// String returns the lower-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int32(l))
	}
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "verbose":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("logger: unknown level %q", s)
	}
}

// Logger defines the interface for logging operations.
// It provides methods for different log levels and formatted output.
//
// Both implementations are used by the transport and session packages,
// the CLI picks one based on the configured output format.
type Logger interface {
	// Printf formats and prints an informational log message.
	Printf(format string, v ...any)
	// Println prints an informational log message with a newline.
	Println(v ...any)
	// Debugf formats and prints a verbose message.
	Debugf(format string, v ...any)
	// Warnf formats and prints a warning.
	Warnf(format string, v ...any)
	// Errorf formats and prints an error message.
	Errorf(format string, v ...any)
	// SetOutput sets the output destination for the logger.
	SetOutput(w io.Writer)
	// SetLevel sets the minimum level that is written.
	SetLevel(l Level)
}

// CLILogger implements Logger using the standard log package.
// It's designed for command-line interface output with human-readable formatting.
type CLILogger struct {
	logger *log.Logger
	level  atomic.Int32
}

// NewCLILogger creates a new CLI logger with timestamps disabled.
// This is suitable for user-facing CLI output.
func NewCLILogger() *CLILogger {
	c := &CLILogger{logger: log.New(os.Stderr, "", 0)}
	c.level.Store(int32(LevelInfo))
	return c
}

func (c *CLILogger) enabled(l Level) bool { return l >= Level(c.level.Load()) }

// Printf formats and prints a log message using fmt.Printf semantics.
func (c *CLILogger) Printf(format string, v ...any) {
	if c.enabled(LevelInfo) {
		c.logger.Printf(format, v...)
	}
}

// Println prints a log message with a newline.
func (c *CLILogger) Println(v ...any) {
	if c.enabled(LevelInfo) {
		c.logger.Println(v...)
	}
}

// Debugf prints a verbose message prefixed with its level.
func (c *CLILogger) Debugf(format string, v ...any) { c.leveled(LevelDebug, format, v...) }

// Warnf prints a warning prefixed with its level.
func (c *CLILogger) Warnf(format string, v ...any) { c.leveled(LevelWarn, format, v...) }

// Errorf prints an error prefixed with its level.
func (c *CLILogger) Errorf(format string, v ...any) { c.leveled(LevelError, format, v...) }

func (c *CLILogger) leveled(l Level, format string, v ...any) {
	if !c.enabled(l) {
		return
	}
	c.logger.Printf("[%s] %s", strings.ToUpper(l.String()), fmt.Sprintf(format, v...))
}

// SetOutput sets the output destination for the CLI logger.
func (c *CLILogger) SetOutput(w io.Writer) { c.logger.SetOutput(w) }

// SetLevel sets the minimum level that is written.
func (c *CLILogger) SetLevel(l Level) { c.level.Store(int32(l)) }

// JSONLogger implements Logger by writing one JSON object per line.
// It is meant for long-running call-home listeners whose output is
// collected by a log shipper.
//
// JSONLogger is safe for concurrent use by multiple goroutines.
type JSONLogger struct {
	mu     sync.Mutex
	writer io.Writer
	level  atomic.Int32
	fields map[string]any
}

// NewJSONLogger creates a new JSON logger writing to writer.
// A nil writer discards all output.
func NewJSONLogger(writer io.Writer) *JSONLogger {
	if writer == nil {
		writer = io.Discard
	}
	j := &JSONLogger{writer: writer}
	j.level.Store(int32(LevelInfo))
	return j
}

// With returns a logger that adds the given key to every entry.
// The returned logger shares the writer and level of its parent at the time of the call.
func (j *JSONLogger) With(key string, value any) *JSONLogger {
	j.mu.Lock()
	defer j.mu.Unlock()

	child := &JSONLogger{writer: j.writer, fields: make(map[string]any, len(j.fields)+1)}
	child.level.Store(j.level.Load())
	for k, v := range j.fields {
		child.fields[k] = v
	}
	child.fields[key] = value
	return child
}

// Printf formats and logs a structured informational message.
func (j *JSONLogger) Printf(format string, v ...any) { j.write(LevelInfo, fmt.Sprintf(format, v...)) }

// Println logs a structured informational message.
func (j *JSONLogger) Println(v ...any) { j.write(LevelInfo, fmt.Sprint(v...)) }

// Debugf formats and logs a structured verbose message.
func (j *JSONLogger) Debugf(format string, v ...any) {
	j.write(LevelDebug, fmt.Sprintf(format, v...))
}

// Warnf formats and logs a structured warning.
func (j *JSONLogger) Warnf(format string, v ...any) { j.write(LevelWarn, fmt.Sprintf(format, v...)) }

// Errorf formats and logs a structured error.
func (j *JSONLogger) Errorf(format string, v ...any) {
	j.write(LevelError, fmt.Sprintf(format, v...))
}

func (j *JSONLogger) write(l Level, msg string) {
	if l < Level(j.level.Load()) {
		return
	}

	entry := make(map[string]any, len(j.fields)+2)
	for k, v := range j.fields {
		entry[k] = v
	}
	entry["level"] = l.String()
	entry["message"] = msg

	data, _ := json.Marshal(entry)

	j.mu.Lock()
	fmt.Fprintln(j.writer, string(data))
	j.mu.Unlock()
}

// SetOutput sets the output destination for the JSON logger.
func (j *JSONLogger) SetOutput(w io.Writer) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if w == nil {
		j.writer = io.Discard
	} else {
		j.writer = w
	}
}

// SetLevel sets the minimum level that is written.
func (j *JSONLogger) SetLevel(l Level) { j.level.Store(int32(l)) }

// Discard returns a logger that drops every message.
func Discard() Logger { return NewJSONLogger(io.Discard) }
