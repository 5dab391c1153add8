package util

import (
	"fmt"
	"log"
	"maps"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel orders log entries by severity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l LogLevel) String() string {
	if l < LevelDebug || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Field is a key-value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

// LogFormat selects how entries are serialized.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Output is a destination for log entries.
type Output interface {
	Write(entry LogEntry) error
	Close() error
}

// LogEntry is one record handed to every output.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LoggerInterface is what the global helpers log through.
type LoggerInterface interface {
	Debug(msg string, fields ...Field)
	Debugf(format string, args ...any)
	Info(msg string, fields ...Field)
	Infof(format string, args ...any)
	Warn(msg string, fields ...Field)
	Warnf(format string, args ...any)
	Error(msg string, fields ...Field)
	Errorf(format string, args ...any)
	With(fields ...Field) LoggerInterface
	Close() error
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level     string
	LogFile   string
	Console   bool
	Format    LogFormat
	ConsoleTo *os.File
}

// Logger fans entries out to its outputs. Children created by With share
// the parent's outputs.
type Logger struct {
	mu      sync.RWMutex
	level   LogLevel
	outputs []Output
	fields  map[string]any
}

// NewLogger creates a logger writing to the configured file and, optionally,
// the console. With neither the logger discards everything.
func NewLogger(opts LoggerOptions) (*Logger, error) {
	format := opts.Format
	if format == "" {
		format = FormatText
	}

	logger := &Logger{level: parseLogLevel(opts.Level)}
	if opts.Console {
		w := opts.ConsoleTo
		if w == nil {
			w = os.Stderr
		}
		logger.AddOutput(NewConsoleOutput(w, format))
	}
	if opts.LogFile != "" {
		out, err := NewFileOutput(opts.LogFile, format)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", opts.LogFile, err)
		}
		logger.AddOutput(out)
	}
	return logger, nil
}

func parseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

func (l *Logger) log(level LogLevel, msg string, fields []Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level < l.level || len(l.outputs) == 0 {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   msg,
		Fields:    maps.Clone(l.fields),
	}
	if entry.Fields == nil && len(fields) > 0 {
		entry.Fields = make(map[string]any, len(fields))
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	for _, out := range l.outputs {
		if err := out.Write(entry); err != nil {
			log.Printf("write log entry: %v", err)
		}
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, fmt.Sprintf(format, args...), nil)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) LoggerInterface {
	l.mu.RLock()
	defer l.mu.RUnlock()

	merged := make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(merged, l.fields)
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &Logger{level: l.level, outputs: l.outputs, fields: merged}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) AddOutput(output Output) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, output)
}

// Close closes every output and returns the first error.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	for _, out := range l.outputs {
		if err := out.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.outputs = nil
	return first
}
