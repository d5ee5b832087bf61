package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name from configuration or flags.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Fatal(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// BinserveLogger implements Logger on top of zerolog.
type BinserveLogger struct {
	logger    zerolog.Logger
	level     LogLevel
	component string
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      LogLevel
	Format     string // "json" or "console"
	Output     io.Writer
	TimeFormat string
	Component  string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      LevelInfo,
		Format:     "console",
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *LoggerConfig) *BinserveLogger {
	if config == nil {
		config = DefaultConfig()
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if config.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: config.TimeFormat, NoColor: !IsTerminal(out)}
	}

	zl := zerolog.New(out).Level(config.Level.zerolog()).With().Timestamp().Logger()
	if config.Component != "" {
		zl = zl.With().Str("component", config.Component).Logger()
	}

	return &BinserveLogger{
		logger:    zl,
		level:     config.Level,
		component: config.Component,
	}
}

// IsTerminal reports whether w is a terminal. Only *os.File values can be.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Nop returns a logger that discards everything.
func Nop() *BinserveLogger {
	return &BinserveLogger{logger: zerolog.Nop(), level: LevelFatal}
}

// Zerolog exposes the underlying zerolog logger for integrations such as
// the HTTP access log.
func (l *BinserveLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message
func (l *BinserveLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(l.logger.Debug(), nil, msg, fields...)
}

// Info logs an info message
func (l *BinserveLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(l.logger.Info(), nil, msg, fields...)
}

// Warn logs a warning message
func (l *BinserveLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(l.logger.Warn(), err, msg, fields...)
}

// Error logs an error message
func (l *BinserveLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(l.logger.Error(), err, msg, fields...)
}

// Fatal logs at error level with a fatal marker.
// It does not exit; the caller decides how to stop.
func (l *BinserveLogger) Fatal(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(l.logger.WithLevel(zerolog.FatalLevel), err, msg, fields...)
}

// With creates a new logger with additional fields
func (l *BinserveLogger) With(fields ...interface{}) Logger {
	return &BinserveLogger{
		logger:    l.logger.With().Fields(pairs(fields)).Logger(),
		level:     l.level,
		component: l.component,
	}
}

// WithComponent creates a new logger with component context
func (l *BinserveLogger) WithComponent(component string) Logger {
	return &BinserveLogger{
		logger:    l.logger.With().Str("component", component).Logger(),
		level:     l.level,
		component: component,
	}
}

func (l *BinserveLogger) log(ev *zerolog.Event, err error, msg string, fields ...interface{}) {
	if ev == nil {
		return
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs turns alternating key/value arguments into a field map, dropping
// entries whose key is not a string.
func pairs(fields []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			m[key] = fields[i+1]
		}
	}
	return m
}

// FileLogger writes to the configured output and to a log file.
type FileLogger struct {
	*BinserveLogger
	file     *os.File
	filePath string
}

// NewFileLogger creates a logger that also appends to path.
func NewFileLogger(config *LoggerConfig, path string) (*FileLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	primary := config.Output
	if primary == nil {
		primary = os.Stderr
	}
	if config.Format != "json" {
		primary = zerolog.ConsoleWriter{Out: primary, TimeFormat: config.TimeFormat, NoColor: !IsTerminal(primary)}
	}

	fileConfig := *config
	fileConfig.Format = "json"
	fileConfig.Output = zerolog.MultiLevelWriter(primary, file)

	return &FileLogger{
		BinserveLogger: NewLogger(&fileConfig),
		file:           file,
		filePath:       path,
	}, nil
}

// Close closes the file logger
func (f *FileLogger) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// PerfLogger tracks performance metrics
type PerfLogger struct {
	Logger
	startTime time.Time
	operation string
}

// StartOperation begins performance tracking
func StartOperation(l Logger, operation string) *PerfLogger {
	return &PerfLogger{
		Logger:    l.With("operation", operation),
		startTime: time.Now(),
		operation: operation,
	}
}

// End completes performance tracking and logs the duration
func (p *PerfLogger) End(ctx context.Context, fields ...interface{}) {
	duration := time.Since(p.startTime)
	fields = append(fields, "duration_ms", duration.Milliseconds())
	p.Debug(ctx, "Operation completed", fields...)
}

// EndWithError completes performance tracking and logs an error
func (p *PerfLogger) EndWithError(ctx context.Context, err error) {
	duration := time.Since(p.startTime)
	p.Error(ctx, err, "Operation failed",
		"duration_ms", duration.Milliseconds(),
	)
}
