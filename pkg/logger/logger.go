package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Logger defines the interface for logging in the host.
// It provides standard logging levels and a mechanism to add structured context.
type Logger interface {
	// Debug logs a message at the debug level.
	Debug(msg string, args ...any)
	// Info logs a message at the info level.
	Info(msg string, args ...any)
	// Warn logs a message at the warning level.
	Warn(msg string, args ...any)
	// Error logs a message at the error level.
	Error(msg string, args ...any)
	// With returns a new Logger with the given structured context added.
	With(args ...any) Logger
}

// Log is the global logger instance used throughout the application.
// It is initialized with a default JSON handler pointing to stdout.
var Log Logger = &wrapper{l: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}))}

// FileConfig is the on-disk logging configuration referenced by Startup.logconfig.
type FileConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // json or text
	Output    string `yaml:"output"` // stdout, stderr or a file path
	AddSource *bool  `yaml:"add_source"`
}

// InitLogger initializes the global Log instance with the specified logging level.
// Supported levels are "debug", "info", "warn", and "error".
// It uses a JSON handler and includes source file information in the output.
func InitLogger(level string) {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		// Add source file info for better debugging
		AddSource: true,
	}
	Log = New(slog.NewJSONHandler(os.Stdout, opts))
}

// InitFromFile replaces the global Log with one built from a YAML logging
// configuration file. On error the current Log is left untouched.
func InitFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read log config %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse log config %s: %w", path, err)
	}
	l, err := fromConfig(fc)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

func fromConfig(fc FileConfig) (Logger, error) {
	var out io.Writer
	switch strings.ToLower(fc.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(fc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log output %s: %w", fc.Output, err)
		}
		out = f
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(fc.Level), AddSource: true}
	if fc.AddSource != nil {
		opts.AddSource = *fc.AddSource
	}

	switch strings.ToLower(fc.Format) {
	case "", "json":
		return New(slog.NewJSONHandler(out, opts)), nil
	case "text":
		return New(slog.NewTextHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", fc.Format)
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New wraps an arbitrary slog handler.
func New(h slog.Handler) Logger {
	return &wrapper{l: slog.New(h)}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return New(slog.NewTextHandler(io.Discard, nil))
}

// Or returns l, or the global Log when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return Log
	}
	return l
}

type wrapper struct {
	l *slog.Logger
}

func (w *wrapper) Debug(msg string, args ...any) { w.l.Debug(msg, args...) }
func (w *wrapper) Info(msg string, args ...any)  { w.l.Info(msg, args...) }
func (w *wrapper) Warn(msg string, args ...any)  { w.l.Warn(msg, args...) }
func (w *wrapper) Error(msg string, args ...any) { w.l.Error(msg, args...) }
func (w *wrapper) With(args ...any) Logger       { return &wrapper{l: w.l.With(args...)} }

// Personal.AI order the ending
