package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Format represents the log format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Logger represents a logger instance
type Logger struct {
	*slog.Logger
	writers []io.Writer
	level   *slog.LevelVar
}

// New creates a new logger
func New(level slog.Level, format Format, writers ...io.Writer) *Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	return &Logger{
		Logger:  slog.New(newHandler(levelVar, format, writers)),
		writers: writers,
		level:   levelVar,
	}
}

func newHandler(level slog.Leveler, format Format, writers []io.Writer) slog.Handler {
	out := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return contextHandler{slog.NewJSONHandler(out, opts)}
	}
	return contextHandler{slog.NewTextHandler(out, opts)}
}

// SetLevel changes the minimum level of records written from now on.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current log level
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close closes all file writers
func (l *Logger) Close() error {
	for _, writer := range l.writers {
		if file, ok := writer.(*os.File); ok {
			// Don't close stdout/stderr
			if file != os.Stdout && file != os.Stderr {
				if err := file.Close(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

type requestIDKey struct{}

// WithRequestID returns a context whose log records carry request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, if any.
func RequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id, ok := RequestID(ctx); ok {
		record.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, record)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// Init initializes the default logger. console receives every record in
// addition to the files; stdio mode passes os.Stderr since stdout carries the
// protocol.
func Init(level slog.Level, format Format, console io.Writer, paths ...string) error {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	// Add file writers if paths are provided
	for _, path := range paths {
		if path != "" {
			// Create log directory if it doesn't exist
			dir := filepath.Dir(path)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}

			// Open log file
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return err
			}
			writers = append(writers, file)
		}
	}

	previous := defaultLogger
	defaultLogger = New(level, format, writers...)
	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// GetLevelFromString returns the log level from a string
func GetLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultLogger writes text to stderr until Init replaces it.
var defaultLogger = New(slog.LevelInfo, FormatText, os.Stderr)

// Helper functions for common logging patterns
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.ErrorContext(ctx, msg, args...)
}
