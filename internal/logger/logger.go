// Package logger provides structured logging for the futures data
// tools using the standard library's slog package: configurable level
// and format, rotating file output, component loggers and
// context-propagated attributes. stdout is never used as a log sink -
// the CLI contract reserves it for the JSON result envelope.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/futurescope/futuresdata/internal/config"
)

// ContextKey represents keys for context values carried into log
// records.
type ContextKey string

const (
	// TraceIDKey is the context key for the invocation trace ID.
	TraceIDKey ContextKey = "trace_id"
	// SymbolKey is the context key for the market ticker symbol.
	SymbolKey ContextKey = "symbol"
	// DatasetKey is the context key for the dataset kind.
	DatasetKey ContextKey = "dataset"
	// OperationKey is the context key for the running operation.
	OperationKey ContextKey = "operation"
)

// Manager owns the base logger and its output writer.
type Manager struct {
	base   *slog.Logger
	writer io.WriteCloser
}

// New creates a logger manager from the logging configuration.
func New(cfg config.LoggingConfig) (*Manager, error) {
	writer, err := createWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.Level == "debug",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
				}
			case slog.LevelKey:
				if level, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToUpper(level.String()))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Manager{base: slog.New(handler), writer: writer}, nil
}

// createWriter selects the log destination. stdout is deliberately
// not an option.
func createWriter(cfg config.LoggingConfig) (io.WriteCloser, error) {
	switch cfg.Output {
	case "", "stderr":
		return nopWriteCloser{os.Stderr}, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file path is required when log output is 'file'")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Logger returns the base logger.
func (m *Manager) Logger() *slog.Logger {
	return m.base
}

// Component returns a logger tagged with a component name.
func (m *Manager) Component(name string) *slog.Logger {
	return m.base.With(slog.String("component", name))
}

// WithContext returns the base logger enriched with any attributes
// present in the context.
func (m *Manager) WithContext(ctx context.Context) *slog.Logger {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return m.base
	}
	return m.base.With(attrs...)
}

// Close releases the log writer.
func (m *Manager) Close() error {
	if m.writer != nil {
		return m.writer.Close()
	}
	return nil
}

// NewTrace attaches a fresh trace ID to the context so every record
// of one CLI invocation can be correlated.
func NewTrace(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, uuid.NewString())
}

// WithSymbol adds the market ticker symbol to the context.
func WithSymbol(ctx context.Context, symbol string) context.Context {
	return context.WithValue(ctx, SymbolKey, symbol)
}

// WithDataset adds the dataset kind to the context.
func WithDataset(ctx context.Context, dataset string) context.Context {
	return context.WithValue(ctx, DatasetKey, dataset)
}

// WithOperation adds the operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// contextAttrs extracts logging attributes from the context.
func contextAttrs(ctx context.Context) []any {
	var attrs []any
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String(string(TraceIDKey), v))
	}
	if v, ok := ctx.Value(SymbolKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String(string(SymbolKey), v))
	}
	if v, ok := ctx.Value(DatasetKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String(string(DatasetKey), v))
	}
	if v, ok := ctx.Value(OperationKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String(string(OperationKey), v))
	}
	return attrs
}
