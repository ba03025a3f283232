package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/akolanti/filebook/internal/config"
)

// Logger resolves slog.Default on every call, so package level loggers
// created before Init still pick up the configured handler.
type Logger struct {
	section string
	attrs   []any
}

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	options := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	var handler slog.Handler
	if config.IS_PROD {
		options.Level = config.LOG_LEVEL_PROD
		options.AddSource = true
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func NewLogger(section string) *Logger {
	return &Logger{section: section}
}

func (l *Logger) inner() *slog.Logger {
	return slog.Default().With("component", l.section).With(l.attrs...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner().Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.inner().Error(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.inner().Warn(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.inner().Debug(msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(args))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, args...)
	return &Logger{section: l.section, attrs: attrs}
}

// WithContext tags the logger with the request trace id, if the context carries one.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if trace := TraceID(ctx); trace != "" {
		return l.With("traceId", trace)
	}
	return l
}

func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}
