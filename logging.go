package ambient

import (
	"context"
	"log/slog"
	"time"
)

// LogEvent describes one binding or subscription operation for logging.
type LogEvent struct {
	Op       string
	Key      string
	Event    string
	Engine   string
	Expr     string
	Outcome  string
	Duration time.Duration
	Err      error
}

// EventLogger records binding and subscription events.
type EventLogger interface {
	Log(LogEvent)
}

// EventLoggerFunc adapts a function to EventLogger.
type EventLoggerFunc func(LogEvent)

// Log implements EventLogger.
func (f EventLoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEventLogger struct{}

func (noopEventLogger) Log(LogEvent) {}

// SlogLogger adapts a *slog.Logger. Failures are logged at warn level, the
// rest at debug.
func SlogLogger(logger *slog.Logger) EventLogger {
	if logger == nil {
		return noopEventLogger{}
	}
	return slogEventLogger{logger: logger}
}

type slogEventLogger struct {
	logger *slog.Logger
}

func (l slogEventLogger) Log(event LogEvent) {
	attrs := []slog.Attr{slog.String("op", event.Op)}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}
	if event.Event != "" {
		attrs = append(attrs, slog.String("event", event.Event))
	}
	if event.Engine != "" {
		attrs = append(attrs, slog.String("engine", event.Engine))
	}
	if event.Expr != "" {
		attrs = append(attrs, slog.String("expr", event.Expr))
	}
	if event.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", event.Outcome))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "ambient "+event.Op, attrs...)
}
