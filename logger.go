package codecall

import (
	"fmt"
	"log/slog"
)

// Logger receives host-side diagnostics from every layer of the subsystem.
// A nil logger means silent.
type Logger interface {
	Logf(format string, args ...any)
}

// NewSlogLogger adapts an slog logger to the Logger interface. A nil
// argument uses slog's default logger.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Logf(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}
