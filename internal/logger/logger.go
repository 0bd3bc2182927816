package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines a standard interface for logging.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a new JSON logger writing to stdout at the specified level.
func NewLogger(level string) *ZerologLogger {
	return New(os.Stdout, level)
}

// New creates a logger writing JSON lines to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", "ytdash").
		Logger()
	return &ZerologLogger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *ZerologLogger {
	return &ZerologLogger{zl: zerolog.Nop()}
}

// WithComponent returns a child logger annotated with the given component name.
func (l *ZerologLogger) WithComponent(component string) *ZerologLogger {
	return &ZerologLogger{zl: l.zl.With().Str("component", component).Logger()}
}

// Debugf logs a message at the debug level.
func (l *ZerologLogger) Debugf(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Infof logs a message at the info level.
func (l *ZerologLogger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warnf logs a message at the warn level.
func (l *ZerologLogger) Warnf(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Errorf logs a message at the error level.
func (l *ZerologLogger) Errorf(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}
