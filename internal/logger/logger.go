package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var (
	defaultLogger *zerolog.Logger
)

// Init initializes the global logger. format "console" gives human-readable
// output, anything else JSON.
func Init(level string, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if strings.EqualFold(format, "console") {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	l = l.Level(parseLevel(level))

	defaultLogger = &l
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the default logger
func Get() *zerolog.Logger {
	if defaultLogger == nil {
		Init("info", "json")
	}
	return defaultLogger
}

// Info logs at info level. args are alternating keys and values.
func Info(msg string, args ...any) {
	Get().Info().Fields(args).Msg(msg)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Get().Debug().Fields(args).Msg(msg)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Get().Warn().Fields(args).Msg(msg)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Get().Error().Fields(args).Msg(msg)
}

// Fatal logs at error level and exits
func Fatal(msg string, args ...any) {
	Get().Error().Fields(args).Msg(msg)
	os.Exit(1)
}

// With returns a child logger carrying the given key/value pairs
func With(args ...any) zerolog.Logger {
	return Get().With().Fields(args).Logger()
}
