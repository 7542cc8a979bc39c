/*
Package logx is the lobby server's logging layer on top of zerolog.

The server logs through one process-wide logger set up at startup by InitGlobalLogger.
Long-lived parts of the server (the hub, each client connection, the stores and the
S3 mirror) take a child logger from Component so every line names where it came from.
Short one-off lines use the Info, Warn, Error and Fatal helpers with key/value pairs.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger replaces the process-wide logger.
//
// In development lines go to stderr through a coloured console writer at debug level.
// Otherwise JSON lines go to stdout at info level. Every extra writer, such as the
// LOG_FILE the server appends to, receives the same lines as JSON.
func InitGlobalLogger(isDevelopment bool, extra ...io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	log.Logger = newLogger(isDevelopment, extra).With().Caller().Logger()
}

func newLogger(isDevelopment bool, extra []io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	var primary io.Writer = os.Stdout

	if isDevelopment {
		level = zerolog.DebugLevel
		primary = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	out := primary
	if len(extra) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{primary}, extra...)...)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Logger returns the process-wide logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the process-wide logger with a "component" field.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// Info logs msg with optional key/value pairs.
func Info(msg string, fields ...any) {
	emit(Logger().Info(), "Info", msg, fields)
}

// Warn logs msg with optional key/value pairs.
func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), "Warn", msg, fields)
}

// Error logs err and msg with optional key/value pairs.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error().Err(err), "Error", msg, fields)
}

// Fatal logs err and msg, then exits the process with status 1.
func Fatal(err error, msg string, fields ...any) {
	emit(Logger().Fatal().Err(err), "Fatal", msg, fields)
}

// emit attaches fields to ev and sends it, reporting the helper's caller.
// An odd field list is dropped with a warning rather than handed to zerolog.
func emit(ev *zerolog.Event, level, msg string, fields []any) {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("Logx call (%s) received odd number of fields: %v. Fields ignored.", level, fields)
		fields = nil
	}

	ev.Fields(fields).CallerSkipFrame(2).Msg(msg)
}
