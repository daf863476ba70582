// Package logging adapts the teacher's pkg/reporting/logger.go zerolog
// wrapper to oxn's own field vocabulary (run_id, treatment, response, phase
// instead of the teacher's chain-specific fields).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config configures a Logger.
type Config struct {
	Level  Level
	Format Format
	Output io.Writer
}

// Logger is a structured logger over zerolog.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var out io.Writer = cfg.Output
	if cfg.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	z := zerolog.New(out).With().Timestamp().Logger()
	z = z.Level(levelOf(cfg.Level))
	return &Logger{z: z}
}

func levelOf(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string, fields ...any) { l.emit(l.z.Debug(), msg, fields...) }
func (l *Logger) Info(msg string, fields ...any)  { l.emit(l.z.Info(), msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.emit(l.z.Warn(), msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.emit(l.z.Error(), msg, fields...) }

// WithFields returns a child logger carrying the given run/treatment/
// response/phase context on every subsequent log line.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.z.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{z: ctx.Logger()}
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields ...any) {
	if len(fields)%2 != 0 {
		event.Str("logging_error", "odd number of fields")
		event.Msg(msg)
		return
	}
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

// InitGlobal installs cfg as the package-level zerolog/log logger, used by
// cmd/oxn before any component-specific logger is constructed.
func InitGlobal(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	var out io.Writer = cfg.Output
	if cfg.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(levelOf(cfg.Level))
}
