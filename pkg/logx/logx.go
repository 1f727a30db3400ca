// Package logx builds the process-wide zerolog logger from config.
package logx

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type FileConfig struct {
	Enabled bool
	Path    string
}

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

// New constructs the root logger. The returned closer is non-nil only when
// a file sink is open; callers close it at shutdown.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level, zerolog.InfoLevel))

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat})
	}

	var closer io.Closer
	if cfg.File.Enabled && strings.TrimSpace(cfg.File.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o755); err != nil {
			return zerolog.Nop(), nil, err
		}
		f, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		sinks = append(sinks, f)
		closer = f
	}

	if len(sinks) == 0 {
		return zerolog.Nop(), nil, nil
	}

	var out io.Writer = sinks[0]
	if len(sinks) > 1 {
		out = zerolog.MultiLevelWriter(sinks...)
	}
	log := zerolog.New(out).With().Timestamp().Logger()
	return log, closer, nil
}

// SetLevel re-applies the global level, used by config hot-reload.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level, zerolog.InfoLevel))
}

func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		if s == "" {
			return def
		}
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return def
	}
}

// Elapsed is a convenience for duration fields rounded for humans.
func Elapsed(since time.Time) time.Duration {
	return time.Since(since).Round(time.Millisecond)
}
