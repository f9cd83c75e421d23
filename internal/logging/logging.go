// Package logging configures the process-wide zerolog logger: level, an
// optional pretty console writer and an optional rotating file sink.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tbourn/mindmate-backend/internal/config"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
// Unknown values fall back to info.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Options selects the sinks.
type Options struct {
	Level  string
	Pretty bool
	File   config.LogFileConfig
	// Console defaults to os.Stderr.
	Console io.Writer
}

// FromConfig maps the application config onto Options.
func FromConfig(cfg *config.Config) Options {
	return Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, File: cfg.LogFile}
}

// Setup installs the global logger and returns a closer for the file sink
// (a no-op closer when no file is configured). Context-less log.Ctx calls
// fall back to the global logger.
func Setup(o Options) (io.Closer, error) {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	console := o.Console
	if console == nil {
		console = os.Stderr
	}
	if o.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}
	}

	out := console
	var closer io.Closer = nopCloser{}
	if o.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(o.File.Path), 0o755); err != nil {
			return nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   o.File.Path,
			MaxSize:    o.File.MaxSizeMB,
			MaxBackups: o.File.MaxBackups,
			MaxAge:     o.File.MaxAgeDays,
			Compress:   o.File.Compress,
		}
		out = io.MultiWriter(console, lj)
		closer = lj
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
