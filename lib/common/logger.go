package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rs/zerolog"
)

// PackageLoggers are the named loggers of this module.
var PackageLoggers = []string{"store", "stream", "loader", "trigger", "registry", "cmd"}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// kvLogger forwards to a zerolog logger tagged with the package name
type kvLogger struct {
	level logger.LogLevel
	zl    zerolog.Logger
}

func (l *kvLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *kvLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.zl.Debug().Msgf(format, args...)
	}
}

func (l *kvLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.zl.Info().Msgf(format, args...)
	}
}

func (l *kvLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.zl.Warn().Msgf(format, args...)
	}
}

func (l *kvLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.zl.Error().Msgf(format, args...)
	}
}

func (l *kvLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.zl.WithLevel(zerolog.PanicLevel).Msg(msg)
	panic(msg)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewLoggerFactory returns a factory writing to w. format is "console" or "json".
func NewLoggerFactory(w io.Writer, format string) logger.Factory {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	base := zerolog.New(w).With().Timestamp().Logger()
	return func(pkgName string) logger.ILogger {
		return &kvLogger{
			level: logger.INFO,
			zl:    base.With().Str("pkg", pkgName).Logger(),
		}
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to logger.LogLevel
func parseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

func checkLogFormat(format string) error {
	switch strings.ToLower(format) {
	case "console", "json", "":
		return nil
	default:
		return fmt.Errorf("invalid log format: %s. must be one of console, json", format)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the zerolog backed factory and sets the level of all
// package loggers. It must run before the first log line is written.
func InitLoggers(conf LogConfig) error {
	level, err := parseLogLevel(conf.Level)
	if err != nil {
		return err
	}
	if err := checkLogFormat(conf.Format); err != nil {
		return err
	}

	logger.SetLoggerFactory(NewLoggerFactory(os.Stderr, conf.Format))
	for _, name := range PackageLoggers {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
