// Package log builds the structured logger shared by every Nayana component.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers do not need to import logrus for field maps.
type Fields = logrus.Fields

// Options configures the logger returned by New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Unknown values mean info.
	Level string

	// File, when non-empty, receives a rotated copy of every log line.
	File string

	// NoColors disables ANSI colors on stderr.
	NoColors bool

	// Caller adds the file, line and function of the call site.
	Caller bool
}

// New creates a logger writing to stderr and, optionally, a rotating file.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(opts.Level))

	f := &formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "15:04:05.000",
		HideKeys:        false,
		CallerFirst:     true,
	}
	if opts.Caller {
		f.CustomCallerFormatter = func(fr *runtime.Frame) string {
			s := strings.Split(fr.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(fr.File), fr.Line, s[len(s)-1])
		}
		logger.SetReportCaller(true)
	}
	logger.SetFormatter(f)

	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    20,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger
}

// Discard returns a logger that drops everything. Useful as a default.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
