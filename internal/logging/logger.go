// internal/logging/logger.go
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger setup.
type Options struct {
	Level string
	// File, when set, receives a copy of every line and is rotated at 10MB
	// with 3 backups kept for 7 days.
	File string
	// Console defaults to os.Stdout.
	Console io.Writer
}

// Setup configures the logrus standard logger, which the game package logs
// through, and returns it for handlers that take an explicit *logrus.Logger.
// The returned closer flushes and closes the log file, if any.
func Setup(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.StandardLogger()
	closer, err := Configure(logger, opts)
	return logger, closer, err
}

// Configure applies opts to logger.
func Configure(logger *logrus.Logger, opts Options) (io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.File == "" {
		logger.SetOutput(console)
		return nopCloser{}, nil
	}

	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	}
	logger.SetOutput(io.MultiWriter(console, lj))
	return lj, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
