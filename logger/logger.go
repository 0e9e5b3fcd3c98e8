// Package logger wraps go-logging with a console backend at a configurable level and an
// optional file backend that always records DEBUG.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bookshelf/bookshelf/config"
	"github.com/op/go-logging"
)

const (
	module      = "bookshelf"
	logFileName = "bookshelf.log"
	timeFormat  = "2006/01/02 15:04:05"
)

var (
	logger  = logging.MustGetLogger(module)
	logFile *os.File
)

// ParseLevel maps a configured level onto a go-logging level.
func ParseLevel(level config.LogLevel) (logging.Level, error) {
	switch level {
	case config.Debug:
		return logging.DEBUG, nil
	case config.Info:
		return logging.INFO, nil
	case config.Notice:
		return logging.NOTICE, nil
	case config.Warn:
		return logging.WARNING, nil
	case config.Error:
		return logging.ERROR, nil
	}
	return logging.INFO, fmt.Errorf("unknown log level: %s", level)
}

// InitLogger installs the console backend and, when logFolder is not empty, a file backend.
func InitLogger(level logging.Level, logFolder string) {
	newLogger := logging.MustGetLogger(module)
	backends := make([]logging.Backend, 0, 2)

	console := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), newFormatter())
	leveled := logging.AddModuleLevel(console)
	leveled.SetLevel(level, module)
	backends = append(backends, leveled)

	if logFolder != "" {
		if fileBackend := initFileBackend(logFolder); fileBackend != nil {
			leveledFile := logging.AddModuleLevel(fileBackend)
			leveledFile.SetLevel(logging.DEBUG, module)
			backends = append(backends, leveledFile)
		}
	}

	newLogger.SetBackend(logging.MultiLogger(backends...))
	logger = newLogger
}

func initFileBackend(logFolder string) logging.Backend {
	if err := os.MkdirAll(logFolder, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log folder %s: %v\n", logFolder, err)
		return nil
	}

	logPath := filepath.Join(logFolder, logFileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", logPath, err)
		return nil
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file

	return logging.NewBackendFormatter(logging.NewLogBackend(file, "", 0), newFormatter())
}

func newFormatter() logging.Formatter {
	return logging.MustStringFormatter(`%{time:` + timeFormat + `} %{level:.4s} - %{message}`)
}

// CloseLogger closes the log file, if any.
func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func Debug(args ...any) {
	logger.Debug(args...)
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

func Info(args ...any) {
	logger.Info(args...)
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

func Notice(args ...any) {
	logger.Notice(args...)
}

func Noticef(format string, args ...any) {
	logger.Noticef(format, args...)
}

func Warning(args ...any) {
	logger.Warning(args...)
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
}

func Error(args ...any) {
	logger.Error(args...)
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
