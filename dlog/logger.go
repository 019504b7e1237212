// Package dlog provides the leveled logger used throughout memshard.  The
// console implementation doubles as a dragonboat logger.ILogger so that
// anything resolving loggers through logger.GetLogger shares the same sink.
package dlog

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/memshard/memshard/errors"
)

// Logger is the leveled sink handed to library code.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{})   {}
func (noopLogger) Infof(format string, args ...interface{})    {}
func (noopLogger) Warningf(format string, args ...interface{}) {}
func (noopLogger) Errorf(format string, args ...interface{})   {}

// NoopLogger discards everything.
var NoopLogger Logger = noopLogger{}

// ConsoleLogger writes "LEVEL | name | message" lines.
type ConsoleLogger struct {
	name   string
	level  int32
	logger *log.Logger
}

// NewConsoleLogger returns a logger writing to the buffered console
// (os.Stderr unless ConfigureConsole says otherwise).
func NewConsoleLogger(name string, level logger.LogLevel) *ConsoleLogger {
	return NewWriterLogger(&bufferedConsole, name, level)
}

// NewWriterLogger returns a console style logger writing to w.
func NewWriterLogger(
	w io.Writer,
	name string,
	level logger.LogLevel) *ConsoleLogger {

	return &ConsoleLogger{
		name:   name,
		level:  int32(level),
		logger: log.New(w, "", log.Ldate|log.Ltime),
	}
}

func (l *ConsoleLogger) SetLevel(level logger.LogLevel) {
	atomic.StoreInt32(&l.level, int32(level))
}

func (l *ConsoleLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(atomic.LoadInt32(&l.level)) >= level
}

func (l *ConsoleLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *ConsoleLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *ConsoleLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *ConsoleLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

func (l *ConsoleLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if l.enabled(logger.CRITICAL) {
		l.log("PANIC", "%s", message)
	}
	panic(message)
}

func (l *ConsoleLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

var _ logger.ILogger = &ConsoleLogger{}
var _ Logger = &ConsoleLogger{}

var installOnce sync.Once

// Install registers the console logger as dragonboat's logger factory, with
// every logger starting at the given level.  Only the first call has an
// effect.
func Install(level logger.LogLevel) {
	installOnce.Do(func() {
		logger.SetLoggerFactory(func(pkgName string) logger.ILogger {
			return NewConsoleLogger(pkgName, level)
		})
	})
}

// ParseLevel converts debug / info / warn / error into a logger.LogLevel.
func ParseLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, errors.Newf(
			"invalid log level: %s. must be one of debug, info, warn, error",
			level)
	}
}
