package bridge

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// Logger is a leveled printf-style logger. It writes to stderr so that
// stdout stays free for MCP stdio traffic.
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

func NewLogger(level string) *Logger {
	return NewLoggerWithWriter(os.Stderr, level)
}

func NewLoggerWithWriter(w io.Writer, level string) *Logger {
	logLevel := ParseLogLevel(level)

	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
	})
	l.SetLevel(charmLevel(logLevel))

	return &Logger{
		level:  logLevel,
		logger: l,
	}
}

func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogDebug
	case "warn", "warning":
		return LogWarn
	case "error":
		return LogError
	default:
		return LogInfo
	}
}

func charmLevel(level LogLevel) log.Level {
	switch level {
	case LogDebug:
		return log.DebugLevel
	case LogWarn:
		return log.WarnLevel
	case LogError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= LogDebug {
		l.logger.Debugf(msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= LogInfo {
		l.logger.Infof(msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= LogWarn {
		l.logger.Warnf(msg, args...)
	}
}

func (l *Logger) Error(msg string, args ...interface{}) {
	if l.level <= LogError {
		l.logger.Errorf(msg, args...)
	}
}
