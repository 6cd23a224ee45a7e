package observability

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a leveled logger taking alternating key/value pairs:
//
//	logger.Info("Page opened", "url", u, "results", n)
type Logger struct {
	entry  *logrus.Entry
	closer io.Closer
}

// NewLogger writes to stdout and, when logPath is set, to a rotated log file.
// An unknown level falls back to info.
func NewLogger(logPath, logLevel string) *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var closer io.Closer
	if logPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		base.SetOutput(io.MultiWriter(os.Stdout, rotator))
		closer = rotator
	} else {
		base.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
		base.WithField("level", logLevel).Warn("Unknown log level, using info")
	}
	base.SetLevel(level)

	return &Logger{entry: logrus.NewEntry(base), closer: closer}
}

// NewWriterLogger logs everything at debug level and above to w.
func NewWriterLogger(w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(logrus.DebugLevel)
	return &Logger{entry: logrus.NewEntry(base)}
}

// NewNopLogger discards all output.
func NewNopLogger() *Logger {
	return NewWriterLogger(io.Discard)
}

// With returns a logger that adds the given key/value pairs to every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(toFields(fields)), closer: l.closer}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.entry.WithFields(toFields(fields)).Error(msg)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func toFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fields[key] = "(MISSING)"
			break
		}
		fields[key] = kv[i+1]
	}
	return fields
}
