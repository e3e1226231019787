// Package log is the application logger: a logrus instance with
// leveled, optionally structured, output.
package log

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Level logrus.Level

const (
	FatalLevel = Level(logrus.FatalLevel)
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
)

type Fields = logrus.Fields

var Logger = logrus.New()

func init() {
	Logger.Formatter = textFormatter()
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
}

// SetFormat switches between "text" and "json" output.
func SetFormat(format string) error {
	switch format {
	case "", "text":
		Logger.Formatter = textFormatter()
	case "json":
		Logger.Formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func SetLevel(level Level) {
	Logger.SetLevel(logrus.Level(level))
}

func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func Log(level Level, args ...any) {
	Logger.Logln(logrus.Level(level), args...)
}

func Debugf(format string, args ...any) { Logger.Debugf(format, args...) }
func Debug(args ...any)                 { Logger.Debugln(args...) }

func Infof(format string, args ...any) { Logger.Infof(format, args...) }
func Info(args ...any)                 { Logger.Infoln(args...) }

func Warnf(format string, args ...any) { Logger.Warnf(format, args...) }
func Warn(args ...any)                 { Logger.Warnln(args...) }

func Errorf(format string, args ...any) { Logger.Errorf(format, args...) }
func Error(args ...any)                 { Logger.Errorln(args...) }

func Fatal(args ...any) { Logger.Fatalln(args...) }
