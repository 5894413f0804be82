package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New creates a text logger writing to out. Unknown levels fall back to info.
func New(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetOutput(out)

	return logger
}

// ForComponent tags every entry with the component that logged it
func ForComponent(log logrus.FieldLogger, name string) logrus.FieldLogger {
	return log.WithField("component", name)
}
