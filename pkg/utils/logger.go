package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger builds the process logger. Unknown levels fall back to info.
func InitLogger(level string) *logrus.Logger {
	Logger = NewLogger(level)
	return Logger
}

func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetOutput(os.Stdout)

	return logger
}

func GetLogger() *logrus.Logger {
	if Logger == nil {
		InitLogger(os.Getenv("LOG_LEVEL"))
	}
	return Logger
}
