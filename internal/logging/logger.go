package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger
var reassemblerLogger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	logger.SetLevel(logrus.InfoLevel)

	reassemblerLogger = logrus.New()
	reassemblerLogger.SetOutput(os.Stderr)
	reassemblerLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "time",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "reassembler_msg",
		},
	})
	reassemblerLogger.SetLevel(logrus.InfoLevel)
}

func GetLogger() *logrus.Logger {
	return logger
}

// GetReassemblerLogger returns the logger used by the inference engine. It is kept
// separate so a run can be traced at debug level without flooding the CLI output.
func GetReassemblerLogger() *logrus.Logger {
	return reassemblerLogger
}

func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)
	return nil
}

func SetReassemblerLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	reassemblerLogger.SetLevel(logLevel)
	return nil
}

func SetFormatter(formatter logrus.Formatter) {
	logger.SetFormatter(formatter)
	reassemblerLogger.SetFormatter(formatter)
}

// SetFormat switches both loggers between "text" and "json" output.
func SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return nil
	case "json":
		SetFormatter(&logrus.JSONFormatter{})
		return nil
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
}
