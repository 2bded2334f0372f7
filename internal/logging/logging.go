// Package logging configures logrus for the service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to stdout at the given level and format.
func New(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	if err := Configure(logger, level, format, os.Stdout); err != nil {
		return nil, err
	}
	return logger, nil
}

// Setup configures the package-level logrus logger, which is what packages
// logging through logrus.WithField use, and returns it.
func Setup(level, format string) (*logrus.Logger, error) {
	logger := logrus.StandardLogger()
	if err := Configure(logger, level, format, os.Stdout); err != nil {
		return nil, err
	}
	return logger, nil
}

// Configure applies level, format and output to logger.
func Configure(logger *logrus.Logger, level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q: expected json or text", format)
	}

	logger.SetLevel(lvl)
	logger.SetOutput(out)
	return nil
}

// LogError logs err with the module, function and context it happened in.
// data is attached when non-nil.
func LogError(logger logrus.FieldLogger, moduleName, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
