// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// FormatType is the output format of the log entries.
type FormatType string

const (
	FormatTypeText FormatType = "text"
	FormatTypeJSON FormatType = "json"
)

type Config struct {
	Level     string     `yaml:"level" default:"info"`
	Format    FormatType `yaml:"format" default:"text"`
	Timestamp bool       `yaml:"timestamp" default:"true"`
}

// logger is the global logging instance
var logger *logrus.Logger

func init() {
	logger = logrus.New()

	_ = Configure(Config{
		Level:     "info",
		Format:    FormatTypeText,
		Timestamp: true,
	})
}

// Log returns the global logger
func Log() *logrus.Logger {
	return logger
}

// PrefixedLog returns the global logger with a prefix
func PrefixedLog(prefix string) *logrus.Entry {
	return logger.WithField("prefix", prefix)
}

// Discard returns an entry that drops everything logged through it.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

// EscapeInput removes line breaks from input
func EscapeInput(input string) string {
	result := strings.ReplaceAll(input, "\n", "")
	result = strings.ReplaceAll(result, "\r", "")

	return result
}

// Configure applies the configuration to the global logger
func Configure(lc Config) error {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", lc.Level, err)
	}

	var formatter logrus.Formatter
	switch FormatType(strings.ToLower(string(lc.Format))) {
	case FormatTypeText, "":
		f := &prefixed.TextFormatter{
			TimestampFormat:  "2006-01-02 15:04:05",
			FullTimestamp:    true,
			ForceFormatting:  true,
			ForceColors:      false,
			QuoteEmptyFields: true,
			DisableTimestamp: !lc.Timestamp,
		}

		f.SetColorScheme(&prefixed.ColorScheme{
			PrefixStyle:    "blue+b",
			TimestampStyle: "white+h",
		})
		formatter = f
	case FormatTypeJSON:
		formatter = &logrus.JSONFormatter{DisableTimestamp: !lc.Timestamp}
	default:
		return fmt.Errorf("invalid log format %s: must be 'text' or 'json'", lc.Format)
	}

	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	return nil
}

// SetOutput redirects the global logger
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}
