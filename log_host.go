//go:build !tinygo

package main

import (
	"os"

	"github.com/phuslu/log"

	"ember/hal"
)

// parseLogLevel converts a -log-level flag value to a phuslu level.
func parseLogLevel(s string) log.Level {
	switch s {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func newLogger(level string) log.Logger {
	return log.Logger{
		Level:      parseLogLevel(level),
		TimeFormat: "15:04:05.000",
		Writer: &log.ConsoleWriter{
			ColorOutput:    true,
			EndWithMessage: true,
			Writer:         os.Stderr,
		},
	}
}

// lineLogger adapts the structured logger to the line interface the
// machine packages log through.
type lineLogger struct {
	l log.Logger
}

var _ hal.Logger = lineLogger{}

func (w lineLogger) WriteLineString(s string) { w.l.Info().Msg(s) }
func (w lineLogger) WriteLineBytes(b []byte)  { w.l.Info().Msg(string(b)) }
