package utils

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// NewLogger builds the structured logger handed to every component. Logs go
// to stderr so command output stays machine readable.
func NewLogger(level string) *pterm.Logger {
	return pterm.DefaultLogger.
		WithWriter(os.Stderr).
		WithLevel(ParseLogLevel(level)).
		WithTime(false)
}

// ParseLogLevel maps a config value to a pterm level; unknown values mean warn.
func ParseLogLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "info":
		return pterm.LogLevelInfo
	case "error":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelWarn
	}
}
