// Package logging builds the hclog loggers shared by the bitdoc commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Prefix marks every human-readable log line.
const Prefix = "🧮 "

// Environment knobs
const (
	EnvJSONLog  = "BITDOC_JSON_LOG"
	EnvLogLevel = "BITDOC_LOG_LEVEL"
)

// DefaultLevel keeps interactive output quiet unless asked otherwise.
const DefaultLevel = "warn"

// JSONEnabled reports whether structured JSON logs were requested.
func JSONEnabled() bool {
	return os.Getenv(EnvJSONLog) == "1"
}

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	jsonFormat := JSONEnabled()
	if !jsonFormat {
		output = NewPrefixWriter(Prefix, output)
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = hclog.Warn
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      lvl,
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	if level := os.Getenv(EnvLogLevel); level != "" {
		return level
	}
	return DefaultLevel
}

// ParseLevel validates a level name. Empty selects DefaultLevel.
func ParseLevel(level string) (hclog.Level, error) {
	if strings.TrimSpace(level) == "" {
		level = DefaultLevel
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("❌ unknown log level %q", level)
	}
	return lvl, nil
}
