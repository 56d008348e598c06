package log

import (
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity of a log event. Higher values are more severe.
type Level int8

const (
	// TraceLevel is for per-call tracing of SDK entry points.
	TraceLevel Level = iota + 1
	// DebugLevel is for diagnostic state useful while wiring a game against the emulator.
	DebugLevel
	// InfoLevel is for lifecycle events and notable outcomes (file not found, login).
	InfoLevel
	// WarnLevel is for recoverable misuse by the client.
	WarnLevel
	// ErrorLevel is for failed operations.
	ErrorLevel
	// FatalLevel logs and then panics.
	FatalLevel
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name to a Level.
// Unknown names map to InfoLevel.
func ParseLevel(levelStr string) Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return TraceLevel
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR", "ERR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	}
	return InfoLevel
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
