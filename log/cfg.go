package log

import (
	"fmt"
	"path/filepath"
)

// LogCfg is the logging configuration. It is decoded from the `log` section
// of the emulator settings.
type LogCfg struct {
	// LogPath is the target file of the file appender.
	LogPath string `mapstructure:"path"`

	// LogLevel is the minimum level written. It can be changed at runtime with SetLevel.
	LogLevel Level `mapstructure:"level"`

	// FileSplitMB is the size in megabytes at which the log file is rotated.
	FileSplitMB int `mapstructure:"splitMB"`

	// CallerSkip is the number of extra stack frames skipped when resolving the caller.
	CallerSkip int `mapstructure:"callerSkip"`

	FileAppender      bool `mapstructure:"fileAppender"`
	ConsoleAppender   bool `mapstructure:"consoleAppender"`
	EnabledCallerInfo bool `mapstructure:"enabledCallerInfo"`
}

// Validate checks the configuration and normalizes the log path.
func (cfg *LogCfg) Validate() error {
	if cfg.LogLevel < TraceLevel || cfg.LogLevel > FatalLevel {
		return fmt.Errorf("invalid log level: %d, must be between %d (Trace) and %d (Fatal)",
			cfg.LogLevel, TraceLevel, FatalLevel)
	}

	if cfg.FileAppender {
		if cfg.LogPath == "" {
			return fmt.Errorf("log path cannot be empty when file appender is enabled")
		}
		if cfg.FileSplitMB < 1 || cfg.FileSplitMB > 1024 {
			return fmt.Errorf("file split size must be between 1MB and 1024MB, got %dMB", cfg.FileSplitMB)
		}
		cfg.LogPath = filepath.Clean(cfg.LogPath)
	}

	if cfg.CallerSkip < 0 {
		return fmt.Errorf("caller skip must be non-negative, got %d", cfg.CallerSkip)
	}

	if !cfg.FileAppender && !cfg.ConsoleAppender {
		return fmt.Errorf("at least one appender (file or console) must be enabled")
	}
	return nil
}

// DefaultCfg returns the configuration used when none is given.
func DefaultCfg() *LogCfg {
	return &LogCfg{
		LogPath:           "./eosemu.log",
		LogLevel:          InfoLevel,
		FileSplitMB:       50,
		ConsoleAppender:   true,
		EnabledCallerInfo: true,
	}
}
