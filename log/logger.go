package log

import (
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LogEvent is a single structured log entry under construction. Fields are
// chained (`Str`, `Int`, `Err`, ...) and the entry is written by `Msg`/`Msgf`.
// A nil *LogEvent is valid and discards everything, which is what disabled
// levels return.
type LogEvent = zerolog.Event

// Logger is the logging component used across the emulator.
type Logger interface {
	Trace() *LogEvent
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Fatal() *LogEvent
	GetAppender() []LogAppender
	AddAppender(appender LogAppender)
}

func init() {
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		if l == zerolog.PanicLevel {
			return FatalLevel.String()
		}
		return strings.ToUpper(l.String())
	}
}

// GameLogger is the default Logger. Output goes to every registered appender;
// the level can be changed at runtime without rebuilding appenders.
type GameLogger struct {
	lock      sync.Mutex
	appenders []LogAppender
	cfg       LogCfg
	zl        atomic.Pointer[zerolog.Logger]
}

var _ Logger = (*GameLogger)(nil)

var _defaultLogger atomic.Pointer[GameLogger]

func init() {
	_defaultLogger.Store(NewLogger(DefaultCfg()))
}

// NewLogger creates a logger from cfg. A nil cfg uses the defaults.
// It panics if the file appender cannot be opened.
func NewLogger(cfg *LogCfg) *GameLogger {
	if cfg == nil {
		cfg = DefaultCfg()
	}

	logger := &GameLogger{cfg: *cfg}
	if cfg.FileAppender {
		fa, err := NewFileAppender(cfg)
		if err != nil {
			panic(err)
		}
		logger.appenders = append(logger.appenders, fa)
	}
	if cfg.ConsoleAppender {
		logger.appenders = append(logger.appenders, NewConsoleAppender())
	}
	logger.rebuild()
	return logger
}

// rebuild must be called with x.lock held, or before x is shared.
func (x *GameLogger) rebuild() {
	writers := make([]io.Writer, 0, len(x.appenders))
	for _, a := range x.appenders {
		writers = append(writers, a)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(x.cfg.LogLevel.zerolog()).
		With().
		Timestamp()
	if x.cfg.EnabledCallerInfo {
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + x.cfg.CallerSkip)
	}
	zl := ctx.Logger()
	x.zl.Store(&zl)
}

// AddAppender adds an output destination.
func (x *GameLogger) AddAppender(appender LogAppender) {
	x.lock.Lock()
	defer x.lock.Unlock()

	x.appenders = append(x.appenders, appender)
	x.rebuild()
}

// GetAppender returns the registered appenders.
func (x *GameLogger) GetAppender() []LogAppender {
	x.lock.Lock()
	defer x.lock.Unlock()

	return append([]LogAppender(nil), x.appenders...)
}

// SetLevel changes the minimum level.
func (x *GameLogger) SetLevel(level Level) {
	x.lock.Lock()
	defer x.lock.Unlock()

	x.cfg.LogLevel = level
	x.rebuild()
}

// GetLevel returns the minimum level.
func (x *GameLogger) GetLevel() Level {
	x.lock.Lock()
	defer x.lock.Unlock()

	return x.cfg.LogLevel
}

// Refresh flushes all appenders.
func (x *GameLogger) Refresh() {
	for _, appender := range x.GetAppender() {
		_ = appender.Refresh()
	}
}

// Close flushes and closes all appenders.
func (x *GameLogger) Close() {
	for _, appender := range x.GetAppender() {
		_ = appender.Close()
	}
}

func (x *GameLogger) Trace() *LogEvent { return x.zl.Load().Trace() }
func (x *GameLogger) Debug() *LogEvent { return x.zl.Load().Debug() }
func (x *GameLogger) Info() *LogEvent  { return x.zl.Load().Info() }
func (x *GameLogger) Warn() *LogEvent  { return x.zl.Load().Warn() }
func (x *GameLogger) Error() *LogEvent { return x.zl.Load().Error() }

// Fatal returns an event that panics once written.
func (x *GameLogger) Fatal() *LogEvent { return x.zl.Load().Panic() }

// Initialize replaces the default logger with one built from cfg.
// A nil cfg restores the defaults.
func Initialize(cfg *LogCfg) error {
	if cfg == nil {
		cfg = DefaultCfg()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	SetDefaultLogger(NewLogger(cfg))
	return nil
}

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(logger *GameLogger) {
	_defaultLogger.Store(logger)
}

// DefaultLogger returns the package-level logger.
func DefaultLogger() *GameLogger {
	return _defaultLogger.Load()
}

// AddAppender adds an appender to the default logger.
func AddAppender(appender LogAppender) {
	DefaultLogger().AddAppender(appender)
}

// SetLevel changes the level of the default logger.
func SetLevel(level Level) {
	DefaultLogger().SetLevel(level)
}

// Refresh flushes the default logger.
func Refresh() {
	DefaultLogger().Refresh()
}

// Close flushes and closes the default logger.
func Close() {
	DefaultLogger().Close()
}

func Trace() *LogEvent { return DefaultLogger().Trace() }
func Debug() *LogEvent { return DefaultLogger().Debug() }
func Info() *LogEvent  { return DefaultLogger().Info() }
func Warn() *LogEvent  { return DefaultLogger().Warn() }
func Error() *LogEvent { return DefaultLogger().Error() }
func Fatal() *LogEvent { return DefaultLogger().Fatal() }
