package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferAppender struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bufferAppender) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}
func (b *bufferAppender) Refresh() error { return nil }
func (b *bufferAppender) Close() error   { return nil }
func (b *bufferAppender) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBufferLogger(level Level) (*GameLogger, *bufferAppender) {
	l := NewLogger(&LogCfg{LogLevel: level, ConsoleAppender: false})
	ba := &bufferAppender{}
	l.AddAppender(ba)
	return l, ba
}

func TestFileLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	cfg := &LogCfg{
		LogPath:           logPath,
		LogLevel:          DebugLevel,
		FileSplitMB:       10,
		FileAppender:      true,
		EnabledCallerInfo: true,
	}
	require.NoError(t, Initialize(cfg))

	testMessage := "this is a test message"
	Info().Str("module", "auth").Msg(testMessage)

	Refresh()
	Close()
	require.NoError(t, Initialize(nil))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	out := string(content)
	assert.Contains(t, out, testMessage)
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"module":"auth"`)
	assert.Contains(t, out, "log_test.go")
}

func TestLevelFiltering(t *testing.T) {
	l, ba := newBufferLogger(WarnLevel)

	l.Debug().Msg("hidden-debug")
	l.Info().Msg("hidden-info")
	l.Warn().Msg("shown-warn")
	l.Error().Int("code", 18).Msg("shown-error")

	out := ba.String()
	assert.NotContains(t, out, "hidden-debug")
	assert.NotContains(t, out, "hidden-info")
	assert.Contains(t, out, "shown-warn")
	assert.Contains(t, out, `"code":18`)

	t.Run("SetLevel", func(t *testing.T) {
		l.SetLevel(DebugLevel)
		assert.Equal(t, DebugLevel, l.GetLevel())
		l.Debug().Msg("now-visible")
		assert.Contains(t, ba.String(), "now-visible")
	})
}

func TestFatalPanics(t *testing.T) {
	l, ba := newBufferLogger(InfoLevel)
	assert.Panics(t, func() {
		l.Fatal().Msg("boom")
	})
	assert.Contains(t, ba.String(), `"level":"FATAL"`)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"Info":    InfoLevel,
		"warning": WarnLevel,
		"err":     ErrorLevel,
		"fatal":   FatalLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestValidate(t *testing.T) {
	t.Run("NoAppender", func(t *testing.T) {
		cfg := &LogCfg{LogLevel: InfoLevel}
		assert.Error(t, cfg.Validate())
	})
	t.Run("BadLevel", func(t *testing.T) {
		cfg := &LogCfg{LogLevel: 0, ConsoleAppender: true}
		assert.Error(t, cfg.Validate())
	})
	t.Run("FileWithoutPath", func(t *testing.T) {
		cfg := &LogCfg{LogLevel: InfoLevel, FileAppender: true, FileSplitMB: 1}
		assert.Error(t, cfg.Validate())
	})
	t.Run("Valid", func(t *testing.T) {
		cfg := &LogCfg{LogLevel: InfoLevel, FileAppender: true, FileSplitMB: 1, LogPath: "a/../b.log"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "b.log", cfg.LogPath)
	})
}

func TestFileAppenderRotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "rotate.log")

	a, err := NewFileAppender(&LogCfg{LogPath: logPath, FileSplitMB: 1})
	require.NoError(t, err)
	defer a.Close()

	line := []byte(strings.Repeat("x", 1023) + "\n")
	for i := 0; i < 1025; i++ {
		_, err := a.Write(line)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one rotated backup plus the live file")

	st, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(line)), st.Size())

	require.NoError(t, a.Close())
	_, err = a.Write(line)
	assert.ErrorIs(t, err, os.ErrClosed)
}
