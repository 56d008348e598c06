package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleAppender writes human readable log lines to stdout.
type ConsoleAppender struct {
	w io.Writer
}

// NewConsoleAppender creates a console appender on stdout.
func NewConsoleAppender() *ConsoleAppender {
	return newConsoleAppender(os.Stdout)
}

func newConsoleAppender(out io.Writer) *ConsoleAppender {
	return &ConsoleAppender{
		w: zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    true,
			TimeFormat: time.DateTime,
		},
	}
}

// Write implements io.Writer.
func (ca *ConsoleAppender) Write(buf []byte) (int, error) {
	return ca.w.Write(buf)
}

// Refresh is a no-op; console writes are unbuffered.
func (ca *ConsoleAppender) Refresh() error {
	return nil
}

// Close is a no-op.
func (ca *ConsoleAppender) Close() error {
	return nil
}
