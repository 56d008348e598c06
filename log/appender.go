package log

import "io"

// LogAppender is an output destination for encoded log events.
// Implementations must be safe for concurrent use.
type LogAppender interface {
	io.Writer

	// Refresh flushes buffered data to the underlying destination.
	Refresh() error

	// Close flushes and releases the destination.
	Close() error
}
