package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const _backupTimeLayout = "20060102-150405.000"

// FileAppender writes log lines to a file and rotates it once it grows past
// the configured size. The rotated file keeps the original name with a
// timestamp suffix.
type FileAppender struct {
	lock       sync.Mutex
	fileName   string
	splitBytes int64
	fileFd     *os.File
	size       int64
}

// NewFileAppender opens (or creates) the log file described by cfg.
func NewFileAppender(cfg *LogCfg) (*FileAppender, error) {
	a := &FileAppender{
		fileName:   cfg.LogPath,
		splitBytes: int64(cfg.FileSplitMB) << 20,
	}
	if err := a.open(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *FileAppender) open() error {
	if err := os.MkdirAll(filepath.Dir(a.fileName), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	fd, err := os.OpenFile(a.fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", a.fileName, err)
	}
	st, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return fmt.Errorf("stat log file %s: %w", a.fileName, err)
	}
	a.fileFd = fd
	a.size = st.Size()
	return nil
}

func (a *FileAppender) rotate() error {
	if err := a.fileFd.Close(); err != nil {
		return err
	}
	a.fileFd = nil
	backup := a.fileName + "." + time.Now().Format(_backupTimeLayout)
	if err := os.Rename(a.fileName, backup); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return a.open()
}

// Write appends buf to the file, rotating first if buf would push the file
// past its size limit.
func (a *FileAppender) Write(buf []byte) (int, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.fileFd == nil {
		return 0, os.ErrClosed
	}
	if a.splitBytes > 0 && a.size > 0 && a.size+int64(len(buf)) > a.splitBytes {
		if err := a.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := a.fileFd.Write(buf)
	a.size += int64(n)
	return n, err
}

// Refresh syncs the file to disk.
func (a *FileAppender) Refresh() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.fileFd == nil {
		return nil
	}
	return a.fileFd.Sync()
}

// Close syncs and closes the file. Later writes fail with os.ErrClosed.
func (a *FileAppender) Close() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.fileFd == nil {
		return nil
	}
	_ = a.fileFd.Sync()
	err := a.fileFd.Close()
	a.fileFd = nil
	return err
}
