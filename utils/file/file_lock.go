// Package file provides advisory locking of emulator data directories.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/linchenxuan/eosemu/log"
)

var (
	// ErrFileNotExist is returned by RLock when the lock file does not exist.
	ErrFileNotExist = errors.New("file not exist")
	// ErrLocked is returned when another process holds the lock.
	ErrLocked = errors.New("file is locked")

	_fileMode fs.FileMode = 0o600
)

// FileLock is an flock(2) lock on a file, typically a marker file inside a
// save directory.
type FileLock struct {
	Path string
	File *os.File
}

// NewFileLock creates an unlocked FileLock for p.
func NewFileLock(p string) *FileLock {
	return &FileLock{Path: p}
}

// IsLock reports whether another holder currently locks p.
func IsLock(p string) bool {
	fl := NewFileLock(p)
	if err := fl.Lock(); err != nil {
		return true
	}
	_ = fl.Unlock()
	return false
}

// Lock takes an exclusive lock, creating the file if needed. It never
// blocks: ErrLocked is returned when the lock is held elsewhere.
func (l *FileLock) Lock() error {
	return l.lock(os.O_RDWR|os.O_CREATE, syscall.LOCK_EX)
}

// RLock takes a shared lock on an existing file.
func (l *FileLock) RLock() error {
	if _, err := os.Stat(l.Path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotExist
		}
		return err
	}
	return l.lock(os.O_RDONLY, syscall.LOCK_SH)
}

func (l *FileLock) lock(flag int, how int) error {
	f, err := os.OpenFile(l.Path, flag, _fileMode)
	if err != nil {
		return err
	}
	if err := syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB); err != nil {
		if err2 := f.Close(); err2 != nil {
			log.Error().Err(err2).Str("path", l.Path).Msg("close lock file")
		}
		return fmt.Errorf("%w: %s: %v", ErrLocked, l.Path, err)
	}
	l.File = f
	log.Debug().Str("path", l.Path).Msg("file locked")
	return nil
}

// Unlock releases the lock and closes the file. Unlocking an unlocked
// FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if l.File == nil {
		return nil
	}
	f := l.File
	l.File = nil
	defer f.Close()
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// RUnlock releases a shared lock.
func (l *FileLock) RUnlock() error {
	return l.Unlock()
}
