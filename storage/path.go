package storage

import (
	"errors"
	"path"
	"strings"
)

// MaxFilenameLength is the longest filename the storage services accept.
const MaxFilenameLength = 64

var (
	// ErrInvalidPath is returned for empty or escaping paths.
	ErrInvalidPath = errors.New("storage: invalid path")

	// ErrNotFound is returned when a file does not exist.
	ErrNotFound = errors.New("storage: file not found")
)

// CleanPath turns a client filename into a slash separated relative path.
// Backslashes are separators, and ".." never climbs above the root. It
// reports false when nothing is left.
func CleanPath(name string) (string, bool) {
	p := strings.ReplaceAll(name, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", false
	}
	return p, true
}

// Join cleans and joins path elements.
func Join(elem ...string) string {
	p, _ := CleanPath(path.Join(elem...))
	return p
}
