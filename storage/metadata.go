package storage

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Metadata describes one stored file as last seen.
type Metadata struct {
	Filename     string
	Size         int64
	MD5Hash      string
	LastModified time.Time
}

// Cache holds the metadata of queried, read and written files, ordered by
// filename. It is safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	files map[string]Metadata
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{files: make(map[string]Metadata)}
}

// Put stores md under its filename.
func (c *Cache) Put(md Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[md.Filename] = md
}

// Remove forgets name.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, name)
}

// Clear forgets everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.files)
}

// Get returns the metadata of name.
func (c *Cache) Get(name string) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	md, ok := c.files[name]
	return md, ok
}

// Count returns the number of cached files.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// At returns the i-th entry in filename order.
func (c *Cache) At(i int) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.files) {
		return Metadata{}, false
	}
	names := make([]string, 0, len(c.files))
	for name := range c.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return c.files[names[i]], true
}

// Stat computes the metadata of name on fs, hashing its content.
func Stat(fs afero.Fs, name string) (Metadata, error) {
	f, err := fs.Open(name)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Metadata{}, err
	}
	if st.IsDir() {
		return Metadata{}, ErrNotFound
	}
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Filename:     name,
		Size:         st.Size(),
		MD5Hash:      hex.EncodeToString(h.Sum(nil)),
		LastModified: st.ModTime(),
	}, nil
}
