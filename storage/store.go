package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/linchenxuan/eosemu/log"
)

const tmpSuffix = ".eosemu-tmp"

// Limits caps transfers of a Store.
type Limits struct {
	MaxChunkBytes int
	MaxFileBytes  int64
}

// Store is the directory one storage service works in, plus the metadata
// cache of the files it has seen.
type Store struct {
	iface  string
	fs     afero.Fs
	cache  *Cache
	limits Limits
}

// NewStore creates a store over fs. iface labels its transfer metrics.
func NewStore(iface string, fs afero.Fs, limits Limits) *Store {
	return &Store{iface: iface, fs: fs, cache: NewCache(), limits: limits}
}

// Fs returns the filesystem of the store.
func (s *Store) Fs() afero.Fs { return s.fs }

// Cache returns the metadata cache.
func (s *Store) Cache() *Cache { return s.cache }

// Exists reports whether name is a regular file.
func (s *Store) Exists(name string) bool {
	p, ok := CleanPath(name)
	if !ok {
		return false
	}
	st, err := s.fs.Stat(p)
	return err == nil && !st.IsDir()
}

// List returns every stored file, recursively, in lexical order.
func (s *Store) List() ([]string, error) {
	var files []string
	err := afero.Walk(s.fs, ".", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, tmpSuffix) || info.Name() == lockFileName {
			return nil
		}
		files = append(files, filepath.ToSlash(p))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// Query refreshes the cached metadata of name. A missing file is evicted
// and reported as ErrNotFound.
func (s *Store) Query(name string) (Metadata, error) {
	p, ok := CleanPath(name)
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	md, err := Stat(s.fs, p)
	if err != nil {
		s.cache.Remove(p)
		if os.IsNotExist(err) || errors.Is(err, ErrNotFound) {
			return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return Metadata{}, err
	}
	s.cache.Put(md)
	return md, nil
}

// QueryAll rebuilds the cache from the directory content and returns the
// number of files.
func (s *Store) QueryAll() (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}
	s.cache.Clear()
	for _, f := range files {
		if _, err := s.Query(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("skip unreadable file")
		}
	}
	return s.cache.Count(), nil
}

// Delete removes name and evicts it from the cache.
func (s *Store) Delete(name string) error {
	p, ok := CleanPath(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	s.cache.Remove(p)
	if err := s.fs.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return err
	}
	return nil
}

// Duplicate copies src to dst and caches the metadata of dst.
func (s *Store) Duplicate(src, dst string) error {
	sp, ok := CleanPath(src)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPath, src)
	}
	dp, ok := CleanPath(dst)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPath, dst)
	}

	in, err := s.fs.Open(sp)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, sp)
		}
		return err
	}
	defer in.Close()

	if err := s.mkdirFor(dp); err != nil {
		return err
	}
	out, err := s.fs.OpenFile(dp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_, err = s.Query(dp)
	return err
}

// Read starts a chunked read of an existing file.
func (s *Store) Read(req ReadRequest) (*Transfer, error) {
	p, ok := CleanPath(req.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, req.Filename)
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}

	log.Info().Str("file", p).Int64("size", st.Size()).Msg("start reading file")
	return &Transfer{
		iface:    s.iface,
		dir:      dirRead,
		fs:       s.fs,
		name:     req.Filename,
		path:     p,
		file:     f,
		buf:      getChunk(s.chunkSize(req.ChunkBytes)),
		total:    st.Size(),
		readFn:   req.Data,
		progress: req.Progress,
	}, nil
}

// Write starts a chunked write. The data goes to a temporary file renamed
// over name once the client completes the request.
func (s *Store) Write(req WriteRequest) (*Transfer, error) {
	if isReadOnly(s.fs) {
		return nil, fmt.Errorf("storage: %s is read-only", s.iface)
	}
	p, ok := CleanPath(req.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, req.Filename)
	}
	if err := s.mkdirFor(p); err != nil {
		return nil, err
	}
	tmp := p + tmpSuffix
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	log.Info().Str("file", p).Msg("start writing file")
	return &Transfer{
		iface:    s.iface,
		dir:      dirWrite,
		fs:       s.fs,
		name:     req.Filename,
		path:     p,
		tmpPath:  tmp,
		file:     f,
		buf:      getChunk(s.chunkSize(req.ChunkBytes)),
		maxBytes: s.limits.MaxFileBytes,
		writeFn:  req.Data,
		progress: req.Progress,
		onCommit: func(name string) {
			if _, err := s.Query(name); err != nil {
				log.Error().Err(err).Str("file", name).Msg("cache written file")
			}
		},
	}, nil
}

func (s *Store) chunkSize(n int) int {
	if n <= 0 {
		n = DefaultChunkBytes
	}
	if s.limits.MaxChunkBytes > 0 && n > s.limits.MaxChunkBytes {
		n = s.limits.MaxChunkBytes
	}
	return n
}

func (s *Store) mkdirFor(p string) error {
	dir := filepath.Dir(p)
	if dir == "." {
		return nil
	}
	return s.fs.MkdirAll(dir, 0o755)
}
