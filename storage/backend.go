// Package storage holds the filesystem side of the emulated storage
// services: pluggable afero backends, a file metadata cache and the chunked
// File Transfer Request driven by the frame pump.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/plugin"
	"github.com/linchenxuan/eosemu/utils/file"
)

const (
	// OSBackend is the factory name of the disk backend.
	OSBackend = "os"

	// MemoryBackend is the factory name of the in-memory backend.
	MemoryBackend = "memory"

	lockFileName = ".eosemu.lock"
)

// BackendConfig is the mapstructure config of both backend factories, read
// from plugin.storage.<name>.
type BackendConfig struct {
	Tag string `mapstructure:"tag"`

	// Root is the directory the os backend is confined to. Empty means the
	// save directory of the settings.
	Root string `mapstructure:"root"`

	// ReadOnly rejects every write.
	ReadOnly bool `mapstructure:"readOnly"`

	// Exclusive takes an advisory lock on Root for the lifetime of the
	// backend, so two emulator processes never share a save directory.
	Exclusive bool `mapstructure:"exclusive"`
}

// Backend is a storage plugin instance: an afero filesystem every storage
// service carves its own subtree from.
type Backend struct {
	name string
	root string
	fs   afero.Fs
	lock *file.FileLock
}

var _ plugin.Plugin = (*Backend)(nil)

// NewBackend wraps fs. Used directly by tests and by the factories.
func NewBackend(name string, fs afero.Fs) *Backend {
	return &Backend{name: name, fs: fs}
}

// FactoryName returns the name of the factory that built b.
func (b *Backend) FactoryName() string { return b.name }

// Fs returns the whole backend filesystem.
func (b *Backend) Fs() afero.Fs { return b.fs }

// Root returns the host directory of an os backend, empty otherwise.
func (b *Backend) Root() string { return b.root }

// Sub returns a filesystem confined to dir inside the backend. dir is
// created if missing.
func (b *Backend) Sub(dir string) (afero.Fs, error) {
	clean, ok := CleanPath(dir)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, dir)
	}
	base := "/" + clean
	if err := b.fs.MkdirAll(base, 0o755); err != nil && !isReadOnly(b.fs) {
		return nil, err
	}
	return afero.NewBasePathFs(b.fs, base), nil
}

func (b *Backend) close() error {
	if b.lock == nil {
		return nil
	}
	err := b.lock.Unlock()
	b.lock = nil
	return err
}

func isReadOnly(fs afero.Fs) bool {
	_, ok := fs.(*afero.ReadOnlyFs)
	return ok
}

// OSFactory builds disk backends confined to a root directory.
type OSFactory struct {
	defaultRoot string
}

var _ plugin.Factory = (*OSFactory)(nil)

// NewOSFactory returns the os backend factory. defaultRoot is used when the
// config leaves root empty.
func NewOSFactory(defaultRoot string) *OSFactory {
	return &OSFactory{defaultRoot: defaultRoot}
}

func (f *OSFactory) Type() plugin.Type { return plugin.Storage }
func (f *OSFactory) Name() string      { return OSBackend }
func (f *OSFactory) ConfigType() any   { return &BackendConfig{} }

// Setup creates the root directory and confines a BasePathFs to it.
func (f *OSFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*BackendConfig)
	if !ok {
		return nil, fmt.Errorf("storage: unexpected config type %T", cfgAny)
	}
	root := cfg.Root
	if root == "" {
		root = f.defaultRoot
	}
	if root == "" {
		return nil, fmt.Errorf("%w: os backend without root", ErrInvalidPath)
	}
	root = filepath.Clean(root)

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", root, err)
	}

	b := &Backend{name: OSBackend, root: root}
	if cfg.Exclusive {
		b.lock = file.NewFileLock(filepath.Join(root, lockFileName))
		if err := b.lock.Lock(); err != nil {
			return nil, err
		}
	}

	var fs afero.Fs = afero.NewBasePathFs(osFs, root)
	if cfg.ReadOnly {
		fs = afero.NewReadOnlyFs(fs)
	}
	b.fs = fs
	log.Info().Str("root", root).Bool("readOnly", cfg.ReadOnly).Msg("os storage backend ready")
	return b, nil
}

// Destroy releases the directory lock, if any.
func (f *OSFactory) Destroy(p plugin.Plugin) {
	b, ok := p.(*Backend)
	if !ok {
		log.Error().Str("plugin", p.FactoryName()).Msg("os storage destroy: foreign plugin")
		return
	}
	if err := b.close(); err != nil {
		log.Error().Err(err).Str("root", b.root).Msg("unlock storage root")
	}
}

// MemoryFactory builds in-memory backends.
type MemoryFactory struct{}

var _ plugin.Factory = (*MemoryFactory)(nil)

// NewMemoryFactory returns the memory backend factory.
func NewMemoryFactory() *MemoryFactory { return &MemoryFactory{} }

func (f *MemoryFactory) Type() plugin.Type { return plugin.Storage }
func (f *MemoryFactory) Name() string      { return MemoryBackend }
func (f *MemoryFactory) ConfigType() any   { return &BackendConfig{} }

func (f *MemoryFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*BackendConfig)
	if !ok {
		return nil, fmt.Errorf("storage: unexpected config type %T", cfgAny)
	}
	var fs afero.Fs = afero.NewMemMapFs()
	if cfg.ReadOnly {
		fs = afero.NewReadOnlyFs(fs)
	}
	return NewBackend(MemoryBackend, fs), nil
}

func (f *MemoryFactory) Destroy(plugin.Plugin) {}
