package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/linchenxuan/eosemu/event"
	"github.com/linchenxuan/eosemu/log"
)

var ErrLoad = errors.New("settings: load failed")

// Options locates the configuration sources.
type Options struct {
	// Path is the settings file. Empty looks for FileName in the working
	// directory.
	Path string

	// EnvFile is an optional dotenv file. Missing files are ignored.
	EnvFile string

	// Fs is the filesystem the settings file is read from. Nil uses the OS.
	Fs afero.Fs

	// CreateIfMissing writes the defaults to Path when no file exists.
	CreateIfMissing bool
}

// Loader owns the viper instance and the current settings.
type Loader struct {
	opts    Options
	v       *viper.Viper
	current atomic.Pointer[Settings]

	watchOnce sync.Once
}

// NewLoader prepares a loader. Nothing is read until Load.
func NewLoader(opts Options) *Loader {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Path == "" {
		opts.Path = FileName
	}

	v := viper.New()
	v.SetFs(opts.Fs)
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(opts.Path)
	if filepath.Ext(opts.Path) == "" {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{opts: opts, v: v}
}

// Load reads every source and returns the decoded settings.
func (l *Loader) Load() (*Settings, error) {
	if l.opts.EnvFile != "" {
		if err := godotenv.Load(l.opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: env file %s: %v", ErrLoad, l.opts.EnvFile, err)
		}
	}

	exists, err := afero.Exists(l.opts.Fs, l.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrLoad, l.opts.Path, err)
	}
	if exists {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoad, l.opts.Path, err)
		}
		log.Info().Str("file", l.v.ConfigFileUsed()).Msg("settings loaded")
	} else {
		log.Info().Str("file", l.opts.Path).Msg("no settings file, using defaults")
		if l.opts.CreateIfMissing {
			if err := l.save(); err != nil {
				return nil, err
			}
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Settings, error) {
	s := &Settings{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		logLevelHook,
	))
	if err := l.v.Unmarshal(s, hook); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLoad, err)
	}
	s.normalize()
	l.current.Store(s)
	return s.Clone(), nil
}

// Current returns the last successfully loaded settings, nil before Load.
func (l *Loader) Current() *Settings {
	s := l.current.Load()
	if s == nil {
		return nil
	}
	return s.Clone()
}

// Set overrides one key for this process, as the emulator does when a game
// renames the local user.
func (l *Loader) Set(key string, value any) (*Settings, error) {
	l.v.Set(key, value)
	return l.decode()
}

// Save writes the effective settings back to Path.
func (l *Loader) Save() error {
	return l.save()
}

func (l *Loader) save() error {
	if dir := filepath.Dir(l.opts.Path); dir != "." {
		if err := l.opts.Fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrLoad, dir, err)
		}
	}
	if err := l.v.WriteConfigAs(l.opts.Path); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrLoad, l.opts.Path, err)
	}
	return nil
}

// Watch reloads the settings when the file changes and publishes the new
// value on the event.ReloadConfig topic. Only the first call has an effect.
func (l *Loader) Watch(pub *event.Publisher) {
	l.watchOnce.Do(func() {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			l.reload(pub, e.Name)
		})
		l.v.WatchConfig()
	})
}

func (l *Loader) reload(pub *event.Publisher, name string) {
	s, err := l.decode()
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("settings reload failed")
		return
	}
	log.Info().Str("file", name).Msg("settings reloaded")
	if pub == nil {
		return
	}
	if err := pub.Publish(event.ReloadConfig, s); err != nil {
		log.Warn().Err(err).Msg("publish settings reload")
	}
}

// logLevelHook decodes level names such as "info" into log.Level.
func logLevelHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(log.Level(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	return log.ParseLevel(data.(string)), nil
}
