// Package platform assembles one emulated EOS platform: settings, logger,
// callback registry, plugins, network endpoint and the service interfaces,
// and tears them down again in reverse order.
package platform

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/event"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics/prometheus"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/plugin"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/services/auth"
	"github.com/linchenxuan/eosemu/services/connect"
	"github.com/linchenxuan/eosemu/services/ecom"
	"github.com/linchenxuan/eosemu/services/friends"
	"github.com/linchenxuan/eosemu/services/p2p"
	"github.com/linchenxuan/eosemu/services/playerdatastorage"
	"github.com/linchenxuan/eosemu/services/presence"
	"github.com/linchenxuan/eosemu/services/titlestorage"
	"github.com/linchenxuan/eosemu/services/userinfo"
	"github.com/linchenxuan/eosemu/settings"
	"github.com/linchenxuan/eosemu/storage"
)

var (
	ErrInvalidOptions = errors.New("platform: invalid options")
	ErrNoStorage      = errors.New("platform: no storage backend configured")
	ErrReleased       = errors.New("platform: released")
)

// eventTimeout bounds how long a publisher waits for slow subscribers.
const eventTimeout = time.Second

// Options are the EOS_Platform_Options the emulator cares about plus the
// knobs an embedding host or test needs.
type Options struct {
	ProductID    string
	SandboxID    string
	DeploymentID string
	ClientID     string
	ClientSecret string

	// SettingsPath is the settings file. Empty uses settings.FileName.
	SettingsPath string

	// EnvFile is an optional dotenv overlay.
	EnvFile string

	// SettingsFs reads the settings file. Nil uses the OS.
	SettingsFs afero.Fs

	// Overrides are applied on top of every other settings source.
	Overrides map[string]any

	// WatchSettings reloads the settings when the file changes.
	WatchSettings bool

	// Clock drives the registry. Nil uses the wall clock.
	Clock clock.Clock

	// Hub connects platforms living in one process. Nil uses the process
	// wide hub.
	Hub *network.Hub

	// Storage replaces the storage plugin.
	Storage *storage.Backend
}

func (o *Options) validate() error {
	if o.ProductID == "" {
		return fmt.Errorf("%w: empty product id", ErrInvalidOptions)
	}
	return nil
}

// releaser is one teardown step.
type releaser struct {
	name string
	fn   func() error
}

// Platform is the EOS_HPlatform object.
type Platform struct {
	opts     Options
	loader   *settings.Loader
	events   *event.Publisher
	reg      *callback.Registry
	plugins  *plugin.Manager
	backend  *storage.Backend
	endpoint *network.Endpoint

	auth              *auth.Auth
	connect           *connect.Connect
	ecom              *ecom.Ecom
	titleStorage      *titlestorage.TitleStorage
	playerDataStorage *playerdatastorage.PlayerDataStorage
	p2p               *p2p.P2P
	userInfo          *userinfo.UserInfo
	friends           *friends.Friends
	presence          *presence.Presence

	releasers   []releaser
	releaseOnce sync.Once
	releaseErr  error
	released    bool
	lock        sync.Mutex
}

// Create builds a platform. On failure everything built so far is released.
func Create(opts Options) (*Platform, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p := &Platform{opts: opts}
	if err := p.build(); err != nil {
		if rerr := p.Release(); rerr != nil {
			err = multierr.Append(err, rerr)
		}
		return nil, err
	}
	log.Info().Str("product", opts.ProductID).Str("sandbox", opts.SandboxID).Str("deployment", opts.DeploymentID).
		Str("puid", string(p.env().ProductUserID())).Msg("platform created")
	return p, nil
}

func (p *Platform) onRelease(name string, fn func() error) {
	p.releasers = append(p.releasers, releaser{name: name, fn: fn})
}

func (p *Platform) build() error {
	s, err := p.loadSettings()
	if err != nil {
		return err
	}

	if err := log.Initialize(&s.Log); err != nil {
		return fmt.Errorf("platform: logger: %w", err)
	}
	p.onRelease("logger", refreshLogger)

	p.events = event.NewPublisher()
	for _, topic := range []string{event.ReloadConfig, event.LoginStatusChanged} {
		if err := p.events.NewTopic(topic, eventTimeout); err != nil {
			return err
		}
	}
	if p.opts.WatchSettings {
		p.loader.Watch(p.events)
	}

	p.reg = callback.NewRegistry(p.opts.Clock)

	if err := p.setupPlugins(s); err != nil {
		return err
	}

	if err := p.connectNetwork(s); err != nil {
		return err
	}

	return p.createServices()
}

func (p *Platform) loadSettings() (*settings.Settings, error) {
	p.loader = settings.NewLoader(settings.Options{
		Path:    p.opts.SettingsPath,
		EnvFile: p.opts.EnvFile,
		Fs:      p.opts.SettingsFs,
	})
	s, err := p.loader.Load()
	if err != nil {
		return nil, err
	}
	for k, v := range p.opts.Overrides {
		if s, err = p.loader.Set(k, v); err != nil {
			return nil, fmt.Errorf("platform: override %s: %w", k, err)
		}
	}
	return s, nil
}

func (p *Platform) setupPlugins(s *settings.Settings) error {
	p.plugins = plugin.NewManager()
	p.plugins.RegisterFactory(storage.NewOSFactory(s.SaveDir()))
	p.plugins.RegisterFactory(storage.NewMemoryFactory())
	p.plugins.RegisterFactory(prometheus.NewFactory())

	conf := s.Plugin
	if p.opts.Storage != nil {
		conf = make(map[string]any, len(s.Plugin))
		for k, v := range s.Plugin {
			if plugin.Type(k) != plugin.Storage {
				conf[k] = v
			}
		}
	}
	p.onRelease("plugins", func() error {
		p.plugins.DestroyPlugins()
		return nil
	})
	if err := p.plugins.SetupPlugins(conf); err != nil {
		return err
	}

	if p.opts.Storage != nil {
		p.backend = p.opts.Storage
		return nil
	}
	if def, err := p.plugins.GetDefaultPlugin(plugin.Storage); err == nil {
		p.backend = def.(*storage.Backend)
		return nil
	}
	all := p.plugins.Plugins(plugin.Storage)
	if len(all) == 0 {
		return ErrNoStorage
	}
	p.backend = all[0].(*storage.Backend)
	return nil
}

func (p *Platform) connectNetwork(s *settings.Settings) error {
	hub := p.opts.Hub
	if hub == nil {
		hub = network.DefaultHub()
	}
	cfg := s.Network
	ep, err := hub.Connect(string(p.env().ProductUserID()), &cfg)
	if err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	p.endpoint = ep

	p.reg.Lock()
	p.reg.Register(ep)
	p.reg.Unlock()

	p.onRelease("network", func() error {
		p.reg.Lock()
		registered := p.reg.Registered(ep)
		p.reg.Unregister(ep)
		p.reg.Unlock()
		ep.Close()
		if !registered {
			return fmt.Errorf("platform: endpoint %s was not registered", ep.ID())
		}
		return nil
	})
	return nil
}

func (p *Platform) env() services.Env {
	return services.Env{
		Registry:  p.reg,
		Settings:  p.loader,
		Events:    p.events,
		ProductID: p.opts.ProductID,
		ClientID:  p.opts.ClientID,
		Storage:   p.backend,
		Endpoint:  p.endpoint,
	}
}

func (p *Platform) createServices() error {
	env := p.env()
	var err error

	if p.auth, err = auth.New(env); err != nil {
		return err
	}
	p.onRelease(auth.Name, released(p.auth.Release))

	if p.connect, err = connect.New(env); err != nil {
		return err
	}
	p.onRelease(connect.Name, released(p.connect.Release))

	if p.ecom, err = ecom.New(env); err != nil {
		return err
	}
	p.onRelease(ecom.Name, released(p.ecom.Release))

	if p.titleStorage, err = titlestorage.New(env); err != nil {
		return err
	}
	p.onRelease(titlestorage.Name, released(p.titleStorage.Release))

	if p.playerDataStorage, err = playerdatastorage.New(env); err != nil {
		return err
	}
	p.onRelease(playerdatastorage.Name, released(p.playerDataStorage.Release))

	if p.p2p, err = p2p.New(env); err != nil {
		return err
	}
	p.onRelease(p2p.Name, released(p.p2p.Release))

	if p.userInfo, err = userinfo.New(env); err != nil {
		return err
	}
	p.onRelease(userinfo.Name, released(p.userInfo.Release))

	if p.friends, err = friends.New(env); err != nil {
		return err
	}
	p.onRelease(friends.Name, released(p.friends.Release))

	if p.presence, err = presence.New(env); err != nil {
		return err
	}
	p.onRelease(presence.Name, released(p.presence.Release))
	return nil
}

func released(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}

func refreshLogger() error {
	var errs error
	for _, a := range log.DefaultLogger().GetAppender() {
		errs = multierr.Append(errs, a.Refresh())
	}
	return errs
}

// Tick runs one frame pump cycle.
func (p *Platform) Tick() error {
	p.lock.Lock()
	released := p.released
	p.lock.Unlock()
	if released {
		return ErrReleased
	}
	return p.reg.Tick()
}

// Release tears the platform down in reverse creation order and reports
// every step that failed. Later calls do nothing.
func (p *Platform) Release() error {
	p.releaseOnce.Do(func() {
		p.lock.Lock()
		p.released = true
		p.lock.Unlock()

		for i := len(p.releasers) - 1; i >= 0; i-- {
			r := p.releasers[i]
			if err := r.fn(); err != nil {
				p.releaseErr = multierr.Append(p.releaseErr, fmt.Errorf("release %s: %w", r.name, err))
			}
		}
		p.releasers = nil
		log.Info().Str("product", p.opts.ProductID).Msg("platform released")
	})
	return p.releaseErr
}

// Auth returns EOS_HAuth.
func (p *Platform) Auth() *auth.Auth {
	return p.auth
}

// Connect returns EOS_HConnect.
func (p *Platform) Connect() *connect.Connect {
	return p.connect
}

// Ecom returns EOS_HEcom.
func (p *Platform) Ecom() *ecom.Ecom {
	return p.ecom
}

// TitleStorage returns EOS_HTitleStorage.
func (p *Platform) TitleStorage() *titlestorage.TitleStorage {
	return p.titleStorage
}

// PlayerDataStorage returns EOS_HPlayerDataStorage.
func (p *Platform) PlayerDataStorage() *playerdatastorage.PlayerDataStorage {
	return p.playerDataStorage
}

// P2P returns EOS_HP2P.
func (p *Platform) P2P() *p2p.P2P {
	return p.p2p
}

// UserInfo returns EOS_HUserInfo.
func (p *Platform) UserInfo() *userinfo.UserInfo {
	return p.userInfo
}

// Friends returns EOS_HFriends.
func (p *Platform) Friends() *friends.Friends {
	return p.friends
}

// Presence returns EOS_HPresence.
func (p *Platform) Presence() *presence.Presence {
	return p.presence
}

// Registry returns the callback registry the services share.
func (p *Platform) Registry() *callback.Registry {
	return p.reg
}

// Settings returns the current settings snapshot.
func (p *Platform) Settings() *settings.Settings {
	return p.loader.Current()
}

// Events returns the publisher of ReloadConfig and LoginStatusChanged.
func (p *Platform) Events() *event.Publisher {
	return p.events
}

func (p *Platform) Plugins() *plugin.Manager {
	return p.plugins
}

// Storage returns the storage backend the storage services share.
func (p *Platform) Storage() *storage.Backend {
	return p.backend
}

func (p *Platform) Endpoint() *network.Endpoint {
	return p.endpoint
}

// Options returns the options the platform was created with.
func (p *Platform) Options() Options {
	return p.opts
}
