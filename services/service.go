// Package services holds what the emulated SDK interfaces share: the
// environment they are built from and the registry plumbing every one of
// them repeats.
package services

import (
	"errors"
	"time"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/event"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/settings"
	"github.com/linchenxuan/eosemu/storage"
)

// ErrNoRegistry is returned when a service is built without a registry.
var ErrNoRegistry = errors.New("services: environment has no registry")

// Source returns the current settings snapshot.
type Source interface {
	Current() *settings.Settings
}

type staticSource struct{ s *settings.Settings }

func (s staticSource) Current() *settings.Settings { return s.s }

// Static wraps a fixed Settings value, for tests and tools.
func Static(s *settings.Settings) Source {
	return staticSource{s: s}
}

// Env is what a service is built from. Storage and Endpoint are only needed
// by the services that use them.
type Env struct {
	Registry  *callback.Registry
	Settings  Source
	Events    *event.Publisher
	ProductID string
	ClientID  string
	Storage   *storage.Backend
	Endpoint  *network.Endpoint
}

// Validate checks the fields every service needs.
func (e Env) Validate() error {
	if e.Registry == nil {
		return ErrNoRegistry
	}
	if e.Settings == nil || e.Settings.Current() == nil {
		return errors.New("services: environment has no settings")
	}
	return nil
}

// EpicID is the configured local account.
func (e Env) EpicID() eos.EpicAccountID {
	return e.Settings.Current().EpicID
}

// ProductUserID is the local user inside the product.
func (e Env) ProductUserID() eos.ProductUserID {
	return eos.ProductUserIDFor(e.ProductID, e.EpicID())
}

// Base implements callback.Interface and the register/release dance. A
// service embeds it and passes itself to Attach and Detach.
type Base struct {
	Env
	name string
}

// NewBase returns a Base for service name.
func NewBase(name string, env Env) Base {
	return Base{Env: env, name: name}
}

// Name implements callback.Interface.
func (b *Base) Name() string { return b.name }

// Reg returns the registry. Its lock is the global lock.
func (b *Base) Reg() *callback.Registry { return b.Registry }

// Now reads the registry clock.
func (b *Base) Now() time.Time { return b.Registry.Clock().Now() }

// Trace logs an entry point at debug level.
func (b *Base) Trace(fn string) {
	log.Debug().Str("iface", b.name).Msg(fn)
}

// Attach registers self on the registry.
func (b *Base) Attach(self callback.Interface) {
	b.Registry.Lock()
	defer b.Registry.Unlock()
	b.Registry.Register(self)
}

// Detach drops the notifications and pending results of self and
// unregisters it. It is safe to call more than once.
func (b *Base) Detach(self callback.Interface) {
	b.Registry.Lock()
	defer b.Registry.Unlock()
	b.Registry.RemoveAllNotifications(self)
	b.Registry.Unregister(self)
}

// Attached reports whether self is still registered. The caller holds the
// global lock.
func (b *Base) Attached(self callback.Interface) bool {
	return b.Registry.Registered(self)
}

// Complete enqueues a result that fires on the next tick. The caller holds
// the global lock.
func Complete[T callback.Payload](owner callback.CallbackRunner, reg *callback.Registry, payload T, fn func(T)) {
	reg.Enqueue(owner, callback.NewDoneResult(payload, callback.Typed(fn)))
}
