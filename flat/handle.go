// Package flat is the C-style surface of the emulator: opaque handles in
// place of object pointers and one function per SDK entry point. A handle
// that is zero, released or of the wrong kind never reaches a service.
package flat

import (
	"sync"

	"github.com/linchenxuan/eosemu/log"
)

// Handle is an opaque object reference. The zero Handle is never valid.
type Handle uintptr

// InvalidHandle is what constructors return on failure.
const InvalidHandle Handle = 0

type kind uint8

const (
	kindPlatform kind = iota + 1
	kindAuth
	kindConnect
	kindEcom
	kindTitleStorage
	kindPlayerDataStorage
	kindP2P
	kindUserInfo
	kindFriends
	kindPresence
	kindTransfer
)

var kindNames = map[kind]string{
	kindPlatform:          "platform",
	kindAuth:              "auth",
	kindConnect:           "connect",
	kindEcom:              "ecom",
	kindTitleStorage:      "titlestorage",
	kindPlayerDataStorage: "playerdatastorage",
	kindP2P:               "p2p",
	kindUserInfo:          "userinfo",
	kindFriends:           "friends",
	kindPresence:          "presence",
	kindTransfer:          "transfer",
}

func (k kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

type entry struct {
	kind  kind
	obj   any
	owner Handle
}

// table maps handles to objects. Handles are never reused, so a stale handle
// cannot alias a newer object.
type table struct {
	lock    sync.RWMutex
	last    Handle
	entries map[Handle]entry
}

func newTable() *table {
	return &table{entries: make(map[Handle]entry)}
}

var _handles = newTable()

func (t *table) add(k kind, obj any, owner Handle) Handle {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.last++
	h := t.last
	t.entries[h] = entry{kind: k, obj: obj, owner: owner}
	return h
}

func (t *table) get(h Handle, k kind) (any, bool) {
	if h == InvalidHandle {
		return nil, false
	}
	t.lock.RLock()
	defer t.lock.RUnlock()

	e, ok := t.entries[h]
	if !ok || e.kind != k {
		log.Debug().Uint64("handle", uint64(h)).Str("want", k.String()).Msg("bad handle")
		return nil, false
	}
	return e.obj, true
}

func (t *table) owner(h Handle) Handle {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.entries[h].owner
}

// remove drops h and every handle it owns.
func (t *table) remove(h Handle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.entries, h)
	for id, e := range t.entries {
		if e.owner == h {
			delete(t.entries, id)
		}
	}
}

func (t *table) count() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.entries)
}

// lookup returns the object behind h as T.
func lookup[T any](h Handle, k kind) (T, bool) {
	var zero T
	obj, ok := _handles.get(h, k)
	if !ok {
		return zero, false
	}
	v, ok := obj.(T)
	return v, ok
}
