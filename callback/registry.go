package callback

import (
	"errors"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/andres-erbsen/clock"

	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics"
)

// ErrReentrantTick is returned by Tick when a pump cycle is already running.
var ErrReentrantTick = errors.New("callback: tick called while a tick is running")

// Interface is a service registered with the Registry.
type Interface interface {
	Name() string
}

// FrameRunner is implemented by interfaces with per-frame work that is not
// tied to a pending result.
type FrameRunner interface {
	Interface
	RunFrame() bool
}

// CallbackRunner is implemented by interfaces that own results.
type CallbackRunner interface {
	Interface
	// RunCallbacks advances a pending result and reports whether it is done.
	// Result.Done is authoritative; the return value is informational.
	RunCallbacks(res *Result) bool
	// FreeCallback releases what the payload owns. It runs exactly once per
	// result.
	FreeCallback(res *Result)
}

type entry struct {
	owner CallbackRunner
	res   *Result
}

// Registry maps registered interfaces to their pending results and
// notification subscriptions. One mutex guards all of it and the services
// share it as their global lock.
type Registry struct {
	mu      sync.Mutex
	clock   clock.Clock
	ticking atomic.Bool

	ifaces     []Interface
	registered map[Interface]struct{}

	pending []entry
	polling []entry
	ready   []entry

	notifs    map[Interface]map[eos.NotificationID]*Result
	nextNotif eos.NotificationID
}

// NewRegistry creates an empty registry. A nil clk uses the wall clock.
func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		clock:      clk,
		registered: make(map[Interface]struct{}),
		notifs:     make(map[Interface]map[eos.NotificationID]*Result),
		nextNotif:  1,
	}
}

// Lock acquires the global lock.
func (r *Registry) Lock() { r.mu.Lock() }

// Unlock releases the global lock.
func (r *Registry) Unlock() { r.mu.Unlock() }

// Clock returns the time source results are stamped with.
func (r *Registry) Clock() clock.Clock { return r.clock }

func (r *Registry) mustHold() {
	if r.mu.TryLock() {
		r.mu.Unlock()
		panic("callback: registry used without holding the lock")
	}
}

// isNil also catches typed nil pointers handed over by teardown paths.
func isNil(iface Interface) bool {
	if iface == nil {
		return true
	}
	v := reflect.ValueOf(iface)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Register adds iface to the pump. Registering twice is a no-op.
func (r *Registry) Register(iface Interface) {
	r.mustHold()
	if isNil(iface) {
		return
	}
	if _, ok := r.registered[iface]; ok {
		return
	}
	r.registered[iface] = struct{}{}
	r.ifaces = append(r.ifaces, iface)
	log.Debug().Str("iface", iface.Name()).Msg("register interface")
}

// Registered reports whether iface is registered.
func (r *Registry) Registered(iface Interface) bool {
	r.mustHold()
	if isNil(iface) {
		return false
	}
	_, ok := r.registered[iface]
	return ok
}

// Unregister removes iface from the pump. Every result it still owns that
// has not fired is freed through its FreeCallback, and its notifications
// are removed.
func (r *Registry) Unregister(iface Interface) {
	r.mustHold()
	if isNil(iface) {
		return
	}
	if _, ok := r.registered[iface]; !ok {
		return
	}

	r.purge(func(e entry) bool { return Interface(e.owner) == iface })
	r.removeAllNotifications(iface)

	delete(r.registered, iface)
	r.ifaces = slices.DeleteFunc(r.ifaces, func(x Interface) bool { return x == iface })
	log.Debug().Str("iface", iface.Name()).Msg("unregister interface")
}

// purge frees every queued, polling or ready entry matching drop that has not
// fired yet. The result currently firing is freed by Tick once its callback
// returns.
func (r *Registry) purge(drop func(entry) bool) int {
	n := 0
	free := func(list []entry) []entry {
		return slices.DeleteFunc(list, func(e entry) bool {
			if e.res.freed || e.res.fired || !drop(e) {
				return false
			}
			r.free(e)
			n++
			return true
		})
	}
	r.pending = free(r.pending)
	// polling and ready are walked by index in Tick; freed entries are
	// skipped there instead of being removed here.
	for _, list := range [][]entry{r.polling, r.ready} {
		for _, e := range list {
			if e.res.freed || e.res.fired || !drop(e) {
				continue
			}
			r.free(e)
			n++
		}
	}
	return n
}

func (r *Registry) free(e entry) {
	e.res.markFreed()
	e.owner.FreeCallback(e.res)
	metrics.IncrCounterWithDimGroup(metrics.NameCallbacksFreedTotal, metrics.GroupEmu, 1,
		metrics.Dimension{metrics.DimIface: e.owner.Name()})
}

// Enqueue appends res to the pending queue of owner. If owner is not
// registered the result is freed at once and Enqueue returns false.
func (r *Registry) Enqueue(owner CallbackRunner, res *Result) bool {
	r.mustHold()
	if res == nil || isNil(owner) {
		return false
	}
	if res.queued {
		panic("callback: result " + res.id.String() + " enqueued twice")
	}
	res.queued = true
	res.created = r.clock.Now()

	if _, ok := r.registered[owner]; !ok {
		log.Warn().Str("iface", owner.Name()).Str("callback", res.id.String()).Msg("enqueue on unregistered interface")
		r.free(entry{owner: owner, res: res})
		return false
	}
	r.pending = append(r.pending, entry{owner: owner, res: res})
	return true
}

// Pending returns the number of queued results.
func (r *Registry) Pending() int {
	r.mustHold()
	return len(r.pending)
}

// AddNotification stores template as a standing subscription of owner and
// returns its id, InvalidNotificationID if owner is not registered.
func (r *Registry) AddNotification(owner CallbackRunner, template *Result) eos.NotificationID {
	r.mustHold()
	if template == nil || isNil(owner) {
		return eos.InvalidNotificationID
	}
	if _, ok := r.registered[owner]; !ok {
		return eos.InvalidNotificationID
	}

	id := r.nextNotif
	r.nextNotif++
	template.notifID = id
	template.created = r.clock.Now()

	subs, ok := r.notifs[owner]
	if !ok {
		subs = make(map[eos.NotificationID]*Result)
		r.notifs[owner] = subs
	}
	subs[id] = template
	r.reportNotifications()
	return id
}

// RemoveNotification drops subscription id if owner holds it. Copies of it
// that are queued and have not fired are dropped too.
func (r *Registry) RemoveNotification(owner CallbackRunner, id eos.NotificationID) bool {
	r.mustHold()
	if isNil(owner) || id == eos.InvalidNotificationID {
		return false
	}
	subs := r.notifs[owner]
	template, ok := subs[id]
	if !ok {
		return false
	}

	delete(subs, id)
	if len(subs) == 0 {
		delete(r.notifs, owner)
	}
	template.markFreed()
	owner.FreeCallback(template)
	r.purge(func(e entry) bool { return Interface(e.owner) == Interface(owner) && e.res.notifID == id })
	r.reportNotifications()
	return true
}

// RemoveAllNotifications drops every subscription of iface.
func (r *Registry) RemoveAllNotifications(iface Interface) {
	r.mustHold()
	if isNil(iface) {
		return
	}
	r.removeAllNotifications(iface)
}

func (r *Registry) removeAllNotifications(iface Interface) {
	subs, ok := r.notifs[iface]
	if !ok {
		return
	}
	owner, _ := iface.(CallbackRunner)
	ids := sortedIDs(subs)
	delete(r.notifs, iface)
	for _, id := range ids {
		template := subs[id]
		template.markFreed()
		if owner != nil {
			owner.FreeCallback(template)
			r.purge(func(e entry) bool { return Interface(e.owner) == iface && e.res.notifID == id })
		}
	}
	r.reportNotifications()
}

// Subscriptions returns the templates of owner carrying payload shape id, in
// subscription order.
func (r *Registry) Subscriptions(owner Interface, id ID) []*Result {
	r.mustHold()
	if isNil(owner) {
		return nil
	}
	subs := r.notifs[owner]
	var out []*Result
	for _, nid := range sortedIDs(subs) {
		if subs[nid].id == id {
			out = append(out, subs[nid])
		}
	}
	return out
}

// Notify queues one firing of subscription id carrying payload. The copy is
// done immediately and goes through the same FIFO queue as one-shot results.
func (r *Registry) Notify(owner CallbackRunner, id eos.NotificationID, payload Payload) bool {
	r.mustHold()
	if isNil(owner) || payload == nil {
		return false
	}
	template, ok := r.notifs[owner][id]
	if !ok {
		return false
	}
	if payload.CallbackID() != template.id {
		panic("callback: notification " + template.id.String() + " fired with " + payload.CallbackID().String())
	}
	res := NewDoneResult(payload, template.fn)
	res.notifID = id
	return r.Enqueue(owner, res)
}

// Broadcast notifies every subscription of owner with shape id. mk builds a
// fresh payload per subscription from its template, since each copy is freed
// on its own.
func (r *Registry) Broadcast(owner CallbackRunner, id ID, mk func(template *Result) Payload) int {
	n := 0
	for _, template := range r.Subscriptions(owner, id) {
		if r.Notify(owner, template.notifID, mk(template)) {
			n++
		}
	}
	return n
}

func (r *Registry) reportNotifications() {
	n := 0
	for _, subs := range r.notifs {
		n += len(subs)
	}
	metrics.UpdateGaugeWithGroup(metrics.NameNotificationsActive, metrics.GroupEmu, metrics.Value(n))
}

func sortedIDs(subs map[eos.NotificationID]*Result) []eos.NotificationID {
	ids := make([]eos.NotificationID, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
