// Package callback is the asynchronous result queue every emulated service
// plugs into. Services create Results, enqueue them on the Registry and are
// polled from Registry.Tick until each Result is done; the stored callback
// then fires once and the owning service frees the payload once.
package callback

import (
	"fmt"
	"time"

	"github.com/linchenxuan/eosemu/eos"
)

// ID is the payload discriminant.
type ID = eos.CallbackID

// Payload is an operation-result shape. Concrete payloads are pointers to
// the per-service callback info structs.
type Payload interface {
	CallbackID() ID
}

// Func is a stored completion or notification callback.
type Func func(Payload)

// Result is one pending or completed asynchronous operation. All methods
// other than the constructors require the registry lock.
type Result struct {
	id      ID
	payload Payload
	fn      Func

	readyAfter time.Duration
	deadline   time.Duration
	created    time.Time

	done    bool
	queued  bool
	fired   bool
	freed   bool
	notifID eos.NotificationID
}

// Option configures a Result at creation.
type Option func(*Result)

// WithReadyAfter keeps the result from being polled or fired until it is at
// least d old.
func WithReadyAfter(d time.Duration) Option {
	return func(r *Result) { r.readyAfter = d }
}

// WithDeadline records a timeout for the owning service to enforce.
func WithDeadline(d time.Duration) Option {
	return func(r *Result) { r.deadline = d }
}

// NewResult creates a pending result carrying payload. fn may be nil, in
// which case the result still goes through its full lifecycle.
func NewResult(payload Payload, fn Func, opts ...Option) *Result {
	if payload == nil {
		panic("callback: NewResult with nil payload")
	}
	r := &Result{id: payload.CallbackID(), payload: payload, fn: fn}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDoneResult creates a result that completes on the next poll, the common
// shape for pseudo-async calls.
func NewDoneResult(payload Payload, fn Func, opts ...Option) *Result {
	r := NewResult(payload, fn, opts...)
	r.done = true
	return r
}

// ID returns the payload discriminant.
func (r *Result) ID() ID { return r.id }

// Payload returns the type-erased payload.
func (r *Result) Payload() Payload { return r.payload }

// Done reports whether the payload is final.
func (r *Result) Done() bool { return r.done }

// MarkDone freezes the payload. The callback fires on the current or next
// poll.
func (r *Result) MarkDone() { r.done = true }

// Replace swaps the payload for another of the same shape.
func (r *Result) Replace(p Payload) {
	if r.done {
		panic(fmt.Sprintf("callback: replacing payload of completed %s", r.id))
	}
	if p == nil || p.CallbackID() != r.id {
		panic(fmt.Sprintf("callback: replacing %s payload with a different shape", r.id))
	}
	r.payload = p
}

// Created returns the time the result was enqueued.
func (r *Result) Created() time.Time { return r.created }

// Deadline returns the timeout set by WithDeadline, zero if none.
func (r *Result) Deadline() time.Duration { return r.deadline }

// DeadlineExceeded reports whether the deadline has passed at now.
func (r *Result) DeadlineExceeded(now time.Time) bool {
	return r.deadline > 0 && now.Sub(r.created) >= r.deadline
}

// Fired reports whether the callback has been invoked.
func (r *Result) Fired() bool { return r.fired }

// Freed reports whether FreeCallback ran.
func (r *Result) Freed() bool { return r.freed }

// NotificationID returns the subscription id of a notification template or
// of a fired copy, InvalidNotificationID for one-shot results.
func (r *Result) NotificationID() eos.NotificationID { return r.notifID }

func (r *Result) readyAt(now time.Time) bool {
	return now.Sub(r.created) >= r.readyAfter
}

func (r *Result) markFired() {
	if r.fired {
		panic(fmt.Sprintf("callback: %s fired twice", r.id))
	}
	r.fired = true
}

func (r *Result) markFreed() {
	if r.freed {
		panic(fmt.Sprintf("callback: %s freed twice", r.id))
	}
	r.freed = true
}

// PayloadAs returns the payload of r as T. It panics when the payload is not
// a T, which is always a programming error.
func PayloadAs[T Payload](r *Result) T {
	p, ok := r.payload.(T)
	if !ok {
		var want T
		panic(fmt.Sprintf("callback: %s payload is %T, not %T", r.id, r.payload, want))
	}
	return p
}

// Typed adapts a callback taking a concrete payload to a Func. A nil fn gives
// a nil Func.
func Typed[T Payload](fn func(T)) Func {
	if fn == nil {
		return nil
	}
	return func(p Payload) {
		v, ok := p.(T)
		if !ok {
			var want T
			panic(fmt.Sprintf("callback: %s payload is %T, not %T", p.CallbackID(), p, want))
		}
		fn(v)
	}
}
