package callback

import (
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics"
)

// Tick is the frame pump. The host calls it once per update: every
// FrameRunner runs once in registration order, then pending results are
// polled in FIFO order and the ones that are done fire.
//
// Callbacks fire without the lock held so they may call back into services.
// Calling Tick, RunFrames or RunCallbacks from a callback, or while another
// goroutine is ticking, returns ErrReentrantTick.
func (r *Registry) Tick() error {
	if !r.ticking.CompareAndSwap(false, true) {
		return ErrReentrantTick
	}
	defer r.ticking.Store(false)

	start := r.clock.Now()
	r.mu.Lock()
	r.runFrames()
	r.mu.Unlock()

	r.runCallbacks()

	metrics.RecordDurationWithGroup(metrics.NameTickDurationMs, metrics.GroupEmu, r.clock.Now().Sub(start))
	return nil
}

// RunFrames runs only the per-frame hooks.
func (r *Registry) RunFrames() error {
	if !r.ticking.CompareAndSwap(false, true) {
		return ErrReentrantTick
	}
	defer r.ticking.Store(false)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runFrames()
	return nil
}

// RunCallbacks polls and fires pending results without running frame hooks.
func (r *Registry) RunCallbacks() error {
	if !r.ticking.CompareAndSwap(false, true) {
		return ErrReentrantTick
	}
	defer r.ticking.Store(false)

	r.runCallbacks()
	return nil
}

func (r *Registry) runFrames() {
	for _, iface := range append([]Interface(nil), r.ifaces...) {
		// a hook may unregister a later interface
		if _, ok := r.registered[iface]; !ok {
			continue
		}
		if fr, ok := iface.(FrameRunner); ok {
			fr.RunFrame()
		}
	}
}

func (r *Registry) runCallbacks() {
	r.mu.Lock()
	r.poll()
	ready := r.ready
	r.mu.Unlock()

	fired := 0
	for _, e := range ready {
		r.mu.Lock()
		if e.res.freed {
			r.mu.Unlock()
			continue
		}
		e.res.markFired()
		r.mu.Unlock()

		log.Debug().Str("iface", e.owner.Name()).Str("callback", e.res.id.String()).Msg("callback ready")
		if e.res.fn != nil {
			e.res.fn(e.res.payload)
		}
		fired++
		metrics.IncrCounterWithDimGroup(metrics.NameCallbacksFiredTotal, metrics.GroupEmu, 1,
			metrics.Dimension{metrics.DimIface: e.owner.Name()})

		r.mu.Lock()
		r.free(e)
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.ready = nil
	pending := len(r.pending)
	r.mu.Unlock()

	metrics.UpdateGaugeWithGroup(metrics.NamePendingResults, metrics.GroupEmu, metrics.Value(pending))
	if fired > 0 {
		log.Trace().Int("fired", fired).Int("pending", pending).Msg("callbacks run")
	}
}

// poll walks a snapshot of the pending queue. Results enqueued meanwhile,
// including by RunCallbacks hooks, land behind the ones still pending.
func (r *Registry) poll() {
	r.polling = r.pending
	r.pending = nil
	now := r.clock.Now()

	var keep []entry
	for _, e := range r.polling {
		if e.res.freed {
			continue
		}
		if !e.res.readyAt(now) {
			keep = append(keep, e)
			continue
		}
		if !e.res.done {
			if e.owner.RunCallbacks(e.res) && !e.res.done {
				log.Warn().Str("iface", e.owner.Name()).Str("callback", e.res.id.String()).
					Msg("RunCallbacks reported ready on a result that is not done")
			}
		}
		// the hook may have unregistered its own interface
		if e.res.freed {
			continue
		}
		if e.res.done {
			r.ready = append(r.ready, e)
		} else {
			keep = append(keep, e)
		}
	}

	r.pending = append(keep, r.pending...)
	r.polling = nil
}
