package network

import (
	"fmt"
	"slices"
	"sync"

	"github.com/andres-erbsen/clock"

	"github.com/linchenxuan/eosemu/log"
)

// Hub connects the endpoints of one process.
type Hub struct {
	lock      sync.RWMutex
	clock     clock.Clock
	endpoints map[string]*Endpoint
}

// NewHub creates an empty hub. A nil clk uses the wall clock.
func NewHub(clk clock.Clock) *Hub {
	if clk == nil {
		clk = clock.New()
	}
	return &Hub{clock: clk, endpoints: make(map[string]*Endpoint)}
}

var (
	_defaultHubOnce sync.Once
	_defaultHub     *Hub
)

// DefaultHub is the process-wide hub used when none is configured.
func DefaultHub() *Hub {
	_defaultHubOnce.Do(func() { _defaultHub = NewHub(nil) })
	return _defaultHub
}

// Connect attaches a new endpoint named id.
func (h *Hub) Connect(id string, cfg *EndpointConfig) (*Endpoint, error) {
	if cfg == nil {
		cfg = DefaultEndpointConfig()
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.endpoints[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEndpoint, id)
	}
	ep := newEndpoint(h, id, cfg)
	h.endpoints[id] = ep
	log.Info().Str("endpoint", id).Int("peers", len(h.endpoints)-1).Msg("endpoint connected")
	return ep, nil
}

func (h *Hub) disconnect(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.endpoints, id)
}

// Peers returns the ids of every connected endpoint, sorted.
func (h *Hub) Peers() []string {
	h.lock.RLock()
	defer h.lock.RUnlock()

	ids := make([]string, 0, len(h.endpoints))
	for id := range h.endpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Send routes msg to its recipient, or to every endpoint but the sender when
// To is empty. Safe from any goroutine.
func (h *Hub) Send(msg *Message) error {
	if msg.Body == nil {
		return ErrEmptyBody
	}

	h.lock.RLock()
	defer h.lock.RUnlock()

	if msg.To != "" {
		ep, ok := h.endpoints[msg.To]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPeer, msg.To)
		}
		return ep.push(msg)
	}

	var firstErr error
	for id, ep := range h.endpoints {
		if id == msg.From {
			continue
		}
		if err := ep.push(msg.clone(id)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
