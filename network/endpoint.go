package network

import (
	"slices"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics"
)

// EndpointConfig is the `network` settings section.
type EndpointConfig struct {
	// RecvRate is the number of messages delivered per second, 0 for no limit.
	RecvRate float64 `mapstructure:"recvRate"`

	// RecvBurst is the token bucket size.
	RecvBurst int `mapstructure:"recvBurst"`

	// MaxInbox bounds the queued messages.
	MaxInbox int `mapstructure:"maxInbox"`
}

// DefaultEndpointConfig returns an unlimited endpoint with a 4096 message inbox.
func DefaultEndpointConfig() *EndpointConfig {
	return &EndpointConfig{MaxInbox: 4096}
}

// Endpoint is one emulator instance's attachment to the hub. It is a
// callback.FrameRunner: RunFrame delivers queued messages.
type Endpoint struct {
	hub     *Hub
	id      string
	limiter *RecvLimiter

	lock      sync.Mutex
	inbox     []*Message
	maxInbox  int
	closed    bool
	listeners map[string][]Listener
}

func newEndpoint(h *Hub, id string, cfg *EndpointConfig) *Endpoint {
	maxInbox := cfg.MaxInbox
	if maxInbox <= 0 {
		maxInbox = DefaultEndpointConfig().MaxInbox
	}
	return &Endpoint{
		hub:       h,
		id:        id,
		limiter:   NewRecvLimiter(cfg.RecvRate, cfg.RecvBurst),
		maxInbox:  maxInbox,
		listeners: make(map[string][]Listener),
	}
}

// Name implements callback.Interface.
func (e *Endpoint) Name() string { return "network" }

// ID returns the endpoint id other peers address it by.
func (e *Endpoint) ID() string { return e.id }

// Hub returns the hub the endpoint is attached to.
func (e *Endpoint) Hub() *Hub { return e.hub }

// Limiter returns the receive limiter, for runtime reloads.
func (e *Endpoint) Limiter() *RecvLimiter { return e.limiter }

// Subscribe delivers messages on channel to l.
func (e *Endpoint) Subscribe(channel string, l Listener) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if slices.Contains(e.listeners[channel], l) {
		return
	}
	e.listeners[channel] = append(e.listeners[channel], l)
}

// Unsubscribe stops delivering channel to l.
func (e *Endpoint) Unsubscribe(channel string, l Listener) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.listeners[channel] = slices.DeleteFunc(e.listeners[channel], func(x Listener) bool { return x == l })
	if len(e.listeners[channel]) == 0 {
		delete(e.listeners, channel)
	}
}

// Send queues body for peer to on channel.
func (e *Endpoint) Send(to, channel string, body proto.Message) error {
	msg, err := NewMessage(e.id, to, channel, body)
	if err != nil {
		return err
	}
	return e.hub.Send(msg)
}

// Broadcast queues body for every other peer.
func (e *Endpoint) Broadcast(channel string, body proto.Message) error {
	return e.Send("", channel, body)
}

func (e *Endpoint) push(msg *Message) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return ErrClosed
	}
	if len(e.inbox) >= e.maxInbox {
		return ErrInboxFull
	}
	e.inbox = append(e.inbox, msg)
	return nil
}

// Queued returns the number of messages waiting for delivery.
func (e *Endpoint) Queued() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return len(e.inbox)
}

// RunFrame delivers queued messages in arrival order until the inbox is
// empty or the receive limiter says stop.
func (e *Endpoint) RunFrame() bool {
	now := e.hub.clock.Now()

	e.lock.Lock()
	n := 0
	for n < len(e.inbox) && e.limiter.Allow(now) {
		n++
	}
	batch := slices.Clone(e.inbox[:n])
	e.inbox = slices.Delete(e.inbox, 0, n)
	deferred := len(e.inbox)
	e.lock.Unlock()

	for _, msg := range batch {
		e.deliver(msg)
	}
	if deferred > 0 {
		metrics.IncrCounterWithGroup(metrics.NameNetworkMsgDeferredTotal, metrics.GroupEmu, metrics.Value(deferred))
	}
	return len(batch) > 0
}

func (e *Endpoint) deliver(msg *Message) {
	e.lock.Lock()
	listeners := slices.Clone(e.listeners[msg.Channel])
	e.lock.Unlock()

	if len(listeners) == 0 {
		log.Debug().Str("endpoint", e.id).Str("channel", msg.Channel).Msg("no listener for message")
		return
	}
	for _, l := range listeners {
		l.RunNetwork(msg)
	}
	metrics.IncrCounterWithDimGroup(metrics.NameNetworkMsgTotal, metrics.GroupEmu, 1,
		metrics.Dimension{metrics.DimChannel: msg.Channel})
}

// Close detaches the endpoint and drops what is still queued.
func (e *Endpoint) Close() {
	e.lock.Lock()
	if e.closed {
		e.lock.Unlock()
		return
	}
	e.closed = true
	dropped := len(e.inbox)
	e.inbox = nil
	e.listeners = make(map[string][]Listener)
	e.lock.Unlock()

	e.hub.disconnect(e.id)
	log.Info().Str("endpoint", e.id).Int("dropped", dropped).Msg("endpoint closed")
}
