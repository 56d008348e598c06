// Package network is the loopback transport between emulator instances that
// live in one process. Endpoints queue messages on a shared Hub and deliver
// them to listeners from the frame pump.
package network

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

var (
	ErrUnknownPeer       = errors.New("network: unknown peer")
	ErrDuplicateEndpoint = errors.New("network: endpoint already connected")
	ErrInboxFull         = errors.New("network: inbox full")
	ErrClosed            = errors.New("network: endpoint closed")
	ErrEmptyBody         = errors.New("network: message has no body")
)

// Message is one datagram between endpoints. An empty To broadcasts to every
// other endpoint on the hub.
type Message struct {
	From    string
	To      string
	Channel string
	Body    *anypb.Any
}

// NewMessage wraps body into a Message.
func NewMessage(from, to, channel string, body proto.Message) (*Message, error) {
	if body == nil {
		return nil, ErrEmptyBody
	}
	anyBody, err := anypb.New(body)
	if err != nil {
		return nil, fmt.Errorf("network: wrap %s body: %w", channel, err)
	}
	return &Message{From: from, To: to, Channel: channel, Body: anyBody}, nil
}

// Decode unmarshals the body into dst.
func (m *Message) Decode(dst proto.Message) error {
	if m.Body == nil {
		return ErrEmptyBody
	}
	return m.Body.UnmarshalTo(dst)
}

// clone gives every broadcast receiver its own copy of the envelope.
func (m *Message) clone(to string) *Message {
	cp := *m
	cp.To = to
	return &cp
}

// Listener reacts to inbound messages on the channels it subscribed to. It is
// called from the frame pump with the global lock held.
type Listener interface {
	RunNetwork(msg *Message) bool
}
