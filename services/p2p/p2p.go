// Package p2p emulates the peer-to-peer packet interface over the loopback
// network. Connections are negotiated with request, response and close
// messages; packets queued while a connection is pending are flushed once
// the peer accepts.
package p2p

import (
	"encoding/base64"
	"slices"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/services"
)

const Name = "p2p"

// Network channels.
const (
	ChannelConnectRequest  = "p2p.connect_request"
	ChannelConnectResponse = "p2p.connect_response"
	ChannelData            = "p2p.data"
	ChannelClose           = "p2p.close"
)

const (
	// MaxPacketSize is the largest payload SendPacket accepts.
	MaxPacketSize = 1170

	// MaxSocketNameLength bounds SocketID.SocketName.
	MaxSocketNameLength = 32

	// DefaultConnectTimeout applies when the settings leave it unset.
	DefaultConnectTimeout = 15 * time.Second

	defaultPort         = 7777
	defaultPortsToTry   = 99
	defaultRelayControl = AllowRelays
)

type state int

const (
	stateClosed state = iota
	stateRequesting
	stateConnecting
	stateConnected
)

func (s state) String() string {
	switch s {
	case stateRequesting:
		return "requesting"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "closed"
	}
}

type packet struct {
	from    eos.ProductUserID
	socket  string
	channel uint8
	data    []byte
}

type conn struct {
	state  state
	socket string
	since  time.Time
	out    []*packet
}

// P2P is the EOS_HP2P object.
type P2P struct {
	services.Base

	conns map[eos.ProductUserID]*conn

	// inbox keeps received packets in arrival order across all peers.
	inbox []*packet

	natType    NATType
	natQueried bool
	relay      RelayControl
	port       uint16
	portsToTry uint16
}

var (
	_ callback.CallbackRunner = (*P2P)(nil)
	_ callback.FrameRunner    = (*P2P)(nil)
	_ network.Listener        = (*P2P)(nil)
)

var channels = []string{ChannelConnectRequest, ChannelConnectResponse, ChannelData, ChannelClose}

func New(env services.Env) (*P2P, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	p := &P2P{
		Base:       services.NewBase(Name, env),
		conns:      make(map[eos.ProductUserID]*conn),
		relay:      defaultRelayControl,
		port:       defaultPort,
		portsToTry: defaultPortsToTry,
	}
	p.Attach(p)
	if env.Endpoint != nil {
		for _, ch := range channels {
			env.Endpoint.Subscribe(ch, p)
		}
	} else {
		log.Warn().Msg("p2p has no network endpoint, connections will time out")
	}
	return p, nil
}

// Release unsubscribes from the network and unregisters the interface.
func (p *P2P) Release() {
	if p.Endpoint != nil {
		for _, ch := range channels {
			p.Endpoint.Unsubscribe(ch, p)
		}
	}
	p.Detach(p)
}

func validSocket(s *SocketID) bool {
	return s != nil && s.SocketName != "" && len(s.SocketName) <= MaxSocketNameLength
}

func (p *P2P) conn(id eos.ProductUserID) *conn {
	c, ok := p.conns[id]
	if !ok {
		c = &conn{}
		p.conns[id] = c
	}
	return c
}

func (p *P2P) connectTimeout() time.Duration {
	if d := p.Settings.Current().P2P.ConnectTimeout; d > 0 {
		return d
	}
	return DefaultConnectTimeout
}

// SendPacket sends data to a peer, opening the connection first when needed.
// Success only means the packet was accepted for sending.
func (p *P2P) SendPacket(opts *SendPacketOptions) eos.Result {
	p.Trace("SendPacket")
	if opts == nil || !opts.RemoteUserID.Valid() || !validSocket(opts.SocketID) || opts.Data == nil {
		return eos.InvalidParameters
	}
	if len(opts.Data) > MaxPacketSize {
		return eos.LimitExceeded
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	pkt := &packet{
		from:    p.ProductUserID(),
		socket:  opts.SocketID.SocketName,
		channel: opts.Channel,
		data:    slices.Clone(opts.Data),
	}
	c := p.conn(opts.RemoteUserID)
	switch c.state {
	case stateConnected:
		p.sendData(opts.RemoteUserID, pkt)
	case stateRequesting, stateConnecting:
		c.out = append(c.out, pkt)
	case stateClosed:
		c.out = append(c.out, pkt)
		c.state = stateConnecting
		c.socket = pkt.socket
		c.since = p.Now()
		p.send(opts.RemoteUserID, ChannelConnectRequest, map[string]any{"socket": c.socket})
		log.Debug().Str("peer", string(opts.RemoteUserID)).Str("socket", c.socket).Msg("p2p connecting")
	}
	return eos.Success
}

func (p *P2P) match(requested *uint8) int {
	return slices.IndexFunc(p.inbox, func(pkt *packet) bool {
		return requested == nil || pkt.channel == *requested
	})
}

// GetNextReceivedPacketSize returns the size of the packet ReceivePacket
// would return next.
func (p *P2P) GetNextReceivedPacketSize(opts *GetNextReceivedPacketSizeOptions) (int, eos.Result) {
	if opts == nil {
		return 0, eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	i := p.match(opts.RequestedChannel)
	if i < 0 {
		return 0, eos.NotFound
	}
	return len(p.inbox[i].data), eos.Success
}

// ReceivePacket pops the next packet into out. The data is truncated to the
// smaller of len(out) and MaxDataSizeBytes.
func (p *P2P) ReceivePacket(opts *ReceivePacketOptions, out []byte) (*ReceivedPacket, eos.Result) {
	if opts == nil || out == nil {
		return nil, eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	i := p.match(opts.RequestedChannel)
	if i < 0 {
		return nil, eos.NotFound
	}
	pkt := p.inbox[i]
	p.inbox = slices.Delete(p.inbox, i, i+1)

	limit := min(len(out), max(opts.MaxDataSizeBytes, 0))
	return &ReceivedPacket{
		PeerID:       pkt.from,
		SocketID:     SocketID{SocketName: pkt.socket},
		Channel:      pkt.channel,
		BytesWritten: copy(out[:limit], pkt.data),
	}, eos.Success
}

// AcceptConnection accepts a pending request from a peer, or pre-accepts the
// peer's future requests.
func (p *P2P) AcceptConnection(opts *AcceptConnectionOptions) eos.Result {
	p.Trace("AcceptConnection")
	if opts == nil || !opts.RemoteUserID.Valid() || !validSocket(opts.SocketID) {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	c := p.conn(opts.RemoteUserID)
	if c.state == stateRequesting {
		p.send(opts.RemoteUserID, ChannelConnectResponse, map[string]any{"accepted": true})
	}
	c.socket = opts.SocketID.SocketName
	p.connected(opts.RemoteUserID, c)
	return eos.Success
}

// CloseConnection drops the connection to a peer along with everything
// queued to or from it.
func (p *P2P) CloseConnection(opts *CloseConnectionOptions) eos.Result {
	p.Trace("CloseConnection")
	if opts == nil || !opts.RemoteUserID.Valid() {
		return eos.InvalidParameters
	}
	if opts.SocketID != nil && !validSocket(opts.SocketID) {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	c := p.conn(opts.RemoteUserID)
	c.out = nil
	p.inbox = slices.DeleteFunc(p.inbox, func(pkt *packet) bool { return pkt.from == opts.RemoteUserID })
	if c.state != stateClosed && (opts.SocketID == nil || opts.SocketID.SocketName == c.socket) {
		p.close(opts.RemoteUserID, c)
	}
	return eos.Success
}

// CloseConnections closes every connection on a socket.
func (p *P2P) CloseConnections(opts *CloseConnectionsOptions) eos.Result {
	p.Trace("CloseConnections")
	if opts == nil || !validSocket(opts.SocketID) {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	for id, c := range p.conns {
		if c.state != stateClosed && c.socket == opts.SocketID.SocketName {
			p.close(id, c)
		}
	}
	return eos.Success
}

func (p *P2P) AddNotifyPeerConnectionRequest(opts *AddNotifyPeerConnectionRequestOptions, clientData any, fn OnIncomingConnectionRequestCallback) eos.NotificationID {
	p.Trace("AddNotifyPeerConnectionRequest")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &IncomingConnectionRequestInfo{ClientData: clientData, LocalUserID: p.ProductUserID()}
	if opts != nil && opts.SocketID != nil {
		info.socket = opts.SocketID.SocketName
	}
	return p.Reg().AddNotification(p, callback.NewResult(info, callback.Typed(fn)))
}

func (p *P2P) RemoveNotifyPeerConnectionRequest(id eos.NotificationID) {
	p.Trace("RemoveNotifyPeerConnectionRequest")
	p.Reg().Lock()
	defer p.Reg().Unlock()

	p.Reg().RemoveNotification(p, id)
}

func (p *P2P) AddNotifyPeerConnectionClosed(opts *AddNotifyPeerConnectionClosedOptions, clientData any, fn OnRemoteConnectionClosedCallback) eos.NotificationID {
	p.Trace("AddNotifyPeerConnectionClosed")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &RemoteConnectionClosedInfo{ClientData: clientData, LocalUserID: p.ProductUserID()}
	if opts != nil && opts.SocketID != nil {
		info.socket = opts.SocketID.SocketName
	}
	return p.Reg().AddNotification(p, callback.NewResult(info, callback.Typed(fn)))
}

func (p *P2P) RemoveNotifyPeerConnectionClosed(id eos.NotificationID) {
	p.Trace("RemoveNotifyPeerConnectionClosed")
	p.Reg().Lock()
	defer p.Reg().Unlock()

	p.Reg().RemoveNotification(p, id)
}

// QueryNATType always finds an open NAT.
func (p *P2P) QueryNATType(opts *QueryNATTypeOptions, clientData any, fn OnQueryNATTypeCompleteCallback) eos.Result {
	p.Trace("QueryNATType")
	if fn == nil {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &QueryNATTypeCompleteInfo{ClientData: clientData, ResultCode: eos.InvalidParameters, NATType: NATUnknown}
	if opts != nil {
		p.natType, p.natQueried = NATOpen, true
		info.ResultCode, info.NATType = eos.Success, NATOpen
	}
	services.Complete(p, p.Reg(), info, fn)
	return eos.Success
}

// GetNATType returns the cached NAT type, NotFound before a query.
func (p *P2P) GetNATType(opts *GetNATTypeOptions) (NATType, eos.Result) {
	p.Trace("GetNATType")
	if opts == nil {
		return NATUnknown, eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	if !p.natQueried {
		return NATUnknown, eos.NotFound
	}
	return p.natType, eos.Success
}

func (p *P2P) SetRelayControl(opts *SetRelayControlOptions) eos.Result {
	p.Trace("SetRelayControl")
	if opts == nil || opts.RelayControl < NoRelays || opts.RelayControl > ForceRelays {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	p.relay = opts.RelayControl
	return eos.Success
}

func (p *P2P) GetRelayControl() RelayControl {
	p.Trace("GetRelayControl")
	p.Reg().Lock()
	defer p.Reg().Unlock()

	return p.relay
}

func (p *P2P) SetPortRange(opts *SetPortRangeOptions) eos.Result {
	p.Trace("SetPortRange")
	if opts == nil {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	p.port, p.portsToTry = opts.Port, opts.MaxAdditionalPortsToTry
	return eos.Success
}

func (p *P2P) GetPortRange() (port, additional uint16) {
	p.Trace("GetPortRange")
	p.Reg().Lock()
	defer p.Reg().Unlock()

	return p.port, p.portsToTry
}

// RunFrame fails connection attempts the peer never answered.
func (p *P2P) RunFrame() bool {
	now := p.Now()
	timeout := p.connectTimeout()
	for id, c := range p.conns {
		if c.state == stateConnecting && now.Sub(c.since) > timeout {
			log.Info().Str("peer", string(id)).Str("socket", c.socket).Msg("p2p connection attempt timed out")
			c.state = stateClosed
			c.out = nil
			p.notifyClosed(id, c.socket, ClosedConnectionFailed)
		}
	}
	return true
}

// RunNetwork handles the connection protocol and inbound data.
func (p *P2P) RunNetwork(msg *network.Message) bool {
	from := eos.ProductUserID(msg.From)
	body := &structpb.Struct{}
	if err := msg.Decode(body); err != nil {
		log.Warn().Err(err).Str("from", msg.From).Str("channel", msg.Channel).Msg("bad p2p message")
		return false
	}
	fields := body.GetFields()

	switch msg.Channel {
	case ChannelConnectRequest:
		c := p.conn(from)
		if c.state == stateConnected {
			p.send(from, ChannelConnectResponse, map[string]any{"accepted": true})
			return true
		}
		c.state = stateRequesting
		c.since = p.Now()
		c.socket = fields["socket"].GetStringValue()
		socket := c.socket
		p.Reg().Broadcast(p, eos.P2PConnectionRequestCallback, func(t *callback.Result) callback.Payload {
			cp := *callback.PayloadAs[*IncomingConnectionRequestInfo](t)
			if cp.socket != "" && cp.socket != socket {
				return nil
			}
			cp.RemoteUserID = from
			cp.SocketID = SocketID{SocketName: socket}
			return &cp
		})

	case ChannelConnectResponse:
		c := p.conn(from)
		if fields["accepted"].GetBoolValue() {
			p.connected(from, c)
			return true
		}
		c.state = stateClosed
		c.out = nil
		p.notifyClosed(from, c.socket, ClosedByPeer)

	case ChannelData:
		data, err := base64.StdEncoding.DecodeString(fields["data"].GetStringValue())
		if err != nil {
			log.Warn().Err(err).Str("from", msg.From).Msg("bad p2p data")
			return false
		}
		p.inbox = append(p.inbox, &packet{
			from:    from,
			socket:  fields["socket"].GetStringValue(),
			channel: uint8(fields["channel"].GetNumberValue()),
			data:    data,
		})

	case ChannelClose:
		c := p.conn(from)
		p.notifyClosed(from, c.socket, ClosedByPeer)
		c.state = stateClosed
		c.out = nil
	}
	return true
}

func (p *P2P) RunCallbacks(res *callback.Result) bool {
	res.MarkDone()
	return true
}

func (p *P2P) FreeCallback(*callback.Result) {}

// connected moves c to connected and flushes what was queued for it.
func (p *P2P) connected(id eos.ProductUserID, c *conn) {
	c.state = stateConnected
	c.since = time.Time{}
	out := c.out
	c.out = nil
	for _, pkt := range out {
		p.sendData(id, pkt)
	}
	log.Debug().Str("peer", string(id)).Str("socket", c.socket).Int("flushed", len(out)).Msg("p2p connected")
}

func (p *P2P) close(id eos.ProductUserID, c *conn) {
	c.state = stateClosed
	c.out = nil
	p.send(id, ChannelClose, map[string]any{"socket": c.socket})
}

func (p *P2P) notifyClosed(id eos.ProductUserID, socket string, reason ConnectionClosedReason) {
	p.Reg().Broadcast(p, eos.P2PConnectionClosedCallback, func(t *callback.Result) callback.Payload {
		cp := *callback.PayloadAs[*RemoteConnectionClosedInfo](t)
		if cp.socket != "" && cp.socket != socket {
			return nil
		}
		cp.RemoteUserID = id
		cp.SocketID = SocketID{SocketName: socket}
		cp.Reason = reason
		return &cp
	})
}

func (p *P2P) sendData(to eos.ProductUserID, pkt *packet) {
	p.send(to, ChannelData, map[string]any{
		"socket":  pkt.socket,
		"channel": int(pkt.channel),
		"data":    pkt.data,
	})
}

func (p *P2P) send(to eos.ProductUserID, channel string, fields map[string]any) {
	if p.Endpoint == nil {
		return
	}
	body, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("build p2p message")
		return
	}
	if err := p.Endpoint.Send(string(to), channel, body); err != nil {
		log.Warn().Err(err).Str("peer", string(to)).Str("channel", channel).Msg("send p2p message")
	}
}
