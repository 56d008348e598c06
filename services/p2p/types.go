package p2p

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// SocketID names a logical connection between two users.
type SocketID struct {
	SocketName string
}

// NATType as reported by QueryNATType.
type NATType int32

const (
	NATUnknown NATType = iota
	NATOpen
	NATModerate
	NATStrict
)

func (n NATType) String() string {
	switch n {
	case NATOpen:
		return "Open"
	case NATModerate:
		return "Moderate"
	case NATStrict:
		return "Strict"
	default:
		return "Unknown"
	}
}

// ConnectionClosedReason tells why a peer connection went away.
type ConnectionClosedReason int32

const (
	ClosedUnknown ConnectionClosedReason = iota
	ClosedByLocalUser
	ClosedByPeer
	ClosedTimedOut
	ClosedTooManyConnections
	ClosedInvalidMessage
	ClosedInvalidData
	ClosedConnectionFailed
	ClosedConnectionClosed
	ClosedNegotiationFailed
	ClosedUnexpectedError
)

type RelayControl int32

const (
	NoRelays RelayControl = iota
	AllowRelays
	ForceRelays
)

type PacketReliability int32

const (
	UnreliableUnordered PacketReliability = iota
	ReliableUnordered
	ReliableOrdered
)

type SendPacketOptions struct {
	LocalUserID          eos.ProductUserID
	RemoteUserID         eos.ProductUserID
	SocketID             *SocketID
	Channel              uint8
	Data                 []byte
	AllowDelayedDelivery bool
	Reliability          PacketReliability
}

type GetNextReceivedPacketSizeOptions struct {
	LocalUserID      eos.ProductUserID
	RequestedChannel *uint8
}

type ReceivePacketOptions struct {
	LocalUserID      eos.ProductUserID
	MaxDataSizeBytes int
	RequestedChannel *uint8
}

// ReceivedPacket describes a packet copied out by ReceivePacket.
type ReceivedPacket struct {
	PeerID       eos.ProductUserID
	SocketID     SocketID
	Channel      uint8
	BytesWritten int
}

type AcceptConnectionOptions struct {
	LocalUserID  eos.ProductUserID
	RemoteUserID eos.ProductUserID
	SocketID     *SocketID
}

type CloseConnectionOptions struct {
	LocalUserID  eos.ProductUserID
	RemoteUserID eos.ProductUserID

	// SocketID limits the close to one socket. Nil closes every socket.
	SocketID *SocketID
}

type CloseConnectionsOptions struct {
	LocalUserID eos.ProductUserID
	SocketID    *SocketID
}

type AddNotifyPeerConnectionRequestOptions struct {
	LocalUserID eos.ProductUserID

	// SocketID restricts the notification to one socket. Nil listens on all.
	SocketID *SocketID
}

type AddNotifyPeerConnectionClosedOptions struct {
	LocalUserID eos.ProductUserID
	SocketID    *SocketID
}

type QueryNATTypeOptions struct{}

type GetNATTypeOptions struct{}

type SetRelayControlOptions struct {
	RelayControl RelayControl
}

type SetPortRangeOptions struct {
	Port                    uint16
	MaxAdditionalPortsToTry uint16
}

type QueryNATTypeCompleteInfo struct {
	ResultCode eos.Result
	ClientData any
	NATType    NATType
}

func (*QueryNATTypeCompleteInfo) CallbackID() callback.ID { return eos.P2PQueryNATTypeCallback }

type IncomingConnectionRequestInfo struct {
	ClientData   any
	LocalUserID  eos.ProductUserID
	RemoteUserID eos.ProductUserID
	SocketID     SocketID

	socket string
}

func (*IncomingConnectionRequestInfo) CallbackID() callback.ID {
	return eos.P2PConnectionRequestCallback
}

type RemoteConnectionClosedInfo struct {
	ClientData   any
	LocalUserID  eos.ProductUserID
	RemoteUserID eos.ProductUserID
	SocketID     SocketID
	Reason       ConnectionClosedReason

	socket string
}

func (*RemoteConnectionClosedInfo) CallbackID() callback.ID { return eos.P2PConnectionClosedCallback }

type (
	OnQueryNATTypeCompleteCallback      = func(*QueryNATTypeCompleteInfo)
	OnIncomingConnectionRequestCallback = func(*IncomingConnectionRequestInfo)
	OnRemoteConnectionClosedCallback    = func(*RemoteConnectionClosedInfo)
)
