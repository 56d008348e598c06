package presence

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// Status is the online state a user shows.
type Status int32

const (
	Offline Status = iota
	Online
	Away
	ExtendedAway
	DoNotDisturb
)

func (s Status) String() string {
	switch s {
	case Offline:
		return "Offline"
	case Online:
		return "Online"
	case Away:
		return "Away"
	case ExtendedAway:
		return "ExtendedAway"
	case DoNotDisturb:
		return "DoNotDisturb"
	}
	return "Unknown"
}

// Field limits of a presence record.
const (
	RichTextMaxLength  = 255
	DataMaxKeys        = 32
	DataMaxKeyLength   = 64
	DataMaxValueLength = 255
	JoinInfoMaxLength  = 4096
)

type DataRecord struct {
	Key   string
	Value string
}

// Info is the presence of one user. Records are sorted by key.
type Info struct {
	UserID         eos.EpicAccountID
	Status         Status
	ProductID      string
	ProductVersion string
	Platform       string
	ProductName    string
	RichText       string
	JoinInfo       string
	Records        []DataRecord
}

type QueryPresenceOptions struct {
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

type HasPresenceOptions = QueryPresenceOptions

type CopyPresenceOptions = QueryPresenceOptions

type GetJoinInfoOptions = QueryPresenceOptions

type CreatePresenceModificationOptions struct {
	LocalUserID eos.EpicAccountID
}

type SetPresenceOptions struct {
	LocalUserID                eos.EpicAccountID
	PresenceModificationHandle *Modification
}

type QueryPresenceCallbackInfo struct {
	ResultCode   eos.Result
	ClientData   any
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

func (*QueryPresenceCallbackInfo) CallbackID() callback.ID { return eos.PresenceQueryCallback }

type SetPresenceCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*SetPresenceCallbackInfo) CallbackID() callback.ID { return eos.PresenceSetCallback }

type PresenceChangedCallbackInfo struct {
	ClientData     any
	LocalUserID    eos.EpicAccountID
	PresenceUserID eos.EpicAccountID
}

func (*PresenceChangedCallbackInfo) CallbackID() callback.ID { return eos.PresenceChangedCallback }

// JoinGameAcceptedCallbackInfo is sent when the overlay accepts a join
// request. The emulator has no overlay, so it is never sent.
type JoinGameAcceptedCallbackInfo struct {
	ClientData   any
	JoinInfo     string
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
	UIEventID    uint64
}

func (*JoinGameAcceptedCallbackInfo) CallbackID() callback.ID {
	return eos.PresenceJoinGameAcceptedCallback
}

type (
	OnQueryPresenceCallback    = func(*QueryPresenceCallbackInfo)
	OnSetPresenceCallback      = func(*SetPresenceCallbackInfo)
	OnPresenceChangedCallback  = func(*PresenceChangedCallbackInfo)
	OnJoinGameAcceptedCallback = func(*JoinGameAcceptedCallbackInfo)
)
