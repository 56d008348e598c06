package friends

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// Status is the relationship between the local user and another account.
type Status int32

const (
	NotFriends Status = iota
	InviteSent
	InviteReceived
	StatusFriends
)

func (s Status) String() string {
	switch s {
	case NotFriends:
		return "NotFriends"
	case InviteSent:
		return "InviteSent"
	case InviteReceived:
		return "InviteReceived"
	case StatusFriends:
		return "Friends"
	}
	return "Unknown"
}

type QueryFriendsOptions struct {
	LocalUserID eos.EpicAccountID
}

type InviteOptions struct {
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

type QueryFriendsCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*QueryFriendsCallbackInfo) CallbackID() callback.ID { return eos.FriendsQueryCallback }

type SendInviteCallbackInfo struct {
	ResultCode   eos.Result
	ClientData   any
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

func (*SendInviteCallbackInfo) CallbackID() callback.ID { return eos.FriendsSendInviteCallback }

type AcceptInviteCallbackInfo struct {
	ResultCode   eos.Result
	ClientData   any
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

func (*AcceptInviteCallbackInfo) CallbackID() callback.ID { return eos.FriendsAcceptInviteCallback }

type RejectInviteCallbackInfo struct {
	ResultCode   eos.Result
	ClientData   any
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

func (*RejectInviteCallbackInfo) CallbackID() callback.ID { return eos.FriendsRejectInviteCallback }

// FriendsUpdateInfo is sent when another instance comes online or goes
// silent.
type FriendsUpdateInfo struct {
	ClientData     any
	LocalUserID    eos.EpicAccountID
	TargetUserID   eos.EpicAccountID
	PreviousStatus Status
	CurrentStatus  Status
}

func (*FriendsUpdateInfo) CallbackID() callback.ID { return eos.FriendsUpdateCallback }

type (
	OnQueryFriendsCallback  = func(*QueryFriendsCallbackInfo)
	OnSendInviteCallback    = func(*SendInviteCallbackInfo)
	OnAcceptInviteCallback  = func(*AcceptInviteCallbackInfo)
	OnRejectInviteCallback  = func(*RejectInviteCallbackInfo)
	OnFriendsUpdateCallback = func(*FriendsUpdateInfo)
)
