package connect

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// ExternalCredentialType names the identity provider a login claims.
type ExternalCredentialType int32

const (
	ExternalEpic ExternalCredentialType = iota
	ExternalSteamAppTicket
	ExternalPSNIDToken
	ExternalXBLXSTSToken
	ExternalDiscordAccessToken
	ExternalGOGSessionTicket
	ExternalNintendoIDToken
	ExternalNintendoNSAIDToken
	ExternalUplayAccessToken
	ExternalOpenIDAccessToken
	ExternalDeviceIDAccessToken
	ExternalAppleIDToken
)

type Credentials struct {
	Token string
	Type  ExternalCredentialType
}

type LoginOptions struct {
	Credentials *Credentials
}

type CreateUserOptions struct {
	ContinuanceToken string
}

type LoginCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*LoginCallbackInfo) CallbackID() callback.ID { return eos.ConnectLoginCallback }

type CreateUserCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*CreateUserCallbackInfo) CallbackID() callback.ID { return eos.ConnectCreateUserCallback }

type LoginStatusChangedCallbackInfo struct {
	ClientData     any
	LocalUserID    eos.ProductUserID
	PreviousStatus eos.LoginStatus
	CurrentStatus  eos.LoginStatus
}

func (*LoginStatusChangedCallbackInfo) CallbackID() callback.ID {
	return eos.ConnectLoginStatusChangedCallback
}

// AuthExpirationCallbackInfo is never sent, emulated tokens do not expire.
type AuthExpirationCallbackInfo struct {
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*AuthExpirationCallbackInfo) CallbackID() callback.ID { return eos.ConnectAuthExpirationCallback }

type (
	OnLoginCallback              = func(*LoginCallbackInfo)
	OnCreateUserCallback         = func(*CreateUserCallbackInfo)
	OnLoginStatusChangedCallback = func(*LoginStatusChangedCallbackInfo)
	OnAuthExpirationCallback     = func(*AuthExpirationCallbackInfo)
)
