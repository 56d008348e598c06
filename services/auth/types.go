package auth

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// CopyUserAuthTokenAPILatest is the newest token options version understood.
const CopyUserAuthTokenAPILatest = 1

// LoginCredentialType is how the client claims to authenticate. The emulated
// login accepts all of them.
type LoginCredentialType int32

const (
	CredentialPassword LoginCredentialType = iota
	CredentialExchangeCode
	CredentialPersistentAuth
	CredentialDeviceCode
	CredentialDeveloper
	CredentialRefreshToken
	CredentialAccountPortal
	CredentialExternalAuth
)

// AuthTokenType tells a client token from a user token.
type AuthTokenType int32

const (
	TokenClient AuthTokenType = iota
	TokenUser
)

// Credentials are passed through untouched.
type Credentials struct {
	ID    string
	Token string
	Type  LoginCredentialType
}

type LoginOptions struct {
	Credentials *Credentials
	ScopeFlags  uint32
}

type LogoutOptions struct {
	LocalUserID eos.EpicAccountID
}

type LinkAccountOptions struct {
	LocalUserID eos.EpicAccountID
}

type DeletePersistentAuthOptions struct {
	RefreshToken string
}

type VerifyUserAuthOptions struct {
	AuthToken *Token
}

type CopyUserAuthTokenOptions struct {
	APIVersion int32
}

// Token is what CopyUserAuthToken hands out.
type Token struct {
	App              string
	ClientID         string
	AccountID        eos.EpicAccountID
	AccessToken      string
	ExpiresIn        float64
	ExpiresAt        string
	AuthType         AuthTokenType
	RefreshToken     string
	RefreshExpiresIn float64
	RefreshExpiresAt string
}

type LoginCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*LoginCallbackInfo) CallbackID() callback.ID { return eos.AuthLoginCallback }

type LogoutCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*LogoutCallbackInfo) CallbackID() callback.ID { return eos.AuthLogoutCallback }

type LinkAccountCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*LinkAccountCallbackInfo) CallbackID() callback.ID { return eos.AuthLinkAccountCallback }

type DeletePersistentAuthCallbackInfo struct {
	ResultCode eos.Result
	ClientData any
}

func (*DeletePersistentAuthCallbackInfo) CallbackID() callback.ID {
	return eos.AuthDeletePersistentAuthCallback
}

type VerifyUserAuthCallbackInfo struct {
	ResultCode eos.Result
	ClientData any
}

func (*VerifyUserAuthCallbackInfo) CallbackID() callback.ID { return eos.AuthVerifyUserAuthCallback }

// LoginStatusChangedCallbackInfo is the notification payload.
type LoginStatusChangedCallbackInfo struct {
	ClientData    any
	LocalUserID   eos.EpicAccountID
	PrevStatus    eos.LoginStatus
	CurrentStatus eos.LoginStatus
}

func (*LoginStatusChangedCallbackInfo) CallbackID() callback.ID {
	return eos.AuthLoginStatusChangedCallback
}

type (
	OnLoginCallback                = func(*LoginCallbackInfo)
	OnLogoutCallback               = func(*LogoutCallbackInfo)
	OnLinkAccountCallback          = func(*LinkAccountCallbackInfo)
	OnDeletePersistentAuthCallback = func(*DeletePersistentAuthCallbackInfo)
	OnVerifyUserAuthCallback       = func(*VerifyUserAuthCallbackInfo)
	OnLoginStatusChangedCallback   = func(*LoginStatusChangedCallbackInfo)
)
