package userinfo

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

type QueryUserInfoOptions struct {
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

type CopyUserInfoOptions struct {
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

// Info is what CopyUserInfo hands out.
type Info struct {
	UserID            eos.EpicAccountID
	Country           string
	DisplayName       string
	PreferredLanguage string
	Nickname          string
}

type QueryUserInfoCallbackInfo struct {
	ResultCode   eos.Result
	ClientData   any
	LocalUserID  eos.EpicAccountID
	TargetUserID eos.EpicAccountID
}

func (*QueryUserInfoCallbackInfo) CallbackID() callback.ID { return eos.UserInfoQueryCallback }

type OnQueryUserInfoCallback = func(*QueryUserInfoCallbackInfo)
