// Package userinfo emulates the account profile interface. The local
// profile comes from the settings; profiles of other instances are asked for
// over the network and cached once they answer.
package userinfo

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/services"
)

const Name = "userinfo"

const (
	// RequestChannel asks an instance for its profile.
	RequestChannel = "userinfo.request"

	// InfoChannel carries a profile back.
	InfoChannel = "userinfo.info"
)

// QueryTimeout fails a query the other instance never answers.
const QueryTimeout = time.Second

// UserInfo is the EOS_HUserInfo object.
type UserInfo struct {
	services.Base

	cache   map[eos.EpicAccountID]Info
	queries *services.Queries
}

var (
	_ callback.CallbackRunner = (*UserInfo)(nil)
	_ network.Listener        = (*UserInfo)(nil)
)

func New(env services.Env) (*UserInfo, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	u := &UserInfo{
		Base:    services.NewBase(Name, env),
		cache:   make(map[eos.EpicAccountID]Info),
		queries: services.NewQueries(),
	}
	u.Attach(u)
	if env.Endpoint != nil {
		env.Endpoint.Subscribe(RequestChannel, u)
		env.Endpoint.Subscribe(InfoChannel, u)
	}
	return u, nil
}

func (u *UserInfo) Release() {
	if u.Endpoint != nil {
		u.Endpoint.Unsubscribe(RequestChannel, u)
		u.Endpoint.Unsubscribe(InfoChannel, u)
	}
	u.Detach(u)
}

// self must be called with the global lock held.
func (u *UserInfo) self() Info {
	s := u.Settings.Current()
	return Info{
		UserID:            s.EpicID,
		DisplayName:       s.Username,
		Nickname:          s.Username,
		PreferredLanguage: s.Language,
	}
}

// QueryUserInfo fetches the profile of TargetUserID. The local profile is
// always available; another instance has QueryTimeout to answer.
func (u *UserInfo) QueryUserInfo(opts *QueryUserInfoOptions, clientData any, fn OnQueryUserInfoCallback) eos.Result {
	u.Trace("QueryUserInfo")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	u.Reg().Lock()
	defer u.Reg().Unlock()

	info := &QueryUserInfoCallbackInfo{
		ResultCode:   eos.Success,
		ClientData:   clientData,
		LocalUserID:  opts.LocalUserID,
		TargetUserID: opts.TargetUserID,
	}
	switch {
	case !opts.TargetUserID.Valid():
		info.ResultCode = eos.InvalidParameters
	case opts.TargetUserID == u.EpicID():
	case !u.request(opts.TargetUserID):
		info.ResultCode = eos.NotFound
	default:
		res := callback.NewResult(info, callback.Typed(fn), callback.WithDeadline(QueryTimeout))
		if u.Reg().Enqueue(u, res) {
			u.queries.Add(opts.TargetUserID, res)
		}
		return eos.Success
	}
	services.Complete(u, u.Reg(), info, fn)
	return eos.Success
}

// request asks the instance of target for its profile and reports whether
// that instance is on the hub.
func (u *UserInfo) request(target eos.EpicAccountID) bool {
	if u.Endpoint == nil {
		return false
	}
	to := string(eos.ProductUserIDFor(u.ProductID, target))
	if err := u.Endpoint.Send(to, RequestChannel, &structpb.Struct{}); err != nil {
		log.Debug().Err(err).Str("epicid", string(target)).Msg("user info request not sent")
		return false
	}
	return true
}

// CopyUserInfo returns the profile of TargetUserID, NotFound until a query
// for another user succeeded.
func (u *UserInfo) CopyUserInfo(opts *CopyUserInfoOptions) (*Info, eos.Result) {
	u.Trace("CopyUserInfo")
	if opts == nil || !opts.TargetUserID.Valid() {
		return nil, eos.InvalidParameters
	}

	u.Reg().Lock()
	defer u.Reg().Unlock()

	if opts.TargetUserID == u.EpicID() {
		info := u.self()
		return &info, eos.Success
	}
	info, ok := u.cache[opts.TargetUserID]
	if !ok {
		return nil, eos.NotFound
	}
	return &info, eos.Success
}

// GetExternalUserInfoCount reports no linked external accounts.
func (u *UserInfo) GetExternalUserInfoCount(localUserID, targetUserID eos.EpicAccountID) int {
	u.Trace("GetExternalUserInfoCount")
	return 0
}

// CopyExternalUserInfoByIndex always fails, there are no external accounts.
func (u *UserInfo) CopyExternalUserInfoByIndex(localUserID, targetUserID eos.EpicAccountID, index int) eos.Result {
	u.Trace("CopyExternalUserInfoByIndex")
	return eos.NotFound
}

// RunNetwork answers profile requests and records the answers.
func (u *UserInfo) RunNetwork(msg *network.Message) bool {
	switch msg.Channel {
	case RequestChannel:
		return u.answer(msg.From)
	case InfoChannel:
		return u.record(msg)
	}
	return false
}

func (u *UserInfo) answer(to string) bool {
	if u.Endpoint == nil {
		return false
	}
	info := u.self()
	body, err := structpb.NewStruct(map[string]any{
		"epicid":      string(info.UserID),
		"displayname": info.DisplayName,
		"nickname":    info.Nickname,
		"language":    info.PreferredLanguage,
		"country":     info.Country,
	})
	if err != nil {
		log.Error().Err(err).Msg("build user info")
		return false
	}
	if err := u.Endpoint.Send(to, InfoChannel, body); err != nil {
		log.Debug().Err(err).Str("to", to).Msg("user info not sent")
		return false
	}
	return true
}

func (u *UserInfo) record(msg *network.Message) bool {
	body := &structpb.Struct{}
	if err := msg.Decode(body); err != nil {
		log.Warn().Err(err).Str("from", msg.From).Msg("bad user info")
		return false
	}
	f := body.GetFields()
	id := eos.EpicAccountID(f["epicid"].GetStringValue())
	if !id.Valid() {
		return false
	}
	u.cache[id] = Info{
		UserID:            id,
		DisplayName:       f["displayname"].GetStringValue(),
		Nickname:          f["nickname"].GetStringValue(),
		PreferredLanguage: f["language"].GetStringValue(),
		Country:           f["country"].GetStringValue(),
	}
	n := u.queries.Answer(id, func(*callback.Result) {})
	log.Debug().Str("epicid", string(id)).Int("queries", n).Msg("user info received")
	return true
}

// RunCallbacks fails queries whose deadline passed.
func (u *UserInfo) RunCallbacks(res *callback.Result) bool {
	return u.queries.Expire(res, u.Now(), func(r *callback.Result) {
		callback.PayloadAs[*QueryUserInfoCallbackInfo](r).ResultCode = eos.TimedOut
	})
}

func (u *UserInfo) FreeCallback(res *callback.Result) {
	u.queries.Forget(res)
}
