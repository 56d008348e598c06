// Package auth emulates the Epic account login interface. Every login
// succeeds as the account configured in the settings.
package auth

import (
	"time"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/event"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/settings"
)

// Name is the registry name of the interface.
const Name = "auth"

const (
	accessToken      = "ACCE22105E4"
	refreshToken     = "A3EF3E28105E4"
	expiresIn        = 99999999
	refreshExpiresIn = 999999
	tokenTimeLayout  = "2006-01-02T15:04:05Z"
)

// Auth is the EOS_HAuth object.
type Auth struct {
	services.Base

	loggedIn bool
	account  eos.EpicAccountID
}

var _ callback.CallbackRunner = (*Auth)(nil)

// New builds the interface and registers it. When env carries a publisher,
// settings reloads are followed.
func New(env services.Env) (*Auth, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	a := &Auth{Base: services.NewBase(Name, env)}
	a.Attach(a)
	if env.Events != nil {
		if err := env.Events.RegisterSubscriber(event.ReloadConfig, a.onReload); err != nil {
			a.Detach(a)
			return nil, err
		}
	}
	return a, nil
}

// Release drops every pending result and subscription.
func (a *Auth) Release() {
	a.Detach(a)
}

// Login logs the configured account in. The callback fires once the
// configured login delay has passed, with TimedOut if that exceeds the login
// timeout.
func (a *Auth) Login(opts *LoginOptions, clientData any, fn OnLoginCallback) eos.Result {
	a.Trace("Login")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}
	if opts.Credentials != nil {
		log.Debug().Int32("type", int32(opts.Credentials.Type)).Str("id", opts.Credentials.ID).Msg("login credentials")
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	cfg := a.Settings.Current().Auth
	delay := cfg.LoginDelay
	if cfg.LoginTimeout > 0 && delay > cfg.LoginTimeout {
		delay = cfg.LoginTimeout
	}
	res := callback.NewResult(&LoginCallbackInfo{ClientData: clientData}, callback.Typed(fn),
		callback.WithReadyAfter(delay), callback.WithDeadline(cfg.LoginTimeout))
	a.Reg().Enqueue(a, res)
	return eos.Success
}

// Logout logs the local user out.
func (a *Auth) Logout(opts *LogoutOptions, clientData any, fn OnLogoutCallback) eos.Result {
	a.Trace("Logout")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	info := &LogoutCallbackInfo{ClientData: clientData, LocalUserID: opts.LocalUserID}
	if a.loggedIn && opts.LocalUserID == a.account {
		info.ResultCode = eos.Success
		a.setStatus(eos.NotLoggedIn)
	} else {
		info.ResultCode = eos.NotFound
		log.Info().Str("user", string(opts.LocalUserID)).Msg("logout of a user that is not logged in")
	}
	services.Complete(a, a.Reg(), info, fn)
	return eos.Success
}

// LinkAccount is not supported.
func (a *Auth) LinkAccount(opts *LinkAccountOptions, clientData any, fn OnLinkAccountCallback) eos.Result {
	a.Trace("LinkAccount")
	if fn == nil {
		return eos.InvalidParameters
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	info := &LinkAccountCallbackInfo{ResultCode: eos.UnexpectedError, ClientData: clientData}
	if opts != nil {
		info.LocalUserID = opts.LocalUserID
	}
	services.Complete(a, a.Reg(), info, fn)
	return eos.Success
}

// DeletePersistentAuth forgets a refresh token.
func (a *Auth) DeletePersistentAuth(opts *DeletePersistentAuthOptions, clientData any, fn OnDeletePersistentAuthCallback) eos.Result {
	a.Trace("DeletePersistentAuth")
	if fn == nil || opts == nil || opts.RefreshToken == "" {
		return eos.InvalidParameters
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	services.Complete(a, a.Reg(), &DeletePersistentAuthCallbackInfo{ResultCode: eos.Success, ClientData: clientData}, fn)
	return eos.Success
}

// VerifyUserAuth accepts every token.
func (a *Auth) VerifyUserAuth(opts *VerifyUserAuthOptions, clientData any, fn OnVerifyUserAuthCallback) eos.Result {
	a.Trace("VerifyUserAuth")
	if fn == nil || opts == nil || opts.AuthToken == nil {
		return eos.InvalidParameters
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	services.Complete(a, a.Reg(), &VerifyUserAuthCallbackInfo{ResultCode: eos.Success, ClientData: clientData}, fn)
	return eos.Success
}

// GetLoggedInAccountsCount is 1 after a successful login, 0 otherwise.
func (a *Auth) GetLoggedInAccountsCount() int {
	a.Trace("GetLoggedInAccountsCount")
	a.Reg().Lock()
	defer a.Reg().Unlock()

	if a.loggedIn {
		return 1
	}
	return 0
}

// GetLoggedInAccountByIndex returns the logged in account, or "" out of
// range.
func (a *Auth) GetLoggedInAccountByIndex(index int) eos.EpicAccountID {
	a.Trace("GetLoggedInAccountByIndex")
	a.Reg().Lock()
	defer a.Reg().Unlock()

	if index != 0 || !a.loggedIn {
		return ""
	}
	return a.account
}

// GetLoginStatus reports the status of id.
func (a *Auth) GetLoginStatus(id eos.EpicAccountID) eos.LoginStatus {
	a.Trace("GetLoginStatus")
	a.Reg().Lock()
	defer a.Reg().Unlock()

	if a.loggedIn && id == a.account {
		return eos.LoggedIn
	}
	return eos.NotLoggedIn
}

// CopyUserAuthToken returns a user token for the local account.
func (a *Auth) CopyUserAuthToken(opts *CopyUserAuthTokenOptions, id eos.EpicAccountID) (*Token, eos.Result) {
	a.Trace("CopyUserAuthToken")
	if opts == nil {
		return nil, eos.InvalidParameters
	}
	if opts.APIVersion > CopyUserAuthTokenAPILatest {
		return nil, eos.VersionMismatch
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	s := a.Settings.Current()
	if id != s.EpicID {
		log.Info().Str("user", string(id)).Msg("no token for unknown user")
		return nil, eos.NotFound
	}
	now := a.Now().UTC()
	return &Token{
		App:              s.GameName,
		ClientID:         a.ClientID,
		AccountID:        id,
		AccessToken:      accessToken,
		ExpiresIn:        expiresIn,
		ExpiresAt:        now.Add(expiresIn * time.Second).Format(tokenTimeLayout),
		AuthType:         TokenUser,
		RefreshToken:     refreshToken,
		RefreshExpiresIn: refreshExpiresIn,
		RefreshExpiresAt: now.Add(refreshExpiresIn * time.Second).Format(tokenTimeLayout),
	}, eos.Success
}

// AddNotifyLoginStatusChanged subscribes fn to login status changes.
func (a *Auth) AddNotifyLoginStatusChanged(clientData any, fn OnLoginStatusChangedCallback) eos.NotificationID {
	a.Trace("AddNotifyLoginStatusChanged")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	template := callback.NewResult(&LoginStatusChangedCallbackInfo{ClientData: clientData}, callback.Typed(fn))
	return a.Reg().AddNotification(a, template)
}

// RemoveNotifyLoginStatusChanged drops a subscription.
func (a *Auth) RemoveNotifyLoginStatusChanged(id eos.NotificationID) {
	a.Trace("RemoveNotifyLoginStatusChanged")
	a.Reg().Lock()
	defer a.Reg().Unlock()

	a.Reg().RemoveNotification(a, id)
}

// RunCallbacks completes the pending login.
func (a *Auth) RunCallbacks(res *callback.Result) bool {
	if res.ID() != eos.AuthLoginCallback {
		res.MarkDone()
		return true
	}

	info := callback.PayloadAs[*LoginCallbackInfo](res)
	if res.DeadlineExceeded(a.Now()) {
		info.ResultCode = eos.TimedOut
		log.Warn().Dur("timeout", res.Deadline()).Msg("login timed out")
	} else {
		s := a.Settings.Current()
		info.ResultCode = eos.Success
		info.LocalUserID = s.EpicID
		a.account = s.EpicID
		a.setStatus(eos.LoggedIn)
		log.Info().Str("user", string(s.EpicID)).Str("name", s.Username).Msg("logged in")
	}
	res.MarkDone()
	return true
}

// FreeCallback has nothing to release, payloads own no resources.
func (a *Auth) FreeCallback(*callback.Result) {}

// setStatus must be called with the global lock held.
func (a *Auth) setStatus(status eos.LoginStatus) {
	prev := eos.NotLoggedIn
	if a.loggedIn {
		prev = eos.LoggedIn
	}
	a.loggedIn = status == eos.LoggedIn
	if prev == status {
		return
	}
	user := a.account
	a.Reg().Broadcast(a, eos.AuthLoginStatusChangedCallback, func(t *callback.Result) callback.Payload {
		cp := *callback.PayloadAs[*LoginStatusChangedCallbackInfo](t)
		cp.LocalUserID = user
		cp.PrevStatus = prev
		cp.CurrentStatus = status
		return &cp
	})
	if a.Events != nil {
		change := LoginStatusChangedCallbackInfo{LocalUserID: user, PrevStatus: prev, CurrentStatus: status}
		if err := a.Events.Post(event.LoginStatusChanged, change); err != nil {
			log.Debug().Err(err).Msg("publish login status")
		}
	}
}

// onReload logs the previous account out when the configured identity
// changes.
func (a *Auth) onReload(param any) {
	s, ok := param.(*settings.Settings)
	if !ok {
		return
	}

	a.Reg().Lock()
	defer a.Reg().Unlock()

	if !a.Attached(a) || !a.loggedIn || s.EpicID == a.account {
		return
	}
	log.Info().Str("old", string(a.account)).Str("new", string(s.EpicID)).Msg("epicid changed, logging out")
	a.setStatus(eos.NotLoggedIn)
}
