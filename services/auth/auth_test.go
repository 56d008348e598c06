package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/event"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/settings"
)

const testEpicID eos.EpicAccountID = "0123456789abcdef0123456789abcdef"

func newTestSettings() *settings.Settings {
	return &settings.Settings{
		EpicID:   testEpicID,
		Username: "DefaultName",
		GameName: "Unreal",
		Auth:     settings.AuthConfig{LoginTimeout: 10 * time.Second},
	}
}

func newFixture(t *testing.T, s *settings.Settings) (*Auth, *callback.Registry, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	reg := callback.NewRegistry(mock)
	a, err := New(services.Env{Registry: reg, Settings: services.Static(s), ClientID: "xyza7891"})
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a, reg, mock
}

func TestNewNeedsRegistry(t *testing.T) {
	_, err := New(services.Env{Settings: services.Static(newTestSettings())})
	assert.ErrorIs(t, err, services.ErrNoRegistry)
}

func TestLogin(t *testing.T) {
	a, reg, _ := newFixture(t, newTestSettings())

	var changes []*LoginStatusChangedCallbackInfo
	nid := a.AddNotifyLoginStatusChanged("notify", func(info *LoginStatusChangedCallbackInfo) {
		changes = append(changes, info)
	})
	require.NotEqual(t, eos.InvalidNotificationID, nid)

	var got []*LoginCallbackInfo
	res := a.Login(&LoginOptions{Credentials: &Credentials{Type: CredentialDeveloper}}, "ctx",
		func(info *LoginCallbackInfo) { got = append(got, info) })
	require.Equal(t, eos.Success, res)
	assert.Empty(t, got, "nothing fires before the pump runs")

	require.NoError(t, reg.Tick())
	require.Len(t, got, 1)
	assert.Equal(t, eos.Success, got[0].ResultCode)
	assert.Equal(t, testEpicID, got[0].LocalUserID)
	assert.Equal(t, "ctx", got[0].ClientData)
	assert.Empty(t, changes, "status change is queued behind the login")

	require.NoError(t, reg.Tick())
	require.Len(t, got, 1)
	require.Len(t, changes, 1)
	assert.Equal(t, eos.NotLoggedIn, changes[0].PrevStatus)
	assert.Equal(t, eos.LoggedIn, changes[0].CurrentStatus)
	assert.Equal(t, "notify", changes[0].ClientData)

	assert.Equal(t, eos.LoggedIn, a.GetLoginStatus(testEpicID))
	assert.Equal(t, 1, a.GetLoggedInAccountsCount())
	assert.Equal(t, testEpicID, a.GetLoggedInAccountByIndex(0))
	assert.Empty(t, a.GetLoggedInAccountByIndex(1))

	t.Run("SecondLoginKeepsStatus", func(t *testing.T) {
		a.Login(&LoginOptions{}, nil, func(*LoginCallbackInfo) {})
		require.NoError(t, reg.Tick())
		require.NoError(t, reg.Tick())
		assert.Len(t, changes, 1)
	})

	t.Run("Logout", func(t *testing.T) {
		var out *LogoutCallbackInfo
		require.Equal(t, eos.Success, a.Logout(&LogoutOptions{LocalUserID: testEpicID}, nil,
			func(info *LogoutCallbackInfo) { out = info }))
		require.NoError(t, reg.Tick())
		require.NotNil(t, out)
		assert.Equal(t, eos.Success, out.ResultCode)
		assert.Equal(t, eos.NotLoggedIn, a.GetLoginStatus(testEpicID))
		require.Len(t, changes, 2)
		assert.Equal(t, eos.NotLoggedIn, changes[1].CurrentStatus)
	})

	t.Run("LogoutUnknownUser", func(t *testing.T) {
		var out *LogoutCallbackInfo
		a.Logout(&LogoutOptions{LocalUserID: "ffffffffffffffffffffffffffffffff"}, nil,
			func(info *LogoutCallbackInfo) { out = info })
		require.NoError(t, reg.Tick())
		require.NotNil(t, out)
		assert.Equal(t, eos.NotFound, out.ResultCode)
	})
}

func TestLoginDelayAndTimeout(t *testing.T) {
	t.Run("Delay", func(t *testing.T) {
		s := newTestSettings()
		s.Auth.LoginDelay = time.Second
		a, reg, mock := newFixture(t, s)

		var got *LoginCallbackInfo
		a.Login(&LoginOptions{}, nil, func(info *LoginCallbackInfo) { got = info })
		require.NoError(t, reg.Tick())
		assert.Nil(t, got)

		mock.Add(time.Second)
		require.NoError(t, reg.Tick())
		require.NotNil(t, got)
		assert.Equal(t, eos.Success, got.ResultCode)
	})

	t.Run("Timeout", func(t *testing.T) {
		s := newTestSettings()
		s.Auth.LoginDelay = time.Minute
		a, reg, mock := newFixture(t, s)

		var got *LoginCallbackInfo
		a.Login(&LoginOptions{}, nil, func(info *LoginCallbackInfo) { got = info })
		mock.Add(9 * time.Second)
		require.NoError(t, reg.Tick())
		assert.Nil(t, got)

		mock.Add(time.Second)
		require.NoError(t, reg.Tick())
		require.NotNil(t, got)
		assert.Equal(t, eos.TimedOut, got.ResultCode)
		assert.Equal(t, eos.NotLoggedIn, a.GetLoginStatus(testEpicID))
	})
}

func TestInvalidParameters(t *testing.T) {
	a, reg, _ := newFixture(t, newTestSettings())

	assert.Equal(t, eos.InvalidParameters, a.Login(&LoginOptions{}, nil, nil))
	assert.Equal(t, eos.InvalidParameters, a.Login(nil, nil, func(*LoginCallbackInfo) {}))
	assert.Equal(t, eos.InvalidParameters, a.Logout(nil, nil, func(*LogoutCallbackInfo) {}))
	assert.Equal(t, eos.InvalidParameters,
		a.DeletePersistentAuth(&DeletePersistentAuthOptions{}, nil, func(*DeletePersistentAuthCallbackInfo) {}))
	assert.Equal(t, eos.InvalidParameters,
		a.VerifyUserAuth(&VerifyUserAuthOptions{}, nil, func(*VerifyUserAuthCallbackInfo) {}))
	assert.Equal(t, eos.InvalidNotificationID, a.AddNotifyLoginStatusChanged(nil, nil))

	reg.Lock()
	assert.Zero(t, reg.Pending(), "rejected calls never create a result")
	reg.Unlock()

	require.NoError(t, reg.Tick())
	assert.Equal(t, eos.NotLoggedIn, a.GetLoginStatus(testEpicID))
}

func TestPseudoAsyncCalls(t *testing.T) {
	a, reg, _ := newFixture(t, newTestSettings())

	var codes []eos.Result
	a.LinkAccount(&LinkAccountOptions{LocalUserID: testEpicID}, nil,
		func(info *LinkAccountCallbackInfo) { codes = append(codes, info.ResultCode) })
	a.DeletePersistentAuth(&DeletePersistentAuthOptions{RefreshToken: refreshToken}, nil,
		func(info *DeletePersistentAuthCallbackInfo) { codes = append(codes, info.ResultCode) })
	a.VerifyUserAuth(&VerifyUserAuthOptions{AuthToken: &Token{}}, nil,
		func(info *VerifyUserAuthCallbackInfo) { codes = append(codes, info.ResultCode) })

	require.NoError(t, reg.Tick())
	assert.Equal(t, []eos.Result{eos.UnexpectedError, eos.Success, eos.Success}, codes)
}

func TestCopyUserAuthToken(t *testing.T) {
	a, _, mock := newFixture(t, newTestSettings())
	mock.Add(24 * time.Hour)

	tok, res := a.CopyUserAuthToken(&CopyUserAuthTokenOptions{APIVersion: CopyUserAuthTokenAPILatest}, testEpicID)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, accessToken, tok.AccessToken)
	assert.Equal(t, refreshToken, tok.RefreshToken)
	assert.Equal(t, "Unreal", tok.App)
	assert.Equal(t, "xyza7891", tok.ClientID)
	assert.Equal(t, TokenUser, tok.AuthType)
	assert.Equal(t, float64(expiresIn), tok.ExpiresIn)

	at, err := time.Parse(tokenTimeLayout, tok.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, mock.Now().Add(expiresIn*time.Second).Truncate(time.Second).Equal(at))

	_, res = a.CopyUserAuthToken(&CopyUserAuthTokenOptions{APIVersion: CopyUserAuthTokenAPILatest + 1}, testEpicID)
	assert.Equal(t, eos.VersionMismatch, res)

	_, res = a.CopyUserAuthToken(&CopyUserAuthTokenOptions{}, "ffffffffffffffffffffffffffffffff")
	assert.Equal(t, eos.NotFound, res)

	_, res = a.CopyUserAuthToken(nil, testEpicID)
	assert.Equal(t, eos.InvalidParameters, res)
}

func TestReleaseDropsPending(t *testing.T) {
	s := newTestSettings()
	s.Auth.LoginDelay = time.Second
	a, reg, mock := newFixture(t, s)

	fired := false
	a.Login(&LoginOptions{}, nil, func(*LoginCallbackInfo) { fired = true })
	a.AddNotifyLoginStatusChanged(nil, func(*LoginStatusChangedCallbackInfo) { fired = true })
	a.Release()

	mock.Add(time.Second)
	require.NoError(t, reg.Tick())
	assert.False(t, fired)

	reg.Lock()
	assert.False(t, reg.Registered(a))
	assert.Empty(t, reg.Subscriptions(a, eos.AuthLoginStatusChangedCallback))
	reg.Unlock()
}

func TestNotificationRemoved(t *testing.T) {
	a, reg, _ := newFixture(t, newTestSettings())

	fired := 0
	nid := a.AddNotifyLoginStatusChanged(nil, func(*LoginStatusChangedCallbackInfo) { fired++ })
	a.Login(&LoginOptions{}, nil, func(*LoginCallbackInfo) {})
	require.NoError(t, reg.Tick())

	a.RemoveNotifyLoginStatusChanged(nid)
	require.NoError(t, reg.Tick())
	assert.Zero(t, fired, "queued copies go with the subscription")
}

func TestReloadChangesIdentity(t *testing.T) {
	pub := event.NewPublisher()
	require.NoError(t, pub.NewTopic(event.ReloadConfig, time.Second))
	require.NoError(t, pub.NewTopic(event.LoginStatusChanged, time.Second))
	var observed []eos.LoginStatus
	var mu sync.Mutex
	require.NoError(t, pub.RegisterSubscriber(event.LoginStatusChanged, func(v any) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, v.(LoginStatusChangedCallbackInfo).CurrentStatus)
	}))

	s := newTestSettings()
	reg := callback.NewRegistry(clock.NewMock())
	a, err := New(services.Env{Registry: reg, Settings: services.Static(s), Events: pub})
	require.NoError(t, err)
	defer a.Release()

	var changes []*LoginStatusChangedCallbackInfo
	a.AddNotifyLoginStatusChanged(nil, func(info *LoginStatusChangedCallbackInfo) { changes = append(changes, info) })
	a.Login(&LoginOptions{}, nil, func(*LoginCallbackInfo) {})
	require.NoError(t, reg.Tick())
	require.NoError(t, reg.Tick())
	require.Len(t, changes, 1)

	reloaded := s.Clone()
	reloaded.EpicID = "fedcba9876543210fedcba9876543210"
	require.NoError(t, pub.Publish(event.ReloadConfig, reloaded))
	require.NoError(t, reg.Tick())

	require.Len(t, changes, 2)
	assert.Equal(t, testEpicID, changes[1].LocalUserID)
	assert.Equal(t, eos.NotLoggedIn, changes[1].CurrentStatus)
	assert.Equal(t, eos.NotLoggedIn, a.GetLoginStatus(testEpicID))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(observed) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []eos.LoginStatus{eos.LoggedIn, eos.NotLoggedIn}, observed)
}

func TestStatusEventDoesNotStallTick(t *testing.T) {
	pub := event.NewPublisher()
	require.NoError(t, pub.NewTopic(event.LoginStatusChanged, time.Second))

	reg := callback.NewRegistry(clock.NewMock())
	a, err := New(services.Env{Registry: reg, Settings: services.Static(newTestSettings()), Events: pub})
	require.NoError(t, err)
	defer a.Release()

	counts := make(chan int, 1)
	require.NoError(t, pub.RegisterSubscriber(event.LoginStatusChanged, func(any) {
		counts <- a.GetLoggedInAccountsCount()
	}))

	require.Equal(t, eos.Success, a.Login(&LoginOptions{}, nil, func(*LoginCallbackInfo) {}))
	start := time.Now()
	require.NoError(t, reg.Tick())
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	select {
	case n := <-counts:
		assert.Equal(t, 1, n, "the subscriber sees the finished login")
	case <-time.After(time.Second):
		t.Fatal("subscriber never ran")
	}
}
