package userinfo

import (
	"testing"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/settings"
)

const testProduct = "9f8e7d6c"

type peer struct {
	reg  *callback.Registry
	ui   *UserInfo
	epic eos.EpicAccountID
}

func newPeer(t *testing.T, mock *clock.Mock, hub *network.Hub, epic eos.EpicAccountID, name string) *peer {
	t.Helper()
	s := &settings.Settings{EpicID: epic, Username: name, Language: "french"}
	reg := callback.NewRegistry(mock)
	env := services.Env{Registry: reg, Settings: services.Static(s), ProductID: testProduct}

	if hub != nil {
		ep, err := hub.Connect(string(env.ProductUserID()), nil)
		require.NoError(t, err)
		t.Cleanup(ep.Close)
		reg.Lock()
		reg.Register(ep)
		reg.Unlock()
		env.Endpoint = ep
	}

	u, err := New(env)
	require.NoError(t, err)
	t.Cleanup(u.Release)
	return &peer{reg: reg, ui: u, epic: epic}
}

type pair struct {
	a, b *peer
	mock *clock.Mock
}

func newPair(t *testing.T) *pair {
	mock := clock.NewMock()
	hub := network.NewHub(mock)
	return &pair{
		a:    newPeer(t, mock, hub, "0123456789abcdef0123456789abcdef", "Alice"),
		b:    newPeer(t, mock, hub, "fedcba9876543210fedcba9876543210", "Bob"),
		mock: mock,
	}
}

func (p *pair) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, p.a.reg.Tick())
		require.NoError(t, p.b.reg.Tick())
	}
}

func query(t *testing.T, from *peer, target eos.EpicAccountID) *[]*QueryUserInfoCallbackInfo {
	t.Helper()
	got := &[]*QueryUserInfoCallbackInfo{}
	res := from.ui.QueryUserInfo(&QueryUserInfoOptions{LocalUserID: from.epic, TargetUserID: target}, "cd",
		func(info *QueryUserInfoCallbackInfo) { *got = append(*got, info) })
	require.Equal(t, eos.Success, res)
	return got
}

func TestQuerySelf(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef", "Alice")

	got := query(t, a, a.epic)
	require.NoError(t, a.reg.Tick())
	require.Len(t, *got, 1)
	assert.Equal(t, eos.Success, (*got)[0].ResultCode)
	assert.Equal(t, "cd", (*got)[0].ClientData)

	info, res := a.ui.CopyUserInfo(&CopyUserInfoOptions{LocalUserID: a.epic, TargetUserID: a.epic})
	require.Equal(t, eos.Success, res)
	assert.Equal(t, "Alice", info.DisplayName, "display name is the configured username")
	assert.Equal(t, "Alice", info.Nickname)
	assert.Equal(t, "french", info.PreferredLanguage)
	assert.Empty(t, info.Country)

	assert.Zero(t, a.ui.GetExternalUserInfoCount(a.epic, a.epic))
	assert.Equal(t, eos.NotFound, a.ui.CopyExternalUserInfoByIndex(a.epic, a.epic, 0))
}

func TestQueryPeer(t *testing.T) {
	p := newPair(t)

	_, res := p.a.ui.CopyUserInfo(&CopyUserInfoOptions{LocalUserID: p.a.epic, TargetUserID: p.b.epic})
	assert.Equal(t, eos.NotFound, res, "not cached before the query")

	got := query(t, p.a, p.b.epic)
	p.tick(t, 2)
	require.Len(t, *got, 1)
	assert.Equal(t, eos.Success, (*got)[0].ResultCode)
	assert.Equal(t, p.b.epic, (*got)[0].TargetUserID)

	info, res := p.a.ui.CopyUserInfo(&CopyUserInfoOptions{LocalUserID: p.a.epic, TargetUserID: p.b.epic})
	require.Equal(t, eos.Success, res)
	assert.Equal(t, "Bob", info.DisplayName)
	assert.Equal(t, p.b.epic, info.UserID)

	p.a.reg.Lock()
	assert.Zero(t, p.a.ui.queries.Len())
	p.a.reg.Unlock()
}

func TestQueryUnknownAndTimeout(t *testing.T) {
	p := newPair(t)

	got := query(t, p.a, "00000000000000000000000000000001")
	p.tick(t, 1)
	require.Len(t, *got, 1)
	assert.Equal(t, eos.NotFound, (*got)[0].ResultCode, "nobody on the hub")

	p.b.ui.Release()
	got = query(t, p.a, p.b.epic)
	p.tick(t, 3)
	assert.Empty(t, *got, "waits for an answer")

	p.mock.Add(QueryTimeout)
	p.tick(t, 1)
	require.Len(t, *got, 1)
	assert.Equal(t, eos.TimedOut, (*got)[0].ResultCode)

	p.a.reg.Lock()
	assert.Zero(t, p.a.ui.queries.Len())
	p.a.reg.Unlock()
}

func TestUserInfoInvalidParameters(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef", "Alice")

	assert.Equal(t, eos.InvalidParameters, a.ui.QueryUserInfo(nil, nil, func(*QueryUserInfoCallbackInfo) {}))
	assert.Equal(t, eos.InvalidParameters, a.ui.QueryUserInfo(&QueryUserInfoOptions{}, nil, nil))

	got := query(t, a, "")
	require.NoError(t, a.reg.Tick())
	require.Len(t, *got, 1)
	assert.Equal(t, eos.InvalidParameters, (*got)[0].ResultCode)

	_, res := a.ui.CopyUserInfo(nil)
	assert.Equal(t, eos.InvalidParameters, res)
	_, res = a.ui.CopyUserInfo(&CopyUserInfoOptions{TargetUserID: "bad"})
	assert.Equal(t, eos.InvalidParameters, res)
}
