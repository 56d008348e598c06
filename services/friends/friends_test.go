package friends

import (
	"testing"
	"time"

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
	f    *Friends
	epic eos.EpicAccountID
}

func newPeer(t *testing.T, mock *clock.Mock, hub *network.Hub, epic eos.EpicAccountID, name string) *peer {
	t.Helper()
	s := &settings.Settings{EpicID: epic, Username: name}
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

	f, err := New(env)
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return &peer{reg: reg, f: f, epic: epic}
}

func queryFriends(t *testing.T, p *peer) *QueryFriendsCallbackInfo {
	t.Helper()
	var got *QueryFriendsCallbackInfo
	require.Equal(t, eos.Success, p.f.QueryFriends(&QueryFriendsOptions{LocalUserID: p.epic}, "cd",
		func(info *QueryFriendsCallbackInfo) { got = info }))
	require.NoError(t, p.reg.Tick())
	require.NotNil(t, got)
	return got
}

func TestQueryFriendsAlone(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef", "Alice")

	got := queryFriends(t, a)
	assert.Equal(t, eos.Success, got.ResultCode)
	assert.Equal(t, "cd", got.ClientData)
	assert.Equal(t, a.epic, got.LocalUserID)

	assert.Zero(t, a.f.GetFriendsCount(a.epic))
	assert.Empty(t, a.f.GetFriendAtIndex(a.epic, 0))
	assert.Equal(t, NotFriends, a.f.GetStatus(a.epic, "fedcba9876543210fedcba9876543210"))
}

func TestFriendsOnlineAndOffline(t *testing.T) {
	mock := clock.NewMock()
	hub := network.NewHub(mock)
	a := newPeer(t, mock, hub, "0123456789abcdef0123456789abcdef", "Alice")
	b := newPeer(t, mock, hub, "fedcba9876543210fedcba9876543210", "Bob")

	var updates []*FriendsUpdateInfo
	nid := a.f.AddNotifyFriendsUpdate("u", func(info *FriendsUpdateInfo) { updates = append(updates, info) })
	require.NotEqual(t, eos.InvalidNotificationID, nid)

	tick := func(n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, a.reg.Tick())
			require.NoError(t, b.reg.Tick())
		}
	}
	tick(2)

	require.Len(t, updates, 1)
	assert.Equal(t, b.epic, updates[0].TargetUserID)
	assert.Equal(t, a.epic, updates[0].LocalUserID)
	assert.Equal(t, NotFriends, updates[0].PreviousStatus)
	assert.Equal(t, StatusFriends, updates[0].CurrentStatus)
	assert.Equal(t, "u", updates[0].ClientData)

	assert.Equal(t, StatusFriends, a.f.GetStatus(a.epic, b.epic))
	assert.Zero(t, a.f.GetFriendsCount(a.epic), "nothing listed before QueryFriends")
	queryFriends(t, a)
	require.Equal(t, 1, a.f.GetFriendsCount(a.epic))
	assert.Equal(t, b.epic, a.f.GetFriendAtIndex(a.epic, 0))
	name, ok := a.f.DisplayName(b.epic)
	require.True(t, ok)
	assert.Equal(t, "Bob", name)

	mock.Add(HeartbeatRate)
	tick(2)
	assert.Len(t, updates, 1, "heartbeats from an online friend change nothing")

	b.f.Release()
	mock.Add(FriendTimeout + time.Second)
	tick(1)
	require.Len(t, updates, 2)
	assert.Equal(t, StatusFriends, updates[1].PreviousStatus)
	assert.Equal(t, NotFriends, updates[1].CurrentStatus)
	assert.Equal(t, NotFriends, a.f.GetStatus(a.epic, b.epic))
	assert.Equal(t, 1, a.f.GetFriendsCount(a.epic), "snapshot kept until the next query")
	assert.Equal(t, eos.Success, queryFriends(t, a).ResultCode)
	assert.Zero(t, a.f.GetFriendsCount(a.epic))

	a.f.RemoveNotifyFriendsUpdate(nid)
	a.reg.Lock()
	assert.Empty(t, a.reg.Subscriptions(a.f, eos.FriendsUpdateCallback))
	a.reg.Unlock()
}

func TestInvitesNotImplemented(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef", "Alice")
	opts := &InviteOptions{LocalUserID: a.epic, TargetUserID: "fedcba9876543210fedcba9876543210"}

	var codes []eos.Result
	require.Equal(t, eos.Success, a.f.SendInvite(opts, nil, func(info *SendInviteCallbackInfo) { codes = append(codes, info.ResultCode) }))
	require.Equal(t, eos.Success, a.f.AcceptInvite(opts, nil, func(info *AcceptInviteCallbackInfo) { codes = append(codes, info.ResultCode) }))
	require.Equal(t, eos.Success, a.f.RejectInvite(opts, nil, func(info *RejectInviteCallbackInfo) { codes = append(codes, info.ResultCode) }))
	require.NoError(t, a.reg.Tick())
	assert.Equal(t, []eos.Result{eos.NotImplemented, eos.NotImplemented, eos.NotImplemented}, codes)

	assert.Equal(t, eos.InvalidParameters, a.f.QueryFriends(nil, nil, func(*QueryFriendsCallbackInfo) {}))
	assert.Equal(t, eos.InvalidParameters, a.f.SendInvite(opts, nil, nil))
	assert.Equal(t, eos.InvalidNotificationID, a.f.AddNotifyFriendsUpdate(nil, nil))
}
