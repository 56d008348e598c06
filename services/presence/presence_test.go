package presence

import (
	"strings"
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
	p    *Presence
	epic eos.EpicAccountID
}

func newPeer(t *testing.T, mock *clock.Mock, hub *network.Hub, epic eos.EpicAccountID) *peer {
	t.Helper()
	s := &settings.Settings{EpicID: epic, GameName: "Unreal"}
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

	p, err := New(env)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return &peer{reg: reg, p: p, epic: epic}
}

type pair struct {
	a, b *peer
	mock *clock.Mock
}

func newPair(t *testing.T) *pair {
	mock := clock.NewMock()
	hub := network.NewHub(mock)
	return &pair{
		a:    newPeer(t, mock, hub, "0123456789abcdef0123456789abcdef"),
		b:    newPeer(t, mock, hub, "fedcba9876543210fedcba9876543210"),
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

func setPresence(t *testing.T, p *peer, edit func(m *Modification)) eos.Result {
	t.Helper()
	m, res := p.p.CreatePresenceModification(&CreatePresenceModificationOptions{LocalUserID: p.epic})
	require.Equal(t, eos.Success, res)
	edit(m)

	code := eos.UnexpectedError
	require.Equal(t, eos.Success, p.p.SetPresence(&SetPresenceOptions{LocalUserID: p.epic, PresenceModificationHandle: m}, nil,
		func(info *SetPresenceCallbackInfo) { code = info.ResultCode }))
	require.NoError(t, p.reg.Tick())
	return code
}

func TestLocalPresence(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef")
	self := &CopyPresenceOptions{LocalUserID: a.epic, TargetUserID: a.epic}

	assert.True(t, a.p.HasPresence(self))
	info, res := a.p.CopyPresence(self)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, Online, info.Status)
	assert.Equal(t, "Unreal", info.ProductName)
	assert.Equal(t, testProduct, info.ProductID)
	assert.Equal(t, Platform, info.Platform)

	require.Equal(t, eos.Success, setPresence(t, a, func(m *Modification) {
		assert.Equal(t, eos.Success, m.SetStatus(Away))
		assert.Equal(t, eos.Success, m.SetRawRichText("In lobby"))
		assert.Equal(t, eos.Success, m.SetData([]DataRecord{{Key: "map", Value: "dust"}, {Key: "mode", Value: "ctf"}}))
		assert.Equal(t, eos.Success, m.DeleteData([]string{"mode", "missing"}))
		assert.Equal(t, eos.Success, m.SetJoinInfo("lobby=42"))
	}))

	info, res = a.p.CopyPresence(self)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, Away, info.Status)
	assert.Equal(t, "In lobby", info.RichText)
	assert.Equal(t, []DataRecord{{Key: "map", Value: "dust"}}, info.Records)

	buf := make([]byte, 4)
	n, res := a.p.GetJoinInfo(&GetJoinInfoOptions{LocalUserID: a.epic, TargetUserID: a.epic}, buf)
	assert.Equal(t, eos.LimitExceeded, res)
	assert.Equal(t, len("lobby=42"), n)
	buf = make([]byte, 64)
	n, res = a.p.GetJoinInfo(&GetJoinInfoOptions{LocalUserID: a.epic, TargetUserID: a.epic}, buf)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, "lobby=42", string(buf[:n]))

	info.Records[0].Value = "changed"
	again, _ := a.p.CopyPresence(self)
	assert.Equal(t, "dust", again.Records[0].Value, "copies do not alias")
}

func TestModificationLimits(t *testing.T) {
	m := newModification(&Info{Status: Online})

	assert.Equal(t, eos.InvalidParameters, m.SetStatus(Status(9)))
	assert.Equal(t, eos.PresenceRichTextLengthInvalid, m.SetRawRichText(strings.Repeat("x", RichTextMaxLength+1)))
	assert.Equal(t, eos.PresenceDataKeyLengthInvalid, m.SetData([]DataRecord{{Key: strings.Repeat("k", DataMaxKeyLength+1)}}))
	assert.Equal(t, eos.PresenceDataKeyLengthInvalid, m.SetData([]DataRecord{{Key: ""}}))
	assert.Equal(t, eos.PresenceDataValueLengthInvalid, m.SetData([]DataRecord{{Key: "k", Value: strings.Repeat("v", DataMaxValueLength+1)}}))
	assert.Equal(t, eos.LimitExceeded, m.SetJoinInfo(strings.Repeat("j", JoinInfoMaxLength+1)))

	records := make([]DataRecord, DataMaxKeys)
	for i := range records {
		records[i] = DataRecord{Key: strings.Repeat("k", i+1)}
	}
	require.Equal(t, eos.Success, m.SetData(records))
	assert.Equal(t, eos.LimitExceeded, m.SetData([]DataRecord{{Key: "extra"}}))
	assert.Equal(t, eos.Success, m.SetData([]DataRecord{{Key: "k", Value: "replaced"}}), "replacing does not add a key")
}

func TestSetPresenceRejected(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef")
	other := eos.EpicAccountID("fedcba9876543210fedcba9876543210")

	_, res := a.p.CreatePresenceModification(&CreatePresenceModificationOptions{LocalUserID: other})
	assert.Equal(t, eos.InvalidUser, res)

	m, res := a.p.CreatePresenceModification(&CreatePresenceModificationOptions{LocalUserID: a.epic})
	require.Equal(t, eos.Success, res)

	var codes []eos.Result
	collect := func(info *SetPresenceCallbackInfo) { codes = append(codes, info.ResultCode) }
	require.Equal(t, eos.Success, a.p.SetPresence(&SetPresenceOptions{LocalUserID: a.epic}, nil, collect))
	require.Equal(t, eos.Success, a.p.SetPresence(&SetPresenceOptions{LocalUserID: other, PresenceModificationHandle: m}, nil, collect))
	require.NoError(t, a.reg.Tick())
	assert.Equal(t, []eos.Result{eos.InvalidParameters, eos.MissingPermissions}, codes)

	assert.Equal(t, eos.InvalidParameters, a.p.SetPresence(nil, nil, collect))
	assert.Equal(t, eos.InvalidParameters, a.p.QueryPresence(&QueryPresenceOptions{}, nil, nil))
	assert.Equal(t, eos.InvalidNotificationID, a.p.AddNotifyOnPresenceChanged(nil, nil))
	assert.False(t, a.p.HasPresence(&HasPresenceOptions{LocalUserID: a.epic, TargetUserID: other}))
	_, res = a.p.GetJoinInfo(&GetJoinInfoOptions{LocalUserID: a.epic, TargetUserID: a.epic}, nil)
	assert.Equal(t, eos.NotFound, res, "no join info set")
}

func TestQueryAndPushPresence(t *testing.T) {
	p := newPair(t)

	var changed []*PresenceChangedCallbackInfo
	nid := p.a.p.AddNotifyOnPresenceChanged("c", func(info *PresenceChangedCallbackInfo) { changed = append(changed, info) })
	require.NotEqual(t, eos.InvalidNotificationID, nid)

	var queried []*QueryPresenceCallbackInfo
	require.Equal(t, eos.Success, p.a.p.QueryPresence(&QueryPresenceOptions{LocalUserID: p.a.epic, TargetUserID: p.b.epic}, nil,
		func(info *QueryPresenceCallbackInfo) { queried = append(queried, info) }))
	p.tick(t, 2)

	require.Len(t, queried, 1)
	assert.Equal(t, eos.Success, queried[0].ResultCode)
	require.Len(t, changed, 1, "first sight of b is a change")
	assert.Equal(t, p.b.epic, changed[0].PresenceUserID)
	assert.Equal(t, "c", changed[0].ClientData)

	target := &CopyPresenceOptions{LocalUserID: p.a.epic, TargetUserID: p.b.epic}
	info, res := p.a.p.CopyPresence(target)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, Online, info.Status)

	require.Equal(t, eos.Success, setPresence(t, p.b, func(m *Modification) {
		m.SetStatus(DoNotDisturb)
		m.SetData([]DataRecord{{Key: "map", Value: "dust"}})
	}))
	p.tick(t, 1)
	require.Len(t, changed, 2)

	info, res = p.a.p.CopyPresence(target)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, DoNotDisturb, info.Status)
	assert.Equal(t, []DataRecord{{Key: "map", Value: "dust"}}, info.Records)

	require.Equal(t, eos.Success, setPresence(t, p.b, func(*Modification) {}))
	p.tick(t, 1)
	assert.Len(t, changed, 2, "an identical presence is not a change")

	p.a.p.RemoveNotifyOnPresenceChanged(nid)
	p.a.reg.Lock()
	assert.Empty(t, p.a.reg.Subscriptions(p.a.p, eos.PresenceChangedCallback))
	p.a.reg.Unlock()
}

func TestQueryPresenceTimeout(t *testing.T) {
	p := newPair(t)
	p.b.p.Release()

	var got []eos.Result
	require.Equal(t, eos.Success, p.a.p.QueryPresence(&QueryPresenceOptions{LocalUserID: p.a.epic, TargetUserID: p.b.epic}, nil,
		func(info *QueryPresenceCallbackInfo) { got = append(got, info.ResultCode) }))
	p.tick(t, 2)
	assert.Empty(t, got)

	p.mock.Add(QueryTimeout)
	p.tick(t, 1)
	assert.Equal(t, []eos.Result{eos.TimedOut}, got)

	require.Equal(t, eos.Success, p.a.p.QueryPresence(&QueryPresenceOptions{LocalUserID: p.a.epic, TargetUserID: "00000000000000000000000000000001"}, nil,
		func(info *QueryPresenceCallbackInfo) { got = append(got, info.ResultCode) }))
	p.tick(t, 1)
	assert.Equal(t, []eos.Result{eos.TimedOut, eos.NotFound}, got)
}

func TestJoinGameAcceptedSubscription(t *testing.T) {
	a := newPeer(t, clock.NewMock(), nil, "0123456789abcdef0123456789abcdef")

	nid := a.p.AddNotifyJoinGameAccepted(nil, func(*JoinGameAcceptedCallbackInfo) {})
	require.NotEqual(t, eos.InvalidNotificationID, nid)
	a.reg.Lock()
	assert.Len(t, a.reg.Subscriptions(a.p, eos.PresenceJoinGameAcceptedCallback), 1)
	a.reg.Unlock()

	a.p.RemoveNotifyJoinGameAccepted(nid)
	a.reg.Lock()
	assert.Empty(t, a.reg.Subscriptions(a.p, eos.PresenceJoinGameAcceptedCallback))
	a.reg.Unlock()
}
