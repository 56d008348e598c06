// Package friends emulates the friends list interface. Every other instance
// on the hub is a friend while it keeps sending heartbeats; invitations are
// not supported.
package friends

import (
	"slices"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/services"
)

const Name = "friends"

// HeartbeatChannel carries the friend heartbeats.
const HeartbeatChannel = "friends.heartbeat"

const (
	// HeartbeatRate is how often an instance tells its friends it is online.
	HeartbeatRate = 5 * time.Second

	// FriendTimeout takes a friend offline once its heartbeats stop.
	FriendTimeout = 3 * HeartbeatRate
)

type friend struct {
	name     string
	online   bool
	lastSeen time.Time
}

// Friends is the EOS_HFriends object.
type Friends struct {
	services.Base

	lastBeat time.Time
	known    map[eos.EpicAccountID]*friend

	// list is the snapshot the last QueryFriends took.
	list []eos.EpicAccountID
}

var (
	_ callback.CallbackRunner = (*Friends)(nil)
	_ callback.FrameRunner    = (*Friends)(nil)
	_ network.Listener        = (*Friends)(nil)
)

func New(env services.Env) (*Friends, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	f := &Friends{
		Base:  services.NewBase(Name, env),
		known: make(map[eos.EpicAccountID]*friend),
	}
	f.Attach(f)
	if env.Endpoint != nil {
		env.Endpoint.Subscribe(HeartbeatChannel, f)
	}
	return f, nil
}

func (f *Friends) Release() {
	if f.Endpoint != nil {
		f.Endpoint.Unsubscribe(HeartbeatChannel, f)
	}
	f.Detach(f)
}

// QueryFriends snapshots the friends that are online right now.
func (f *Friends) QueryFriends(opts *QueryFriendsOptions, clientData any, fn OnQueryFriendsCallback) eos.Result {
	f.Trace("QueryFriends")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	f.Reg().Lock()
	defer f.Reg().Unlock()

	f.list = f.list[:0]
	for id, fr := range f.known {
		if fr.online {
			f.list = append(f.list, id)
		}
	}
	slices.Sort(f.list)
	log.Debug().Int("friends", len(f.list)).Msg("friends queried")

	services.Complete(f, f.Reg(), &QueryFriendsCallbackInfo{
		ResultCode:  eos.Success,
		ClientData:  clientData,
		LocalUserID: opts.LocalUserID,
	}, fn)
	return eos.Success
}

func (f *Friends) SendInvite(opts *InviteOptions, clientData any, fn OnSendInviteCallback) eos.Result {
	f.Trace("SendInvite")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	f.Reg().Lock()
	defer f.Reg().Unlock()

	services.Complete(f, f.Reg(), &SendInviteCallbackInfo{
		ResultCode:   eos.NotImplemented,
		ClientData:   clientData,
		LocalUserID:  opts.LocalUserID,
		TargetUserID: opts.TargetUserID,
	}, fn)
	return eos.Success
}

func (f *Friends) AcceptInvite(opts *InviteOptions, clientData any, fn OnAcceptInviteCallback) eos.Result {
	f.Trace("AcceptInvite")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	f.Reg().Lock()
	defer f.Reg().Unlock()

	services.Complete(f, f.Reg(), &AcceptInviteCallbackInfo{
		ResultCode:   eos.NotImplemented,
		ClientData:   clientData,
		LocalUserID:  opts.LocalUserID,
		TargetUserID: opts.TargetUserID,
	}, fn)
	return eos.Success
}

func (f *Friends) RejectInvite(opts *InviteOptions, clientData any, fn OnRejectInviteCallback) eos.Result {
	f.Trace("RejectInvite")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	f.Reg().Lock()
	defer f.Reg().Unlock()

	services.Complete(f, f.Reg(), &RejectInviteCallbackInfo{
		ResultCode:   eos.NotImplemented,
		ClientData:   clientData,
		LocalUserID:  opts.LocalUserID,
		TargetUserID: opts.TargetUserID,
	}, fn)
	return eos.Success
}

// GetFriendsCount returns the size of the last QueryFriends snapshot.
func (f *Friends) GetFriendsCount(localUserID eos.EpicAccountID) int {
	f.Trace("GetFriendsCount")
	f.Reg().Lock()
	defer f.Reg().Unlock()

	return len(f.list)
}

// GetFriendAtIndex returns an entry of the snapshot, "" when out of range.
func (f *Friends) GetFriendAtIndex(localUserID eos.EpicAccountID, index int) eos.EpicAccountID {
	f.Trace("GetFriendAtIndex")
	f.Reg().Lock()
	defer f.Reg().Unlock()

	if index < 0 || index >= len(f.list) {
		return ""
	}
	return f.list[index]
}

// GetStatus reports Friends for accounts currently online.
func (f *Friends) GetStatus(localUserID, targetUserID eos.EpicAccountID) Status {
	f.Trace("GetStatus")
	f.Reg().Lock()
	defer f.Reg().Unlock()

	if fr, ok := f.known[targetUserID]; ok && fr.online {
		return StatusFriends
	}
	return NotFriends
}

// DisplayName returns the username a friend announced.
func (f *Friends) DisplayName(id eos.EpicAccountID) (string, bool) {
	f.Reg().Lock()
	defer f.Reg().Unlock()

	fr, ok := f.known[id]
	if !ok {
		return "", false
	}
	return fr.name, true
}

func (f *Friends) AddNotifyFriendsUpdate(clientData any, fn OnFriendsUpdateCallback) eos.NotificationID {
	f.Trace("AddNotifyFriendsUpdate")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	f.Reg().Lock()
	defer f.Reg().Unlock()

	info := &FriendsUpdateInfo{ClientData: clientData, LocalUserID: f.EpicID()}
	return f.Reg().AddNotification(f, callback.NewResult(info, callback.Typed(fn)))
}

func (f *Friends) RemoveNotifyFriendsUpdate(id eos.NotificationID) {
	f.Trace("RemoveNotifyFriendsUpdate")
	f.Reg().Lock()
	defer f.Reg().Unlock()

	f.Reg().RemoveNotification(f, id)
}

// notify must be called with the global lock held.
func (f *Friends) notify(id eos.EpicAccountID, prev, cur Status) {
	n := f.Reg().Broadcast(f, eos.FriendsUpdateCallback, func(t *callback.Result) callback.Payload {
		cp := *callback.PayloadAs[*FriendsUpdateInfo](t)
		cp.LocalUserID = f.EpicID()
		cp.TargetUserID = id
		cp.PreviousStatus = prev
		cp.CurrentStatus = cur
		return &cp
	})
	log.Debug().Str("epicid", string(id)).Str("status", cur.String()).Int("subscribers", n).Msg("friend status changed")
}

// RunFrame sends the heartbeat and takes silent friends offline.
func (f *Friends) RunFrame() bool {
	now := f.Now()
	if f.Endpoint != nil && (f.lastBeat.IsZero() || now.Sub(f.lastBeat) >= HeartbeatRate) {
		f.sendHeartbeat()
		f.lastBeat = now
	}
	for id, fr := range f.known {
		if fr.online && now.Sub(fr.lastSeen) > FriendTimeout {
			fr.online = false
			f.notify(id, StatusFriends, NotFriends)
		}
	}
	return true
}

func (f *Friends) sendHeartbeat() {
	s := f.Settings.Current()
	body, err := structpb.NewStruct(map[string]any{
		"epicid":   string(s.EpicID),
		"username": s.Username,
	})
	if err != nil {
		log.Error().Err(err).Msg("build friend heartbeat")
		return
	}
	if err := f.Endpoint.Broadcast(HeartbeatChannel, body); err != nil {
		log.Warn().Err(err).Msg("send friend heartbeat")
	}
}

// RunNetwork brings the sender of a heartbeat online.
func (f *Friends) RunNetwork(msg *network.Message) bool {
	body := &structpb.Struct{}
	if err := msg.Decode(body); err != nil {
		log.Warn().Err(err).Str("from", msg.From).Msg("bad friend heartbeat")
		return false
	}
	id := eos.EpicAccountID(body.GetFields()["epicid"].GetStringValue())
	if !id.Valid() || id == f.EpicID() {
		return false
	}

	fr, ok := f.known[id]
	if !ok {
		fr = &friend{}
		f.known[id] = fr
	}
	fr.name = body.GetFields()["username"].GetStringValue()
	fr.lastSeen = f.Now()
	if !fr.online {
		fr.online = true
		f.notify(id, NotFriends, StatusFriends)
	}
	return true
}

func (f *Friends) RunCallbacks(res *callback.Result) bool {
	res.MarkDone()
	return true
}

func (f *Friends) FreeCallback(*callback.Result) {}
