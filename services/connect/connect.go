// Package connect emulates the product user login interface. The product
// user id is derived from the product id and the configured Epic account.
//
// Logged in instances announce themselves to the other endpoints on the hub
// with periodic heartbeats, which is how peers learn about each other.
package connect

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

const Name = "connect"

// HeartbeatChannel carries the presence heartbeats.
const HeartbeatChannel = "connect.heartbeat"

const (
	// HeartbeatRate is how often a logged in instance announces itself.
	HeartbeatRate = 5 * time.Second

	// PeerTimeout forgets peers that stopped sending heartbeats.
	PeerTimeout = 3 * HeartbeatRate
)

type peer struct {
	epicID   eos.EpicAccountID
	name     string
	lastSeen time.Time
}

// Connect is the EOS_HConnect object.
type Connect struct {
	services.Base

	connected bool
	lastBeat  time.Time
	peers     map[eos.ProductUserID]*peer
}

var (
	_ callback.CallbackRunner = (*Connect)(nil)
	_ callback.FrameRunner    = (*Connect)(nil)
	_ network.Listener        = (*Connect)(nil)
)

// New builds the interface and registers it.
func New(env services.Env) (*Connect, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	c := &Connect{
		Base:  services.NewBase(Name, env),
		peers: make(map[eos.ProductUserID]*peer),
	}
	c.Attach(c)
	if env.Endpoint != nil {
		env.Endpoint.Subscribe(HeartbeatChannel, c)
	}
	return c, nil
}

// Release unregisters the interface.
func (c *Connect) Release() {
	if c.Endpoint != nil {
		c.Endpoint.Unsubscribe(HeartbeatChannel, c)
	}
	c.Detach(c)
}

// Login logs the product user in. It always succeeds.
func (c *Connect) Login(opts *LoginOptions, clientData any, fn OnLoginCallback) eos.Result {
	c.Trace("Login")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	c.Reg().Lock()
	defer c.Reg().Unlock()

	id := c.ProductUserID()
	services.Complete(c, c.Reg(), &LoginCallbackInfo{ResultCode: eos.Success, ClientData: clientData, LocalUserID: id}, fn)
	if !c.connected {
		c.connected = true
		c.lastBeat = time.Time{}
		c.Reg().Broadcast(c, eos.ConnectLoginStatusChangedCallback, func(t *callback.Result) callback.Payload {
			cp := *callback.PayloadAs[*LoginStatusChangedCallbackInfo](t)
			cp.LocalUserID = id
			cp.PreviousStatus = eos.NotLoggedIn
			cp.CurrentStatus = eos.LoggedIn
			return &cp
		})
		log.Info().Str("puid", string(id)).Msg("product user logged in")
	}
	return eos.Success
}

// CreateUser reports that the user exists, since Login never asks for one.
func (c *Connect) CreateUser(opts *CreateUserOptions, clientData any, fn OnCreateUserCallback) eos.Result {
	c.Trace("CreateUser")
	if fn == nil {
		return eos.InvalidParameters
	}

	c.Reg().Lock()
	defer c.Reg().Unlock()

	info := &CreateUserCallbackInfo{ResultCode: eos.ConnectUserAlreadyExists, ClientData: clientData, LocalUserID: c.ProductUserID()}
	services.Complete(c, c.Reg(), info, fn)
	return eos.Success
}

// GetLoggedInUsersCount always reports the local user.
func (c *Connect) GetLoggedInUsersCount() int {
	c.Trace("GetLoggedInUsersCount")
	return 1
}

// GetLoggedInUserByIndex returns the local product user at index 0.
func (c *Connect) GetLoggedInUserByIndex(index int) eos.ProductUserID {
	c.Trace("GetLoggedInUserByIndex")
	if index != 0 {
		return ""
	}
	return c.ProductUserID()
}

// GetLoginStatus reports LoggedIn for the local user after Login.
func (c *Connect) GetLoginStatus(id eos.ProductUserID) eos.LoginStatus {
	c.Trace("GetLoginStatus")
	c.Reg().Lock()
	defer c.Reg().Unlock()

	if c.connected && id == c.ProductUserID() {
		return eos.LoggedIn
	}
	return eos.NotLoggedIn
}

func (c *Connect) AddNotifyLoginStatusChanged(clientData any, fn OnLoginStatusChangedCallback) eos.NotificationID {
	c.Trace("AddNotifyLoginStatusChanged")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	c.Reg().Lock()
	defer c.Reg().Unlock()

	info := &LoginStatusChangedCallbackInfo{ClientData: clientData, LocalUserID: c.ProductUserID()}
	return c.Reg().AddNotification(c, callback.NewResult(info, callback.Typed(fn)))
}

func (c *Connect) RemoveNotifyLoginStatusChanged(id eos.NotificationID) {
	c.Trace("RemoveNotifyLoginStatusChanged")
	c.Reg().Lock()
	defer c.Reg().Unlock()

	c.Reg().RemoveNotification(c, id)
}

func (c *Connect) AddNotifyAuthExpiration(clientData any, fn OnAuthExpirationCallback) eos.NotificationID {
	c.Trace("AddNotifyAuthExpiration")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	c.Reg().Lock()
	defer c.Reg().Unlock()

	info := &AuthExpirationCallbackInfo{ClientData: clientData, LocalUserID: c.ProductUserID()}
	return c.Reg().AddNotification(c, callback.NewResult(info, callback.Typed(fn)))
}

func (c *Connect) RemoveNotifyAuthExpiration(id eos.NotificationID) {
	c.Trace("RemoveNotifyAuthExpiration")
	c.Reg().Lock()
	defer c.Reg().Unlock()

	c.Reg().RemoveNotification(c, id)
}

// Peers returns the product users heard from recently, sorted.
func (c *Connect) Peers() []eos.ProductUserID {
	c.Reg().Lock()
	defer c.Reg().Unlock()

	ids := make([]eos.ProductUserID, 0, len(c.peers))
	for id := range c.peers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// PeerAccount returns the Epic account and display name a peer announced.
func (c *Connect) PeerAccount(id eos.ProductUserID) (eos.EpicAccountID, string, bool) {
	c.Reg().Lock()
	defer c.Reg().Unlock()

	p, ok := c.peers[id]
	if !ok {
		return "", "", false
	}
	return p.epicID, p.name, true
}

// RunFrame sends the heartbeat and expires silent peers.
func (c *Connect) RunFrame() bool {
	if !c.connected {
		return true
	}
	now := c.Now()
	if c.Endpoint != nil && (c.lastBeat.IsZero() || now.Sub(c.lastBeat) >= HeartbeatRate) {
		c.sendHeartbeat()
		c.lastBeat = now
	}
	for id, p := range c.peers {
		if now.Sub(p.lastSeen) > PeerTimeout {
			log.Debug().Str("puid", string(id)).Str("epicid", string(p.epicID)).Msg("peer disconnected")
			delete(c.peers, id)
		}
	}
	return true
}

func (c *Connect) sendHeartbeat() {
	s := c.Settings.Current()
	body, err := structpb.NewStruct(map[string]any{
		"epicid":   string(s.EpicID),
		"username": s.Username,
	})
	if err != nil {
		log.Error().Err(err).Msg("build heartbeat")
		return
	}
	if err := c.Endpoint.Broadcast(HeartbeatChannel, body); err != nil {
		log.Warn().Err(err).Msg("send heartbeat")
	}
}

// RunNetwork records heartbeats of other instances.
func (c *Connect) RunNetwork(msg *network.Message) bool {
	id := eos.ProductUserID(msg.From)
	if id == c.ProductUserID() {
		return true
	}
	body := &structpb.Struct{}
	if err := msg.Decode(body); err != nil {
		log.Warn().Err(err).Str("from", msg.From).Msg("bad heartbeat")
		return false
	}

	p, ok := c.peers[id]
	if !ok {
		p = &peer{}
		c.peers[id] = p
		log.Debug().Str("puid", string(id)).Msg("peer connected")
	}
	p.epicID = eos.EpicAccountID(body.GetFields()["epicid"].GetStringValue())
	p.name = body.GetFields()["username"].GetStringValue()
	p.lastSeen = c.Now()
	return true
}

func (c *Connect) RunCallbacks(res *callback.Result) bool {
	res.MarkDone()
	return true
}

func (c *Connect) FreeCallback(*callback.Result) {}
