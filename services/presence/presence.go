// Package presence emulates the presence interface. The local user starts
// Online; SetPresence updates it and pushes it to every other instance, and
// the presence of others is asked for over the network like profiles are.
package presence

import (
	"cmp"
	"slices"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/network"
	"github.com/linchenxuan/eosemu/services"
)

const Name = "presence"

const (
	// RequestChannel asks an instance for its presence.
	RequestChannel = "presence.request"

	// InfoChannel carries a presence, as an answer or after SetPresence.
	InfoChannel = "presence.info"
)

// QueryTimeout fails a query the other instance never answers.
const QueryTimeout = time.Second

// Platform is what the local presence reports as platform.
const Platform = "WIN"

// Presence is the EOS_HPresence object.
type Presence struct {
	services.Base

	// own holds the fields SetPresence changes.
	own     Info
	cache   map[eos.EpicAccountID]*Info
	queries *services.Queries
}

var (
	_ callback.CallbackRunner = (*Presence)(nil)
	_ network.Listener        = (*Presence)(nil)
)

func New(env services.Env) (*Presence, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	p := &Presence{
		Base:    services.NewBase(Name, env),
		own:     Info{Status: Online},
		cache:   make(map[eos.EpicAccountID]*Info),
		queries: services.NewQueries(),
	}
	p.Attach(p)
	if env.Endpoint != nil {
		env.Endpoint.Subscribe(RequestChannel, p)
		env.Endpoint.Subscribe(InfoChannel, p)
	}
	return p, nil
}

func (p *Presence) Release() {
	if p.Endpoint != nil {
		p.Endpoint.Unsubscribe(RequestChannel, p)
		p.Endpoint.Unsubscribe(InfoChannel, p)
	}
	p.Detach(p)
}

// self must be called with the global lock held.
func (p *Presence) self() *Info {
	info := p.own
	info.UserID = p.EpicID()
	info.ProductID = p.ProductID
	info.ProductName = p.Settings.Current().GameName
	info.Platform = Platform
	info.Records = slices.Clone(p.own.Records)
	return &info
}

// lookup must be called with the global lock held.
func (p *Presence) lookup(id eos.EpicAccountID) (*Info, bool) {
	if id == p.EpicID() {
		return p.self(), true
	}
	info, ok := p.cache[id]
	return info, ok
}

// QueryPresence fetches the presence of TargetUserID. Another instance has
// QueryTimeout to answer.
func (p *Presence) QueryPresence(opts *QueryPresenceOptions, clientData any, fn OnQueryPresenceCallback) eos.Result {
	p.Trace("QueryPresence")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &QueryPresenceCallbackInfo{
		ResultCode:   eos.Success,
		ClientData:   clientData,
		LocalUserID:  opts.LocalUserID,
		TargetUserID: opts.TargetUserID,
	}
	switch {
	case !opts.TargetUserID.Valid():
		info.ResultCode = eos.InvalidParameters
	case opts.TargetUserID == p.EpicID():
	case !p.request(opts.TargetUserID):
		info.ResultCode = eos.NotFound
	default:
		res := callback.NewResult(info, callback.Typed(fn), callback.WithDeadline(QueryTimeout))
		if p.Reg().Enqueue(p, res) {
			p.queries.Add(opts.TargetUserID, res)
		}
		return eos.Success
	}
	services.Complete(p, p.Reg(), info, fn)
	return eos.Success
}

func (p *Presence) request(target eos.EpicAccountID) bool {
	if p.Endpoint == nil {
		return false
	}
	to := string(eos.ProductUserIDFor(p.ProductID, target))
	if err := p.Endpoint.Send(to, RequestChannel, &structpb.Struct{}); err != nil {
		log.Debug().Err(err).Str("epicid", string(target)).Msg("presence request not sent")
		return false
	}
	return true
}

// HasPresence reports whether CopyPresence would succeed.
func (p *Presence) HasPresence(opts *HasPresenceOptions) bool {
	p.Trace("HasPresence")
	if opts == nil {
		return false
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	_, ok := p.lookup(opts.TargetUserID)
	return ok
}

func (p *Presence) CopyPresence(opts *CopyPresenceOptions) (*Info, eos.Result) {
	p.Trace("CopyPresence")
	if opts == nil || !opts.TargetUserID.Valid() {
		return nil, eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info, ok := p.lookup(opts.TargetUserID)
	if !ok {
		return nil, eos.NotFound
	}
	cp := *info
	cp.Records = slices.Clone(info.Records)
	return &cp, eos.Success
}

// CreatePresenceModification stages a change of the local presence.
func (p *Presence) CreatePresenceModification(opts *CreatePresenceModificationOptions) (*Modification, eos.Result) {
	p.Trace("CreatePresenceModification")
	if opts == nil {
		return nil, eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	if opts.LocalUserID != p.EpicID() {
		return nil, eos.InvalidUser
	}
	return newModification(&p.own), eos.Success
}

// SetPresence applies a modification to the local presence and sends the
// result to every other instance.
func (p *Presence) SetPresence(opts *SetPresenceOptions, clientData any, fn OnSetPresenceCallback) eos.Result {
	p.Trace("SetPresence")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &SetPresenceCallbackInfo{ResultCode: eos.Success, ClientData: clientData, LocalUserID: opts.LocalUserID}
	switch {
	case opts.PresenceModificationHandle == nil:
		info.ResultCode = eos.InvalidParameters
	case opts.LocalUserID != p.EpicID():
		info.ResultCode = eos.MissingPermissions
	default:
		opts.PresenceModificationHandle.apply(&p.own)
		log.Info().Str("status", p.own.Status.String()).Str("richtext", p.own.RichText).Msg("presence set")
		if p.Endpoint != nil {
			p.send("", p.self())
		}
	}
	services.Complete(p, p.Reg(), info, fn)
	return eos.Success
}

func (p *Presence) AddNotifyOnPresenceChanged(clientData any, fn OnPresenceChangedCallback) eos.NotificationID {
	p.Trace("AddNotifyOnPresenceChanged")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &PresenceChangedCallbackInfo{ClientData: clientData, LocalUserID: p.EpicID()}
	return p.Reg().AddNotification(p, callback.NewResult(info, callback.Typed(fn)))
}

func (p *Presence) RemoveNotifyOnPresenceChanged(id eos.NotificationID) {
	p.Trace("RemoveNotifyOnPresenceChanged")
	p.Reg().Lock()
	defer p.Reg().Unlock()

	p.Reg().RemoveNotification(p, id)
}

func (p *Presence) AddNotifyJoinGameAccepted(clientData any, fn OnJoinGameAcceptedCallback) eos.NotificationID {
	p.Trace("AddNotifyJoinGameAccepted")
	if fn == nil {
		return eos.InvalidNotificationID
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info := &JoinGameAcceptedCallbackInfo{ClientData: clientData, LocalUserID: p.EpicID()}
	return p.Reg().AddNotification(p, callback.NewResult(info, callback.Typed(fn)))
}

func (p *Presence) RemoveNotifyJoinGameAccepted(id eos.NotificationID) {
	p.Trace("RemoveNotifyJoinGameAccepted")
	p.Reg().Lock()
	defer p.Reg().Unlock()

	p.Reg().RemoveNotification(p, id)
}

// GetJoinInfo copies the join info of TargetUserID into buf and returns its
// length. A buffer that is too small gets LimitExceeded and the length it
// needs.
func (p *Presence) GetJoinInfo(opts *GetJoinInfoOptions, buf []byte) (int, eos.Result) {
	p.Trace("GetJoinInfo")
	if opts == nil || !opts.TargetUserID.Valid() {
		return 0, eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	info, ok := p.lookup(opts.TargetUserID)
	if !ok || info.JoinInfo == "" {
		return 0, eos.NotFound
	}
	if len(buf) < len(info.JoinInfo) {
		return len(info.JoinInfo), eos.LimitExceeded
	}
	return copy(buf, info.JoinInfo), eos.Success
}

// send writes info to one instance, or to every other one when to is empty.
func (p *Presence) send(to string, info *Info) bool {
	records := make(map[string]any, len(info.Records))
	for _, r := range info.Records {
		records[r.Key] = r.Value
	}
	body, err := structpb.NewStruct(map[string]any{
		"epicid":         string(info.UserID),
		"status":         int(info.Status),
		"productid":      info.ProductID,
		"productversion": info.ProductVersion,
		"platform":       info.Platform,
		"productname":    info.ProductName,
		"richtext":       info.RichText,
		"joininfo":       info.JoinInfo,
		"records":        records,
	})
	if err != nil {
		log.Error().Err(err).Msg("build presence")
		return false
	}
	if to == "" {
		err = p.Endpoint.Broadcast(InfoChannel, body)
	} else {
		err = p.Endpoint.Send(to, InfoChannel, body)
	}
	if err != nil {
		log.Debug().Err(err).Str("to", to).Msg("presence not sent")
		return false
	}
	return true
}

// RunNetwork answers presence requests and records the presence of others.
func (p *Presence) RunNetwork(msg *network.Message) bool {
	switch msg.Channel {
	case RequestChannel:
		return p.Endpoint != nil && p.send(msg.From, p.self())
	case InfoChannel:
		return p.record(msg)
	}
	return false
}

func decodeInfo(body *structpb.Struct) *Info {
	f := body.GetFields()
	info := &Info{
		UserID:         eos.EpicAccountID(f["epicid"].GetStringValue()),
		Status:         Status(f["status"].GetNumberValue()),
		ProductID:      f["productid"].GetStringValue(),
		ProductVersion: f["productversion"].GetStringValue(),
		Platform:       f["platform"].GetStringValue(),
		ProductName:    f["productname"].GetStringValue(),
		RichText:       f["richtext"].GetStringValue(),
		JoinInfo:       f["joininfo"].GetStringValue(),
	}
	records := f["records"].GetStructValue().GetFields()
	for k, v := range records {
		info.Records = append(info.Records, DataRecord{Key: k, Value: v.GetStringValue()})
	}
	slices.SortFunc(info.Records, func(a, b DataRecord) int { return cmp.Compare(a.Key, b.Key) })
	return info
}

func equal(a, b *Info) bool {
	return a.UserID == b.UserID &&
		a.Status == b.Status &&
		a.ProductID == b.ProductID &&
		a.ProductVersion == b.ProductVersion &&
		a.Platform == b.Platform &&
		a.ProductName == b.ProductName &&
		a.RichText == b.RichText &&
		a.JoinInfo == b.JoinInfo &&
		slices.Equal(a.Records, b.Records)
}

func (p *Presence) record(msg *network.Message) bool {
	body := &structpb.Struct{}
	if err := msg.Decode(body); err != nil {
		log.Warn().Err(err).Str("from", msg.From).Msg("bad presence")
		return false
	}
	info := decodeInfo(body)
	id := info.UserID
	if !id.Valid() || id == p.EpicID() {
		return false
	}

	if prev, ok := p.cache[id]; !ok || !equal(prev, info) {
		p.cache[id] = info
		p.Reg().Broadcast(p, eos.PresenceChangedCallback, func(t *callback.Result) callback.Payload {
			cp := *callback.PayloadAs[*PresenceChangedCallbackInfo](t)
			cp.LocalUserID = p.EpicID()
			cp.PresenceUserID = id
			return &cp
		})
		log.Debug().Str("epicid", string(id)).Str("status", info.Status.String()).Msg("presence changed")
	}
	p.queries.Answer(id, func(*callback.Result) {})
	return true
}

// RunCallbacks fails queries whose deadline passed.
func (p *Presence) RunCallbacks(res *callback.Result) bool {
	return p.queries.Expire(res, p.Now(), func(r *callback.Result) {
		callback.PayloadAs[*QueryPresenceCallbackInfo](r).ResultCode = eos.TimedOut
	})
}

func (p *Presence) FreeCallback(res *callback.Result) {
	p.queries.Forget(res)
}
