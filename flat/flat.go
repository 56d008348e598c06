package flat

import (
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/platform"
	"github.com/linchenxuan/eosemu/services/auth"
	"github.com/linchenxuan/eosemu/services/connect"
	"github.com/linchenxuan/eosemu/services/ecom"
	"github.com/linchenxuan/eosemu/services/friends"
	"github.com/linchenxuan/eosemu/services/p2p"
	"github.com/linchenxuan/eosemu/services/playerdatastorage"
	"github.com/linchenxuan/eosemu/services/presence"
	"github.com/linchenxuan/eosemu/services/titlestorage"
	"github.com/linchenxuan/eosemu/services/userinfo"
	"github.com/linchenxuan/eosemu/storage"
)

// PlatformCreate is EOS_Platform_Create. It returns InvalidHandle when opts
// is nil or the platform cannot be built.
func PlatformCreate(opts *platform.Options) Handle {
	if opts == nil {
		return InvalidHandle
	}
	p, err := platform.Create(*opts)
	if err != nil {
		log.Error().Err(err).Str("product", opts.ProductID).Msg("platform create failed")
		return InvalidHandle
	}

	h := _handles.add(kindPlatform, p, InvalidHandle)
	_handles.add(kindAuth, p.Auth(), h)
	_handles.add(kindConnect, p.Connect(), h)
	_handles.add(kindEcom, p.Ecom(), h)
	_handles.add(kindTitleStorage, p.TitleStorage(), h)
	_handles.add(kindPlayerDataStorage, p.PlayerDataStorage(), h)
	_handles.add(kindP2P, p.P2P(), h)
	_handles.add(kindUserInfo, p.UserInfo(), h)
	_handles.add(kindFriends, p.Friends(), h)
	_handles.add(kindPresence, p.Presence(), h)
	return h
}

// PlatformRelease is EOS_Platform_Release. Every handle obtained from the
// platform becomes invalid.
func PlatformRelease(h Handle) {
	p, ok := lookup[*platform.Platform](h, kindPlatform)
	if !ok {
		return
	}
	_handles.remove(h)
	if err := p.Release(); err != nil {
		log.Error().Err(err).Msg("platform release")
	}
}

// PlatformTick is EOS_Platform_Tick.
func PlatformTick(h Handle) {
	p, ok := lookup[*platform.Platform](h, kindPlatform)
	if !ok {
		return
	}
	if err := p.Tick(); err != nil {
		log.Warn().Err(err).Msg("platform tick")
	}
}

// service returns the handle of the service of kind k owned by platform h.
func service(h Handle, k kind) Handle {
	if _, ok := lookup[*platform.Platform](h, kindPlatform); !ok {
		return InvalidHandle
	}
	_handles.lock.RLock()
	defer _handles.lock.RUnlock()
	for id, e := range _handles.entries {
		if e.owner == h && e.kind == k {
			return id
		}
	}
	return InvalidHandle
}

func PlatformGetAuthInterface(h Handle) Handle {
	return service(h, kindAuth)
}

func PlatformGetConnectInterface(h Handle) Handle {
	return service(h, kindConnect)
}

func PlatformGetEcomInterface(h Handle) Handle {
	return service(h, kindEcom)
}

func PlatformGetTitleStorageInterface(h Handle) Handle {
	return service(h, kindTitleStorage)
}

func PlatformGetPlayerDataStorageInterface(h Handle) Handle {
	return service(h, kindPlayerDataStorage)
}

func PlatformGetP2PInterface(h Handle) Handle {
	return service(h, kindP2P)
}

func PlatformGetUserInfoInterface(h Handle) Handle {
	return service(h, kindUserInfo)
}

func PlatformGetFriendsInterface(h Handle) Handle {
	return service(h, kindFriends)
}

func PlatformGetPresenceInterface(h Handle) Handle {
	return service(h, kindPresence)
}

// AuthLogin is EOS_Auth_Login.
func AuthLogin(h Handle, opts *auth.LoginOptions, clientData any, fn auth.OnLoginCallback) eos.Result {
	a, ok := lookup[*auth.Auth](h, kindAuth)
	if !ok {
		return eos.InvalidParameters
	}
	return a.Login(opts, clientData, fn)
}

// AuthLogout is EOS_Auth_Logout.
func AuthLogout(h Handle, opts *auth.LogoutOptions, clientData any, fn auth.OnLogoutCallback) eos.Result {
	a, ok := lookup[*auth.Auth](h, kindAuth)
	if !ok {
		return eos.InvalidParameters
	}
	return a.Logout(opts, clientData, fn)
}

// AuthGetLoginStatus is EOS_Auth_GetLoginStatus. A bad handle reports
// NotLoggedIn.
func AuthGetLoginStatus(h Handle, id eos.EpicAccountID) eos.LoginStatus {
	a, ok := lookup[*auth.Auth](h, kindAuth)
	if !ok {
		return eos.NotLoggedIn
	}
	return a.GetLoginStatus(id)
}

// AuthAddNotifyLoginStatusChanged is EOS_Auth_AddNotifyLoginStatusChanged.
func AuthAddNotifyLoginStatusChanged(h Handle, clientData any, fn auth.OnLoginStatusChangedCallback) eos.NotificationID {
	a, ok := lookup[*auth.Auth](h, kindAuth)
	if !ok {
		return eos.InvalidNotificationID
	}
	return a.AddNotifyLoginStatusChanged(clientData, fn)
}

func AuthRemoveNotifyLoginStatusChanged(h Handle, id eos.NotificationID) {
	if a, ok := lookup[*auth.Auth](h, kindAuth); ok {
		a.RemoveNotifyLoginStatusChanged(id)
	}
}

// ConnectLogin is EOS_Connect_Login.
func ConnectLogin(h Handle, opts *connect.LoginOptions, clientData any, fn connect.OnLoginCallback) eos.Result {
	c, ok := lookup[*connect.Connect](h, kindConnect)
	if !ok {
		return eos.InvalidParameters
	}
	return c.Login(opts, clientData, fn)
}

// EcomQueryOwnership is EOS_Ecom_QueryOwnership.
func EcomQueryOwnership(h Handle, opts *ecom.QueryOwnershipOptions, clientData any, fn ecom.OnQueryOwnershipCallback) eos.Result {
	e, ok := lookup[*ecom.Ecom](h, kindEcom)
	if !ok {
		return eos.InvalidParameters
	}
	return e.QueryOwnership(opts, clientData, fn)
}

// TitleStorageReadFile is EOS_TitleStorage_ReadFile.
func TitleStorageReadFile(h Handle, opts *titlestorage.ReadFileOptions, clientData any, fn titlestorage.OnReadFileCompleteCallback) (Handle, eos.Result) {
	ts, ok := lookup[*titlestorage.TitleStorage](h, kindTitleStorage)
	if !ok {
		return InvalidHandle, eos.InvalidParameters
	}
	return transferHandle(h)(ts.ReadFile(opts, clientData, fn))
}

// PlayerDataStorageReadFile is EOS_PlayerDataStorage_ReadFile. The returned
// handle is InvalidHandle when the request was rejected before it started.
func PlayerDataStorageReadFile(h Handle, opts *playerdatastorage.ReadFileOptions, clientData any, fn playerdatastorage.OnReadFileCompleteCallback) (Handle, eos.Result) {
	pds, ok := lookup[*playerdatastorage.PlayerDataStorage](h, kindPlayerDataStorage)
	if !ok {
		return InvalidHandle, eos.InvalidParameters
	}
	return transferHandle(h)(pds.ReadFile(opts, clientData, fn))
}

// PlayerDataStorageWriteFile is EOS_PlayerDataStorage_WriteFile.
func PlayerDataStorageWriteFile(h Handle, opts *playerdatastorage.WriteFileOptions, clientData any, fn playerdatastorage.OnWriteFileCompleteCallback) (Handle, eos.Result) {
	pds, ok := lookup[*playerdatastorage.PlayerDataStorage](h, kindPlayerDataStorage)
	if !ok {
		return InvalidHandle, eos.InvalidParameters
	}
	return transferHandle(h)(pds.WriteFile(opts, clientData, fn))
}

// transferHandle registers a started request under the platform that owns
// the service handle svc.
func transferHandle(svc Handle) func(*storage.Transfer, eos.Result) (Handle, eos.Result) {
	return func(req *storage.Transfer, res eos.Result) (Handle, eos.Result) {
		if req == nil {
			return InvalidHandle, res
		}
		return _handles.add(kindTransfer, req, _handles.owner(svc)), res
	}
}

// PlayerDataStorageFileTransferRequestGetFileRequestState is
// EOS_PlayerDataStorageFileTransferRequest_GetFileRequestState.
func PlayerDataStorageFileTransferRequestGetFileRequestState(h Handle) eos.Result {
	req, ok := lookup[*storage.Transfer](h, kindTransfer)
	if !ok {
		return eos.InvalidParameters
	}
	return req.State()
}

// PlayerDataStorageFileTransferRequestCancelRequest is
// EOS_PlayerDataStorageFileTransferRequest_CancelRequest.
func PlayerDataStorageFileTransferRequestCancelRequest(h Handle) eos.Result {
	req, ok := lookup[*storage.Transfer](h, kindTransfer)
	if !ok {
		return eos.InvalidParameters
	}
	return req.Cancel()
}

// PlayerDataStorageFileTransferRequestRelease is
// EOS_PlayerDataStorageFileTransferRequest_Release. The request keeps
// running until finished; only the handle goes away.
func PlayerDataStorageFileTransferRequestRelease(h Handle) {
	req, ok := lookup[*storage.Transfer](h, kindTransfer)
	if !ok {
		return
	}
	_handles.remove(h)
	req.Release()
}

// P2PSendPacket is EOS_P2P_SendPacket.
func P2PSendPacket(h Handle, opts *p2p.SendPacketOptions) eos.Result {
	p, ok := lookup[*p2p.P2P](h, kindP2P)
	if !ok {
		return eos.InvalidParameters
	}
	return p.SendPacket(opts)
}

// P2PReceivePacket is EOS_P2P_ReceivePacket. out receives the packet data.
func P2PReceivePacket(h Handle, opts *p2p.ReceivePacketOptions, out []byte) (*p2p.ReceivedPacket, eos.Result) {
	p, ok := lookup[*p2p.P2P](h, kindP2P)
	if !ok {
		return nil, eos.InvalidParameters
	}
	return p.ReceivePacket(opts, out)
}

// UserInfoQueryUserInfo is EOS_UserInfo_QueryUserInfo.
func UserInfoQueryUserInfo(h Handle, opts *userinfo.QueryUserInfoOptions, clientData any, fn userinfo.OnQueryUserInfoCallback) eos.Result {
	u, ok := lookup[*userinfo.UserInfo](h, kindUserInfo)
	if !ok {
		return eos.InvalidParameters
	}
	return u.QueryUserInfo(opts, clientData, fn)
}

// UserInfoCopyUserInfo is EOS_UserInfo_CopyUserInfo.
func UserInfoCopyUserInfo(h Handle, opts *userinfo.CopyUserInfoOptions) (*userinfo.Info, eos.Result) {
	u, ok := lookup[*userinfo.UserInfo](h, kindUserInfo)
	if !ok {
		return nil, eos.InvalidParameters
	}
	return u.CopyUserInfo(opts)
}

// FriendsQueryFriends is EOS_Friends_QueryFriends.
func FriendsQueryFriends(h Handle, opts *friends.QueryFriendsOptions, clientData any, fn friends.OnQueryFriendsCallback) eos.Result {
	f, ok := lookup[*friends.Friends](h, kindFriends)
	if !ok {
		return eos.InvalidParameters
	}
	return f.QueryFriends(opts, clientData, fn)
}

// FriendsGetStatus is EOS_Friends_GetStatus.
func FriendsGetStatus(h Handle, localUserID, targetUserID eos.EpicAccountID) friends.Status {
	f, ok := lookup[*friends.Friends](h, kindFriends)
	if !ok {
		return friends.NotFriends
	}
	return f.GetStatus(localUserID, targetUserID)
}

// PresenceQueryPresence is EOS_Presence_QueryPresence.
func PresenceQueryPresence(h Handle, opts *presence.QueryPresenceOptions, clientData any, fn presence.OnQueryPresenceCallback) eos.Result {
	p, ok := lookup[*presence.Presence](h, kindPresence)
	if !ok {
		return eos.InvalidParameters
	}
	return p.QueryPresence(opts, clientData, fn)
}

// PresenceCopyPresence is EOS_Presence_CopyPresence.
func PresenceCopyPresence(h Handle, opts *presence.CopyPresenceOptions) (*presence.Info, eos.Result) {
	p, ok := lookup[*presence.Presence](h, kindPresence)
	if !ok {
		return nil, eos.InvalidParameters
	}
	return p.CopyPresence(opts)
}
