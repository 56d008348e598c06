package eos

// CallbackID tags the payload shape a callback result carries. Ids are
// grouped by service so they stay unique across the emulator.
type CallbackID int32

const (
	authBase              CallbackID = 1000
	connectBase           CallbackID = 2000
	ecomBase              CallbackID = 3000
	titleStorageBase      CallbackID = 4000
	playerDataStorageBase CallbackID = 5000
	p2pBase               CallbackID = 6000
	userInfoBase          CallbackID = 7000
	friendsBase           CallbackID = 8000
	presenceBase          CallbackID = 9000
)

const (
	AuthLoginCallback CallbackID = authBase + iota + 1
	AuthLogoutCallback
	AuthLinkAccountCallback
	AuthDeletePersistentAuthCallback
	AuthVerifyUserAuthCallback
	AuthLoginStatusChangedCallback
)

const (
	ConnectLoginCallback CallbackID = connectBase + iota + 1
	ConnectLoginStatusChangedCallback
	ConnectAuthExpirationCallback
	ConnectCreateUserCallback
)

const (
	EcomQueryOwnershipCallback CallbackID = ecomBase + iota + 1
	EcomQueryOwnershipTokenCallback
	EcomQueryEntitlementsCallback
	EcomQueryOffersCallback
	EcomCheckoutCallback
	EcomRedeemEntitlementsCallback
)

const (
	TitleStorageQueryFileCallback CallbackID = titleStorageBase + iota + 1
	TitleStorageQueryFileListCallback
	TitleStorageReadFileCallback
	TitleStorageDeleteCacheCallback
)

const (
	PlayerDataStorageQueryFileCallback CallbackID = playerDataStorageBase + iota + 1
	PlayerDataStorageQueryFileListCallback
	PlayerDataStorageDuplicateFileCallback
	PlayerDataStorageDeleteFileCallback
	PlayerDataStorageReadFileCallback
	PlayerDataStorageWriteFileCallback
)

const (
	P2PQueryNATTypeCallback CallbackID = p2pBase + iota + 1
	P2PConnectionRequestCallback
	P2PConnectionClosedCallback
)

const (
	UserInfoQueryCallback CallbackID = userInfoBase + iota + 1
)

const (
	FriendsQueryCallback CallbackID = friendsBase + iota + 1
	FriendsSendInviteCallback
	FriendsAcceptInviteCallback
	FriendsRejectInviteCallback
	FriendsUpdateCallback
)

const (
	PresenceQueryCallback CallbackID = presenceBase + iota + 1
	PresenceSetCallback
	PresenceChangedCallback
	PresenceJoinGameAcceptedCallback
)

var callbackNames = map[CallbackID]string{
	AuthLoginCallback:                      "EOS_Auth_LoginCallbackInfo",
	AuthLogoutCallback:                     "EOS_Auth_LogoutCallbackInfo",
	AuthLinkAccountCallback:                "EOS_Auth_LinkAccountCallbackInfo",
	AuthDeletePersistentAuthCallback:       "EOS_Auth_DeletePersistentAuthCallbackInfo",
	AuthVerifyUserAuthCallback:             "EOS_Auth_VerifyUserAuthCallbackInfo",
	AuthLoginStatusChangedCallback:         "EOS_Auth_LoginStatusChangedCallbackInfo",
	ConnectLoginCallback:                   "EOS_Connect_LoginCallbackInfo",
	ConnectLoginStatusChangedCallback:      "EOS_Connect_LoginStatusChangedCallbackInfo",
	ConnectAuthExpirationCallback:          "EOS_Connect_AuthExpirationCallbackInfo",
	ConnectCreateUserCallback:              "EOS_Connect_CreateUserCallbackInfo",
	EcomQueryOwnershipCallback:             "EOS_Ecom_QueryOwnershipCallbackInfo",
	EcomQueryOwnershipTokenCallback:        "EOS_Ecom_QueryOwnershipTokenCallbackInfo",
	EcomQueryEntitlementsCallback:          "EOS_Ecom_QueryEntitlementsCallbackInfo",
	EcomQueryOffersCallback:                "EOS_Ecom_QueryOffersCallbackInfo",
	EcomCheckoutCallback:                   "EOS_Ecom_CheckoutCallbackInfo",
	EcomRedeemEntitlementsCallback:         "EOS_Ecom_RedeemEntitlementsCallbackInfo",
	TitleStorageQueryFileCallback:          "EOS_TitleStorage_QueryFileCallbackInfo",
	TitleStorageQueryFileListCallback:      "EOS_TitleStorage_QueryFileListCallbackInfo",
	TitleStorageReadFileCallback:           "EOS_TitleStorage_ReadFileCallbackInfo",
	TitleStorageDeleteCacheCallback:        "EOS_TitleStorage_DeleteCacheCallbackInfo",
	PlayerDataStorageQueryFileCallback:     "EOS_PlayerDataStorage_QueryFileCallbackInfo",
	PlayerDataStorageQueryFileListCallback: "EOS_PlayerDataStorage_QueryFileListCallbackInfo",
	PlayerDataStorageDuplicateFileCallback: "EOS_PlayerDataStorage_DuplicateFileCallbackInfo",
	PlayerDataStorageDeleteFileCallback:    "EOS_PlayerDataStorage_DeleteFileCallbackInfo",
	PlayerDataStorageReadFileCallback:      "EOS_PlayerDataStorage_ReadFileCallbackInfo",
	PlayerDataStorageWriteFileCallback:     "EOS_PlayerDataStorage_WriteFileCallbackInfo",
	P2PQueryNATTypeCallback:                "EOS_P2P_OnQueryNATTypeCompleteInfo",
	P2PConnectionRequestCallback:           "EOS_P2P_OnIncomingConnectionRequestInfo",
	P2PConnectionClosedCallback:            "EOS_P2P_OnRemoteConnectionClosedInfo",
	UserInfoQueryCallback:                  "EOS_UserInfo_QueryUserInfoCallbackInfo",
	FriendsQueryCallback:                   "EOS_Friends_QueryFriendsCallbackInfo",
	FriendsSendInviteCallback:              "EOS_Friends_SendInviteCallbackInfo",
	FriendsAcceptInviteCallback:            "EOS_Friends_AcceptInviteCallbackInfo",
	FriendsRejectInviteCallback:            "EOS_Friends_RejectInviteCallbackInfo",
	FriendsUpdateCallback:                  "EOS_Friends_OnFriendsUpdateInfo",
	PresenceQueryCallback:                  "EOS_Presence_QueryPresenceCallbackInfo",
	PresenceSetCallback:                    "EOS_Presence_SetPresenceCallbackInfo",
	PresenceChangedCallback:                "EOS_Presence_PresenceChangedCallbackInfo",
	PresenceJoinGameAcceptedCallback:       "EOS_Presence_JoinGameAcceptedCallbackInfo",
}

// String returns the SDK struct name of the payload shape, which is what the
// dispatch logs print.
func (id CallbackID) String() string {
	if name, ok := callbackNames[id]; ok {
		return name
	}
	return "UnknownCallback"
}
