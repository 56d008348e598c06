package ecom

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
)

// OwnershipStatus of one catalog item.
type OwnershipStatus int32

const (
	NotOwned OwnershipStatus = iota
	Owned
)

func (s OwnershipStatus) String() string {
	if s == Owned {
		return "Owned"
	}
	return "NotOwned"
}

type ItemOwnership struct {
	ID              string
	OwnershipStatus OwnershipStatus
}

// Entitlement is a granted catalog item.
type Entitlement struct {
	EntitlementName string
	EntitlementID   string
	CatalogItemID   string
	Redeemed        bool
}

// Transaction is a completed checkout.
type Transaction struct {
	TransactionID string
	OfferIDs      []string
}

type QueryOwnershipOptions struct {
	LocalUserID      eos.EpicAccountID
	CatalogItemIDs   []string
	CatalogNamespace string
}

type QueryOwnershipTokenOptions struct {
	LocalUserID      eos.EpicAccountID
	CatalogItemIDs   []string
	CatalogNamespace string
}

type QueryEntitlementsOptions struct {
	LocalUserID      eos.EpicAccountID
	EntitlementNames []string
	IncludeRedeemed  bool
}

type QueryOffersOptions struct {
	LocalUserID              eos.EpicAccountID
	OverrideCatalogNamespace string
}

type CheckoutEntry struct {
	OfferID string
}

type CheckoutOptions struct {
	LocalUserID              eos.EpicAccountID
	OverrideCatalogNamespace string
	Entries                  []CheckoutEntry
}

type RedeemEntitlementsOptions struct {
	LocalUserID    eos.EpicAccountID
	EntitlementIDs []string
}

type QueryOwnershipCallbackInfo struct {
	ResultCode    eos.Result
	ClientData    any
	LocalUserID   eos.EpicAccountID
	ItemOwnership []ItemOwnership
}

func (*QueryOwnershipCallbackInfo) CallbackID() callback.ID { return eos.EcomQueryOwnershipCallback }

type QueryOwnershipTokenCallbackInfo struct {
	ResultCode     eos.Result
	ClientData     any
	LocalUserID    eos.EpicAccountID
	OwnershipToken string
}

func (*QueryOwnershipTokenCallbackInfo) CallbackID() callback.ID {
	return eos.EcomQueryOwnershipTokenCallback
}

type QueryEntitlementsCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*QueryEntitlementsCallbackInfo) CallbackID() callback.ID {
	return eos.EcomQueryEntitlementsCallback
}

type QueryOffersCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*QueryOffersCallbackInfo) CallbackID() callback.ID { return eos.EcomQueryOffersCallback }

type CheckoutCallbackInfo struct {
	ResultCode    eos.Result
	ClientData    any
	LocalUserID   eos.EpicAccountID
	TransactionID string
}

func (*CheckoutCallbackInfo) CallbackID() callback.ID { return eos.EcomCheckoutCallback }

type RedeemEntitlementsCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.EpicAccountID
}

func (*RedeemEntitlementsCallbackInfo) CallbackID() callback.ID {
	return eos.EcomRedeemEntitlementsCallback
}

type (
	OnQueryOwnershipCallback      = func(*QueryOwnershipCallbackInfo)
	OnQueryOwnershipTokenCallback = func(*QueryOwnershipTokenCallbackInfo)
	OnQueryEntitlementsCallback   = func(*QueryEntitlementsCallbackInfo)
	OnQueryOffersCallback         = func(*QueryOffersCallbackInfo)
	OnCheckoutCallback            = func(*CheckoutCallbackInfo)
	OnRedeemEntitlementsCallback  = func(*RedeemEntitlementsCallbackInfo)
)
