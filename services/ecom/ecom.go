// Package ecom emulates the store interface. Every catalog item is owned,
// unless DLC unlocking is turned off, in which case only the configured DLCs
// are.
package ecom

import (
	"slices"

	"github.com/google/uuid"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/services"
)

const Name = "ecom"

// entitlementSpace derives stable entitlement ids from item names.
var entitlementSpace = uuid.MustParse("5f0d8d4e-3b1c-4a8e-9f6e-2d7c1b0a9e84")

// Ecom is the EOS_HEcom object.
type Ecom struct {
	services.Base

	entitlements []Entitlement
	redeemed     map[string]bool
	transactions []Transaction
}

var _ callback.CallbackRunner = (*Ecom)(nil)

func New(env services.Env) (*Ecom, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	e := &Ecom{Base: services.NewBase(Name, env), redeemed: make(map[string]bool)}
	e.Attach(e)
	return e, nil
}

func (e *Ecom) Release() {
	e.Detach(e)
}

// owns must be called with the global lock held.
func (e *Ecom) owns(id string) bool {
	if id == "" {
		return false
	}
	s := e.Settings.Current()
	return s.UnlockDLCs || slices.Contains(s.DLCs, id)
}

// QueryOwnership reports the ownership of every requested catalog item.
func (e *Ecom) QueryOwnership(opts *QueryOwnershipOptions, clientData any, fn OnQueryOwnershipCallback) eos.Result {
	e.Trace("QueryOwnership")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	e.Reg().Lock()
	defer e.Reg().Unlock()

	info := &QueryOwnershipCallbackInfo{
		ResultCode:    eos.Success,
		ClientData:    clientData,
		LocalUserID:   opts.LocalUserID,
		ItemOwnership: make([]ItemOwnership, 0, len(opts.CatalogItemIDs)),
	}
	for _, id := range opts.CatalogItemIDs {
		status := NotOwned
		if e.owns(id) {
			status = Owned
		}
		log.Info().Str("item", id).Str("status", status.String()).Msg("catalog item ownership")
		info.ItemOwnership = append(info.ItemOwnership, ItemOwnership{ID: id, OwnershipStatus: status})
	}
	services.Complete(e, e.Reg(), info, fn)
	return eos.Success
}

// QueryOwnershipToken hands out an opaque token for the requested items.
func (e *Ecom) QueryOwnershipToken(opts *QueryOwnershipTokenOptions, clientData any, fn OnQueryOwnershipTokenCallback) eos.Result {
	e.Trace("QueryOwnershipToken")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	e.Reg().Lock()
	defer e.Reg().Unlock()

	info := &QueryOwnershipTokenCallbackInfo{
		ResultCode:     eos.Success,
		ClientData:     clientData,
		LocalUserID:    opts.LocalUserID,
		OwnershipToken: uuid.NewString(),
	}
	services.Complete(e, e.Reg(), info, fn)
	return eos.Success
}

// QueryEntitlements rebuilds the entitlement cache from the owned DLCs.
func (e *Ecom) QueryEntitlements(opts *QueryEntitlementsOptions, clientData any, fn OnQueryEntitlementsCallback) eos.Result {
	e.Trace("QueryEntitlements")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	e.Reg().Lock()
	defer e.Reg().Unlock()

	e.entitlements = e.entitlements[:0]
	for _, name := range e.Settings.Current().DLCs {
		if len(opts.EntitlementNames) > 0 && !slices.Contains(opts.EntitlementNames, name) {
			continue
		}
		id := uuid.NewSHA1(entitlementSpace, []byte(name)).String()
		if e.redeemed[id] && !opts.IncludeRedeemed {
			continue
		}
		e.entitlements = append(e.entitlements, Entitlement{
			EntitlementName: name,
			EntitlementID:   id,
			CatalogItemID:   name,
			Redeemed:        e.redeemed[id],
		})
	}
	services.Complete(e, e.Reg(), &QueryEntitlementsCallbackInfo{
		ResultCode:  eos.Success,
		ClientData:  clientData,
		LocalUserID: opts.LocalUserID,
	}, fn)
	return eos.Success
}

// GetEntitlementsCount returns the size of the entitlement cache.
func (e *Ecom) GetEntitlementsCount() int {
	e.Trace("GetEntitlementsCount")
	e.Reg().Lock()
	defer e.Reg().Unlock()

	return len(e.entitlements)
}

// CopyEntitlementByIndex returns a copy of a cached entitlement.
func (e *Ecom) CopyEntitlementByIndex(index int) (*Entitlement, eos.Result) {
	e.Trace("CopyEntitlementByIndex")
	e.Reg().Lock()
	defer e.Reg().Unlock()

	if index < 0 || index >= len(e.entitlements) {
		return nil, eos.NotFound
	}
	cp := e.entitlements[index]
	return &cp, eos.Success
}

// QueryOffers succeeds with an empty catalog.
func (e *Ecom) QueryOffers(opts *QueryOffersOptions, clientData any, fn OnQueryOffersCallback) eos.Result {
	e.Trace("QueryOffers")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	e.Reg().Lock()
	defer e.Reg().Unlock()

	services.Complete(e, e.Reg(), &QueryOffersCallbackInfo{
		ResultCode:  eos.Success,
		ClientData:  clientData,
		LocalUserID: opts.LocalUserID,
	}, fn)
	return eos.Success
}

// GetOfferCount is always 0.
func (e *Ecom) GetOfferCount() int {
	e.Trace("GetOfferCount")
	return 0
}

// Checkout records a transaction for the entries.
func (e *Ecom) Checkout(opts *CheckoutOptions, clientData any, fn OnCheckoutCallback) eos.Result {
	e.Trace("Checkout")
	if fn == nil || opts == nil || len(opts.Entries) == 0 {
		return eos.InvalidParameters
	}

	e.Reg().Lock()
	defer e.Reg().Unlock()

	tx := Transaction{TransactionID: uuid.NewString()}
	for _, entry := range opts.Entries {
		tx.OfferIDs = append(tx.OfferIDs, entry.OfferID)
	}
	e.transactions = append(e.transactions, tx)
	log.Info().Str("transaction", tx.TransactionID).Strs("offers", tx.OfferIDs).Msg("checkout")

	services.Complete(e, e.Reg(), &CheckoutCallbackInfo{
		ResultCode:    eos.Success,
		ClientData:    clientData,
		LocalUserID:   opts.LocalUserID,
		TransactionID: tx.TransactionID,
	}, fn)
	return eos.Success
}

func (e *Ecom) GetTransactionCount() int {
	e.Trace("GetTransactionCount")
	e.Reg().Lock()
	defer e.Reg().Unlock()

	return len(e.transactions)
}

// CopyTransactionByID looks up a checkout by its id.
func (e *Ecom) CopyTransactionByID(id string) (*Transaction, eos.Result) {
	e.Trace("CopyTransactionByID")
	e.Reg().Lock()
	defer e.Reg().Unlock()

	for _, tx := range e.transactions {
		if tx.TransactionID == id {
			cp := tx
			cp.OfferIDs = slices.Clone(tx.OfferIDs)
			return &cp, eos.Success
		}
	}
	return nil, eos.NotFound
}

// RedeemEntitlements marks entitlements redeemed.
func (e *Ecom) RedeemEntitlements(opts *RedeemEntitlementsOptions, clientData any, fn OnRedeemEntitlementsCallback) eos.Result {
	e.Trace("RedeemEntitlements")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	e.Reg().Lock()
	defer e.Reg().Unlock()

	for _, id := range opts.EntitlementIDs {
		e.redeemed[id] = true
		for i := range e.entitlements {
			if e.entitlements[i].EntitlementID == id {
				e.entitlements[i].Redeemed = true
			}
		}
	}
	services.Complete(e, e.Reg(), &RedeemEntitlementsCallbackInfo{
		ResultCode:  eos.Success,
		ClientData:  clientData,
		LocalUserID: opts.LocalUserID,
	}, fn)
	return eos.Success
}

func (e *Ecom) RunCallbacks(res *callback.Result) bool {
	res.MarkDone()
	return true
}

func (e *Ecom) FreeCallback(*callback.Result) {}
