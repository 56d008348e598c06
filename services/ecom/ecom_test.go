package ecom

import (
	"testing"

	"github.com/andres-erbsen/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/settings"
)

const testEpicID eos.EpicAccountID = "0123456789abcdef0123456789abcdef"

func newEcom(t *testing.T, unlock bool, dlcs ...string) (*Ecom, *callback.Registry) {
	t.Helper()
	s := &settings.Settings{EpicID: testEpicID, GameName: "Unreal", UnlockDLCs: unlock, DLCs: dlcs}
	reg := callback.NewRegistry(clock.NewMock())
	e, err := New(services.Env{Registry: reg, Settings: services.Static(s)})
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e, reg
}

func queryOwnership(t *testing.T, e *Ecom, reg *callback.Registry, ids ...string) *QueryOwnershipCallbackInfo {
	t.Helper()
	var got *QueryOwnershipCallbackInfo
	require.Equal(t, eos.Success, e.QueryOwnership(&QueryOwnershipOptions{LocalUserID: testEpicID, CatalogItemIDs: ids}, nil,
		func(info *QueryOwnershipCallbackInfo) { got = info }))
	require.NoError(t, reg.Tick())
	require.NotNil(t, got)
	return got
}

func TestQueryOwnership(t *testing.T) {
	cases := []struct {
		name   string
		unlock bool
		dlcs   []string
		ids    []string
		want   []OwnershipStatus
	}{
		{name: "Unlocked", unlock: true, ids: []string{"game", "", "dlc1"}, want: []OwnershipStatus{Owned, NotOwned, Owned}},
		{name: "LockedListed", dlcs: []string{"dlc1"}, ids: []string{"dlc1", "dlc2"}, want: []OwnershipStatus{Owned, NotOwned}},
		{name: "NoItems", unlock: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, reg := newEcom(t, tc.unlock, tc.dlcs...)
			got := queryOwnership(t, e, reg, tc.ids...)
			assert.Equal(t, eos.Success, got.ResultCode)
			assert.Equal(t, testEpicID, got.LocalUserID)
			require.Len(t, got.ItemOwnership, len(tc.want))
			for i, want := range tc.want {
				assert.Equal(t, tc.ids[i], got.ItemOwnership[i].ID)
				assert.Equal(t, want, got.ItemOwnership[i].OwnershipStatus, tc.ids[i])
			}
		})
	}

	t.Run("InvalidParameters", func(t *testing.T) {
		e, _ := newEcom(t, true)
		assert.Equal(t, eos.InvalidParameters, e.QueryOwnership(&QueryOwnershipOptions{}, nil, nil))
		assert.Equal(t, eos.InvalidParameters, e.QueryOwnership(nil, nil, func(*QueryOwnershipCallbackInfo) {}))
	})
}

func TestEntitlements(t *testing.T) {
	e, reg := newEcom(t, false, "dlc1", "dlc2")

	done := 0
	e.QueryEntitlements(&QueryEntitlementsOptions{LocalUserID: testEpicID}, nil,
		func(*QueryEntitlementsCallbackInfo) { done++ })
	require.NoError(t, reg.Tick())
	require.Equal(t, 1, done)
	require.Equal(t, 2, e.GetEntitlementsCount())

	ent, res := e.CopyEntitlementByIndex(0)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, "dlc1", ent.EntitlementName)
	assert.False(t, ent.Redeemed)
	_, res = e.CopyEntitlementByIndex(2)
	assert.Equal(t, eos.NotFound, res)

	e.RedeemEntitlements(&RedeemEntitlementsOptions{EntitlementIDs: []string{ent.EntitlementID}}, nil,
		func(*RedeemEntitlementsCallbackInfo) { done++ })
	require.NoError(t, reg.Tick())
	require.Equal(t, 2, done)

	e.QueryEntitlements(&QueryEntitlementsOptions{}, nil, func(*QueryEntitlementsCallbackInfo) { done++ })
	require.NoError(t, reg.Tick())
	assert.Equal(t, 1, e.GetEntitlementsCount(), "redeemed entitlements are hidden by default")

	e.QueryEntitlements(&QueryEntitlementsOptions{IncludeRedeemed: true}, nil, func(*QueryEntitlementsCallbackInfo) {})
	require.NoError(t, reg.Tick())
	require.Equal(t, 2, e.GetEntitlementsCount())
	again, _ := e.CopyEntitlementByIndex(0)
	assert.Equal(t, ent.EntitlementID, again.EntitlementID, "ids are stable across queries")
	assert.True(t, again.Redeemed)
}

func TestCheckout(t *testing.T) {
	e, reg := newEcom(t, true)

	var got *CheckoutCallbackInfo
	require.Equal(t, eos.Success, e.Checkout(&CheckoutOptions{Entries: []CheckoutEntry{{OfferID: "offer1"}}}, nil,
		func(info *CheckoutCallbackInfo) { got = info }))
	require.NoError(t, reg.Tick())
	require.NotNil(t, got)
	assert.Equal(t, eos.Success, got.ResultCode)
	_, err := uuid.Parse(got.TransactionID)
	require.NoError(t, err)

	assert.Equal(t, 1, e.GetTransactionCount())
	tx, res := e.CopyTransactionByID(got.TransactionID)
	require.Equal(t, eos.Success, res)
	assert.Equal(t, []string{"offer1"}, tx.OfferIDs)
	_, res = e.CopyTransactionByID("missing")
	assert.Equal(t, eos.NotFound, res)

	assert.Equal(t, eos.InvalidParameters, e.Checkout(&CheckoutOptions{}, nil, func(*CheckoutCallbackInfo) {}))
}

func TestOffersAndToken(t *testing.T) {
	e, reg := newEcom(t, true)

	var codes []eos.Result
	var token string
	e.QueryOffers(&QueryOffersOptions{}, nil, func(info *QueryOffersCallbackInfo) { codes = append(codes, info.ResultCode) })
	e.QueryOwnershipToken(&QueryOwnershipTokenOptions{CatalogItemIDs: []string{"game"}}, nil,
		func(info *QueryOwnershipTokenCallbackInfo) {
			codes = append(codes, info.ResultCode)
			token = info.OwnershipToken
		})
	require.NoError(t, reg.Tick())

	assert.Equal(t, []eos.Result{eos.Success, eos.Success}, codes, "callbacks fire in call order")
	assert.NotEmpty(t, token)
	assert.Zero(t, e.GetOfferCount())
}
