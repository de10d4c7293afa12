package state

import (
	"math/big"
	"testing"

	"assetmarket/core/types"
	"assetmarket/native/escrow"
	"assetmarket/native/market"
	"assetmarket/native/royalty"
	"assetmarket/storage"
)

func newManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestAccountRoundTrip(t *testing.T) {
	m := newManager()
	addr := testAddr(0x01)

	acc, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get fresh account: %v", err)
	}
	if acc.Balance.Sign() != 0 || acc.Nonce != 0 {
		t.Fatalf("fresh account must be zeroed, got %+v", acc)
	}

	acc.Nonce = 3
	acc.Balance = big.NewInt(12345)
	if err := m.PutAccount(addr[:], acc); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 3 || loaded.Balance.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestEscrowRoundTripAndCounter(t *testing.T) {
	m := newManager()

	id, err := m.EscrowNextID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}
	if next, _ := m.EscrowNextID(); next != 2 {
		t.Fatalf("second id = %d, want 2", next)
	}

	tx := &escrow.Transaction{
		ID:        id,
		Seller:    testAddr(0x01),
		Buyer:     testAddr(0x02),
		Registry:  testAddr(0x0A),
		AssetID:   7,
		Price:     big.NewInt(1000),
		CreatedAt: 1_700_000_000,
		Deadline:  1_700_003_600,
		Status:    escrow.StatusActive,
	}
	if err := m.EscrowPut(tx); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := m.EscrowGet(id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.Seller != tx.Seller || loaded.Deadline != tx.Deadline || loaded.Status != escrow.StatusActive {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Price.Cmp(tx.Price) != 0 {
		t.Fatalf("price mismatch: %s", loaded.Price)
	}

	if _, ok, err := m.EscrowGet(999); err != nil || ok {
		t.Fatalf("missing escrow: ok=%v err=%v", ok, err)
	}
}

func TestEscrowParamsAndWhitelist(t *testing.T) {
	m := newManager()

	params, err := m.EscrowParamsGet()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params != nil {
		t.Fatalf("expected nil params before seeding")
	}

	seed := &escrow.Params{
		Owner:         testAddr(0xAD),
		FeeBps:        250,
		FeeRecipient:  testAddr(0xFE),
		Resolver:      testAddr(0xDD),
		DisputeWindow: escrow.DefaultDisputeWindow,
	}
	if err := m.EscrowParamsPut(seed); err != nil {
		t.Fatalf("put params: %v", err)
	}
	loaded, err := m.EscrowParamsGet()
	if err != nil {
		t.Fatalf("get params: %v", err)
	}
	if *loaded != *seed {
		t.Fatalf("params mismatch: %+v", loaded)
	}

	registry := testAddr(0x0A)
	if ok, _ := m.EscrowRegistryAllowed(registry); ok {
		t.Fatalf("registry must start unlisted")
	}
	if err := m.EscrowSetRegistryAllowed(registry, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if ok, _ := m.EscrowRegistryAllowed(registry); !ok {
		t.Fatalf("expected registry whitelisted")
	}
	if err := m.EscrowSetRegistryAllowed(registry, false); err != nil {
		t.Fatalf("delist: %v", err)
	}
	if ok, _ := m.EscrowRegistryAllowed(registry); ok {
		t.Fatalf("expected registry delisted")
	}
}

func TestListingRoundTripAndIndexes(t *testing.T) {
	m := newManager()
	seller := testAddr(0x01)
	registry := testAddr(0x0A)

	id, err := m.ListingNextID()
	if err != nil || id != 1 {
		t.Fatalf("next id: %d %v", id, err)
	}
	listing := &market.Listing{
		ID:        id,
		Seller:    seller,
		Registry:  registry,
		AssetID:   7,
		Price:     big.NewInt(500),
		CreatedAt: 1_700_000_000,
		ExpiresAt: 1_700_003_600,
		Active:    true,
	}
	if err := m.ListingPut(listing); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := m.ListingGet(id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.Seller != seller || !loaded.Active || loaded.ExpiresAt != listing.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	if err := m.ListingIndexByUser(seller, id); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := m.ListingIndexByUser(seller, id+1); err != nil {
		t.Fatalf("index: %v", err)
	}
	ids, err := m.ListingIDsByUser(seller)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != id || ids[1] != id+1 {
		t.Fatalf("user index = %v", ids)
	}

	if err := m.ActiveListingSet(registry, 7, id); err != nil {
		t.Fatalf("active set: %v", err)
	}
	got, ok, err := m.ActiveListingGet(registry, 7)
	if err != nil || !ok || got != id {
		t.Fatalf("active get = %d ok=%v err=%v", got, ok, err)
	}
	if err := m.ActiveListingClear(registry, 7); err != nil {
		t.Fatalf("active clear: %v", err)
	}
	if _, ok, _ := m.ActiveListingGet(registry, 7); ok {
		t.Fatalf("expected active index cleared")
	}
}

func TestOfferRoundTrip(t *testing.T) {
	m := newManager()
	buyer := testAddr(0x02)

	id, err := m.OfferNextID()
	if err != nil || id != 1 {
		t.Fatalf("next id: %d %v", id, err)
	}
	offer := &market.Offer{
		ID:        id,
		Buyer:     buyer,
		Registry:  testAddr(0x0A),
		AssetID:   7,
		Amount:    big.NewInt(800),
		CreatedAt: 1_700_000_000,
		ExpiresAt: 1_700_003_600,
		Active:    true,
	}
	if err := m.OfferPut(offer); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := m.OfferGet(id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.Buyer != buyer || loaded.Amount.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	if err := m.OfferIndexByUser(buyer, id); err != nil {
		t.Fatalf("index: %v", err)
	}
	ids, err := m.OfferIDsByUser(buyer)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("user index = %v err=%v", ids, err)
	}
}

func TestMarketStats(t *testing.T) {
	m := newManager()

	stats, err := m.MarketStatsGet()
	if err != nil {
		t.Fatalf("fresh stats: %v", err)
	}
	if stats.Listings != 0 || stats.Sales != 0 || stats.Volume.Sign() != 0 {
		t.Fatalf("fresh stats must be zeroed: %+v", stats)
	}

	stats.Listings = 2
	stats.Sales = 1
	stats.Volume = big.NewInt(1000)
	if err := m.MarketStatsPut(stats); err != nil {
		t.Fatalf("put stats: %v", err)
	}
	loaded, err := m.MarketStatsGet()
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if loaded.Listings != 2 || loaded.Sales != 1 || loaded.Volume.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("stats mismatch: %+v", loaded)
	}
}

func TestRoyaltyRecords(t *testing.T) {
	m := newManager()
	registry := testAddr(0x0A)
	creator := testAddr(0xCC)

	if _, ok, err := m.RoyaltyDefaultGet(); err != nil || ok {
		t.Fatalf("fresh default: ok=%v err=%v", ok, err)
	}
	if err := m.RoyaltyDefaultPut(&royalty.Record{Recipient: creator, Bps: 100}); err != nil {
		t.Fatalf("put default: %v", err)
	}
	record, ok, err := m.RoyaltyDefaultGet()
	if err != nil || !ok || record.Bps != 100 {
		t.Fatalf("default round trip: %+v ok=%v err=%v", record, ok, err)
	}

	if err := m.RoyaltyContractPut(registry, &royalty.Record{Recipient: creator, Bps: 200}); err != nil {
		t.Fatalf("put contract: %v", err)
	}
	record, ok, err = m.RoyaltyContractGet(registry)
	if err != nil || !ok || record.Bps != 200 {
		t.Fatalf("contract round trip: %+v ok=%v err=%v", record, ok, err)
	}

	if err := m.RoyaltyTokenPut(registry, 7, &royalty.Record{Recipient: creator, Bps: 300}); err != nil {
		t.Fatalf("put token: %v", err)
	}
	record, ok, err = m.RoyaltyTokenGet(registry, 7)
	if err != nil || !ok || record.Bps != 300 {
		t.Fatalf("token round trip: %+v ok=%v err=%v", record, ok, err)
	}
	// A different asset id does not see the override.
	if _, ok, _ := m.RoyaltyTokenGet(registry, 8); ok {
		t.Fatalf("unexpected token override for other asset")
	}
}

func TestIsPausedReadsModuleParams(t *testing.T) {
	m := newManager()

	if m.IsPaused("escrow") || m.IsPaused("market") || m.IsPaused("unknown") {
		t.Fatalf("everything must start unpaused")
	}
	if err := m.EscrowParamsPut(&escrow.Params{Owner: testAddr(0xAD), Paused: true}); err != nil {
		t.Fatalf("put params: %v", err)
	}
	if !m.IsPaused("escrow") {
		t.Fatalf("expected escrow paused")
	}
	if m.IsPaused("market") {
		t.Fatalf("market must stay unpaused")
	}
}

func TestAccountTypesClone(t *testing.T) {
	acc := &types.Account{Nonce: 1, Balance: big.NewInt(10)}
	clone := acc.Clone()
	clone.Balance.SetInt64(99)
	if acc.Balance.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("clone aliases the balance")
	}
}
