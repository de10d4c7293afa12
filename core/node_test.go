package core

import (
	"errors"
	"math/big"
	"testing"

	"assetmarket/native/assets"
	"assetmarket/native/escrow"
	"assetmarket/native/market"
	"assetmarket/native/royalty"
	"assetmarket/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type harness struct {
	node     *Node
	ledger   *assets.Ledger
	registry [20]byte
	owner    [20]byte
	seller   [20]byte
	buyer    [20]byte
	feeAddr  [20]byte
	resolver [20]byte
	now      int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		node:     NewNode(storage.NewMemDB()),
		registry: testAddr(0x0A),
		owner:    testAddr(0xAD),
		seller:   testAddr(0x01),
		buyer:    testAddr(0x02),
		feeAddr:  testAddr(0xFE),
		resolver: testAddr(0xDD),
		now:      1_700_000_000,
	}
	h.ledger = assets.NewLedger(h.owner)
	h.node.BindRegistry(h.registry, h.ledger)
	h.node.SetNowFunc(func() int64 { return h.now })
	err := h.node.ApplyGenesis(&Genesis{
		Owner:        h.owner,
		FeeBps:       250,
		FeeRecipient: h.feeAddr,
		Resolver:     h.resolver,
		Registries:   [][20]byte{h.registry},
		Accounts: map[[20]byte]*big.Int{
			h.buyer: big.NewInt(100_000),
		},
	})
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if err := h.ledger.Mint(h.seller, 7); err != nil {
		t.Fatalf("mint: %v", err)
	}
	h.ledger.SetApprovalForAll(h.seller, market.VaultAddress, true)
	h.ledger.SetApprovalForAll(h.seller, escrow.VaultAddress, true)
	return h
}

func (h *harness) balance(t *testing.T, addr [20]byte) *big.Int {
	t.Helper()
	balance, err := h.node.Balance(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

func TestGenesisIsIdempotent(t *testing.T) {
	h := newHarness(t)

	// Owner retunes the fee, then the daemon restarts with the same genesis.
	err := h.node.Execute("market", "setFeeBps", func(env *Env) error {
		return env.Market.SetFeeBps(h.owner, 500)
	})
	if err != nil {
		t.Fatalf("set fee: %v", err)
	}
	err = h.node.ApplyGenesis(&Genesis{Owner: h.owner, FeeBps: 250, FeeRecipient: h.feeAddr})
	if err != nil {
		t.Fatalf("re-apply genesis: %v", err)
	}
	err = h.node.View(func(env *Env) error {
		params, err := env.State.MarketParamsGet()
		if err != nil {
			return err
		}
		if params.FeeBps != 500 {
			t.Fatalf("genesis clobbered the tuned fee: %d", params.FeeBps)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	// Funded accounts are not re-seeded either.
	if err := h.node.Transfer(h.buyer, h.seller, big.NewInt(40_000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	err = h.node.ApplyGenesis(&Genesis{
		Owner:    h.owner,
		Accounts: map[[20]byte]*big.Int{h.buyer: big.NewInt(100_000)},
	})
	if err != nil {
		t.Fatalf("re-apply genesis: %v", err)
	}
	if got := h.balance(t, h.buyer); got.Cmp(big.NewInt(60_000)) != 0 {
		t.Fatalf("buyer balance = %s, want 60000", got)
	}
}

func TestMarketSaleEndToEnd(t *testing.T) {
	h := newHarness(t)

	var listing *market.Listing
	err := h.node.Execute("market", "listItem", func(env *Env) error {
		var err error
		listing, err = env.Market.ListItem(h.seller, h.registry, 7, big.NewInt(10_000), 3600)
		return err
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	err = h.node.Execute("market", "buyItem", func(env *Env) error {
		_, err := env.Market.BuyItem(h.buyer, listing.ID, big.NewInt(12_000))
		return err
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	// 2.5% fee on 10000 is 250; overpayment of 2000 is refunded.
	if got := h.balance(t, h.seller); got.Cmp(big.NewInt(9_750)) != 0 {
		t.Fatalf("seller proceeds = %s, want 9750", got)
	}
	if got := h.balance(t, h.feeAddr); got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("fee payout = %s, want 250", got)
	}
	if got := h.balance(t, h.buyer); got.Cmp(big.NewInt(90_000)) != 0 {
		t.Fatalf("buyer balance = %s, want 90000", got)
	}
	if got := h.balance(t, market.VaultAddress); got.Sign() != 0 {
		t.Fatalf("vault retained %s", got)
	}
	owner, _ := h.ledger.OwnerOf(7)
	if owner != h.buyer {
		t.Fatalf("asset not delivered to the buyer")
	}

	entries := h.node.Events().List(0, 100)
	var sold bool
	for _, entry := range entries {
		if entry.Event.EventType() == market.EventTypeItemSold {
			sold = true
		}
	}
	if !sold {
		t.Fatalf("expected an item-sold event in the recorder")
	}
}

func TestMarketSaleAppliesRoyaltyOverride(t *testing.T) {
	h := newHarness(t)
	creator := testAddr(0xCC)

	err := h.node.Execute("royalty", "setToken", func(env *Env) error {
		return env.Royalty.SetToken(h.seller, h.registry, 7, &royalty.Record{Recipient: creator, Bps: 500})
	})
	if err != nil {
		t.Fatalf("set token royalty: %v", err)
	}

	var listing *market.Listing
	err = h.node.Execute("market", "listItem", func(env *Env) error {
		var err error
		listing, err = env.Market.ListItem(h.seller, h.registry, 7, big.NewInt(10_000), 3600)
		return err
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	err = h.node.Execute("market", "buyItem", func(env *Env) error {
		_, err := env.Market.BuyItem(h.buyer, listing.ID, big.NewInt(10_000))
		return err
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	// 10000 = 250 fee + 500 royalty + 9250 seller.
	if got := h.balance(t, creator); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("royalty payout = %s, want 500", got)
	}
	if got := h.balance(t, h.seller); got.Cmp(big.NewInt(9_250)) != 0 {
		t.Fatalf("seller proceeds = %s, want 9250", got)
	}
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	h := newHarness(t)

	var listing *market.Listing
	err := h.node.Execute("market", "listItem", func(env *Env) error {
		var err error
		listing, err = env.Market.ListItem(h.seller, h.registry, 7, big.NewInt(10_000), 3600)
		return err
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	before := len(h.node.Events().List(0, 1000))

	// The seller moves the asset away out of band; the buy must fail after
	// money already moved inside the overlay, and every effect must revert.
	other := testAddr(0x55)
	if err := h.ledger.SafeTransferFrom(h.seller, h.seller, other, 7); err != nil {
		t.Fatalf("out-of-band transfer: %v", err)
	}
	err = h.node.Execute("market", "buyItem", func(env *Env) error {
		_, err := env.Market.BuyItem(h.buyer, listing.ID, big.NewInt(10_000))
		return err
	})
	if !errors.Is(err, market.ErrSellerLostAsset) {
		t.Fatalf("got %v, want %v", err, market.ErrSellerLostAsset)
	}

	if got := h.balance(t, h.buyer); got.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("buyer balance = %s, want untouched 100000", got)
	}
	if got := h.balance(t, market.VaultAddress); got.Sign() != 0 {
		t.Fatalf("vault balance = %s, want 0", got)
	}
	if after := len(h.node.Events().List(0, 1000)); after != before {
		t.Fatalf("failed operation leaked %d events", after-before)
	}
}

func TestEscrowLifecycleEndToEnd(t *testing.T) {
	h := newHarness(t)

	var tx *escrow.Transaction
	err := h.node.Execute("escrow", "create", func(env *Env) error {
		var err error
		tx, err = env.Escrow.Create(h.seller, h.buyer, h.registry, 7, big.NewInt(10_000), h.now+3600)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := h.balance(t, escrow.VaultAddress); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("vault hold = %s, want 10000", got)
	}

	for _, approver := range [][20]byte{h.seller, h.buyer} {
		err = h.node.Execute("escrow", "approve", func(env *Env) error {
			_, err := env.Escrow.Approve(approver, tx.ID)
			return err
		})
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	if got := h.balance(t, h.seller); got.Cmp(big.NewInt(9_750)) != 0 {
		t.Fatalf("seller proceeds = %s, want 9750", got)
	}
	if got := h.balance(t, h.feeAddr); got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("fee payout = %s, want 250", got)
	}
	owner, _ := h.ledger.OwnerOf(7)
	if owner != h.buyer {
		t.Fatalf("asset not delivered to the buyer")
	}
}

func TestEscrowDisputeResolvedAgainstBuyer(t *testing.T) {
	h := newHarness(t)

	var tx *escrow.Transaction
	err := h.node.Execute("escrow", "create", func(env *Env) error {
		var err error
		tx, err = env.Escrow.Create(h.seller, h.buyer, h.registry, 7, big.NewInt(10_000), h.now+3600)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = h.node.Execute("escrow", "dispute", func(env *Env) error {
		_, err := env.Escrow.Dispute(h.buyer, tx.ID)
		return err
	})
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	err = h.node.Execute("escrow", "resolve", func(env *Env) error {
		_, err := env.Escrow.Resolve(h.resolver, tx.ID, false)
		return err
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Full refund, no fee, asset back with the seller.
	if got := h.balance(t, h.buyer); got.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("buyer refund = %s, want 100000", got)
	}
	if got := h.balance(t, h.feeAddr); got.Sign() != 0 {
		t.Fatalf("no fee on refund, got %s", got)
	}
	owner, _ := h.ledger.OwnerOf(7)
	if owner != h.seller {
		t.Fatalf("asset not returned to the seller")
	}
}

func TestPauseIsEnforcedThroughState(t *testing.T) {
	h := newHarness(t)

	err := h.node.Execute("market", "setPaused", func(env *Env) error {
		return env.Market.SetPaused(h.owner, true)
	})
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	err = h.node.Execute("market", "listItem", func(env *Env) error {
		_, err := env.Market.ListItem(h.seller, h.registry, 7, big.NewInt(100), 60)
		return err
	})
	if err == nil {
		t.Fatalf("expected paused module to reject the listing")
	}

	// Escrow is a separate switch and keeps running.
	err = h.node.Execute("escrow", "create", func(env *Env) error {
		_, err := env.Escrow.Create(h.seller, h.buyer, h.registry, 7, big.NewInt(100), h.now+60)
		return err
	})
	if err != nil {
		t.Fatalf("escrow while market paused: %v", err)
	}
}

func TestTransferValidations(t *testing.T) {
	h := newHarness(t)

	if err := h.node.Transfer(h.buyer, h.seller, big.NewInt(0)); err == nil {
		t.Fatalf("zero transfer must fail")
	}
	if err := h.node.Transfer(h.seller, h.buyer, big.NewInt(1)); err == nil {
		t.Fatalf("transfer from empty account must fail")
	}
	if err := h.node.Transfer(h.buyer, h.seller, big.NewInt(1_000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	acc, err := h.node.Account(h.buyer)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acc.Nonce != 1 {
		t.Fatalf("transfer must bump the sender nonce, got %d", acc.Nonce)
	}
}
