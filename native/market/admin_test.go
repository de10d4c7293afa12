package market

import (
	"errors"
	"math/big"
	"testing"
)

func TestAdminRequiresOwner(t *testing.T) {
	f := newFixture(t)
	stranger := newTestAddress(0x99)

	if err := f.engine.SetFeeBps(stranger, 100); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.SetFeeRecipient(stranger, newTestAddress(0x11)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.SetRegistryAllowed(stranger, f.registry, false); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.SetPaused(stranger, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSetFeeBpsEnforcesCap(t *testing.T) {
	f := newFixture(t)
	owner := f.state.params.Owner

	if err := f.engine.SetFeeBps(owner, MaxFeeBps); err != nil {
		t.Fatalf("set fee at cap: %v", err)
	}
	if err := f.engine.SetFeeBps(owner, MaxFeeBps+1); err == nil {
		t.Fatal("expected fee above cap to be rejected")
	}
	if f.state.params.FeeBps != MaxFeeBps {
		t.Fatalf("expected fee bps %d, got %d", MaxFeeBps, f.state.params.FeeBps)
	}
}

func TestWhitelistToggle(t *testing.T) {
	f := newFixture(t)
	owner := f.state.params.Owner

	if err := f.engine.SetRegistryAllowed(owner, f.registry, false); err != nil {
		t.Fatalf("delist registry: %v", err)
	}
	if _, err := f.engine.ListItem(f.seller, f.registry, 7, big.NewInt(100), 60); !errors.Is(err, ErrRegistryNotListed) {
		t.Fatalf("expected ErrRegistryNotListed, got %v", err)
	}
}

func TestEmergencyWithdrawRequiresPause(t *testing.T) {
	f := newFixture(t)
	owner := f.state.params.Owner
	treasury := newTestAddress(0x77)
	if _, err := f.engine.CreateOffer(f.buyer, f.registry, 7, big.NewInt(2_500), 3600); err != nil {
		t.Fatalf("create offer: %v", err)
	}

	if _, err := f.engine.EmergencyWithdraw(owner, treasury); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}

	if err := f.engine.SetPaused(owner, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	amount, err := f.engine.EmergencyWithdraw(owner, treasury)
	if err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	if amount.Cmp(big.NewInt(2_500)) != 0 {
		t.Fatalf("expected sweep of 2500, got %s", amount)
	}
	if got := f.state.balance(VaultAddress); got.Sign() != 0 {
		t.Fatalf("expected empty vault, got %s", got)
	}
}
