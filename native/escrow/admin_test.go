package escrow

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
	if err := f.engine.SetResolver(stranger, newTestAddress(0x11)); !errors.Is(err, ErrNotAuthorized) {
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

func TestAdminRejectsZeroAddresses(t *testing.T) {
	f := newFixture(t)
	owner := f.state.params.Owner
	var zero [20]byte

	if err := f.engine.SetFeeRecipient(owner, zero); err == nil {
		t.Fatal("expected zero fee recipient to be rejected")
	}
	if err := f.engine.SetResolver(owner, zero); err == nil {
		t.Fatal("expected zero resolver to be rejected")
	}
	if err := f.engine.SetRegistryAllowed(owner, zero, true); err == nil {
		t.Fatal("expected zero registry to be rejected")
	}
}

func TestEmergencyWithdrawRequiresPause(t *testing.T) {
	f := newFixture(t)
	owner := f.state.params.Owner
	treasury := newTestAddress(0x77)
	f.create(t, 1000)

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
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected sweep of 1000, got %s", amount)
	}
	if got := f.state.balance(t, treasury); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected treasury balance 1000, got %s", got)
	}
	if got := f.state.balance(t, VaultAddress); got.Sign() != 0 {
		t.Fatalf("expected empty vault, got %s", got)
	}
}
