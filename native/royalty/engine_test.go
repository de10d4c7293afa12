package royalty

import (
	"errors"
	"math/big"
	"testing"

	"assetmarket/native/assets"
)

type tokenKey struct {
	registry [20]byte
	assetID  uint64
}

type mockState struct {
	params    *Params
	def       *Record
	contracts map[[20]byte]*Record
	tokens    map[tokenKey]*Record
}

func newMockState() *mockState {
	return &mockState{
		contracts: make(map[[20]byte]*Record),
		tokens:    make(map[tokenKey]*Record),
	}
}

func (m *mockState) RoyaltyParamsGet() (*Params, error) { return m.params.Clone(), nil }

func (m *mockState) RoyaltyDefaultGet() (*Record, bool, error) {
	if m.def == nil {
		return nil, false, nil
	}
	return m.def.Clone(), true, nil
}

func (m *mockState) RoyaltyDefaultPut(r *Record) error {
	m.def = r.Clone()
	return nil
}

func (m *mockState) RoyaltyContractGet(registry [20]byte) (*Record, bool, error) {
	r, ok := m.contracts[registry]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (m *mockState) RoyaltyContractPut(registry [20]byte, record *Record) error {
	m.contracts[registry] = record.Clone()
	return nil
}

func (m *mockState) RoyaltyTokenGet(registry [20]byte, assetID uint64) (*Record, bool, error) {
	r, ok := m.tokens[tokenKey{registry, assetID}]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (m *mockState) RoyaltyTokenPut(registry [20]byte, assetID uint64, record *Record) error {
	m.tokens[tokenKey{registry, assetID}] = record.Clone()
	return nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

// faultyRegistry answers every royalty probe with an error.
type faultyRegistry struct{ *assets.Ledger }

func (faultyRegistry) RoyaltyInfo(uint64, *big.Int) ([20]byte, *big.Int, error) {
	return [20]byte{}, nil, errors.New("probe failure")
}

type fixture struct {
	state    *mockState
	engine   *Engine
	ledger   *assets.Ledger
	registry [20]byte
	owner    [20]byte
	creator  [20]byte
	holder   [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:    newMockState(),
		registry: newTestAddress(0x0A),
		owner:    newTestAddress(0xAD),
		creator:  newTestAddress(0xCC),
		holder:   newTestAddress(0x01),
	}
	f.state.params = &Params{Owner: f.owner}
	f.ledger = assets.NewLedger(newTestAddress(0xEE))
	if err := f.ledger.Mint(f.holder, 7); err != nil {
		t.Fatalf("mint: %v", err)
	}
	engine := NewEngine()
	engine.SetState(f.state)
	engine.SetRegistries(assets.RegistrySet{f.registry: f.ledger})
	f.engine = engine
	return f
}

func TestResolveRequiresPositivePrice(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.engine.Resolve(f.registry, 7, nil); !errors.Is(err, ErrPriceRequired) {
		t.Fatalf("got %v, want %v", err, ErrPriceRequired)
	}
	if _, _, err := f.engine.Resolve(f.registry, 7, big.NewInt(0)); !errors.Is(err, ErrPriceRequired) {
		t.Fatalf("got %v, want %v", err, ErrPriceRequired)
	}
}

func TestResolvePrefersRegistryAnswer(t *testing.T) {
	f := newFixture(t)
	f.ledger.SetAssetRoyalty(7, f.creator, 500)
	f.state.def = &Record{Recipient: newTestAddress(0x11), Bps: 100}

	recipient, amount, err := f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != f.creator {
		t.Fatalf("expected the registry's recipient")
	}
	if amount.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("amount = %s, want 50", amount)
	}
}

func TestResolveIgnoresExcessiveRegistryAnswer(t *testing.T) {
	f := newFixture(t)
	// 20% breaches the cap; the cascade falls through to the default.
	f.ledger.SetAssetRoyalty(7, f.creator, 2000)
	f.state.def = &Record{Recipient: newTestAddress(0x11), Bps: 100}

	recipient, amount, err := f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != newTestAddress(0x11) {
		t.Fatalf("expected fallback to the default record")
	}
	if amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("amount = %s, want 10", amount)
	}
}

func TestResolveSurvivesRegistryFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.SetRegistries(assets.RegistrySet{f.registry: faultyRegistry{f.ledger}})
	f.state.def = &Record{Recipient: f.creator, Bps: 250}

	recipient, amount, err := f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != f.creator || amount.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("got %x/%s, want creator/25", recipient, amount)
	}
}

func TestResolveCascadeOrder(t *testing.T) {
	f := newFixture(t)
	tokenRecipient := newTestAddress(0x11)
	contractRecipient := newTestAddress(0x22)
	defaultRecipient := newTestAddress(0x33)
	f.state.tokens[tokenKey{f.registry, 7}] = &Record{Recipient: tokenRecipient, Bps: 300}
	f.state.contracts[f.registry] = &Record{Recipient: contractRecipient, Bps: 200}
	f.state.def = &Record{Recipient: defaultRecipient, Bps: 100}

	recipient, amount, err := f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != tokenRecipient || amount.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected the token override to win, got %x/%s", recipient, amount)
	}

	delete(f.state.tokens, tokenKey{f.registry, 7})
	recipient, amount, err = f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != contractRecipient || amount.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected the contract override next, got %x/%s", recipient, amount)
	}

	delete(f.state.contracts, f.registry)
	recipient, amount, err = f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != defaultRecipient || amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected the default last, got %x/%s", recipient, amount)
	}

	f.state.def = nil
	recipient, amount, err = f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != ([20]byte{}) || amount.Sign() != 0 {
		t.Fatalf("expected no royalty, got %x/%s", recipient, amount)
	}
}

func TestResolveSkipsTransparentRecords(t *testing.T) {
	f := newFixture(t)
	f.state.contracts[f.registry] = &Record{Recipient: f.creator, Bps: 500}

	// A holder clearing their token royalty must not mask the contract layer.
	if err := f.engine.SetToken(f.holder, f.registry, 7, &Record{Recipient: f.holder, Bps: 0}); err != nil {
		t.Fatalf("set token: %v", err)
	}
	recipient, amount, err := f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != f.creator || amount.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected the contract override, got %x/%s", recipient, amount)
	}

	// A recipient-less record is equally transparent.
	f.state.tokens[tokenKey{f.registry, 7}] = &Record{Bps: 300}
	recipient, amount, err = f.engine.Resolve(f.registry, 7, big.NewInt(1000))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if recipient != f.creator || amount.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected the contract override, got %x/%s", recipient, amount)
	}
}

func TestSetDefaultOwnerOnly(t *testing.T) {
	f := newFixture(t)
	record := &Record{Recipient: f.creator, Bps: 250}

	if err := f.engine.SetDefault(f.holder, record); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("got %v, want %v", err, ErrNotAuthorized)
	}
	if err := f.engine.SetDefault(f.owner, record); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if f.state.def == nil || f.state.def.Bps != 250 {
		t.Fatalf("default record not stored")
	}

	if err := f.engine.SetDefault(f.owner, &Record{Recipient: f.creator, Bps: MaxBps + 1}); err == nil {
		t.Fatalf("expected bps cap rejection")
	}
}

func TestSetContractAcceptsRegistryController(t *testing.T) {
	f := newFixture(t)
	record := &Record{Recipient: f.creator, Bps: 300}
	controller := newTestAddress(0xEE)

	if err := f.engine.SetContract(f.holder, f.registry, record); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("got %v, want %v", err, ErrNotAuthorized)
	}
	if err := f.engine.SetContract(controller, f.registry, record); err != nil {
		t.Fatalf("controller set contract: %v", err)
	}
	if err := f.engine.SetContract(f.owner, f.registry, record); err != nil {
		t.Fatalf("owner set contract: %v", err)
	}
}

func TestSetTokenAcceptsAssetHolder(t *testing.T) {
	f := newFixture(t)
	record := &Record{Recipient: f.creator, Bps: 300}

	if err := f.engine.SetToken(newTestAddress(0x44), f.registry, 7, record); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("got %v, want %v", err, ErrNotAuthorized)
	}
	if err := f.engine.SetToken(f.holder, f.registry, 7, record); err != nil {
		t.Fatalf("holder set token: %v", err)
	}
	// Unknown asset fails safe for non-owners.
	if err := f.engine.SetToken(f.holder, f.registry, 99, record); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("got %v, want %v", err, ErrNotAuthorized)
	}
}

func TestOwnerNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.state.params = nil

	if err := f.engine.SetDefault(f.owner, &Record{Recipient: f.creator, Bps: 100}); !errors.Is(err, ErrOwnerNotSet) {
		t.Fatalf("got %v, want %v", err, ErrOwnerNotSet)
	}
}
