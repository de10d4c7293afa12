package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"assetmarket/core/types"
	"assetmarket/native/escrow"
	"assetmarket/native/market"
	"assetmarket/native/royalty"
	"assetmarket/storage"
)

// Manager provides the keyed stores consumed by the settlement engines. It is
// deliberately lock-free: the node serializes operations and hands each one
// its own overlay-backed manager, so a manager is only ever touched by one
// operation at a time.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, v interface{}) error {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// nextID increments and returns a persisted uint64 counter. The first id
// handed out is 1; ids are never reused.
func (m *Manager) nextID(key []byte) (uint64, error) {
	var current uint64
	if _, err := m.get(key, &current); err != nil {
		return 0, err
	}
	current++
	if err := m.put(key, current); err != nil {
		return 0, err
	}
	return current, nil
}

// --- accounts ---

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account for an address, returning a zeroed account
// when none exists yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.get(prefixedKey(accountPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	acc := &types.Account{Nonce: stored.Nonce, Balance: big.NewInt(0)}
	if stored.Balance != nil {
		acc.Balance = stored.Balance
	}
	return acc, nil
}

// PutAccount persists the account for an address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	stored := storedAccount{Balance: big.NewInt(0)}
	if account != nil {
		stored.Nonce = account.Nonce
		if account.Balance != nil {
			stored.Balance = account.Balance
		}
	}
	return m.put(prefixedKey(accountPrefix, addr), &stored)
}

// --- pause switches ---

// IsPaused implements the native/common.PauseView interface by consulting the
// named module's params. Unknown modules and read failures report unpaused;
// the engines re-check their own params on the admin paths.
func (m *Manager) IsPaused(module string) bool {
	switch module {
	case "escrow":
		params, err := m.EscrowParamsGet()
		return err == nil && params != nil && params.Paused
	case "market":
		params, err := m.MarketParamsGet()
		return err == nil && params != nil && params.Paused
	default:
		return false
	}
}

// --- escrow ---

type storedEscrow struct {
	ID             uint64
	Seller         [20]byte
	Buyer          [20]byte
	Registry       [20]byte
	AssetID        uint64
	Price          *big.Int
	CreatedAt      uint64
	Deadline       uint64
	Status         uint8
	SellerApproved bool
	BuyerApproved  bool
}

// EscrowPut persists an escrow transaction after sanitising it.
func (m *Manager) EscrowPut(tx *escrow.Transaction) error {
	sanitized, err := escrow.Sanitize(tx)
	if err != nil {
		return err
	}
	stored := storedEscrow{
		ID:             sanitized.ID,
		Seller:         sanitized.Seller,
		Buyer:          sanitized.Buyer,
		Registry:       sanitized.Registry,
		AssetID:        sanitized.AssetID,
		Price:          sanitized.Price,
		CreatedAt:      uint64(sanitized.CreatedAt),
		Deadline:       uint64(sanitized.Deadline),
		Status:         uint8(sanitized.Status),
		SellerApproved: sanitized.SellerApproved,
		BuyerApproved:  sanitized.BuyerApproved,
	}
	return m.put(prefixedKey(escrowPrefix, uint64Suffix(sanitized.ID)), &stored)
}

// EscrowGet loads an escrow transaction by id.
func (m *Manager) EscrowGet(id uint64) (*escrow.Transaction, bool, error) {
	var stored storedEscrow
	ok, err := m.get(prefixedKey(escrowPrefix, uint64Suffix(id)), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	tx := &escrow.Transaction{
		ID:             stored.ID,
		Seller:         stored.Seller,
		Buyer:          stored.Buyer,
		Registry:       stored.Registry,
		AssetID:        stored.AssetID,
		Price:          stored.Price,
		CreatedAt:      int64(stored.CreatedAt),
		Deadline:       int64(stored.Deadline),
		Status:         escrow.Status(stored.Status),
		SellerApproved: stored.SellerApproved,
		BuyerApproved:  stored.BuyerApproved,
	}
	return tx, true, nil
}

// EscrowNextID allocates the next escrow transaction id.
func (m *Manager) EscrowNextID() (uint64, error) {
	return m.nextID(escrowSeqKey)
}

// EscrowParamsGet loads the escrow module params, or nil when unset.
func (m *Manager) EscrowParamsGet() (*escrow.Params, error) {
	var params escrow.Params
	ok, err := m.get(escrowParamsKey, &params)
	if err != nil || !ok {
		return nil, err
	}
	return &params, nil
}

// EscrowParamsPut persists the escrow module params.
func (m *Manager) EscrowParamsPut(params *escrow.Params) error {
	if params == nil {
		return errors.New("state: nil escrow params")
	}
	return m.put(escrowParamsKey, params)
}

// EscrowRegistryAllowed reports whether a registry is whitelisted for escrow.
func (m *Manager) EscrowRegistryAllowed(registry [20]byte) (bool, error) {
	var allowed bool
	ok, err := m.get(prefixedKey(escrowWhitelistPrefix, registry[:]), &allowed)
	if err != nil || !ok {
		return false, err
	}
	return allowed, nil
}

// EscrowSetRegistryAllowed toggles a registry on the escrow whitelist.
func (m *Manager) EscrowSetRegistryAllowed(registry [20]byte, allowed bool) error {
	return m.put(prefixedKey(escrowWhitelistPrefix, registry[:]), allowed)
}

// --- market ---

type storedListing struct {
	ID        uint64
	Seller    [20]byte
	Registry  [20]byte
	AssetID   uint64
	Price     *big.Int
	CreatedAt uint64
	ExpiresAt uint64
	Active    bool
}

type storedOffer struct {
	ID        uint64
	Buyer     [20]byte
	Registry  [20]byte
	AssetID   uint64
	Amount    *big.Int
	CreatedAt uint64
	ExpiresAt uint64
	Active    bool
}

// ListingPut persists a listing after sanitising it.
func (m *Manager) ListingPut(listing *market.Listing) error {
	sanitized, err := market.SanitizeListing(listing)
	if err != nil {
		return err
	}
	stored := storedListing{
		ID:        sanitized.ID,
		Seller:    sanitized.Seller,
		Registry:  sanitized.Registry,
		AssetID:   sanitized.AssetID,
		Price:     sanitized.Price,
		CreatedAt: uint64(sanitized.CreatedAt),
		ExpiresAt: uint64(sanitized.ExpiresAt),
		Active:    sanitized.Active,
	}
	return m.put(prefixedKey(listingPrefix, uint64Suffix(sanitized.ID)), &stored)
}

// ListingGet loads a listing by id.
func (m *Manager) ListingGet(id uint64) (*market.Listing, bool, error) {
	var stored storedListing
	ok, err := m.get(prefixedKey(listingPrefix, uint64Suffix(id)), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	listing := &market.Listing{
		ID:        stored.ID,
		Seller:    stored.Seller,
		Registry:  stored.Registry,
		AssetID:   stored.AssetID,
		Price:     stored.Price,
		CreatedAt: int64(stored.CreatedAt),
		ExpiresAt: int64(stored.ExpiresAt),
		Active:    stored.Active,
	}
	return listing, true, nil
}

// ListingNextID allocates the next listing id.
func (m *Manager) ListingNextID() (uint64, error) {
	return m.nextID(listingSeqKey)
}

// ListingIDsByUser returns every listing id ever created by the user.
func (m *Manager) ListingIDsByUser(user [20]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.get(prefixedKey(userListingsPrefix, user[:]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListingIndexByUser appends a listing id to the user's history.
func (m *Manager) ListingIndexByUser(user [20]byte, id uint64) error {
	ids, err := m.ListingIDsByUser(user)
	if err != nil {
		return err
	}
	return m.put(prefixedKey(userListingsPrefix, user[:]), append(ids, id))
}

// ActiveListingGet returns the active listing id for an asset, if indexed.
func (m *Manager) ActiveListingGet(registry [20]byte, assetID uint64) (uint64, bool, error) {
	var id uint64
	ok, err := m.get(prefixedKey(activeListingPrefix, assetSuffix(registry, assetID)), &id)
	if err != nil || !ok {
		return 0, false, err
	}
	return id, true, nil
}

// ActiveListingSet indexes the active listing for an asset.
func (m *Manager) ActiveListingSet(registry [20]byte, assetID uint64, id uint64) error {
	return m.put(prefixedKey(activeListingPrefix, assetSuffix(registry, assetID)), id)
}

// ActiveListingClear drops the active listing index entry for an asset.
func (m *Manager) ActiveListingClear(registry [20]byte, assetID uint64) error {
	return m.db.Delete(prefixedKey(activeListingPrefix, assetSuffix(registry, assetID)))
}

// OfferPut persists an offer after sanitising it.
func (m *Manager) OfferPut(offer *market.Offer) error {
	sanitized, err := market.SanitizeOffer(offer)
	if err != nil {
		return err
	}
	stored := storedOffer{
		ID:        sanitized.ID,
		Buyer:     sanitized.Buyer,
		Registry:  sanitized.Registry,
		AssetID:   sanitized.AssetID,
		Amount:    sanitized.Amount,
		CreatedAt: uint64(sanitized.CreatedAt),
		ExpiresAt: uint64(sanitized.ExpiresAt),
		Active:    sanitized.Active,
	}
	return m.put(prefixedKey(offerPrefix, uint64Suffix(sanitized.ID)), &stored)
}

// OfferGet loads an offer by id.
func (m *Manager) OfferGet(id uint64) (*market.Offer, bool, error) {
	var stored storedOffer
	ok, err := m.get(prefixedKey(offerPrefix, uint64Suffix(id)), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	offer := &market.Offer{
		ID:        stored.ID,
		Buyer:     stored.Buyer,
		Registry:  stored.Registry,
		AssetID:   stored.AssetID,
		Amount:    stored.Amount,
		CreatedAt: int64(stored.CreatedAt),
		ExpiresAt: int64(stored.ExpiresAt),
		Active:    stored.Active,
	}
	return offer, true, nil
}

// OfferNextID allocates the next offer id.
func (m *Manager) OfferNextID() (uint64, error) {
	return m.nextID(offerSeqKey)
}

// OfferIDsByUser returns every offer id ever created by the user.
func (m *Manager) OfferIDsByUser(user [20]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.get(prefixedKey(userOffersPrefix, user[:]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// OfferIndexByUser appends an offer id to the user's history.
func (m *Manager) OfferIndexByUser(user [20]byte, id uint64) error {
	ids, err := m.OfferIDsByUser(user)
	if err != nil {
		return err
	}
	return m.put(prefixedKey(userOffersPrefix, user[:]), append(ids, id))
}

// MarketParamsGet loads the market module params, or nil when unset.
func (m *Manager) MarketParamsGet() (*market.Params, error) {
	var params market.Params
	ok, err := m.get(marketParamsKey, &params)
	if err != nil || !ok {
		return nil, err
	}
	return &params, nil
}

// MarketParamsPut persists the market module params.
func (m *Manager) MarketParamsPut(params *market.Params) error {
	if params == nil {
		return errors.New("state: nil market params")
	}
	return m.put(marketParamsKey, params)
}

// MarketRegistryAllowed reports whether a registry is whitelisted for the
// market.
func (m *Manager) MarketRegistryAllowed(registry [20]byte) (bool, error) {
	var allowed bool
	ok, err := m.get(prefixedKey(marketWhitelistPrefix, registry[:]), &allowed)
	if err != nil || !ok {
		return false, err
	}
	return allowed, nil
}

// MarketSetRegistryAllowed toggles a registry on the market whitelist.
func (m *Manager) MarketSetRegistryAllowed(registry [20]byte, allowed bool) error {
	return m.put(prefixedKey(marketWhitelistPrefix, registry[:]), allowed)
}

// MarketStatsGet loads the marketplace running totals.
func (m *Manager) MarketStatsGet() (*market.Stats, error) {
	var stats market.Stats
	ok, err := m.get(marketStatsKey, &stats)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &market.Stats{Volume: big.NewInt(0)}, nil
	}
	if stats.Volume == nil {
		stats.Volume = big.NewInt(0)
	}
	return &stats, nil
}

// MarketStatsPut persists the marketplace running totals.
func (m *Manager) MarketStatsPut(stats *market.Stats) error {
	if stats == nil {
		return errors.New("state: nil market stats")
	}
	if stats.Volume == nil {
		stats.Volume = big.NewInt(0)
	}
	return m.put(marketStatsKey, stats)
}

// --- royalty ---

// RoyaltyParamsGet loads the royalty module params, defaulting to empty.
func (m *Manager) RoyaltyParamsGet() (*royalty.Params, error) {
	var params royalty.Params
	if _, err := m.get(royaltyParamsKey, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// RoyaltyParamsPut persists the royalty module params.
func (m *Manager) RoyaltyParamsPut(params *royalty.Params) error {
	if params == nil {
		return errors.New("state: nil royalty params")
	}
	return m.put(royaltyParamsKey, params)
}

// RoyaltyDefaultGet loads the global default royalty record.
func (m *Manager) RoyaltyDefaultGet() (*royalty.Record, bool, error) {
	var record royalty.Record
	ok, err := m.get(royaltyDefaultKey, &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// RoyaltyDefaultPut persists the global default royalty record.
func (m *Manager) RoyaltyDefaultPut(record *royalty.Record) error {
	if record == nil {
		return errors.New("state: nil royalty record")
	}
	return m.put(royaltyDefaultKey, record)
}

// RoyaltyContractGet loads the contract-level override for a registry.
func (m *Manager) RoyaltyContractGet(registry [20]byte) (*royalty.Record, bool, error) {
	var record royalty.Record
	ok, err := m.get(prefixedKey(royaltyContractPrefix, registry[:]), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// RoyaltyContractPut persists the contract-level override for a registry.
func (m *Manager) RoyaltyContractPut(registry [20]byte, record *royalty.Record) error {
	if record == nil {
		return errors.New("state: nil royalty record")
	}
	return m.put(prefixedKey(royaltyContractPrefix, registry[:]), record)
}

// RoyaltyTokenGet loads the token-level override for an asset.
func (m *Manager) RoyaltyTokenGet(registry [20]byte, assetID uint64) (*royalty.Record, bool, error) {
	var record royalty.Record
	ok, err := m.get(prefixedKey(royaltyTokenPrefix, assetSuffix(registry, assetID)), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// RoyaltyTokenPut persists the token-level override for an asset.
func (m *Manager) RoyaltyTokenPut(registry [20]byte, assetID uint64, record *royalty.Record) error {
	if record == nil {
		return errors.New("state: nil royalty record")
	}
	return m.put(prefixedKey(royaltyTokenPrefix, assetSuffix(registry, assetID)), record)
}
