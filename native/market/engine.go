package market

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"assetmarket/core/events"
	"assetmarket/core/types"
	"assetmarket/native/assets"
	nativecommon "assetmarket/native/common"
)

const moduleName = "market"

var (
	errNilState          = errors.New("market engine: state not configured")
	errNilRoyalties      = errors.New("market engine: royalty engine not configured")
	ErrListingNotFound   = errors.New("market engine: listing not found")
	ErrOfferNotFound     = errors.New("market engine: offer not found")
	ErrInactive          = errors.New("market engine: record no longer active")
	ErrExpired           = errors.New("market engine: record expired")
	ErrNotAuthorized     = errors.New("market engine: caller not authorized")
	ErrOwnListing        = errors.New("market engine: cannot buy own listing")
	ErrRegistryNotListed = errors.New("market engine: asset registry not whitelisted")
	ErrRegistryUnbound   = errors.New("market engine: asset registry not resolvable")
	ErrNotAssetOwner     = errors.New("market engine: caller does not own the asset")
	ErrSellerLostAsset   = errors.New("market engine: seller no longer owns the asset")
	ErrNotApproved       = errors.New("market engine: engine not approved to move the asset")
	ErrInsufficientPay   = errors.New("market engine: payment below listing price")
	ErrInsufficientFunds = errors.New("market engine: insufficient balance")
	ErrNotPaused         = errors.New("market engine: module not paused")
	ErrFeeRecipientZero  = errors.New("market engine: fee recipient not configured")
)

// VaultAddress custodies escrowed offer payments and in-flight sale proceeds,
// and is the identity under which the engine instructs asset registries.
var VaultAddress = vaultAddress()

func vaultAddress() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("assetmarket/market/vault"))[12:])
	return addr
}

// royaltySource abstracts the royalty resolution engine so tests can stub the
// cascade.
type royaltySource interface {
	Resolve(registry [20]byte, assetID uint64, salePrice *big.Int) ([20]byte, *big.Int, error)
}

type engineState interface {
	MarketParamsGet() (*Params, error)
	MarketParamsPut(*Params) error
	ListingPut(*Listing) error
	ListingGet(id uint64) (*Listing, bool, error)
	ListingNextID() (uint64, error)
	ListingIDsByUser(user [20]byte) ([]uint64, error)
	ListingIndexByUser(user [20]byte, id uint64) error
	ActiveListingGet(registry [20]byte, assetID uint64) (uint64, bool, error)
	ActiveListingSet(registry [20]byte, assetID uint64, id uint64) error
	ActiveListingClear(registry [20]byte, assetID uint64) error
	OfferPut(*Offer) error
	OfferGet(id uint64) (*Offer, bool, error)
	OfferNextID() (uint64, error)
	OfferIDsByUser(user [20]byte) ([]uint64, error)
	OfferIndexByUser(user [20]byte, id uint64) error
	MarketRegistryAllowed(registry [20]byte) (bool, error)
	MarketSetRegistryAllowed(registry [20]byte, allowed bool) error
	MarketStatsGet() (*Stats, error)
	MarketStatsPut(*Stats) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine implements the marketplace listing and offer lifecycle. Sales settle
// through the royalty engine's fee split; every operation is all-or-nothing
// under the host environment's serialized execution, with the external
// registry instructed only as the final step.
type Engine struct {
	state      engineState
	registries assets.Resolver
	royalties  royaltySource
	emitter    events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64
}

// NewEngine creates a market engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistries configures the resolver for whitelisted asset registries.
func (e *Engine) SetRegistries(r assets.Resolver) { e.registries = r }

// SetRoyalties configures the royalty resolution engine consulted at sale
// time.
func (e *Engine) SetRoyalties(r royaltySource) { e.royalties = r }

// SetPauses configures the pause switch view consulted by mutators.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine, primarily for
// deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) params() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	params, err := e.state.MarketParamsGet()
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &Params{}
	}
	return params, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) transferBalance(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("market engine: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func (e *Engine) registry(addr [20]byte) (assets.Registry, error) {
	if e == nil || e.registries == nil {
		return nil, ErrRegistryUnbound
	}
	reg, ok := e.registries.Registry(addr)
	if !ok {
		return nil, ErrRegistryUnbound
	}
	return reg, nil
}

func engineAuthorized(reg assets.Registry, owner [20]byte, assetID uint64) error {
	if approved, err := reg.GetApproved(assetID); err == nil && approved == VaultAddress {
		return nil
	}
	if reg.IsApprovedForAll(owner, VaultAddress) {
		return nil
	}
	return ErrNotApproved
}

// deactivateListing flips a listing inactive and drops the per-asset index
// entry when it still points at this listing.
func (e *Engine) deactivateListing(listing *Listing, reason string) error {
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	if current, ok, err := e.state.ActiveListingGet(listing.Registry, listing.AssetID); err != nil {
		return err
	} else if ok && current == listing.ID {
		if err := e.state.ActiveListingClear(listing.Registry, listing.AssetID); err != nil {
			return err
		}
	}
	e.emit(NewListingCancelledEvent(listing, reason))
	return nil
}

// ListItem creates a fixed-price listing. A prior active listing for the same
// asset is deactivated first, so at most one active listing per asset ever
// exists.
func (e *Engine) ListItem(caller, registry [20]byte, assetID uint64, price *big.Int, duration int64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	allowed, err := e.state.MarketRegistryAllowed(registry)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRegistryNotListed
	}
	amount := cloneBigInt(price)
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("market engine: price must be positive")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("market engine: duration must be positive")
	}
	reg, err := e.registry(registry)
	if err != nil {
		return nil, err
	}
	owner, err := reg.OwnerOf(assetID)
	if err != nil {
		return nil, fmt.Errorf("market engine: owner lookup: %w", err)
	}
	if owner != caller {
		return nil, ErrNotAssetOwner
	}
	if err := engineAuthorized(reg, caller, assetID); err != nil {
		return nil, err
	}
	if priorID, ok, err := e.state.ActiveListingGet(registry, assetID); err != nil {
		return nil, err
	} else if ok {
		prior, found, err := e.state.ListingGet(priorID)
		if err != nil {
			return nil, err
		}
		if found && prior.Active {
			if err := e.deactivateListing(prior, "superseded"); err != nil {
				return nil, err
			}
		}
	}
	id, err := e.state.ListingNextID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	listing := &Listing{
		ID:        id,
		Seller:    caller,
		Registry:  registry,
		AssetID:   assetID,
		Price:     amount,
		CreatedAt: now,
		ExpiresAt: now + duration,
		Active:    true,
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	if err := e.state.ActiveListingSet(registry, assetID, id); err != nil {
		return nil, err
	}
	if err := e.state.ListingIndexByUser(caller, id); err != nil {
		return nil, err
	}
	stats, err := e.stats()
	if err != nil {
		return nil, err
	}
	stats.Listings++
	if err := e.state.MarketStatsPut(stats); err != nil {
		return nil, err
	}
	e.emit(NewListingCreatedEvent(listing))
	return listing.Clone(), nil
}

// BuyItem purchases an active, unexpired listing. The payment is debited from
// the caller, any overpayment is refunded exactly, and the price splits into
// seller proceeds, platform fee, and creator royalty with no remainder.
func (e *Engine) BuyItem(caller [20]byte, listingID uint64, payment *big.Int) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, found, err := e.state.ListingGet(listingID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrListingNotFound
	}
	if !listing.Active {
		return nil, ErrInactive
	}
	if listing.Expired(e.now()) {
		return nil, ErrExpired
	}
	if caller == listing.Seller {
		return nil, ErrOwnListing
	}
	paid := cloneBigInt(payment)
	if paid.Cmp(listing.Price) < 0 {
		return nil, ErrInsufficientPay
	}
	reg, err := e.registry(listing.Registry)
	if err != nil {
		return nil, err
	}
	// Stale-listing guard: the seller may have transferred the asset out of
	// band since listing time.
	owner, err := reg.OwnerOf(listing.AssetID)
	if err != nil {
		return nil, fmt.Errorf("market engine: owner lookup: %w", err)
	}
	if owner != listing.Seller {
		return nil, ErrSellerLostAsset
	}
	if err := engineAuthorized(reg, listing.Seller, listing.AssetID); err != nil {
		return nil, err
	}
	if err := e.transferBalance(caller, VaultAddress, paid); err != nil {
		return nil, err
	}
	if overpay := new(big.Int).Sub(paid, listing.Price); overpay.Sign() > 0 {
		if err := e.transferBalance(VaultAddress, caller, overpay); err != nil {
			return nil, err
		}
	}
	royaltyRecipient, royaltyAmount, err := e.settle(listing.Registry, listing.AssetID, listing.Seller, listing.Price)
	if err != nil {
		return nil, err
	}
	if err := e.deactivateSold(listing); err != nil {
		return nil, err
	}
	stats, err := e.stats()
	if err != nil {
		return nil, err
	}
	stats.Sales++
	stats.Volume = new(big.Int).Add(stats.Volume, listing.Price)
	if err := e.state.MarketStatsPut(stats); err != nil {
		return nil, err
	}
	e.emit(NewItemSoldEvent(listing, caller, royaltyRecipient, royaltyAmount))
	if err := reg.SafeTransferFrom(VaultAddress, listing.Seller, caller, listing.AssetID); err != nil {
		return nil, fmt.Errorf("market engine: deliver asset: %w", err)
	}
	return listing.Clone(), nil
}

// settle distributes a sale price already held in the vault: creator royalty
// per the resolution cascade, platform fee, remainder to the seller. Returns
// the royalty leg for event reporting.
func (e *Engine) settle(registry [20]byte, assetID uint64, seller [20]byte, price *big.Int) ([20]byte, *big.Int, error) {
	if e.royalties == nil {
		return [20]byte{}, nil, errNilRoyalties
	}
	params, err := e.params()
	if err != nil {
		return [20]byte{}, nil, err
	}
	royaltyRecipient, royaltyAmount, err := e.royalties.Resolve(registry, assetID, price)
	if err != nil {
		return [20]byte{}, nil, err
	}
	if royaltyAmount == nil {
		royaltyAmount = big.NewInt(0)
	}
	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(params.FeeBps)))
	fee.Div(fee, big.NewInt(10_000))
	sellerAmount := new(big.Int).Sub(price, fee)
	sellerAmount.Sub(sellerAmount, royaltyAmount)
	if sellerAmount.Sign() < 0 {
		return [20]byte{}, nil, fmt.Errorf("market engine: fee and royalty exceed price")
	}
	if fee.Sign() > 0 && params.FeeRecipient == ([20]byte{}) {
		return [20]byte{}, nil, ErrFeeRecipientZero
	}
	if sellerAmount.Sign() > 0 {
		if err := e.transferBalance(VaultAddress, seller, sellerAmount); err != nil {
			return [20]byte{}, nil, err
		}
	}
	if fee.Sign() > 0 {
		if err := e.transferBalance(VaultAddress, params.FeeRecipient, fee); err != nil {
			return [20]byte{}, nil, err
		}
	}
	if royaltyAmount.Sign() > 0 {
		if err := e.transferBalance(VaultAddress, royaltyRecipient, royaltyAmount); err != nil {
			return [20]byte{}, nil, err
		}
	}
	return royaltyRecipient, royaltyAmount, nil
}

// deactivateSold marks a listing sold without emitting a cancellation event.
func (e *Engine) deactivateSold(listing *Listing) error {
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	if current, ok, err := e.state.ActiveListingGet(listing.Registry, listing.AssetID); err != nil {
		return err
	} else if ok && current == listing.ID {
		if err := e.state.ActiveListingClear(listing.Registry, listing.AssetID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateListing changes the price of an active listing. Seller only.
func (e *Engine) UpdateListing(caller [20]byte, listingID uint64, newPrice *big.Int) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, found, err := e.state.ListingGet(listingID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrListingNotFound
	}
	if !listing.Active {
		return nil, ErrInactive
	}
	if caller != listing.Seller {
		return nil, ErrNotAuthorized
	}
	price := cloneBigInt(newPrice)
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("market engine: price must be positive")
	}
	listing.Price = price
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(NewListingUpdatedEvent(listing))
	return listing.Clone(), nil
}

// CancelListing deactivates an active listing. Seller, or the module owner as
// an administrative override.
func (e *Engine) CancelListing(caller [20]byte, listingID uint64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, found, err := e.state.ListingGet(listingID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrListingNotFound
	}
	if !listing.Active {
		return nil, ErrInactive
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if caller != listing.Seller && (params.Owner == ([20]byte{}) || caller != params.Owner) {
		return nil, ErrNotAuthorized
	}
	if err := e.deactivateListing(listing, "cancelled"); err != nil {
		return nil, err
	}
	return listing.Clone(), nil
}

// CreateOffer escrows the caller's bid amount and records a standing offer.
func (e *Engine) CreateOffer(caller, registry [20]byte, assetID uint64, amount *big.Int, duration int64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	allowed, err := e.state.MarketRegistryAllowed(registry)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRegistryNotListed
	}
	bid := cloneBigInt(amount)
	if bid.Sign() <= 0 {
		return nil, fmt.Errorf("market engine: offer amount must be positive")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("market engine: duration must be positive")
	}
	if err := e.transferBalance(caller, VaultAddress, bid); err != nil {
		return nil, err
	}
	id, err := e.state.OfferNextID()
	if err != nil {
		return nil, err
	}
	now := e.now()
	offer := &Offer{
		ID:        id,
		Buyer:     caller,
		Registry:  registry,
		AssetID:   assetID,
		Amount:    bid,
		CreatedAt: now,
		ExpiresAt: now + duration,
		Active:    true,
	}
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	if err := e.state.OfferIndexByUser(caller, id); err != nil {
		return nil, err
	}
	e.emit(NewOfferCreatedEvent(offer))
	return offer.Clone(), nil
}

// AcceptOffer settles a standing offer: the caller (current asset owner)
// receives the escrowed amount minus fee and royalty, the asset moves to the
// offer's buyer, and any active listing for the asset is deactivated as a
// side effect.
func (e *Engine) AcceptOffer(caller [20]byte, offerID uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	offer, found, err := e.state.OfferGet(offerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOfferNotFound
	}
	if !offer.Active {
		return nil, ErrInactive
	}
	if offer.Expired(e.now()) {
		return nil, ErrExpired
	}
	reg, err := e.registry(offer.Registry)
	if err != nil {
		return nil, err
	}
	owner, err := reg.OwnerOf(offer.AssetID)
	if err != nil {
		return nil, fmt.Errorf("market engine: owner lookup: %w", err)
	}
	if owner != caller {
		return nil, ErrNotAssetOwner
	}
	if err := engineAuthorized(reg, caller, offer.AssetID); err != nil {
		return nil, err
	}
	royaltyRecipient, royaltyAmount, err := e.settle(offer.Registry, offer.AssetID, caller, offer.Amount)
	if err != nil {
		return nil, err
	}
	if listingID, ok, err := e.state.ActiveListingGet(offer.Registry, offer.AssetID); err != nil {
		return nil, err
	} else if ok {
		listing, found, err := e.state.ListingGet(listingID)
		if err != nil {
			return nil, err
		}
		if found && listing.Active {
			if err := e.deactivateListing(listing, "offer_accepted"); err != nil {
				return nil, err
			}
		}
	}
	offer.Active = false
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	stats, err := e.stats()
	if err != nil {
		return nil, err
	}
	stats.Sales++
	stats.Volume = new(big.Int).Add(stats.Volume, offer.Amount)
	if err := e.state.MarketStatsPut(stats); err != nil {
		return nil, err
	}
	e.emit(NewOfferAcceptedEvent(offer, caller, royaltyRecipient, royaltyAmount))
	if err := reg.SafeTransferFrom(VaultAddress, caller, offer.Buyer, offer.AssetID); err != nil {
		return nil, fmt.Errorf("market engine: deliver asset: %w", err)
	}
	return offer.Clone(), nil
}

// CancelOffer refunds and deactivates a standing offer. The offer's buyer, or
// the module owner as an administrative override.
func (e *Engine) CancelOffer(caller [20]byte, offerID uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	offer, found, err := e.state.OfferGet(offerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOfferNotFound
	}
	if !offer.Active {
		return nil, ErrInactive
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if caller != offer.Buyer && (params.Owner == ([20]byte{}) || caller != params.Owner) {
		return nil, ErrNotAuthorized
	}
	if err := e.transferBalance(VaultAddress, offer.Buyer, offer.Amount); err != nil {
		return nil, err
	}
	offer.Active = false
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(NewOfferCancelledEvent(offer))
	return offer.Clone(), nil
}

func (e *Engine) stats() (*Stats, error) {
	stats, err := e.state.MarketStatsGet()
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &Stats{Volume: big.NewInt(0)}
	}
	if stats.Volume == nil {
		stats.Volume = big.NewInt(0)
	}
	return stats, nil
}

// GetListing returns the stored listing for RPC views.
func (e *Engine) GetListing(id uint64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	listing, found, err := e.state.ListingGet(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrListingNotFound
	}
	return listing.Clone(), nil
}

// GetOffer returns the stored offer for RPC views.
func (e *Engine) GetOffer(id uint64) (*Offer, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	offer, found, err := e.state.OfferGet(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOfferNotFound
	}
	return offer.Clone(), nil
}

// ListingsByUser returns the ids of every listing the user ever created.
func (e *Engine) ListingsByUser(user [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.ListingIDsByUser(user)
}

// OffersByUser returns the ids of every offer the user ever created.
func (e *Engine) OffersByUser(user [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.OfferIDsByUser(user)
}

// ActiveListingForAsset returns the current active listing for an asset, if
// any.
func (e *Engine) ActiveListingForAsset(registry [20]byte, assetID uint64) (*Listing, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	id, ok, err := e.state.ActiveListingGet(registry, assetID)
	if err != nil || !ok {
		return nil, false, err
	}
	listing, found, err := e.state.ListingGet(id)
	if err != nil || !found {
		return nil, false, err
	}
	return listing.Clone(), listing.Active, nil
}

// Stats returns the marketplace running totals.
func (e *Engine) Stats() (*Stats, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stats, err := e.stats()
	if err != nil {
		return nil, err
	}
	return stats.Clone(), nil
}
