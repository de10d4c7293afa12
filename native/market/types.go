package market

import (
	"fmt"
	"math/big"
)

// Listing advertises an asset for sale at a fixed price. At most one active
// listing exists per (registry, assetID) pair; creating a new one implicitly
// deactivates a prior active one. Listings are never deleted, only
// deactivated, so the id space is an append-only history.
type Listing struct {
	ID        uint64
	Seller    [20]byte
	Registry  [20]byte
	AssetID   uint64
	Price     *big.Int
	CreatedAt int64
	ExpiresAt int64
	Active    bool
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Expired reports whether the listing has lapsed at the given time. Expiry is
// enforced lazily: nothing sweeps listings, dependent operations check.
func (l *Listing) Expired(now int64) bool {
	return l != nil && now > l.ExpiresAt
}

// Offer is a buyer's standing bid on an asset. The bid amount is escrowed in
// the module vault at creation and held until the offer is accepted or
// cancelled. Multiple active offers may exist for the same asset.
type Offer struct {
	ID        uint64
	Buyer     [20]byte
	Registry  [20]byte
	AssetID   uint64
	Amount    *big.Int
	CreatedAt int64
	ExpiresAt int64
	Active    bool
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Expired reports whether the offer has lapsed at the given time.
func (o *Offer) Expired(now int64) bool {
	return o != nil && now > o.ExpiresAt
}

// Stats carries the marketplace running totals.
type Stats struct {
	Listings uint64
	Sales    uint64
	Volume   *big.Int
}

// Clone returns a deep copy of the stats.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return &Stats{Volume: big.NewInt(0)}
	}
	clone := &Stats{Listings: s.Listings, Sales: s.Sales, Volume: big.NewInt(0)}
	if s.Volume != nil {
		clone.Volume = new(big.Int).Set(s.Volume)
	}
	return clone
}

// Params carries the owner-mutable singleton configuration of the market
// module.
type Params struct {
	Owner        [20]byte
	FeeBps       uint32
	FeeRecipient [20]byte
	Paused       bool
}

// Clone returns a copy of the params.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// MaxFeeBps caps the platform fee at 10%.
const MaxFeeBps uint32 = 1_000

// SanitizeListing validates the stored form of a listing.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("market: listing price must be positive")
	}
	if clone.Seller == ([20]byte{}) {
		return nil, fmt.Errorf("market: listing seller required")
	}
	return clone, nil
}

// SanitizeOffer validates the stored form of an offer.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil offer")
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("market: offer amount must be positive")
	}
	if clone.Buyer == ([20]byte{}) {
		return nil, fmt.Errorf("market: offer buyer required")
	}
	return clone, nil
}
