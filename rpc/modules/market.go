package modules

import (
	"encoding/json"

	"assetmarket/core"
	"assetmarket/core/types"
	"assetmarket/native/market"
)

// MarketModule exposes the marketplace engine over JSON-RPC.
type MarketModule struct {
	node *core.Node
}

func NewMarketModule(node *core.Node) *MarketModule {
	return &MarketModule{node: node}
}

type listingResult struct {
	ID        uint64 `json:"id"`
	Seller    string `json:"seller"`
	Registry  string `json:"registry"`
	AssetID   uint64 `json:"assetId"`
	Price     string `json:"price"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Active    bool   `json:"active"`
}

func newListingResult(l *market.Listing) *listingResult {
	if l == nil {
		return nil
	}
	return &listingResult{
		ID:        l.ID,
		Seller:    types.FormatAddress(l.Seller),
		Registry:  types.FormatAddress(l.Registry),
		AssetID:   l.AssetID,
		Price:     formatAmount(l.Price),
		CreatedAt: l.CreatedAt,
		ExpiresAt: l.ExpiresAt,
		Active:    l.Active,
	}
}

type offerResult struct {
	ID        uint64 `json:"id"`
	Buyer     string `json:"buyer"`
	Registry  string `json:"registry"`
	AssetID   uint64 `json:"assetId"`
	Amount    string `json:"amount"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Active    bool   `json:"active"`
}

func newOfferResult(o *market.Offer) *offerResult {
	if o == nil {
		return nil
	}
	return &offerResult{
		ID:        o.ID,
		Buyer:     types.FormatAddress(o.Buyer),
		Registry:  types.FormatAddress(o.Registry),
		AssetID:   o.AssetID,
		Amount:    formatAmount(o.Amount),
		CreatedAt: o.CreatedAt,
		ExpiresAt: o.ExpiresAt,
		Active:    o.Active,
	}
}

type statsResult struct {
	Listings uint64 `json:"listings"`
	Sales    uint64 `json:"sales"`
	Volume   string `json:"volume"`
}

// Handler resolves a method name within the market namespace.
func (m *MarketModule) Handler(name string) (Handler, Meta, bool) {
	switch name {
	case "listItem":
		return m.listItem, Meta{Mutating: true}, true
	case "buyItem":
		return m.buyItem, Meta{Mutating: true}, true
	case "updateListing":
		return m.updateListing, Meta{Mutating: true}, true
	case "cancelListing":
		return m.cancelListing, Meta{Mutating: true}, true
	case "createOffer":
		return m.createOffer, Meta{Mutating: true}, true
	case "acceptOffer":
		return m.acceptOffer, Meta{Mutating: true}, true
	case "cancelOffer":
		return m.cancelOffer, Meta{Mutating: true}, true
	case "getListing":
		return m.getListing, Meta{}, true
	case "getOffer":
		return m.getOffer, Meta{}, true
	case "listingsByUser":
		return m.listingsByUser, Meta{}, true
	case "offersByUser":
		return m.offersByUser, Meta{}, true
	case "activeListing":
		return m.activeListing, Meta{}, true
	case "stats":
		return m.stats, Meta{}, true
	case "setFeeBps":
		return m.setFeeBps, Meta{Mutating: true, Admin: true}, true
	case "setFeeRecipient":
		return m.setFeeRecipient, Meta{Mutating: true, Admin: true}, true
	case "setRegistryAllowed":
		return m.setRegistryAllowed, Meta{Mutating: true, Admin: true}, true
	case "setPaused":
		return m.setPaused, Meta{Mutating: true, Admin: true}, true
	case "emergencyWithdraw":
		return m.emergencyWithdraw, Meta{Mutating: true, Admin: true}, true
	}
	return nil, Meta{}, false
}

func (m *MarketModule) listItem(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Registry string `json:"registry"`
		AssetID  uint64 `json:"assetId"`
		Price    string `json:"price"`
		Duration int64  `json:"duration"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	registry, err := parseAddr("registry", params.Registry)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		return nil, err
	}
	var listing *market.Listing
	err = m.node.Execute("market", "listItem", func(env *core.Env) error {
		listing, err = env.Market.ListItem(caller, registry, params.AssetID, price, params.Duration)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newListingResult(listing), nil
}

func (m *MarketModule) buyItem(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller    string `json:"caller"`
		ListingID uint64 `json:"listingId"`
		Payment   string `json:"payment"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	payment, err := parseAmount("payment", params.Payment)
	if err != nil {
		return nil, err
	}
	var listing *market.Listing
	err = m.node.Execute("market", "buyItem", func(env *core.Env) error {
		listing, err = env.Market.BuyItem(caller, params.ListingID, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newListingResult(listing), nil
}

func (m *MarketModule) updateListing(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller    string `json:"caller"`
		ListingID uint64 `json:"listingId"`
		Price     string `json:"price"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		return nil, err
	}
	var listing *market.Listing
	err = m.node.Execute("market", "updateListing", func(env *core.Env) error {
		listing, err = env.Market.UpdateListing(caller, params.ListingID, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newListingResult(listing), nil
}

func (m *MarketModule) cancelListing(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller    string `json:"caller"`
		ListingID uint64 `json:"listingId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	var listing *market.Listing
	err = m.node.Execute("market", "cancelListing", func(env *core.Env) error {
		listing, err = env.Market.CancelListing(caller, params.ListingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newListingResult(listing), nil
}

func (m *MarketModule) createOffer(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Registry string `json:"registry"`
		AssetID  uint64 `json:"assetId"`
		Amount   string `json:"amount"`
		Duration int64  `json:"duration"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	registry, err := parseAddr("registry", params.Registry)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	var offer *market.Offer
	err = m.node.Execute("market", "createOffer", func(env *core.Env) error {
		offer, err = env.Market.CreateOffer(caller, registry, params.AssetID, amount, params.Duration)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newOfferResult(offer), nil
}

func (m *MarketModule) acceptOffer(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller  string `json:"caller"`
		OfferID uint64 `json:"offerId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	var offer *market.Offer
	err = m.node.Execute("market", "acceptOffer", func(env *core.Env) error {
		offer, err = env.Market.AcceptOffer(caller, params.OfferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newOfferResult(offer), nil
}

func (m *MarketModule) cancelOffer(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller  string `json:"caller"`
		OfferID uint64 `json:"offerId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	var offer *market.Offer
	err = m.node.Execute("market", "cancelOffer", func(env *core.Env) error {
		offer, err = env.Market.CancelOffer(caller, params.OfferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newOfferResult(offer), nil
}

func (m *MarketModule) getListing(raw json.RawMessage) (interface{}, error) {
	var params struct {
		ListingID uint64 `json:"listingId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	var listing *market.Listing
	err := m.node.View(func(env *core.Env) error {
		var viewErr error
		listing, viewErr = env.Market.GetListing(params.ListingID)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	return newListingResult(listing), nil
}

func (m *MarketModule) getOffer(raw json.RawMessage) (interface{}, error) {
	var params struct {
		OfferID uint64 `json:"offerId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	var offer *market.Offer
	err := m.node.View(func(env *core.Env) error {
		var viewErr error
		offer, viewErr = env.Market.GetOffer(params.OfferID)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	return newOfferResult(offer), nil
}

func (m *MarketModule) listingsByUser(raw json.RawMessage) (interface{}, error) {
	var params struct {
		User string `json:"user"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	user, err := parseAddr("user", params.User)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	err = m.node.View(func(env *core.Env) error {
		var viewErr error
		ids, viewErr = env.Market.ListingsByUser(user)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (m *MarketModule) offersByUser(raw json.RawMessage) (interface{}, error) {
	var params struct {
		User string `json:"user"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	user, err := parseAddr("user", params.User)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	err = m.node.View(func(env *core.Env) error {
		var viewErr error
		ids, viewErr = env.Market.OffersByUser(user)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (m *MarketModule) activeListing(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Registry string `json:"registry"`
		AssetID  uint64 `json:"assetId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	registry, err := parseAddr("registry", params.Registry)
	if err != nil {
		return nil, err
	}
	var listing *market.Listing
	var found bool
	err = m.node.View(func(env *core.Env) error {
		var viewErr error
		listing, found, viewErr = env.Market.ActiveListingForAsset(registry, params.AssetID)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return newListingResult(listing), nil
}

func (m *MarketModule) stats(raw json.RawMessage) (interface{}, error) {
	var stats *market.Stats
	err := m.node.View(func(env *core.Env) error {
		var viewErr error
		stats, viewErr = env.Market.Stats()
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	return &statsResult{
		Listings: stats.Listings,
		Sales:    stats.Sales,
		Volume:   formatAmount(stats.Volume),
	}, nil
}

func (m *MarketModule) setFeeBps(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		Bps    uint32 `json:"bps"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("market", "setFeeBps", func(env *core.Env) error {
		return env.Market.SetFeeBps(caller, params.Bps)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *MarketModule) setFeeRecipient(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller    string `json:"caller"`
		Recipient string `json:"recipient"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddr("recipient", params.Recipient)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("market", "setFeeRecipient", func(env *core.Env) error {
		return env.Market.SetFeeRecipient(caller, recipient)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *MarketModule) setRegistryAllowed(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Registry string `json:"registry"`
		Allowed  bool   `json:"allowed"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	registry, err := parseAddr("registry", params.Registry)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("market", "setRegistryAllowed", func(env *core.Env) error {
		return env.Market.SetRegistryAllowed(caller, registry, params.Allowed)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *MarketModule) setPaused(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		Paused bool   `json:"paused"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("market", "setPaused", func(env *core.Env) error {
		return env.Market.SetPaused(caller, params.Paused)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *MarketModule) emergencyWithdraw(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		To     string `json:"to"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	to, err := parseAddr("to", params.To)
	if err != nil {
		return nil, err
	}
	var swept string
	err = m.node.Execute("market", "emergencyWithdraw", func(env *core.Env) error {
		amount, execErr := env.Market.EmergencyWithdraw(caller, to)
		if execErr != nil {
			return execErr
		}
		swept = formatAmount(amount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"amount": swept}, nil
}
