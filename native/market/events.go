package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"assetmarket/core/types"
)

const (
	EventTypeListingCreated    = "market.listing_created"
	EventTypeListingUpdated    = "market.listing_updated"
	EventTypeListingCancelled  = "market.listing_cancelled"
	EventTypeItemSold          = "market.item_sold"
	EventTypeOfferCreated      = "market.offer_created"
	EventTypeOfferAccepted     = "market.offer_accepted"
	EventTypeOfferCancelled    = "market.offer_cancelled"
	EventTypeFeeUpdated        = "market.fee_updated"
	EventTypeRecipientUpdated  = "market.fee_recipient_updated"
	EventTypeWhitelistUpdated  = "market.whitelist_updated"
	EventTypePaused            = "market.paused"
	EventTypeEmergencyWithdraw = "market.emergency_withdraw"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event exposes the underlying typed payload.
func (e marketEvent) Event() *types.Event { return e.evt }

func listingAttrs(l *Listing) map[string]string {
	attrs := make(map[string]string)
	if l == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(l.ID, 10)
	attrs["seller"] = hex.EncodeToString(l.Seller[:])
	attrs["registry"] = hex.EncodeToString(l.Registry[:])
	attrs["assetId"] = strconv.FormatUint(l.AssetID, 10)
	if l.Price != nil {
		attrs["price"] = l.Price.String()
	}
	attrs["expiresAt"] = strconv.FormatInt(l.ExpiresAt, 10)
	attrs["active"] = strconv.FormatBool(l.Active)
	return attrs
}

func offerAttrs(o *Offer) map[string]string {
	attrs := make(map[string]string)
	if o == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(o.ID, 10)
	attrs["buyer"] = hex.EncodeToString(o.Buyer[:])
	attrs["registry"] = hex.EncodeToString(o.Registry[:])
	attrs["assetId"] = strconv.FormatUint(o.AssetID, 10)
	if o.Amount != nil {
		attrs["amount"] = o.Amount.String()
	}
	attrs["expiresAt"] = strconv.FormatInt(o.ExpiresAt, 10)
	attrs["active"] = strconv.FormatBool(o.Active)
	return attrs
}

// NewListingCreatedEvent returns the canonical payload for a new listing.
func NewListingCreatedEvent(l *Listing) marketEvent {
	return marketEvent{evt: &types.Event{Type: EventTypeListingCreated, Attributes: listingAttrs(l)}}
}

// NewListingUpdatedEvent returns the payload for a price change.
func NewListingUpdatedEvent(l *Listing) marketEvent {
	return marketEvent{evt: &types.Event{Type: EventTypeListingUpdated, Attributes: listingAttrs(l)}}
}

// NewListingCancelledEvent returns the payload for a deactivated listing. The
// reason distinguishes explicit cancels from supersession and offer settlement.
func NewListingCancelledEvent(l *Listing, reason string) marketEvent {
	attrs := listingAttrs(l)
	attrs["reason"] = reason
	return marketEvent{evt: &types.Event{Type: EventTypeListingCancelled, Attributes: attrs}}
}

// NewItemSoldEvent returns the payload for a completed purchase.
func NewItemSoldEvent(l *Listing, buyer [20]byte, royaltyRecipient [20]byte, royaltyAmount *big.Int) marketEvent {
	attrs := listingAttrs(l)
	attrs["buyer"] = hex.EncodeToString(buyer[:])
	if royaltyAmount != nil && royaltyAmount.Sign() > 0 {
		attrs["royaltyRecipient"] = hex.EncodeToString(royaltyRecipient[:])
		attrs["royaltyAmount"] = royaltyAmount.String()
	}
	return marketEvent{evt: &types.Event{Type: EventTypeItemSold, Attributes: attrs}}
}

// NewOfferCreatedEvent returns the payload for a new standing offer.
func NewOfferCreatedEvent(o *Offer) marketEvent {
	return marketEvent{evt: &types.Event{Type: EventTypeOfferCreated, Attributes: offerAttrs(o)}}
}

// NewOfferAcceptedEvent returns the payload for a settled offer.
func NewOfferAcceptedEvent(o *Offer, seller [20]byte, royaltyRecipient [20]byte, royaltyAmount *big.Int) marketEvent {
	attrs := offerAttrs(o)
	attrs["seller"] = hex.EncodeToString(seller[:])
	if royaltyAmount != nil && royaltyAmount.Sign() > 0 {
		attrs["royaltyRecipient"] = hex.EncodeToString(royaltyRecipient[:])
		attrs["royaltyAmount"] = royaltyAmount.String()
	}
	return marketEvent{evt: &types.Event{Type: EventTypeOfferAccepted, Attributes: attrs}}
}

// NewOfferCancelledEvent returns the payload for a refunded offer.
func NewOfferCancelledEvent(o *Offer) marketEvent {
	return marketEvent{evt: &types.Event{Type: EventTypeOfferCancelled, Attributes: offerAttrs(o)}}
}

// NewFeeUpdatedEvent records a platform fee change.
func NewFeeUpdatedEvent(bps uint32) marketEvent {
	attrs := map[string]string{"feeBps": strconv.FormatUint(uint64(bps), 10)}
	return marketEvent{evt: &types.Event{Type: EventTypeFeeUpdated, Attributes: attrs}}
}

// NewFeeRecipientUpdatedEvent records a fee recipient change.
func NewFeeRecipientUpdatedEvent(recipient [20]byte) marketEvent {
	attrs := map[string]string{"recipient": hex.EncodeToString(recipient[:])}
	return marketEvent{evt: &types.Event{Type: EventTypeRecipientUpdated, Attributes: attrs}}
}

// NewWhitelistUpdatedEvent records a registry whitelist change.
func NewWhitelistUpdatedEvent(registry [20]byte, allowed bool) marketEvent {
	attrs := map[string]string{
		"registry": hex.EncodeToString(registry[:]),
		"allowed":  strconv.FormatBool(allowed),
	}
	return marketEvent{evt: &types.Event{Type: EventTypeWhitelistUpdated, Attributes: attrs}}
}

// NewPausedEvent records a pause switch change.
func NewPausedEvent(paused bool) marketEvent {
	attrs := map[string]string{"paused": strconv.FormatBool(paused)}
	return marketEvent{evt: &types.Event{Type: EventTypePaused, Attributes: attrs}}
}

// NewEmergencyWithdrawEvent records a paused-only vault sweep.
func NewEmergencyWithdrawEvent(to [20]byte, amount *big.Int) marketEvent {
	attrs := map[string]string{
		"to":     hex.EncodeToString(to[:]),
		"amount": amount.String(),
	}
	return marketEvent{evt: &types.Event{Type: EventTypeEmergencyWithdraw, Attributes: attrs}}
}
