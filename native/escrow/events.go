package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"assetmarket/core/types"
)

const (
	EventTypeCreated           = "escrow.created"
	EventTypeApproved          = "escrow.approved"
	EventTypeCompleted         = "escrow.completed"
	EventTypeCancelled         = "escrow.cancelled"
	EventTypeDisputed          = "escrow.disputed"
	EventTypeResolved          = "escrow.dispute_resolved"
	EventTypeFeeUpdated        = "escrow.fee_updated"
	EventTypeRecipientUpdated  = "escrow.fee_recipient_updated"
	EventTypeResolverUpdated   = "escrow.resolver_updated"
	EventTypeWhitelistUpdated  = "escrow.whitelist_updated"
	EventTypePaused            = "escrow.paused"
	EventTypeEmergencyWithdraw = "escrow.emergency_withdraw"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event exposes the underlying typed payload.
func (e escrowEvent) Event() *types.Event { return e.evt }

func txAttrs(tx *Transaction) map[string]string {
	attrs := make(map[string]string)
	if tx == nil {
		return attrs
	}
	attrs["id"] = strconv.FormatUint(tx.ID, 10)
	attrs["seller"] = hex.EncodeToString(tx.Seller[:])
	attrs["buyer"] = hex.EncodeToString(tx.Buyer[:])
	attrs["registry"] = hex.EncodeToString(tx.Registry[:])
	attrs["assetId"] = strconv.FormatUint(tx.AssetID, 10)
	if tx.Price != nil {
		attrs["price"] = tx.Price.String()
	}
	attrs["deadline"] = strconv.FormatInt(tx.Deadline, 10)
	attrs["status"] = tx.Status.String()
	return attrs
}

// NewCreatedEvent returns the canonical payload for a newly opened escrow.
func NewCreatedEvent(tx *Transaction) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeCreated, Attributes: txAttrs(tx)}}
}

// NewApprovedEvent records one party's approval.
func NewApprovedEvent(tx *Transaction, approver [20]byte) escrowEvent {
	attrs := txAttrs(tx)
	attrs["approver"] = hex.EncodeToString(approver[:])
	return escrowEvent{evt: &types.Event{Type: EventTypeApproved, Attributes: attrs}}
}

// NewCompletedEvent records a settled escrow together with the fee taken.
func NewCompletedEvent(tx *Transaction, fee *big.Int) escrowEvent {
	attrs := txAttrs(tx)
	if fee != nil {
		attrs["fee"] = fee.String()
	}
	return escrowEvent{evt: &types.Event{Type: EventTypeCompleted, Attributes: attrs}}
}

// NewCancelledEvent records an unwound escrow.
func NewCancelledEvent(tx *Transaction) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeCancelled, Attributes: txAttrs(tx)}}
}

// NewDisputedEvent records a raised dispute.
func NewDisputedEvent(tx *Transaction, initiator [20]byte) escrowEvent {
	attrs := txAttrs(tx)
	attrs["initiator"] = hex.EncodeToString(initiator[:])
	return escrowEvent{evt: &types.Event{Type: EventTypeDisputed, Attributes: attrs}}
}

// NewResolvedEvent records the resolver's decision on a disputed escrow.
func NewResolvedEvent(tx *Transaction, favorBuyer bool) escrowEvent {
	attrs := txAttrs(tx)
	attrs["favorBuyer"] = strconv.FormatBool(favorBuyer)
	return escrowEvent{evt: &types.Event{Type: EventTypeResolved, Attributes: attrs}}
}

// NewFeeUpdatedEvent records a platform fee change.
func NewFeeUpdatedEvent(bps uint32) escrowEvent {
	attrs := map[string]string{"feeBps": strconv.FormatUint(uint64(bps), 10)}
	return escrowEvent{evt: &types.Event{Type: EventTypeFeeUpdated, Attributes: attrs}}
}

// NewFeeRecipientUpdatedEvent records a fee recipient change.
func NewFeeRecipientUpdatedEvent(recipient [20]byte) escrowEvent {
	attrs := map[string]string{"recipient": hex.EncodeToString(recipient[:])}
	return escrowEvent{evt: &types.Event{Type: EventTypeRecipientUpdated, Attributes: attrs}}
}

// NewResolverUpdatedEvent records a resolver identity change.
func NewResolverUpdatedEvent(resolver [20]byte) escrowEvent {
	attrs := map[string]string{"resolver": hex.EncodeToString(resolver[:])}
	return escrowEvent{evt: &types.Event{Type: EventTypeResolverUpdated, Attributes: attrs}}
}

// NewWhitelistUpdatedEvent records a registry whitelist change.
func NewWhitelistUpdatedEvent(registry [20]byte, allowed bool) escrowEvent {
	attrs := map[string]string{
		"registry": hex.EncodeToString(registry[:]),
		"allowed":  strconv.FormatBool(allowed),
	}
	return escrowEvent{evt: &types.Event{Type: EventTypeWhitelistUpdated, Attributes: attrs}}
}

// NewPausedEvent records a pause switch change.
func NewPausedEvent(paused bool) escrowEvent {
	attrs := map[string]string{"paused": strconv.FormatBool(paused)}
	return escrowEvent{evt: &types.Event{Type: EventTypePaused, Attributes: attrs}}
}

// NewEmergencyWithdrawEvent records a paused-only vault sweep.
func NewEmergencyWithdrawEvent(to [20]byte, amount *big.Int) escrowEvent {
	attrs := map[string]string{
		"to":     hex.EncodeToString(to[:]),
		"amount": amount.String(),
	}
	return escrowEvent{evt: &types.Event{Type: EventTypeEmergencyWithdraw, Attributes: attrs}}
}
