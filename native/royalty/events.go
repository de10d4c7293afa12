package royalty

import (
	"encoding/hex"
	"strconv"

	"assetmarket/core/types"
)

const (
	EventTypeDefaultUpdated  = "royalty.default_updated"
	EventTypeContractUpdated = "royalty.contract_updated"
	EventTypeTokenUpdated    = "royalty.token_updated"
)

type royaltyEvent struct {
	evt *types.Event
}

func (e royaltyEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event exposes the underlying typed payload.
func (e royaltyEvent) Event() *types.Event { return e.evt }

// NewDefaultUpdatedEvent returns the canonical payload for a global default
// royalty change.
func NewDefaultUpdatedEvent(record *Record) royaltyEvent {
	attrs := recordAttrs(record)
	return royaltyEvent{evt: &types.Event{Type: EventTypeDefaultUpdated, Attributes: attrs}}
}

// NewContractUpdatedEvent returns the canonical payload for a contract-level
// override change.
func NewContractUpdatedEvent(registry [20]byte, record *Record) royaltyEvent {
	attrs := recordAttrs(record)
	attrs["registry"] = hex.EncodeToString(registry[:])
	return royaltyEvent{evt: &types.Event{Type: EventTypeContractUpdated, Attributes: attrs}}
}

// NewTokenUpdatedEvent returns the canonical payload for a token-level
// override change.
func NewTokenUpdatedEvent(registry [20]byte, assetID uint64, record *Record) royaltyEvent {
	attrs := recordAttrs(record)
	attrs["registry"] = hex.EncodeToString(registry[:])
	attrs["assetId"] = strconv.FormatUint(assetID, 10)
	return royaltyEvent{evt: &types.Event{Type: EventTypeTokenUpdated, Attributes: attrs}}
}

func recordAttrs(record *Record) map[string]string {
	attrs := make(map[string]string)
	if record == nil {
		return attrs
	}
	attrs["recipient"] = hex.EncodeToString(record.Recipient[:])
	attrs["bps"] = strconv.FormatUint(uint64(record.Bps), 10)
	return attrs
}
