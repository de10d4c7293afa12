package market

import (
	"fmt"
	"math/big"
)

func (e *Engine) requireOwner(caller [20]byte) (*Params, error) {
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if params.Owner == ([20]byte{}) || caller != params.Owner {
		return nil, ErrNotAuthorized
	}
	return params, nil
}

// SetFeeBps updates the platform fee. Owner only; capped at 10%.
func (e *Engine) SetFeeBps(caller [20]byte, bps uint32) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if bps > MaxFeeBps {
		return fmt.Errorf("market engine: fee bps %d exceeds cap %d", bps, MaxFeeBps)
	}
	params.FeeBps = bps
	if err := e.state.MarketParamsPut(params); err != nil {
		return err
	}
	e.emit(NewFeeUpdatedEvent(bps))
	return nil
}

// SetFeeRecipient updates the fee payout address. Owner only.
func (e *Engine) SetFeeRecipient(caller, recipient [20]byte) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if recipient == ([20]byte{}) {
		return fmt.Errorf("market engine: fee recipient required")
	}
	params.FeeRecipient = recipient
	if err := e.state.MarketParamsPut(params); err != nil {
		return err
	}
	e.emit(NewFeeRecipientUpdatedEvent(recipient))
	return nil
}

// SetRegistryAllowed toggles an asset registry on the whitelist. Owner only.
func (e *Engine) SetRegistryAllowed(caller, registry [20]byte, allowed bool) error {
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	if registry == ([20]byte{}) {
		return fmt.Errorf("market engine: registry address required")
	}
	if err := e.state.MarketSetRegistryAllowed(registry, allowed); err != nil {
		return err
	}
	e.emit(NewWhitelistUpdatedEvent(registry, allowed))
	return nil
}

// SetPaused flips the module pause switch. Owner only.
func (e *Engine) SetPaused(caller [20]byte, paused bool) error {
	params, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	params.Paused = paused
	if err := e.state.MarketParamsPut(params); err != nil {
		return err
	}
	e.emit(NewPausedEvent(paused))
	return nil
}

// EmergencyWithdraw sweeps the vault balance to the destination. Owner only,
// and only while the module is paused.
func (e *Engine) EmergencyWithdraw(caller, to [20]byte) (*big.Int, error) {
	params, err := e.requireOwner(caller)
	if err != nil {
		return nil, err
	}
	if !params.Paused {
		return nil, ErrNotPaused
	}
	if to == ([20]byte{}) {
		return nil, fmt.Errorf("market engine: destination required")
	}
	vault, err := e.state.GetAccount(VaultAddress[:])
	if err != nil {
		return nil, err
	}
	vault = ensureAccount(vault)
	amount := new(big.Int).Set(vault.Balance)
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := e.transferBalance(VaultAddress, to, amount); err != nil {
		return nil, err
	}
	e.emit(NewEmergencyWithdrawEvent(to, amount))
	return amount, nil
}
