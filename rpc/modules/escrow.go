package modules

import (
	"encoding/json"

	"assetmarket/core"
	"assetmarket/core/types"
	"assetmarket/native/escrow"
)

// EscrowModule exposes the escrow engine over JSON-RPC.
type EscrowModule struct {
	node *core.Node
}

func NewEscrowModule(node *core.Node) *EscrowModule {
	return &EscrowModule{node: node}
}

type escrowResult struct {
	ID             uint64 `json:"id"`
	Seller         string `json:"seller"`
	Buyer          string `json:"buyer"`
	Registry       string `json:"registry"`
	AssetID        uint64 `json:"assetId"`
	Price          string `json:"price"`
	CreatedAt      int64  `json:"createdAt"`
	Deadline       int64  `json:"deadline"`
	Status         string `json:"status"`
	SellerApproved bool   `json:"sellerApproved"`
	BuyerApproved  bool   `json:"buyerApproved"`
}

func newEscrowResult(tx *escrow.Transaction) *escrowResult {
	if tx == nil {
		return nil
	}
	return &escrowResult{
		ID:             tx.ID,
		Seller:         types.FormatAddress(tx.Seller),
		Buyer:          types.FormatAddress(tx.Buyer),
		Registry:       types.FormatAddress(tx.Registry),
		AssetID:        tx.AssetID,
		Price:          formatAmount(tx.Price),
		CreatedAt:      tx.CreatedAt,
		Deadline:       tx.Deadline,
		Status:         tx.Status.String(),
		SellerApproved: tx.SellerApproved,
		BuyerApproved:  tx.BuyerApproved,
	}
}

// Handler resolves a method name within the escrow namespace.
func (m *EscrowModule) Handler(name string) (Handler, Meta, bool) {
	switch name {
	case "create":
		return m.create, Meta{Mutating: true}, true
	case "approve":
		return m.approve, Meta{Mutating: true}, true
	case "cancel":
		return m.cancel, Meta{Mutating: true}, true
	case "dispute":
		return m.dispute, Meta{Mutating: true}, true
	case "resolve":
		return m.resolve, Meta{Mutating: true}, true
	case "get":
		return m.get, Meta{}, true
	case "setFeeBps":
		return m.setFeeBps, Meta{Mutating: true, Admin: true}, true
	case "setFeeRecipient":
		return m.setFeeRecipient, Meta{Mutating: true, Admin: true}, true
	case "setResolver":
		return m.setResolver, Meta{Mutating: true, Admin: true}, true
	case "setRegistryAllowed":
		return m.setRegistryAllowed, Meta{Mutating: true, Admin: true}, true
	case "setPaused":
		return m.setPaused, Meta{Mutating: true, Admin: true}, true
	case "emergencyWithdraw":
		return m.emergencyWithdraw, Meta{Mutating: true, Admin: true}, true
	}
	return nil, Meta{}, false
}

func (m *EscrowModule) create(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Buyer    string `json:"buyer"`
		Registry string `json:"registry"`
		AssetID  uint64 `json:"assetId"`
		Payment  string `json:"payment"`
		Deadline int64  `json:"deadline"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	buyer, err := parseAddr("buyer", params.Buyer)
	if err != nil {
		return nil, err
	}
	registry, err := parseAddr("registry", params.Registry)
	if err != nil {
		return nil, err
	}
	payment, err := parseAmount("payment", params.Payment)
	if err != nil {
		return nil, err
	}
	var tx *escrow.Transaction
	err = m.node.Execute("escrow", "create", func(env *core.Env) error {
		tx, err = env.Escrow.Create(caller, buyer, registry, params.AssetID, payment, params.Deadline)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newEscrowResult(tx), nil
}

func (m *EscrowModule) approve(raw json.RawMessage) (interface{}, error) {
	return m.transition("approve", raw, func(env *core.Env, caller [20]byte, id uint64) (*escrow.Transaction, error) {
		return env.Escrow.Approve(caller, id)
	})
}

func (m *EscrowModule) cancel(raw json.RawMessage) (interface{}, error) {
	return m.transition("cancel", raw, func(env *core.Env, caller [20]byte, id uint64) (*escrow.Transaction, error) {
		return env.Escrow.Cancel(caller, id)
	})
}

func (m *EscrowModule) dispute(raw json.RawMessage) (interface{}, error) {
	return m.transition("dispute", raw, func(env *core.Env, caller [20]byte, id uint64) (*escrow.Transaction, error) {
		return env.Escrow.Dispute(caller, id)
	})
}

func (m *EscrowModule) transition(op string, raw json.RawMessage, fn func(*core.Env, [20]byte, uint64) (*escrow.Transaction, error)) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		ID     uint64 `json:"id"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	var tx *escrow.Transaction
	err = m.node.Execute("escrow", op, func(env *core.Env) error {
		tx, err = fn(env, caller, params.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newEscrowResult(tx), nil
}

func (m *EscrowModule) resolve(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller     string `json:"caller"`
		ID         uint64 `json:"id"`
		FavorBuyer bool   `json:"favorBuyer"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	var tx *escrow.Transaction
	err = m.node.Execute("escrow", "resolve", func(env *core.Env) error {
		tx, err = env.Escrow.Resolve(caller, params.ID, params.FavorBuyer)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newEscrowResult(tx), nil
}

func (m *EscrowModule) get(raw json.RawMessage) (interface{}, error) {
	var params struct {
		ID uint64 `json:"id"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	var tx *escrow.Transaction
	err := m.node.View(func(env *core.Env) error {
		var viewErr error
		tx, viewErr = env.Escrow.Get(params.ID)
		return viewErr
	})
	if err != nil {
		return nil, err
	}
	return newEscrowResult(tx), nil
}

func (m *EscrowModule) setFeeBps(raw json.RawMessage) (interface{}, error) {
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
	err = m.node.Execute("escrow", "setFeeBps", func(env *core.Env) error {
		return env.Escrow.SetFeeBps(caller, params.Bps)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *EscrowModule) setFeeRecipient(raw json.RawMessage) (interface{}, error) {
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
	err = m.node.Execute("escrow", "setFeeRecipient", func(env *core.Env) error {
		return env.Escrow.SetFeeRecipient(caller, recipient)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *EscrowModule) setResolver(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Resolver string `json:"resolver"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	resolver, err := parseAddr("resolver", params.Resolver)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("escrow", "setResolver", func(env *core.Env) error {
		return env.Escrow.SetResolver(caller, resolver)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *EscrowModule) setRegistryAllowed(raw json.RawMessage) (interface{}, error) {
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
	err = m.node.Execute("escrow", "setRegistryAllowed", func(env *core.Env) error {
		return env.Escrow.SetRegistryAllowed(caller, registry, params.Allowed)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *EscrowModule) setPaused(raw json.RawMessage) (interface{}, error) {
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
	err = m.node.Execute("escrow", "setPaused", func(env *core.Env) error {
		return env.Escrow.SetPaused(caller, params.Paused)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *EscrowModule) emergencyWithdraw(raw json.RawMessage) (interface{}, error) {
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
	err = m.node.Execute("escrow", "emergencyWithdraw", func(env *core.Env) error {
		amount, execErr := env.Escrow.EmergencyWithdraw(caller, to)
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
