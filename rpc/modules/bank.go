package modules

import (
	"encoding/json"

	"assetmarket/core"
)

// BankModule exposes the settlement ledger's balances over JSON-RPC. Credits
// normally arrive through genesis allocations or an external bridge; transfer
// is kept behind the admin token so operators can seed test environments.
type BankModule struct {
	node *core.Node
}

func NewBankModule(node *core.Node) *BankModule {
	return &BankModule{node: node}
}

// Handler resolves a method name within the bank namespace.
func (m *BankModule) Handler(name string) (Handler, Meta, bool) {
	switch name {
	case "balance":
		return m.balance, Meta{}, true
	case "transfer":
		return m.transfer, Meta{Mutating: true, Admin: true}, true
	}
	return nil, Meta{}, false
}

func (m *BankModule) balance(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Address string `json:"address"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	addr, err := parseAddr("address", params.Address)
	if err != nil {
		return nil, err
	}
	balance, err := m.node.Balance(addr)
	if err != nil {
		return nil, err
	}
	return map[string]string{"balance": formatAmount(balance)}, nil
}

func (m *BankModule) transfer(raw json.RawMessage) (interface{}, error) {
	var params struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	from, err := parseAddr("from", params.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddr("to", params.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	if err := m.node.Transfer(from, to, amount); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}
