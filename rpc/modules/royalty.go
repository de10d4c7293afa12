package modules

import (
	"encoding/json"

	"assetmarket/core"
	"assetmarket/core/types"
	"assetmarket/native/royalty"
)

// RoyaltyModule exposes royalty configuration and resolution over JSON-RPC.
type RoyaltyModule struct {
	node *core.Node
}

func NewRoyaltyModule(node *core.Node) *RoyaltyModule {
	return &RoyaltyModule{node: node}
}

type royaltyResult struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// Handler resolves a method name within the royalty namespace.
func (m *RoyaltyModule) Handler(name string) (Handler, Meta, bool) {
	switch name {
	case "resolve":
		return m.resolve, Meta{}, true
	case "setDefault":
		return m.setDefault, Meta{Mutating: true, Admin: true}, true
	case "setContract":
		return m.setContract, Meta{Mutating: true}, true
	case "setToken":
		return m.setToken, Meta{Mutating: true}, true
	}
	return nil, Meta{}, false
}

func (m *RoyaltyModule) resolve(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Registry  string `json:"registry"`
		AssetID   uint64 `json:"assetId"`
		SalePrice string `json:"salePrice"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	registry, err := parseAddr("registry", params.Registry)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("salePrice", params.SalePrice)
	if err != nil {
		return nil, err
	}
	var result royaltyResult
	err = m.node.View(func(env *core.Env) error {
		recipient, amount, viewErr := env.Royalty.Resolve(registry, params.AssetID, price)
		if viewErr != nil {
			return viewErr
		}
		result = royaltyResult{
			Recipient: types.FormatAddress(recipient),
			Amount:    formatAmount(amount),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func parseRecord(raw struct {
	Recipient string `json:"recipient"`
	Bps       uint32 `json:"bps"`
}) (*royalty.Record, error) {
	record := &royalty.Record{Bps: raw.Bps}
	if raw.Recipient != "" {
		recipient, err := parseAddr("recipient", raw.Recipient)
		if err != nil {
			return nil, err
		}
		record.Recipient = recipient
	}
	return record, nil
}

func (m *RoyaltyModule) setDefault(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		Record struct {
			Recipient string `json:"recipient"`
			Bps       uint32 `json:"bps"`
		} `json:"record"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		return nil, err
	}
	record, err := parseRecord(params.Record)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("royalty", "setDefault", func(env *core.Env) error {
		return env.Royalty.SetDefault(caller, record)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *RoyaltyModule) setContract(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Registry string `json:"registry"`
		Record   struct {
			Recipient string `json:"recipient"`
			Bps       uint32 `json:"bps"`
		} `json:"record"`
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
	record, err := parseRecord(params.Record)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("royalty", "setContract", func(env *core.Env) error {
		return env.Royalty.SetContract(caller, registry, record)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

func (m *RoyaltyModule) setToken(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller   string `json:"caller"`
		Registry string `json:"registry"`
		AssetID  uint64 `json:"assetId"`
		Record   struct {
			Recipient string `json:"recipient"`
			Bps       uint32 `json:"bps"`
		} `json:"record"`
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
	record, err := parseRecord(params.Record)
	if err != nil {
		return nil, err
	}
	err = m.node.Execute("royalty", "setToken", func(env *core.Env) error {
		return env.Royalty.SetToken(caller, registry, params.AssetID, record)
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}
