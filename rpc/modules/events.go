package modules

import (
	"encoding/json"

	"assetmarket/core"
	"assetmarket/core/types"
)

const maxEventPage = 500

// EventsModule serves the node's recorded event history to indexers and UIs.
type EventsModule struct {
	node *core.Node
}

func NewEventsModule(node *core.Node) *EventsModule {
	return &EventsModule{node: node}
}

type eventResult struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Handler resolves a method name within the events namespace.
func (m *EventsModule) Handler(name string) (Handler, Meta, bool) {
	switch name {
	case "list":
		return m.list, Meta{}, true
	}
	return nil, Meta{}, false
}

func (m *EventsModule) list(raw json.RawMessage) (interface{}, error) {
	var params struct {
		After uint64 `json:"after"`
		Limit int    `json:"limit"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, errInvalidParams("malformed params: %v", err)
		}
	}
	if params.Limit <= 0 || params.Limit > maxEventPage {
		params.Limit = maxEventPage
	}
	entries := m.node.Events().List(params.After, params.Limit)
	out := make([]eventResult, 0, len(entries))
	for _, entry := range entries {
		result := eventResult{Sequence: entry.Sequence, Type: entry.Event.EventType()}
		if payload, ok := entry.Event.(interface{ Event() *types.Event }); ok {
			if evt := payload.Event(); evt != nil {
				result.Attributes = evt.Attributes
			}
		}
		if result.Attributes == nil {
			result.Attributes = map[string]string{}
		}
		out = append(out, result)
	}
	return out, nil
}
