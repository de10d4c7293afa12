package modules

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"assetmarket/core/types"
	"assetmarket/native/common"
	"assetmarket/native/escrow"
	"assetmarket/native/market"
	"assetmarket/native/royalty"
)

// Handler executes one RPC method with its raw params object.
type Handler func(json.RawMessage) (interface{}, error)

// Meta describes a method's transport requirements: mutating methods are
// rate-limited, admin methods require the bearer token.
type Meta struct {
	Mutating bool
	Admin    bool
}

// JSON-RPC error codes shared with the server.
const (
	codeInvalidParams = -32602
	codeUnauthorized  = -32001
	codeNotFound      = -32004
	codeConflict      = -32009
	codePayment       = -32012
	codePaused        = -32013
	codeServerError   = -32000
)

type paramError struct{ msg string }

func (e paramError) Error() string { return e.msg }

func errInvalidParams(format string, args ...interface{}) error {
	return paramError{msg: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an engine error onto an HTTP status and JSON-RPC code
// following the core's error taxonomy.
func HTTPStatus(err error) (int, int) {
	var pErr paramError
	switch {
	case errors.As(err, &pErr):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusConflict, codePaused
	case errors.Is(err, escrow.ErrNotFound),
		errors.Is(err, market.ErrListingNotFound),
		errors.Is(err, market.ErrOfferNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, escrow.ErrNotAuthorized),
		errors.Is(err, escrow.ErrNotParticipant),
		errors.Is(err, market.ErrNotAuthorized),
		errors.Is(err, royalty.ErrNotAuthorized):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, market.ErrInsufficientFunds),
		errors.Is(err, market.ErrInsufficientPay):
		return http.StatusPaymentRequired, codePayment
	case errors.Is(err, escrow.ErrInvalidStatus),
		errors.Is(err, market.ErrInactive),
		errors.Is(err, market.ErrExpired),
		errors.Is(err, escrow.ErrDisputeWindow):
		return http.StatusConflict, codeConflict
	default:
		return http.StatusBadRequest, codeServerError
	}
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return errInvalidParams("params object required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errInvalidParams("malformed params: %v", err)
	}
	return nil
}

func parseAddr(field, value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, errInvalidParams("%s address required", field)
	}
	addr, err := types.ParseAddress(value)
	if err != nil {
		return [20]byte{}, errInvalidParams("%s: %v", field, err)
	}
	return addr, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errInvalidParams("%s amount required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errInvalidParams("%s: invalid amount %q", field, value)
	}
	return amount, nil
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
