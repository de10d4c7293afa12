package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies an account, vault, or asset registry.
type Address = [20]byte

// ZeroAddress is the empty address. Engines treat it as "unset".
var ZeroAddress = Address{}

// ParseAddress decodes a 20-byte hex address, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	var addr Address
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address length %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// FormatAddress renders an address as 0x-prefixed lowercase hex.
func FormatAddress(addr Address) string {
	return "0x" + hex.EncodeToString(addr[:])
}
