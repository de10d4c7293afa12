package assets

import "math/big"

// Registry is the capability the settlement engines require of every
// whitelisted asset-ownership registry: ownership lookup, transfer
// authorization queries, and an owner-authorized transfer that notifies
// contract receivers.
type Registry interface {
	// OwnerOf returns the current controller of the asset id.
	OwnerOf(assetID uint64) ([20]byte, error)
	// GetApproved returns the address approved to move a single asset, or
	// the zero address when none is set.
	GetApproved(assetID uint64) ([20]byte, error)
	// IsApprovedForAll reports whether operator may move any asset held by
	// owner.
	IsApprovedForAll(owner, operator [20]byte) bool
	// SafeTransferFrom moves the asset from its current owner to the
	// destination. caller must be the owner, the per-asset approvee, or an
	// approved operator. When the destination is a registered contract
	// receiver the transfer is rejected if the receiver refuses delivery.
	SafeTransferFrom(caller, from, to [20]byte, assetID uint64) error
}

// RoyaltyInfo is the optional royalty-query capability a registry may expose.
// Answers are advisory; the royalty engine validates them before trust.
type RoyaltyInfo interface {
	RoyaltyInfo(assetID uint64, salePrice *big.Int) (recipient [20]byte, amount *big.Int, err error)
}

// Owned is the optional capability exposing the registry's own controller,
// used to authorize contract-level royalty overrides.
type Owned interface {
	ContractOwner() ([20]byte, error)
}

// Receiver is implemented by contract addresses that must acknowledge an
// incoming asset. Returning an error rejects the transfer.
type Receiver interface {
	OnAssetReceived(operator, from [20]byte, assetID uint64) error
}

// Resolver maps a registry address to its live capability implementation. The
// engines only ever hold registry addresses in state; the host environment
// supplies the binding.
type Resolver interface {
	Registry(addr [20]byte) (Registry, bool)
}

// RegistrySet is a static Resolver implementation.
type RegistrySet map[[20]byte]Registry

// Registry implements the Resolver interface.
func (s RegistrySet) Registry(addr [20]byte) (Registry, bool) {
	reg, ok := s[addr]
	return reg, ok
}
