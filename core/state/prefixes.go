package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Raw key prefixes. Every key stored in the backing KV is the keccak-256 of a
// prefixed byte string so the key space stays uniform regardless of backend.
var (
	accountPrefix         = []byte("account:")
	escrowPrefix          = []byte("escrow:")
	escrowWhitelistPrefix = []byte("escrow-whitelist:")
	listingPrefix         = []byte("market-listing:")
	offerPrefix           = []byte("market-offer:")
	activeListingPrefix   = []byte("market-active:")
	userListingsPrefix    = []byte("market-user-listings:")
	userOffersPrefix      = []byte("market-user-offers:")
	marketWhitelistPrefix = []byte("market-whitelist:")
	royaltyContractPrefix = []byte("royalty-contract:")
	royaltyTokenPrefix    = []byte("royalty-token:")

	escrowSeqKey      = ethcrypto.Keccak256([]byte("escrow-seq"))
	escrowParamsKey   = ethcrypto.Keccak256([]byte("escrow-params"))
	listingSeqKey     = ethcrypto.Keccak256([]byte("market-listing-seq"))
	offerSeqKey       = ethcrypto.Keccak256([]byte("market-offer-seq"))
	marketParamsKey   = ethcrypto.Keccak256([]byte("market-params"))
	marketStatsKey    = ethcrypto.Keccak256([]byte("market-stats"))
	royaltyParamsKey  = ethcrypto.Keccak256([]byte("royalty-params"))
	royaltyDefaultKey = ethcrypto.Keccak256([]byte("royalty-default"))
)

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(suffix))
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return ethcrypto.Keccak256(buf)
}

func uint64Suffix(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func assetSuffix(registry [20]byte, assetID uint64) []byte {
	buf := make([]byte, 0, 28)
	buf = append(buf, registry[:]...)
	buf = append(buf, uint64Suffix(assetID)...)
	return buf
}
