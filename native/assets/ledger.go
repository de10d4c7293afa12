package assets

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

var (
	ErrUnknownAsset   = errors.New("assets: unknown asset")
	ErrAssetExists    = errors.New("assets: asset already minted")
	ErrNotAuthorized  = errors.New("assets: caller not authorized to transfer")
	ErrWrongOwner     = errors.New("assets: from address is not the owner")
	ErrReceiverReject = errors.New("assets: receiver rejected delivery")
)

type assetRoyalty struct {
	recipient [20]byte
	bps       uint32
}

// Ledger is the reference in-memory asset-ownership registry. It implements
// the Registry, RoyaltyInfo and Owned capabilities and is used by the node
// runtime and the test suites; production deployments bind real registries
// through the Resolver instead.
type Ledger struct {
	mu        sync.RWMutex
	owner     [20]byte
	owners    map[uint64][20]byte
	approved  map[uint64][20]byte
	operators map[[20]byte]map[[20]byte]bool
	receivers map[[20]byte]Receiver
	royalties map[uint64]assetRoyalty
	royalty   *assetRoyalty
}

// NewLedger creates an empty ledger controlled by owner.
func NewLedger(owner [20]byte) *Ledger {
	return &Ledger{
		owner:     owner,
		owners:    make(map[uint64][20]byte),
		approved:  make(map[uint64][20]byte),
		operators: make(map[[20]byte]map[[20]byte]bool),
		receivers: make(map[[20]byte]Receiver),
		royalties: make(map[uint64]assetRoyalty),
	}
}

// Mint assigns a fresh asset id to the destination address.
func (l *Ledger) Mint(to [20]byte, assetID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[assetID]; ok {
		return ErrAssetExists
	}
	l.owners[assetID] = to
	return nil
}

// Approve grants a single-asset transfer approval. Only the current owner or
// one of its operators may approve.
func (l *Ledger) Approve(caller, spender [20]byte, assetID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[assetID]
	if !ok {
		return ErrUnknownAsset
	}
	if caller != owner && !l.operators[owner][caller] {
		return ErrNotAuthorized
	}
	l.approved[assetID] = spender
	return nil
}

// SetApprovalForAll grants or revokes operator rights over every asset the
// caller holds now or later.
func (l *Ledger) SetApprovalForAll(caller, operator [20]byte, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := l.operators[caller]
	if ops == nil {
		ops = make(map[[20]byte]bool)
		l.operators[caller] = ops
	}
	ops[operator] = approved
}

// RegisterReceiver binds a contract receiver to an address. Transfers into
// that address are delivered through the receiver hook from then on.
func (l *Ledger) RegisterReceiver(addr [20]byte, r Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r == nil {
		delete(l.receivers, addr)
		return
	}
	l.receivers[addr] = r
}

// SetAssetRoyalty records a per-asset royalty answer served via RoyaltyInfo.
func (l *Ledger) SetAssetRoyalty(assetID uint64, recipient [20]byte, bps uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.royalties[assetID] = assetRoyalty{recipient: recipient, bps: bps}
}

// SetDefaultRoyalty records a ledger-wide royalty answer served via
// RoyaltyInfo when no per-asset record exists.
func (l *Ledger) SetDefaultRoyalty(recipient [20]byte, bps uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.royalty = &assetRoyalty{recipient: recipient, bps: bps}
}

// OwnerOf implements the Registry interface.
func (l *Ledger) OwnerOf(assetID uint64) ([20]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[assetID]
	if !ok {
		return [20]byte{}, ErrUnknownAsset
	}
	return owner, nil
}

// GetApproved implements the Registry interface.
func (l *Ledger) GetApproved(assetID uint64) ([20]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.owners[assetID]; !ok {
		return [20]byte{}, ErrUnknownAsset
	}
	return l.approved[assetID], nil
}

// IsApprovedForAll implements the Registry interface.
func (l *Ledger) IsApprovedForAll(owner, operator [20]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.operators[owner][operator]
}

// SafeTransferFrom implements the Registry interface.
func (l *Ledger) SafeTransferFrom(caller, from, to [20]byte, assetID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[assetID]
	if !ok {
		return ErrUnknownAsset
	}
	if owner != from {
		return ErrWrongOwner
	}
	if caller != owner && l.approved[assetID] != caller && !l.operators[owner][caller] {
		return ErrNotAuthorized
	}
	if receiver, ok := l.receivers[to]; ok {
		if err := receiver.OnAssetReceived(caller, from, assetID); err != nil {
			return fmt.Errorf("%w: %v", ErrReceiverReject, err)
		}
	}
	l.owners[assetID] = to
	delete(l.approved, assetID)
	return nil
}

// RoyaltyInfo implements the optional royalty-query capability.
func (l *Ledger) RoyaltyInfo(assetID uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.owners[assetID]; !ok {
		return [20]byte{}, nil, ErrUnknownAsset
	}
	record, ok := l.royalties[assetID]
	if !ok {
		if l.royalty == nil {
			return [20]byte{}, big.NewInt(0), nil
		}
		record = *l.royalty
	}
	price := new(big.Int)
	if salePrice != nil {
		price.Set(salePrice)
	}
	amount := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(record.bps)))
	amount.Div(amount, big.NewInt(10_000))
	return record.recipient, amount, nil
}

// ContractOwner implements the Owned capability.
func (l *Ledger) ContractOwner() ([20]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner, nil
}
