package escrow

import (
	"fmt"
	"math/big"
)

// Status represents the lifecycle states of an escrow transaction.
type Status uint8

const (
	StatusActive Status = iota
	StatusCompleted
	StatusCancelled
	StatusDisputed
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	default:
		return false
	}
}

// String renders the status for events and RPC responses.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusDisputed:
		return "disputed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Transaction captures a single custody agreement: the engine holds the asset
// and the buyer's payment until both parties approve, one of them cancels, or
// a dispute is resolved. Identifiers are assigned from a monotonically
// increasing counter and never reused.
type Transaction struct {
	ID             uint64
	Seller         [20]byte
	Buyer          [20]byte
	Registry       [20]byte
	AssetID        uint64
	Price          *big.Int
	CreatedAt      int64
	Deadline       int64
	Status         Status
	SellerApproved bool
	BuyerApproved  bool
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Price != nil {
		clone.Price = new(big.Int).Set(t.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Sanitize validates the stored form of a transaction, returning a clone with
// a non-nil price.
func Sanitize(t *Transaction) (*Transaction, error) {
	if t == nil {
		return nil, fmt.Errorf("escrow: nil transaction")
	}
	clone := t.Clone()
	if clone.Price.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: price must be positive")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid status %d", clone.Status)
	}
	if clone.Seller == ([20]byte{}) || clone.Buyer == ([20]byte{}) {
		return nil, fmt.Errorf("escrow: seller and buyer required")
	}
	return clone, nil
}

// Params carries the owner-mutable singleton configuration of the escrow
// module. It is read unlocked by every operation; the host environment's
// serialized execution makes that safe.
type Params struct {
	Owner         [20]byte
	FeeBps        uint32
	FeeRecipient  [20]byte
	Resolver      [20]byte
	DisputeWindow uint64
	Paused        bool
}

// Clone returns a copy of the params.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// DefaultDisputeWindow is applied when the genesis configuration does not
// override it: disputes may be raised up to seven days past the deadline.
const DefaultDisputeWindow uint64 = 7 * 24 * 60 * 60

// MaxFeeBps caps the platform fee at 10%.
const MaxFeeBps uint32 = 1_000
