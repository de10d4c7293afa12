package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"assetmarket/core/events"
	"assetmarket/core/types"
	"assetmarket/native/assets"
	nativecommon "assetmarket/native/common"
)

const moduleName = "escrow"

var (
	errNilState          = errors.New("escrow engine: state not configured")
	ErrNotFound          = errors.New("escrow engine: escrow not found")
	ErrNotAuthorized     = errors.New("escrow engine: caller not authorized")
	ErrNotParticipant    = errors.New("escrow engine: caller is not seller or buyer")
	ErrInvalidStatus     = errors.New("escrow engine: status transition not allowed")
	ErrRegistryNotListed = errors.New("escrow engine: asset registry not whitelisted")
	ErrRegistryUnbound   = errors.New("escrow engine: asset registry not resolvable")
	ErrNotAssetOwner     = errors.New("escrow engine: caller does not own the asset")
	ErrNotApproved       = errors.New("escrow engine: engine not approved to move the asset")
	ErrInsufficientFunds = errors.New("escrow engine: insufficient balance")
	ErrDisputeWindow     = errors.New("escrow engine: dispute window elapsed")
	ErrNotPaused         = errors.New("escrow engine: module not paused")
	ErrFeeRecipientZero  = errors.New("escrow engine: fee recipient not configured")
)

// VaultAddress is the engine's own account: it custodies held payments and is
// the identity under which the engine instructs asset registries.
var VaultAddress = vaultAddress()

func vaultAddress() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("assetmarket/escrow/vault"))[12:])
	return addr
}

type engineState interface {
	EscrowParamsGet() (*Params, error)
	EscrowParamsPut(*Params) error
	EscrowPut(*Transaction) error
	EscrowGet(id uint64) (*Transaction, bool, error)
	EscrowNextID() (uint64, error)
	EscrowRegistryAllowed(registry [20]byte) (bool, error)
	EscrowSetRegistryAllowed(registry [20]byte, allowed bool) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine implements the escrow settlement state machine. Every operation runs
// inside the host environment's serialized, all-or-nothing execution step;
// registry instructions are issued last so an external failure leaves no
// partial monetary effect behind.
type Engine struct {
	state      engineState
	registries assets.Resolver
	emitter    events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64
}

// NewEngine creates an escrow engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistries configures the resolver for whitelisted asset registries.
func (e *Engine) SetRegistries(r assets.Resolver) { e.registries = r }

// SetPauses configures the pause switch view consulted by mutators.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) params() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	params, err := e.state.EscrowParamsGet()
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &Params{DisputeWindow: DefaultDisputeWindow}
	}
	return params, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) transferBalance(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("escrow engine: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func (e *Engine) loadTransaction(id uint64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	tx, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

func (e *Engine) registry(addr [20]byte) (assets.Registry, error) {
	if e == nil || e.registries == nil {
		return nil, ErrRegistryUnbound
	}
	reg, ok := e.registries.Registry(addr)
	if !ok {
		return nil, ErrRegistryUnbound
	}
	return reg, nil
}

func engineAuthorized(reg assets.Registry, owner [20]byte, assetID uint64) error {
	if approved, err := reg.GetApproved(assetID); err == nil && approved == VaultAddress {
		return nil
	}
	if reg.IsApprovedForAll(owner, VaultAddress) {
		return nil
	}
	return ErrNotApproved
}

// Create opens a new escrow: the caller (seller) names the buyer, the engine
// debits the buyer's held payment into its vault and takes custody of the
// asset. Any precondition failure aborts with no state change.
func (e *Engine) Create(caller, buyer, registry [20]byte, assetID uint64, payment *big.Int, deadline int64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if buyer == ([20]byte{}) || buyer == caller {
		return nil, fmt.Errorf("escrow engine: buyer must differ from seller")
	}
	allowed, err := e.state.EscrowRegistryAllowed(registry)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRegistryNotListed
	}
	price := cloneBigInt(payment)
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("escrow engine: payment must be positive")
	}
	now := e.now()
	if deadline <= now {
		return nil, fmt.Errorf("escrow engine: deadline must be in the future")
	}
	reg, err := e.registry(registry)
	if err != nil {
		return nil, err
	}
	owner, err := reg.OwnerOf(assetID)
	if err != nil {
		return nil, fmt.Errorf("escrow engine: owner lookup: %w", err)
	}
	if owner != caller {
		return nil, ErrNotAssetOwner
	}
	if err := engineAuthorized(reg, caller, assetID); err != nil {
		return nil, err
	}
	if err := e.transferBalance(buyer, VaultAddress, price); err != nil {
		return nil, err
	}
	id, err := e.state.EscrowNextID()
	if err != nil {
		return nil, err
	}
	tx := &Transaction{
		ID:        id,
		Seller:    caller,
		Buyer:     buyer,
		Registry:  registry,
		AssetID:   assetID,
		Price:     price,
		CreatedAt: now,
		Deadline:  deadline,
		Status:    StatusActive,
	}
	if err := e.state.EscrowPut(tx); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(tx))
	// Registry instruction goes last: if it fails the host discards every
	// state write above.
	if err := reg.SafeTransferFrom(VaultAddress, caller, VaultAddress, assetID); err != nil {
		return nil, fmt.Errorf("escrow engine: take custody: %w", err)
	}
	return tx.Clone(), nil
}

// Approve records the caller's approval. Once both the seller and the buyer
// have approved, the escrow settles: fee split paid out, asset released to
// the buyer, status Completed.
func (e *Engine) Approve(caller [20]byte, id uint64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	tx, err := e.loadTransaction(id)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	switch caller {
	case tx.Seller:
		tx.SellerApproved = true
	case tx.Buyer:
		tx.BuyerApproved = true
	default:
		return nil, ErrNotParticipant
	}
	e.emit(NewApprovedEvent(tx, caller))
	if tx.SellerApproved && tx.BuyerApproved {
		if err := e.complete(tx); err != nil {
			return nil, err
		}
		return tx.Clone(), nil
	}
	if err := e.state.EscrowPut(tx); err != nil {
		return nil, err
	}
	return tx.Clone(), nil
}

// complete pays the seller and the fee recipient and releases the asset to
// the buyer. The caller has already verified both approval flags.
func (e *Engine) complete(tx *Transaction) error {
	params, err := e.params()
	if err != nil {
		return err
	}
	fee := new(big.Int).Mul(tx.Price, new(big.Int).SetUint64(uint64(params.FeeBps)))
	fee.Div(fee, big.NewInt(10_000))
	sellerAmount := new(big.Int).Sub(tx.Price, fee)
	if fee.Sign() > 0 && params.FeeRecipient == ([20]byte{}) {
		return ErrFeeRecipientZero
	}
	if sellerAmount.Sign() > 0 {
		if err := e.transferBalance(VaultAddress, tx.Seller, sellerAmount); err != nil {
			return err
		}
	}
	if fee.Sign() > 0 {
		if err := e.transferBalance(VaultAddress, params.FeeRecipient, fee); err != nil {
			return err
		}
	}
	tx.Status = StatusCompleted
	if err := e.state.EscrowPut(tx); err != nil {
		return err
	}
	e.emit(NewCompletedEvent(tx, fee))
	reg, err := e.registry(tx.Registry)
	if err != nil {
		return err
	}
	if err := reg.SafeTransferFrom(VaultAddress, VaultAddress, tx.Buyer, tx.AssetID); err != nil {
		return fmt.Errorf("escrow engine: release asset: %w", err)
	}
	return nil
}

// Cancel unwinds an active escrow: the asset returns to the seller and the
// held payment to the buyer. Participants may cancel at any time while the
// escrow is active; once the deadline has passed anyone may.
func (e *Engine) Cancel(caller [20]byte, id uint64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	tx, err := e.loadTransaction(id)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if caller != tx.Seller && caller != tx.Buyer && e.now() <= tx.Deadline {
		return nil, ErrNotAuthorized
	}
	if err := e.unwind(tx); err != nil {
		return nil, err
	}
	return tx.Clone(), nil
}

// unwind refunds the buyer in full and returns the asset to the seller.
func (e *Engine) unwind(tx *Transaction) error {
	if err := e.transferBalance(VaultAddress, tx.Buyer, tx.Price); err != nil {
		return err
	}
	tx.Status = StatusCancelled
	if err := e.state.EscrowPut(tx); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(tx))
	reg, err := e.registry(tx.Registry)
	if err != nil {
		return err
	}
	if err := reg.SafeTransferFrom(VaultAddress, VaultAddress, tx.Seller, tx.AssetID); err != nil {
		return fmt.Errorf("escrow engine: return asset: %w", err)
	}
	return nil
}

// Dispute marks the escrow as disputed. Only the seller or buyer may raise a
// dispute, and only until the dispute window past the deadline has elapsed.
func (e *Engine) Dispute(caller [20]byte, id uint64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	tx, err := e.loadTransaction(id)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusActive {
		return nil, ErrInvalidStatus
	}
	if caller != tx.Seller && caller != tx.Buyer {
		return nil, ErrNotParticipant
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if e.now() > tx.Deadline+int64(params.DisputeWindow) {
		return nil, ErrDisputeWindow
	}
	tx.Status = StatusDisputed
	if err := e.state.EscrowPut(tx); err != nil {
		return nil, err
	}
	e.emit(NewDisputedEvent(tx, caller))
	return tx.Clone(), nil
}

// Resolve settles a disputed escrow according to the resolver's decision:
// favorBuyer replays the completion payout, otherwise the cancellation payout
// runs and no fee is taken. Either outcome is terminal.
func (e *Engine) Resolve(caller [20]byte, id uint64, favorBuyer bool) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	tx, err := e.loadTransaction(id)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusDisputed {
		return nil, ErrInvalidStatus
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	if params.Resolver == ([20]byte{}) || caller != params.Resolver {
		return nil, ErrNotAuthorized
	}
	if favorBuyer {
		if err := e.complete(tx); err != nil {
			return nil, err
		}
	} else {
		if err := e.unwind(tx); err != nil {
			return nil, err
		}
	}
	e.emit(NewResolvedEvent(tx, favorBuyer))
	return tx.Clone(), nil
}

// Get returns the stored transaction for RPC views.
func (e *Engine) Get(id uint64) (*Transaction, error) {
	tx, err := e.loadTransaction(id)
	if err != nil {
		return nil, err
	}
	return tx.Clone(), nil
}
