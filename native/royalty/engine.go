package royalty

import (
	"errors"
	"math/big"

	"assetmarket/core/events"
	"assetmarket/native/assets"
)

var (
	errNilState      = errors.New("royalty engine: state not configured")
	ErrNotAuthorized = errors.New("royalty engine: caller not authorized")
	ErrPriceRequired = errors.New("royalty engine: sale price must be positive")
	ErrOwnerNotSet   = errors.New("royalty engine: owner not configured")
)

type engineState interface {
	RoyaltyParamsGet() (*Params, error)
	RoyaltyDefaultGet() (*Record, bool, error)
	RoyaltyDefaultPut(*Record) error
	RoyaltyContractGet(registry [20]byte) (*Record, bool, error)
	RoyaltyContractPut(registry [20]byte, record *Record) error
	RoyaltyTokenGet(registry [20]byte, assetID uint64) (*Record, bool, error)
	RoyaltyTokenPut(registry [20]byte, assetID uint64, record *Record) error
}

// Engine resolves creator royalties for a sale through a layered cascade: the
// registry's own royalty capability first, then the token-level override, the
// contract-level override, the global default, and finally no royalty at all.
type Engine struct {
	state      engineState
	registries assets.Resolver
	emitter    events.Emitter
}

// NewEngine constructs a royalty engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistries configures the resolver used to probe registry capabilities.
func (e *Engine) SetRegistries(r assets.Resolver) { e.registries = r }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// withinCap reports whether amount is at most 10% of salePrice.
func withinCap(amount, salePrice *big.Int) bool {
	if amount == nil || salePrice == nil {
		return false
	}
	scaled := new(big.Int).Mul(amount, big.NewInt(10))
	return scaled.Cmp(salePrice) <= 0
}

func amountForBps(salePrice *big.Int, bps uint32) *big.Int {
	amount := new(big.Int).Mul(salePrice, new(big.Int).SetUint64(uint64(bps)))
	return amount.Div(amount, big.NewInt(10_000))
}

// Resolve computes the royalty owed for selling the asset at salePrice. The
// external registry capability is advisory: call failures and answers that
// breach the 10% cap or name no recipient fall through to the override
// cascade instead of aborting the sale.
func (e *Engine) Resolve(registry [20]byte, assetID uint64, salePrice *big.Int) ([20]byte, *big.Int, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, nil, errNilState
	}
	if salePrice == nil || salePrice.Sign() <= 0 {
		return [20]byte{}, nil, ErrPriceRequired
	}
	if recipient, amount, ok := e.probeRegistry(registry, assetID, salePrice); ok {
		return recipient, amount, nil
	}
	record, err := e.lookupOverride(registry, assetID)
	if err != nil {
		return [20]byte{}, nil, err
	}
	if record.Empty() {
		return [20]byte{}, big.NewInt(0), nil
	}
	return record.Recipient, amountForBps(salePrice, record.Bps), nil
}

// probeRegistry queries the registry's optional royalty capability. The
// second return value reports whether a trustworthy answer was obtained.
func (e *Engine) probeRegistry(registry [20]byte, assetID uint64, salePrice *big.Int) ([20]byte, *big.Int, bool) {
	if e.registries == nil {
		return [20]byte{}, nil, false
	}
	reg, ok := e.registries.Registry(registry)
	if !ok {
		return [20]byte{}, nil, false
	}
	capability, ok := reg.(assets.RoyaltyInfo)
	if !ok {
		return [20]byte{}, nil, false
	}
	recipient, amount, err := capability.RoyaltyInfo(assetID, salePrice)
	if err != nil || amount == nil {
		return [20]byte{}, nil, false
	}
	if recipient == ([20]byte{}) || amount.Sign() <= 0 || !withinCap(amount, salePrice) {
		return [20]byte{}, nil, false
	}
	return recipient, new(big.Int).Set(amount), true
}

func (e *Engine) lookupOverride(registry [20]byte, assetID uint64) (*Record, error) {
	if record, ok, err := e.state.RoyaltyTokenGet(registry, assetID); err != nil {
		return nil, err
	} else if ok && !record.Empty() {
		return record, nil
	}
	if record, ok, err := e.state.RoyaltyContractGet(registry); err != nil {
		return nil, err
	} else if ok && !record.Empty() {
		return record, nil
	}
	if record, ok, err := e.state.RoyaltyDefaultGet(); err != nil {
		return nil, err
	} else if ok && !record.Empty() {
		return record, nil
	}
	return &Record{}, nil
}

func (e *Engine) owner() ([20]byte, error) {
	params, err := e.state.RoyaltyParamsGet()
	if err != nil {
		return [20]byte{}, err
	}
	if params == nil || params.Owner == ([20]byte{}) {
		return [20]byte{}, ErrOwnerNotSet
	}
	return params.Owner, nil
}

// SetDefault installs the global default royalty record. Owner only.
func (e *Engine) SetDefault(caller [20]byte, record *Record) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner, err := e.owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrNotAuthorized
	}
	sanitized, err := SanitizeRecord(record)
	if err != nil {
		return err
	}
	if err := e.state.RoyaltyDefaultPut(sanitized); err != nil {
		return err
	}
	e.emit(NewDefaultUpdatedEvent(sanitized))
	return nil
}

// SetContract installs a contract-level override for a registry. Allowed for
// the engine owner, or for a caller that can prove control of the registry via
// its Owned capability. Capability errors fail safe to "not authorized".
func (e *Engine) SetContract(caller, registry [20]byte, record *Record) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.callerIsOwner(caller) && !e.callerControlsRegistry(caller, registry) {
		return ErrNotAuthorized
	}
	sanitized, err := SanitizeRecord(record)
	if err != nil {
		return err
	}
	if err := e.state.RoyaltyContractPut(registry, sanitized); err != nil {
		return err
	}
	e.emit(NewContractUpdatedEvent(registry, sanitized))
	return nil
}

// SetToken installs a token-level override. Allowed for the engine owner, or
// for the current owner of the asset per the external registry. Ownership
// query errors fail safe to "not authorized".
func (e *Engine) SetToken(caller, registry [20]byte, assetID uint64, record *Record) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.callerIsOwner(caller) && !e.callerOwnsAsset(caller, registry, assetID) {
		return ErrNotAuthorized
	}
	sanitized, err := SanitizeRecord(record)
	if err != nil {
		return err
	}
	if err := e.state.RoyaltyTokenPut(registry, assetID, sanitized); err != nil {
		return err
	}
	e.emit(NewTokenUpdatedEvent(registry, assetID, sanitized))
	return nil
}

func (e *Engine) callerIsOwner(caller [20]byte) bool {
	owner, err := e.owner()
	if err != nil {
		return false
	}
	return caller == owner
}

func (e *Engine) callerControlsRegistry(caller, registry [20]byte) bool {
	if e.registries == nil {
		return false
	}
	reg, ok := e.registries.Registry(registry)
	if !ok {
		return false
	}
	owned, ok := reg.(assets.Owned)
	if !ok {
		return false
	}
	owner, err := owned.ContractOwner()
	if err != nil {
		return false
	}
	return owner != ([20]byte{}) && owner == caller
}

func (e *Engine) callerOwnsAsset(caller, registry [20]byte, assetID uint64) bool {
	if e.registries == nil {
		return false
	}
	reg, ok := e.registries.Registry(registry)
	if !ok {
		return false
	}
	owner, err := reg.OwnerOf(assetID)
	if err != nil {
		return false
	}
	return owner != ([20]byte{}) && owner == caller
}
