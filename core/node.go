package core

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"assetmarket/core/events"
	"assetmarket/core/state"
	"assetmarket/core/types"
	"assetmarket/native/assets"
	"assetmarket/native/escrow"
	"assetmarket/native/market"
	"assetmarket/native/royalty"
	"assetmarket/observability"
	"assetmarket/storage"
)

// Genesis seeds the singleton module configuration on first boot. Fields left
// zero fall back to module defaults; params already present in state win.
type Genesis struct {
	Owner         [20]byte
	FeeBps        uint32
	FeeRecipient  [20]byte
	Resolver      [20]byte
	DisputeWindow uint64
	Registries    [][20]byte
	Accounts      map[[20]byte]*big.Int
}

// Env bundles the engines bound to a single operation's state view. Every
// engine in an Env shares one overlay, one event buffer, and one clock
// reading, so the whole operation commits or reverts together.
type Env struct {
	State   *state.Manager
	Market  *market.Engine
	Escrow  *escrow.Engine
	Royalty *royalty.Engine
}

// Node is the serialized execution environment the engines run inside: one
// operation at a time, each against a write overlay that commits only when
// the operation succeeds. This is the locking-free atomicity contract the
// engines rely on.
type Node struct {
	mu         sync.Mutex
	db         storage.Database
	registries assets.RegistrySet
	recorder   *events.Recorder
	nowFn      func() int64
}

// NewNode creates a node over the backing database.
func NewNode(db storage.Database) *Node {
	return &Node{
		db:         db,
		registries: make(assets.RegistrySet),
		recorder:   events.NewRecorder(4096),
		nowFn:      func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the node clock, primarily for deterministic tests.
func (n *Node) SetNowFunc(now func() int64) {
	if now == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	n.nowFn = now
}

// BindRegistry attaches a live registry implementation to its address so the
// engines can query and instruct it.
func (n *Node) BindRegistry(addr [20]byte, reg assets.Registry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registries[addr] = reg
}

// Events returns the recorder retaining emitted event history.
func (n *Node) Events() *events.Recorder { return n.recorder }

func (n *Node) buildEnv(mgr *state.Manager, buf events.Emitter) *Env {
	royaltyEngine := royalty.NewEngine()
	royaltyEngine.SetState(mgr)
	royaltyEngine.SetRegistries(n.registries)
	royaltyEngine.SetEmitter(buf)

	escrowEngine := escrow.NewEngine()
	escrowEngine.SetState(mgr)
	escrowEngine.SetRegistries(n.registries)
	escrowEngine.SetEmitter(buf)
	escrowEngine.SetPauses(mgr)
	escrowEngine.SetNowFunc(n.nowFn)

	marketEngine := market.NewEngine()
	marketEngine.SetState(mgr)
	marketEngine.SetRegistries(n.registries)
	marketEngine.SetRoyalties(royaltyEngine)
	marketEngine.SetEmitter(buf)
	marketEngine.SetPauses(mgr)
	marketEngine.SetNowFunc(n.nowFn)

	return &Env{State: mgr, Market: marketEngine, Escrow: escrowEngine, Royalty: royaltyEngine}
}

// Execute runs a state-mutating operation as one atomic step. The operation
// sees its own overlay; on success the overlay commits and buffered events
// flush to the recorder, on failure every effect is discarded.
func (n *Node) Execute(module, op string, fn func(*Env) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := time.Now()
	overlay := storage.NewOverlay(n.db)
	buf := &events.Buffer{}
	env := n.buildEnv(state.NewManager(overlay), buf)
	err := fn(env)
	if err != nil {
		overlay.Discard()
		buf.Discard()
		observability.Operations().Observe(module, op, "error", time.Since(start))
		return err
	}
	if err := overlay.Commit(); err != nil {
		buf.Discard()
		observability.Operations().Observe(module, op, "error", time.Since(start))
		return fmt.Errorf("core: commit %s.%s: %w", module, op, err)
	}
	buf.Flush(n.recorder)
	observability.Operations().Observe(module, op, "ok", time.Since(start))
	return nil
}

// View runs a read-only function against the committed state. Views share the
// node mutex so they observe a fully-settled state, never a mid-operation one.
func (n *Node) View(fn func(*Env) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	env := n.buildEnv(state.NewManager(n.db), events.NoopEmitter{})
	return fn(env)
}

// Balance reads the native balance for an address.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.View(func(env *Env) error {
		acc, err := env.State.GetAccount(addr[:])
		if err != nil {
			return err
		}
		balance = acc.Balance
		return nil
	})
	return balance, err
}

// Transfer moves native balance between two accounts.
func (n *Node) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("core: transfer amount must be positive")
	}
	return n.Execute("bank", "transfer", func(env *Env) error {
		fromAcc, err := env.State.GetAccount(from[:])
		if err != nil {
			return err
		}
		if fromAcc.Balance.Cmp(amount) < 0 {
			return fmt.Errorf("core: insufficient balance")
		}
		toAcc, err := env.State.GetAccount(to[:])
		if err != nil {
			return err
		}
		fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
		fromAcc.Nonce++
		toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
		if err := env.State.PutAccount(from[:], fromAcc); err != nil {
			return err
		}
		return env.State.PutAccount(to[:], toAcc)
	})
}

// ApplyGenesis seeds module params, whitelists, and account balances on first
// boot. Params already present in state are left untouched so a restart never
// clobbers owner-applied changes.
func (n *Node) ApplyGenesis(gen *Genesis) error {
	if gen == nil {
		return nil
	}
	return n.Execute("core", "genesis", func(env *Env) error {
		if existing, err := env.State.EscrowParamsGet(); err != nil {
			return err
		} else if existing == nil {
			window := gen.DisputeWindow
			if window == 0 {
				window = escrow.DefaultDisputeWindow
			}
			params := &escrow.Params{
				Owner:         gen.Owner,
				FeeBps:        gen.FeeBps,
				FeeRecipient:  gen.FeeRecipient,
				Resolver:      gen.Resolver,
				DisputeWindow: window,
			}
			if err := env.State.EscrowParamsPut(params); err != nil {
				return err
			}
		}
		if existing, err := env.State.MarketParamsGet(); err != nil {
			return err
		} else if existing == nil {
			params := &market.Params{
				Owner:        gen.Owner,
				FeeBps:       gen.FeeBps,
				FeeRecipient: gen.FeeRecipient,
			}
			if err := env.State.MarketParamsPut(params); err != nil {
				return err
			}
		}
		if existing, err := env.State.RoyaltyParamsGet(); err != nil {
			return err
		} else if existing == nil || existing.Owner == ([20]byte{}) {
			if err := env.State.RoyaltyParamsPut(&royalty.Params{Owner: gen.Owner}); err != nil {
				return err
			}
		}
		for _, registry := range gen.Registries {
			if err := env.State.EscrowSetRegistryAllowed(registry, true); err != nil {
				return err
			}
			if err := env.State.MarketSetRegistryAllowed(registry, true); err != nil {
				return err
			}
		}
		for addr, balance := range gen.Accounts {
			if balance == nil || balance.Sign() <= 0 {
				continue
			}
			acc, err := env.State.GetAccount(addr[:])
			if err != nil {
				return err
			}
			if acc.Balance.Sign() > 0 || acc.Nonce > 0 {
				continue
			}
			acc.Balance = new(big.Int).Set(balance)
			if err := env.State.PutAccount(addr[:], acc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Account reads the full account record for an address.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	var acc *types.Account
	err := n.View(func(env *Env) error {
		loaded, err := env.State.GetAccount(addr[:])
		if err != nil {
			return err
		}
		acc = loaded.Clone()
		return nil
	})
	return acc, err
}
