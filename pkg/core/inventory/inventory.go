/*
Package inventory implements a store-backed unit inventory: sequentially
numbered units minted to owners up to a fixed maximum supply.
*/
package inventory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"go.uber.org/zap"
)

var (
	// ErrPaused is returned on an attempt to mint from a paused inventory.
	ErrPaused = errors.New("inventory is paused")
	// ErrCapacity is returned when a mint would exceed the maximum supply.
	ErrCapacity = errors.New("max supply exceeded")
	// ErrUnknown is returned by Registry for addresses it has no inventory for.
	ErrUnknown = errors.New("unknown inventory")
	// ErrInvalidQuantity is returned for zero-unit mints.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Inventory is a unit inventory living at Address.
type Inventory struct {
	lock    sync.RWMutex
	store   storage.Store
	address common.Address
	log     *zap.Logger
}

var _ auction.Inventory = (*Inventory)(nil)

// New opens the inventory at address, creating it with maxSupply units if it
// doesn't exist in store yet. An existing inventory keeps its supply.
func New(store storage.Store, address common.Address, maxSupply uint64, log *zap.Logger) (*Inventory, error) {
	inv := &Inventory{
		store:   store,
		address: address,
		log:     log.With(zap.String("module", "inventory"), zap.Stringer("address", address)),
	}
	d := dao.NewSimple(store)
	info, err := d.GetInventoryInfo(address)
	if err == nil {
		if info.MaxSupply != maxSupply {
			inv.log.Warn("configured max supply ignored",
				zap.Uint64("stored", info.MaxSupply), zap.Uint64("configured", maxSupply))
		}
		return inv, nil
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, err
	}
	if err = d.PutInventoryInfo(address, &state.InventoryInfo{MaxSupply: maxSupply}); err != nil {
		return nil, err
	}
	if _, err = d.Persist(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Address returns the address the inventory lives at.
func (inv *Inventory) Address() common.Address {
	return inv.address
}

func (inv *Inventory) info() state.InventoryInfo {
	info, err := dao.NewSimple(inv.store).GetInventoryInfo(inv.address)
	if err != nil {
		inv.log.Error("failed to read inventory info", zap.Error(err))
		return state.InventoryInfo{}
	}
	return *info
}

// MintTo implements auction.Inventory. Units are numbered from 1 and
// consecutive mints to the same owner are kept as a single range. Changes
// are made within d only.
func (inv *Inventory) MintTo(d *dao.Simple, recipient common.Address, quantity uint64) (uint64, error) {
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	info, err := d.GetInventoryInfo(inv.address)
	if err != nil {
		return 0, err
	}
	if info.Paused {
		return 0, ErrPaused
	}
	if info.Minted > info.MaxSupply || quantity > info.MaxSupply-info.Minted {
		return 0, fmt.Errorf("%w: %d minted, %d requested, %d max", ErrCapacity,
			info.Minted, quantity, info.MaxSupply)
	}
	first := info.Minted + 1
	info.Minted += quantity

	h, err := d.GetHoldings(inv.address, recipient)
	if err != nil {
		return 0, err
	}
	if n := len(h.Ranges); n > 0 && h.Ranges[n-1].First+h.Ranges[n-1].Count == first {
		h.Ranges[n-1].Count += quantity
	} else {
		h.Ranges = append(h.Ranges, state.UnitRange{First: first, Count: quantity})
	}
	if err = d.PutHoldings(inv.address, recipient, h); err != nil {
		return 0, err
	}
	if err = d.PutInventoryInfo(inv.address, info); err != nil {
		return 0, err
	}
	inv.log.Debug("mint staged", zap.Stringer("to", recipient),
		zap.Uint64("first", first), zap.Uint64("qty", quantity))
	return first, nil
}

// CurrentSupply implements auction.Inventory.
func (inv *Inventory) CurrentSupply() uint64 {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	return inv.info().Minted
}

// MaxSupply implements auction.Inventory.
func (inv *Inventory) MaxSupply() uint64 {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	return inv.info().MaxSupply
}

// Paused implements auction.Inventory.
func (inv *Inventory) Paused() bool {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	return inv.info().Paused
}

// SetPaused pauses or resumes minting. It writes the inventory record
// directly, so it must not run concurrently with sale operations.
func (inv *Inventory) SetPaused(paused bool) error {
	inv.lock.Lock()
	defer inv.lock.Unlock()
	d := dao.NewSimple(inv.store)
	info, err := d.GetInventoryInfo(inv.address)
	if err != nil {
		return err
	}
	info.Paused = paused
	if err = d.PutInventoryInfo(inv.address, info); err != nil {
		return err
	}
	_, err = d.Persist()
	return err
}

// HoldingsOf returns the units owned by owner.
func (inv *Inventory) HoldingsOf(owner common.Address) (*state.Holdings, error) {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	return dao.NewSimple(inv.store).GetHoldings(inv.address, owner)
}

// Owners returns the total number of units per owner.
func (inv *Inventory) Owners() (map[common.Address]uint64, error) {
	inv.lock.RLock()
	defer inv.lock.RUnlock()
	res := make(map[common.Address]uint64)
	err := dao.NewSimple(inv.store).SeekHoldings(inv.address, func(owner common.Address, h *state.Holdings) bool {
		res[owner] = h.Total()
		return true
	})
	return res, err
}

// Registry resolves inventories by address.
type Registry struct {
	lock  sync.RWMutex
	items map[common.Address]*Inventory
}

var _ auction.InventoryResolver = (*Registry)(nil)

// NewRegistry returns a registry holding the given inventories.
func NewRegistry(items ...*Inventory) *Registry {
	r := &Registry{items: make(map[common.Address]*Inventory, len(items))}
	for _, inv := range items {
		r.items[inv.address] = inv
	}
	return r
}

// Add registers inv, replacing any inventory at the same address.
func (r *Registry) Add(inv *Inventory) {
	r.lock.Lock()
	r.items[inv.address] = inv
	r.lock.Unlock()
}

// Get returns the inventory at addr.
func (r *Registry) Get(addr common.Address) (*Inventory, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	inv, ok := r.items[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, addr)
	}
	return inv, nil
}

// Inventory implements auction.InventoryResolver.
func (r *Registry) Inventory(addr common.Address) (auction.Inventory, error) {
	inv, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
