/*
Package auction implements a fixed-supply descending-price sale. Bids are
gated by signed authorizations, units vest linearly over the sale window and
every participant is refunded the difference between what it paid and the
final price once the sale is over.

Every mutating operation is atomic: it runs against its own cached layer over
the store and is persisted in a single batch only if it succeeds. Mutating
operations are serialized, views may run concurrently with each other.
*/
package auction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/crypto/merkle"
	"go.uber.org/zap"
)

// Invocation is the execution environment of a single call.
type Invocation struct {
	// Caller is the authenticated sender of the call.
	Caller common.Address
	// Value is the native payment attached, nil is zero.
	Value *uint256.Int
	// Time is the current unix time in seconds.
	Time uint64
}

func (ic *Invocation) value() *uint256.Int {
	if ic.Value == nil {
		return new(uint256.Int)
	}
	return ic.Value
}

// Options are the collaborators and the initial settings of a sale. Admins,
// Signer, Treasury, NftContract and AllowlistRoot are only used when the
// store is empty, persisted values take precedence afterwards.
type Options struct {
	// Domain binds authorizations to this sale instance.
	Domain bidsig.Domain

	Admins        []common.Address
	Signer        common.Address
	Treasury      common.Address
	NftContract   common.Address
	AllowlistRoot common.Hash

	// Verifier defaults to bidsig.Verifier.
	Verifier Verifier
	// Allowlist defaults to merkle.Allowlist.
	Allowlist Allowlist
	// Delegations is optional, no delegates are known without it.
	Delegations Delegations
	Inventories InventoryResolver
	Payer       Payer
}

// Auction is a single sale instance.
type Auction struct {
	// lock serializes mutating operations.
	lock  sync.RWMutex
	store storage.Store
	log   *zap.Logger

	auth        authorizer
	allowlist   Allowlist
	delegations Delegations
	inventories InventoryResolver
	payer       Payer

	subMtx sync.RWMutex
	subs   map[chan<- Event]bool
}

type noDelegations struct{}

func (noDelegations) CheckDelegateForAll(common.Address, common.Address) bool { return false }

// ErrNoAdmins is returned on an attempt to start a sale without admins.
var ErrNoAdmins = errors.New("at least one admin is required")

// New opens the sale kept in store, initializing it from opts if the store
// is empty.
func New(store storage.Store, opts Options, log *zap.Logger) (*Auction, error) {
	if opts.Inventories == nil {
		return nil, errors.New("no inventory resolver")
	}
	if opts.Payer == nil {
		return nil, errors.New("no payer")
	}
	if opts.Verifier == nil {
		opts.Verifier = bidsig.Verifier{}
	}
	if opts.Allowlist == nil {
		opts.Allowlist = merkle.Allowlist{}
	}
	if opts.Delegations == nil {
		opts.Delegations = noDelegations{}
	}
	a := &Auction{
		store:       store,
		log:         log.With(zap.String("module", "auction")),
		auth:        authorizer{domain: opts.Domain, verifier: opts.Verifier},
		allowlist:   opts.Allowlist,
		delegations: opts.Delegations,
		inventories: opts.Inventories,
		payer:       opts.Payer,
		subs:        make(map[chan<- Event]bool),
	}

	d := dao.NewSimple(store)
	fresh, err := d.CheckVersion()
	if err != nil {
		return nil, err
	}
	if !fresh {
		a.log.Info("sale restored", zap.Stringer("address", opts.Domain.VerifyingContract))
		updateMetrics(d)
		return a, nil
	}
	if len(opts.Admins) == 0 {
		return nil, ErrNoAdmins
	}
	for _, adm := range opts.Admins {
		d.PutAdmin(adm)
	}
	err = d.PutSettings(&state.Settings{
		Signer:        opts.Signer,
		Treasury:      opts.Treasury,
		NftContract:   opts.NftContract,
		AllowlistRoot: opts.AllowlistRoot,
	})
	if err != nil {
		return nil, err
	}
	if _, err = d.Persist(); err != nil {
		return nil, fmt.Errorf("failed to initialize the store: %w", err)
	}
	a.log.Info("sale initialized",
		zap.Stringer("address", opts.Domain.VerifyingContract),
		zap.Int("admins", len(opts.Admins)))
	updateMetrics(d)
	return a, nil
}

// operation is the context of a single mutating call.
type operation struct {
	ic *Invocation
	// dao also receives the writes of the inventory and the payer.
	dao    *dao.Simple
	events []Event
}

func (op *operation) emit(e Event) {
	op.events = append(op.events, e)
}

// execute runs f against a fresh layer over the store and persists the
// layer if f succeeds. Sale records, mints and payouts made by f are stored
// in a single batch. Events are published after the changes are stored.
func (a *Auction) execute(ic *Invocation, f func(op *operation) error) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	op := &operation{ic: ic, dao: dao.NewSimple(a.store)}
	if err := f(op); err != nil {
		return err
	}
	if _, err := op.dao.Persist(); err != nil {
		return fmt.Errorf("failed to persist changes: %w", err)
	}
	updateMetrics(op.dao)
	a.publish(op.events)
	return nil
}

// view runs f against the current state.
func (a *Auction) view(f func(d *dao.Simple) error) error {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return f(dao.NewSimple(a.store))
}

// requireAdmin checks the caller holds the admin role.
func (op *operation) requireAdmin() error {
	if !op.dao.IsAdmin(op.ic.Caller) {
		return fmt.Errorf("%w: %s", ErrMissingRole, op.ic.Caller)
	}
	return nil
}

// getConfig returns the sale configuration or ErrConfigNotSet.
func getConfig(d *dao.Simple) (*state.SaleConfig, error) {
	cfg, err := d.GetSaleConfig()
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrConfigNotSet
	}
	return cfg, err
}

func getSettings(d *dao.Simple) (*state.Settings, error) {
	s, err := d.GetSettings()
	if errors.Is(err, storage.ErrKeyNotFound) {
		return new(state.Settings), nil
	}
	return s, err
}

// inventory resolves the inventory deployed at addr.
func (a *Auction) inventory(addr common.Address) (Inventory, error) {
	inv, err := a.inventories.Inventory(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownInventory, addr, err)
	}
	return inv, nil
}

// requireNotPaused returns the settings if the sale is not paused.
func requireNotPaused(d *dao.Simple) (*state.Settings, error) {
	s, err := getSettings(d)
	if err != nil {
		return nil, err
	}
	if s.Paused {
		return nil, ErrPaused
	}
	return s, nil
}

// SubscribeForEvents adds ch to the list of event receivers. Events are sent
// synchronously after every successful operation, so the receiver must be
// drained or the sale will stall.
func (a *Auction) SubscribeForEvents(ch chan<- Event) {
	a.subMtx.Lock()
	a.subs[ch] = true
	a.subMtx.Unlock()
}

// UnsubscribeFromEvents removes ch from the list of event receivers. The
// channel is not closed.
func (a *Auction) UnsubscribeFromEvents(ch chan<- Event) {
	a.subMtx.Lock()
	delete(a.subs, ch)
	a.subMtx.Unlock()
}

func (a *Auction) publish(events []Event) {
	for _, e := range events {
		a.log.Info("event", append([]zap.Field{zap.String("name", e.EventName())}, eventFields(e)...)...)
		countEvent(e)
	}
	a.subMtx.RLock()
	defer a.subMtx.RUnlock()
	for _, e := range events {
		for ch := range a.subs {
			ch <- e
		}
	}
}
