/*
Package payout implements the payout book: a store-backed record of native
currency the sale owes to each address. The node operator settles the book
out of band.
*/
package payout

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"go.uber.org/zap"
)

// ErrInvalidAmount is returned for zero or missing payments.
var ErrInvalidAmount = errors.New("invalid payout amount")

// Book accumulates payouts per address. Payouts are recorded by the sale
// within its own operations, the book itself only reads them back.
type Book struct {
	store storage.Store
	log   *zap.Logger
}

var _ auction.Payer = (*Book)(nil)

// New returns a payout book kept in store.
func New(store storage.Store, log *zap.Logger) *Book {
	return &Book{
		store: store,
		log:   log.With(zap.String("module", "payout")),
	}
}

// Pay implements auction.Payer. The record is updated within d and becomes
// visible in the book once d is persisted.
func (b *Book) Pay(d *dao.Simple, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	p, err := d.GetPayout(to)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(p.Amount, amount)
	if overflow {
		return auction.ErrOverflow
	}
	p.Amount = sum
	p.Count++
	if err = d.PutPayout(to, p); err != nil {
		return err
	}
	b.log.Debug("payout staged", zap.Stringer("to", to), zap.String("amount", amount.Dec()),
		zap.String("total", sum.Dec()))
	return nil
}

// Get returns the payout record of addr.
func (b *Book) Get(addr common.Address) (*state.Payout, error) {
	return dao.NewSimple(b.store).GetPayout(addr)
}

// All returns every payout record.
func (b *Book) All() (map[common.Address]*state.Payout, error) {
	res := make(map[common.Address]*state.Payout)
	err := dao.NewSimple(b.store).SeekPayouts(func(a common.Address, p *state.Payout) bool {
		res[a] = p
		return true
	})
	return res, err
}
