package auction

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
)

// ClaimTokens releases up to quantity of the caller's vested units to
// recipient and returns the number actually released, which may be less
// than requested.
func (a *Auction) ClaimTokens(ic *Invocation, quantity uint64, recipient common.Address) (uint64, error) {
	var released uint64
	err := a.execute(ic, func(op *operation) error {
		var err error
		released, err = a.claim(op, op.ic.Caller, quantity, recipient)
		return err
	})
	return released, err
}

// ClaimTokensFor releases up to quantity of account's vested units to the
// account itself. Only admins may call it.
func (a *Auction) ClaimTokensFor(ic *Invocation, account common.Address, quantity uint64) (uint64, error) {
	var released uint64
	err := a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		var err error
		released, err = a.claim(op, account, quantity, account)
		return err
	})
	return released, err
}

func (a *Auction) claim(op *operation, account common.Address, quantity uint64, recipient common.Address) (uint64, error) {
	cfg, err := getConfig(op.dao)
	if err != nil {
		return 0, err
	}
	settings, err := requireNotPaused(op.dao)
	if err != nil {
		return 0, err
	}
	if recipient == (common.Address{}) {
		return 0, ErrZeroAddress
	}
	acc, err := op.dao.GetAccount(account)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, ErrNothingToClaim
	}
	if err != nil {
		return 0, err
	}
	toRelease := min(quantity, releasable(cfg, acc, op.ic.Time))
	if toRelease == 0 {
		return 0, ErrNothingToClaim
	}
	acc.UnitsReleased += toRelease
	if err = op.dao.PutAccount(account, acc); err != nil {
		return 0, err
	}

	inv, err := a.inventory(settings.NftContract)
	if err != nil {
		return 0, err
	}
	first, err := inv.MintTo(op.dao, recipient, toRelease)
	if err != nil {
		return 0, fmt.Errorf("failed to mint %d units to %s: %w", toRelease, recipient, err)
	}
	op.emit(ClaimEvent{
		Account:   account,
		Recipient: recipient,
		Quantity:  toRelease,
		FirstUnit: first,
	})
	return toRelease, nil
}

// Claimable returns the number of account's units that may be released at
// now.
func (a *Auction) Claimable(account common.Address, now uint64) (uint64, error) {
	var res uint64
	err := a.view(func(d *dao.Simple) error {
		cfg, err := getConfig(d)
		if err != nil {
			return err
		}
		acc, err := d.GetAccountOrNew(account)
		if err != nil {
			return err
		}
		res = releasable(cfg, acc, now)
		return nil
	})
	return res, err
}

func releasable(cfg *state.SaleConfig, acc *state.Account, now uint64) uint64 {
	v := vested(cfg, acc.UnitsBid, now)
	if v <= acc.UnitsReleased {
		return 0
	}
	return v - acc.UnitsReleased
}
