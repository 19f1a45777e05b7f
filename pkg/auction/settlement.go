package auction

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/core/storage"
	"go.uber.org/zap"
)

// RefundResult is the outcome of a single account refund within a batch.
type RefundResult struct {
	Account common.Address
	// Amount is nil if the refund failed.
	Amount *uint256.Int
	Err    error
}

// ClaimRefund pays account the difference between its contribution and the
// final price of the units it bid for. The caller must be the account or its
// delegate and proof must show the account is in the allowlist. Every
// account is refunded at most once.
func (a *Auction) ClaimRefund(ic *Invocation, account common.Address, proof []common.Hash) (*uint256.Int, error) {
	var amount *uint256.Int
	err := a.execute(ic, func(op *operation) error {
		cfg, settings, err := refundPreconditions(op)
		if err != nil {
			return err
		}
		if op.ic.Caller != account && !a.delegations.CheckDelegateForAll(op.ic.Caller, account) {
			return ErrNotDelegate
		}
		amount, err = a.refund(op, op.dao, cfg, settings, account, proof)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// RefundUsers refunds every account in the batch the way ClaimRefund does.
// Accounts are processed independently: a failure for one of them is
// reported in its result and doesn't affect the others. The call itself
// fails only if the batch is invalid as a whole or no account could be
// refunded, in the latter case with the first account's error.
func (a *Auction) RefundUsers(ic *Invocation, accounts []common.Address, proofs [][]common.Hash) ([]RefundResult, error) {
	var res []RefundResult
	err := a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		if len(accounts) != len(proofs) {
			return fmt.Errorf("%w: %d accounts, %d proofs", ErrInvalidArguments, len(accounts), len(proofs))
		}
		cfg, settings, err := refundPreconditions(op)
		if err != nil {
			return err
		}
		res = make([]RefundResult, 0, len(accounts))
		var ok int
		for i, acc := range accounts {
			r := RefundResult{Account: acc}
			private := op.dao.GetPrivate()
			r.Amount, r.Err = a.refund(op, private, cfg, settings, acc, proofs[i])
			if r.Err == nil {
				_, r.Err = private.Persist()
			}
			if r.Err != nil {
				r.Amount = nil
				a.log.Debug("refund skipped", zap.Stringer("account", acc), zap.Error(r.Err))
			} else {
				ok++
			}
			res = append(res, r)
		}
		if ok == 0 && len(res) != 0 {
			return res[0].Err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RefundDue returns the amount account would be refunded, zero if it has
// already been refunded or never bid.
func (a *Auction) RefundDue(account common.Address) (*uint256.Int, error) {
	var res *uint256.Int
	err := a.view(func(d *dao.Simple) error {
		cfg, err := getConfig(d)
		if err != nil {
			return err
		}
		acc, err := d.GetAccountOrNew(account)
		if err != nil {
			return err
		}
		if acc.RefundClaimed {
			res = new(uint256.Int)
			return nil
		}
		res, err = refundDue(cfg, acc)
		return err
	})
	return res, err
}

func refundPreconditions(op *operation) (*state.SaleConfig, *state.Settings, error) {
	cfg, err := getConfig(op.dao)
	if err != nil {
		return nil, nil, err
	}
	settings, err := requireNotPaused(op.dao)
	if err != nil {
		return nil, nil, err
	}
	if op.ic.Time < cfg.RefundTime() {
		return nil, nil, fmt.Errorf("%w: refunds start at %d", ErrClaimRefundNotReady, cfg.RefundTime())
	}
	return cfg, settings, nil
}

// refund settles a single account within d, the payment included.
func (a *Auction) refund(op *operation, d *dao.Simple, cfg *state.SaleConfig, settings *state.Settings,
	account common.Address, proof []common.Hash) (*uint256.Int, error) {
	acc, err := d.GetAccount(account)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrNothingToRefund
	}
	if err != nil {
		return nil, err
	}
	if acc.RefundClaimed {
		return nil, ErrUserAlreadyClaimed
	}
	if !a.allowlist.VerifyMembership(account, proof, settings.AllowlistRoot) {
		return nil, ErrNotEligible
	}
	due, err := refundDue(cfg, acc)
	if err != nil {
		return nil, err
	}
	g, err := d.GetGlobal()
	if err != nil {
		return nil, err
	}
	if g.Balance.Lt(due) {
		return nil, fmt.Errorf("%w: %s due, %s held", ErrInsufficientBalance, due.Dec(), g.Balance.Dec())
	}
	g.Balance = new(uint256.Int).Sub(g.Balance, due)
	lockClearingPrice(g, cfg)
	acc.RefundClaimed = true
	if err = d.PutAccount(account, acc); err != nil {
		return nil, err
	}
	if err = d.PutGlobal(g); err != nil {
		return nil, err
	}
	if !due.IsZero() {
		if err = a.payer.Pay(d, account, due); err != nil {
			return nil, fmt.Errorf("failed to pay %s: %w", account, err)
		}
	}
	op.emit(ClaimRefundEvent{Account: account, Amount: due})
	return due, nil
}

// refundDue is the contribution left after paying the final price for every
// unit bid.
func refundDue(cfg *state.SaleConfig, acc *state.Account) (*uint256.Int, error) {
	final, overflow := new(uint256.Int).MulOverflow(cfg.EndPrice, uint256.NewInt(acc.UnitsBid))
	if overflow {
		return nil, ErrOverflow
	}
	due, underflow := new(uint256.Int).SubOverflow(acc.Contribution, final)
	if underflow {
		return nil, ErrOverflow
	}
	return due, nil
}

// lockClearingPrice fixes the clearing price on the first settlement.
func lockClearingPrice(g *state.Global, cfg *state.SaleConfig) {
	if g.ClearingPrice == nil {
		g.ClearingPrice = new(uint256.Int).Set(cfg.EndPrice)
	}
}
