package auction

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// WithdrawFunds sweeps the whole sale balance to the treasury. It is allowed
// any time after the sale end, refunds requested later are paid only while
// the remaining balance covers them. Pausing doesn't block withdrawals.
func (a *Auction) WithdrawFunds(ic *Invocation) (*uint256.Int, error) {
	var amount *uint256.Int
	err := a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		cfg, err := getConfig(op.dao)
		if err != nil {
			return err
		}
		if op.ic.Time < cfg.EndTime {
			return fmt.Errorf("%w: ends at %d", ErrNotEnded, cfg.EndTime)
		}
		settings, err := getSettings(op.dao)
		if err != nil {
			return err
		}
		if settings.Treasury == (common.Address{}) {
			return fmt.Errorf("treasury: %w", ErrZeroAddress)
		}
		g, err := op.dao.GetGlobal()
		if err != nil {
			return err
		}
		amount = g.Balance
		g.Balance = new(uint256.Int)
		lockClearingPrice(g, cfg)
		if err = op.dao.PutGlobal(g); err != nil {
			return err
		}
		if !amount.IsZero() {
			if err = a.payer.Pay(op.dao, settings.Treasury, amount); err != nil {
				return fmt.Errorf("failed to pay treasury: %w", err)
			}
		}
		op.emit(WithdrawEvent{Treasury: settings.Treasury, Amount: amount})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}
