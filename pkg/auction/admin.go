package auction

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/state"
)

// SetConfig configures the sale. It can only succeed once.
func (a *Auction) SetConfig(ic *Invocation, cfg state.SaleConfig) error {
	return a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		_, err := getConfig(op.dao)
		if err == nil {
			return ErrConfigAlreadySet
		}
		if !errors.Is(err, ErrConfigNotSet) {
			return err
		}
		if err = validateConfig(&cfg); err != nil {
			return err
		}
		c := cfg.Copy()
		if err = op.dao.PutSaleConfig(c); err != nil {
			return err
		}
		op.emit(ConfigSetEvent{Config: *c})
		return nil
	})
}

func validateConfig(cfg *state.SaleConfig) error {
	if cfg.StartTime == 0 || cfg.StartTime >= cfg.EndTime {
		return &WindowError{Start: cfg.StartTime, End: cfg.EndTime}
	}
	if cfg.StartPrice == nil || cfg.EndPrice == nil || cfg.Limit == nil ||
		cfg.EndPrice.IsZero() || !cfg.StartPrice.Gt(cfg.EndPrice) || cfg.Limit.IsZero() {
		return ErrInvalidAmountInWei
	}
	return nil
}

// Pause blocks bids, claims and refunds.
func (a *Auction) Pause(ic *Invocation) error {
	return a.setPaused(ic, true)
}

// Unpause lifts the pause.
func (a *Auction) Unpause(ic *Invocation) error {
	return a.setPaused(ic, false)
}

func (a *Auction) setPaused(ic *Invocation, paused bool) error {
	return a.updateSettings(ic, func(op *operation, s *state.Settings) error {
		if s.Paused == paused {
			if paused {
				return ErrPaused
			}
			return ErrNotPaused
		}
		s.Paused = paused
		op.emit(PauseEvent{Paused: paused, By: op.ic.Caller})
		return nil
	})
}

// SetSignerAddress rotates the authorization key address.
func (a *Auction) SetSignerAddress(ic *Invocation, addr common.Address) error {
	return a.setAddress(ic, SignerChangedEventName, addr, func(s *state.Settings) error {
		s.Signer = addr
		return nil
	})
}

// SetTreasuryAddress changes the withdrawal target.
func (a *Auction) SetTreasuryAddress(ic *Invocation, addr common.Address) error {
	return a.setAddress(ic, TreasuryChangedEventName, addr, func(s *state.Settings) error {
		s.Treasury = addr
		return nil
	})
}

// SetNftContractAddress switches the inventory units are minted from. The
// inventory must be known to the resolver.
func (a *Auction) SetNftContractAddress(ic *Invocation, addr common.Address) error {
	return a.setAddress(ic, InventoryChangedEventName, addr, func(s *state.Settings) error {
		if _, err := a.inventory(addr); err != nil {
			return err
		}
		s.NftContract = addr
		return nil
	})
}

func (a *Auction) setAddress(ic *Invocation, event string, addr common.Address, set func(*state.Settings) error) error {
	return a.updateSettings(ic, func(op *operation, s *state.Settings) error {
		if addr == (common.Address{}) {
			return ErrZeroAddress
		}
		if err := set(s); err != nil {
			return err
		}
		op.emit(AddressChangedEvent{Name: event, Address: addr})
		return nil
	})
}

// SetAllowlistRoot replaces the digest refund eligibility proofs are checked
// against.
func (a *Auction) SetAllowlistRoot(ic *Invocation, root common.Hash) error {
	return a.updateSettings(ic, func(op *operation, s *state.Settings) error {
		s.AllowlistRoot = root
		op.emit(AllowlistRootChangedEvent{Root: root})
		return nil
	})
}

func (a *Auction) updateSettings(ic *Invocation, f func(*operation, *state.Settings) error) error {
	return a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		s, err := getSettings(op.dao)
		if err != nil {
			return err
		}
		if err = f(op, s); err != nil {
			return err
		}
		return op.dao.PutSettings(s)
	})
}

// GrantAdmin gives account the admin role.
func (a *Auction) GrantAdmin(ic *Invocation, account common.Address) error {
	return a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		if account == (common.Address{}) {
			return ErrZeroAddress
		}
		if op.dao.IsAdmin(account) {
			return nil
		}
		op.dao.PutAdmin(account)
		op.emit(AdminEvent{Account: account, Granted: true})
		return nil
	})
}

// RevokeAdmin takes the admin role from account. The last admin can't be
// revoked.
func (a *Auction) RevokeAdmin(ic *Invocation, account common.Address) error {
	return a.execute(ic, func(op *operation) error {
		if err := op.requireAdmin(); err != nil {
			return err
		}
		if !op.dao.IsAdmin(account) {
			return nil
		}
		if len(op.dao.GetAdmins()) == 1 {
			return fmt.Errorf("%w: %s", ErrLastAdmin, account)
		}
		op.dao.DeleteAdmin(account)
		op.emit(AdminEvent{Account: account, Granted: false})
		return nil
	})
}
