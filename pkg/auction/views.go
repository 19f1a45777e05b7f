package auction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
)

// UserData is the public part of an account record.
type UserData struct {
	Contribution  *uint256.Int
	UnitsBid      uint64
	UnitsReleased uint64
	RefundClaimed bool
}

// SaleState is a snapshot of the sale-wide counters and settings.
type SaleState struct {
	Committed uint64
	Balance   *uint256.Int
	// ClearingPrice is nil until the first refund or withdrawal.
	ClearingPrice *uint256.Int
	Paused        bool
	Admins        []common.Address
}

// GetConfig returns a copy of the sale configuration or ErrConfigNotSet.
func (a *Auction) GetConfig() (*state.SaleConfig, error) {
	var cfg *state.SaleConfig
	err := a.view(func(d *dao.Simple) error {
		var err error
		cfg, err = getConfig(d)
		return err
	})
	return cfg, err
}

// GetCurrentPriceInWei returns the unit price at now.
func (a *Auction) GetCurrentPriceInWei(now uint64) (*uint256.Int, error) {
	cfg, err := a.GetConfig()
	if err != nil {
		return nil, err
	}
	return CurrentPrice(cfg, now), nil
}

// GetUserData returns the ledger record of account, a zero one if it never
// bid.
func (a *Auction) GetUserData(account common.Address) (*UserData, error) {
	var res *UserData
	err := a.view(func(d *dao.Simple) error {
		acc, err := d.GetAccountOrNew(account)
		if err != nil {
			return err
		}
		res = &UserData{
			Contribution:  acc.Contribution,
			UnitsBid:      acc.UnitsBid,
			UnitsReleased: acc.UnitsReleased,
			RefundClaimed: acc.RefundClaimed,
		}
		return nil
	})
	return res, err
}

// GetNonce returns the nonce the next authorization for account must carry.
func (a *Auction) GetNonce(account common.Address) (uint64, error) {
	var nonce uint64
	err := a.view(func(d *dao.Simple) error {
		acc, err := d.GetAccountOrNew(account)
		if err != nil {
			return err
		}
		nonce = acc.Nonce
		return nil
	})
	return nonce, err
}

// GetState returns the sale-wide counters.
func (a *Auction) GetState() (*SaleState, error) {
	var res *SaleState
	err := a.view(func(d *dao.Simple) error {
		g, err := d.GetGlobal()
		if err != nil {
			return err
		}
		s, err := getSettings(d)
		if err != nil {
			return err
		}
		res = &SaleState{
			Committed:     g.Committed,
			Balance:       g.Balance,
			ClearingPrice: g.ClearingPrice,
			Paused:        s.Paused,
			Admins:        d.GetAdmins(),
		}
		return nil
	})
	return res, err
}

// Settings returns the admin-controlled parameters.
func (a *Auction) Settings() (*state.Settings, error) {
	var res *state.Settings
	err := a.view(func(d *dao.Simple) error {
		var err error
		res, err = getSettings(d)
		return err
	})
	return res, err
}

// Paused tells whether the sale is paused.
func (a *Auction) Paused() bool {
	s, err := a.Settings()
	return err == nil && s.Paused
}

// SignerAddress returns the address of the authorization key.
func (a *Auction) SignerAddress() common.Address {
	s, err := a.Settings()
	if err != nil {
		return common.Address{}
	}
	return s.Signer
}

// TreasuryAddress returns the withdrawal target.
func (a *Auction) TreasuryAddress() common.Address {
	s, err := a.Settings()
	if err != nil {
		return common.Address{}
	}
	return s.Treasury
}

// NftContractAddress returns the address of the inventory.
func (a *Auction) NftContractAddress() common.Address {
	s, err := a.Settings()
	if err != nil {
		return common.Address{}
	}
	return s.NftContract
}

// AllowlistRoot returns the refund eligibility digest.
func (a *Auction) AllowlistRoot() common.Hash {
	s, err := a.Settings()
	if err != nil {
		return common.Hash{}
	}
	return s.AllowlistRoot
}

// IsAdmin tells whether account holds the admin role.
func (a *Auction) IsAdmin(account common.Address) bool {
	var res bool
	_ = a.view(func(d *dao.Simple) error {
		res = d.IsAdmin(account)
		return nil
	})
	return res
}

// Domain returns the identity authorizations are bound to.
func (a *Auction) Domain() bidsig.Domain {
	return a.auth.domain
}
