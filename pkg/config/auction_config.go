package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/encoding/ether"
	"github.com/shopspring/decimal"
)

type (
	// AuctionConfiguration describes the sale served by the node.
	AuctionConfiguration struct {
		// Address is the sale identity authorizations are bound to.
		Address common.Address `yaml:"Address"`
		ChainID uint64         `yaml:"ChainID"`
		Name    string         `yaml:"Name"`
		Version string         `yaml:"Version"`

		// Admins, Signer, Treasury, NftContract and AllowlistRoot are only
		// used on the first start, admin operations change them later.
		Admins        []common.Address `yaml:"Admins"`
		Signer        common.Address   `yaml:"Signer"`
		Treasury      common.Address   `yaml:"Treasury"`
		NftContract   common.Address   `yaml:"NftContract"`
		AllowlistRoot common.Hash      `yaml:"AllowlistRoot"`
		// MaxSupply is the size of the in-process inventory at NftContract.
		MaxSupply   uint64       `yaml:"MaxSupply"`
		Delegations []Delegation `yaml:"Delegations"`
		// Sale is applied on the first start if set.
		Sale *SaleSchedule `yaml:"Sale,omitempty"`
	}

	// Delegation lists accounts allowed to claim refunds for Vault.
	Delegation struct {
		Vault     common.Address   `yaml:"Vault"`
		Delegates []common.Address `yaml:"Delegates"`
	}

	// SaleSchedule is a human-readable sale configuration. Prices and the
	// limit are in ether.
	SaleSchedule struct {
		StartPrice  decimal.Decimal `yaml:"StartPrice"`
		EndPrice    decimal.Decimal `yaml:"EndPrice"`
		Limit       decimal.Decimal `yaml:"Limit"`
		RefundDelay time.Duration   `yaml:"RefundDelay"`
		StartTime   time.Time       `yaml:"StartTime"`
		EndTime     time.Time       `yaml:"EndTime"`
	}
)

// Validate checks AuctionConfiguration for internal consistency.
func (a *AuctionConfiguration) Validate() error {
	if a.Address == (common.Address{}) {
		return errors.New("no sale Address")
	}
	if len(a.Admins) == 0 {
		return errors.New("no Admins")
	}
	for i, adm := range a.Admins {
		if adm == (common.Address{}) {
			return fmt.Errorf("Admins[%d] is a zero address", i)
		}
	}
	if a.MaxSupply == 0 {
		return errors.New("zero MaxSupply")
	}
	if a.NftContract == (common.Address{}) {
		return errors.New("no NftContract")
	}
	if a.Sale != nil {
		if _, err := a.Sale.SaleConfig(); err != nil {
			return fmt.Errorf("Sale: %w", err)
		}
	}
	return nil
}

// Domain returns the identity bid authorizations are bound to.
func (a *AuctionConfiguration) Domain() bidsig.Domain {
	return bidsig.Domain{
		Name:              a.Name,
		Version:           a.Version,
		ChainID:           a.ChainID,
		VerifyingContract: a.Address,
	}
}

// DelegationMap returns delegates grouped by vault.
func (a *AuctionConfiguration) DelegationMap() map[common.Address][]common.Address {
	m := make(map[common.Address][]common.Address, len(a.Delegations))
	for _, d := range a.Delegations {
		m[d.Vault] = append(m[d.Vault], d.Delegates...)
	}
	return m
}

// SaleConfig converts the schedule into the stored sale configuration.
func (s *SaleSchedule) SaleConfig() (state.SaleConfig, error) {
	var (
		cfg state.SaleConfig
		err error
	)
	if s.RefundDelay < 0 {
		return cfg, errors.New("negative RefundDelay")
	}
	if s.StartTime.Unix() < 0 || s.EndTime.Unix() < 0 {
		return cfg, errors.New("time before the epoch")
	}
	if cfg.StartPrice, err = ether.FromDecimal(s.StartPrice); err != nil {
		return cfg, fmt.Errorf("StartPrice: %w", err)
	}
	if cfg.EndPrice, err = ether.FromDecimal(s.EndPrice); err != nil {
		return cfg, fmt.Errorf("EndPrice: %w", err)
	}
	if cfg.Limit, err = ether.FromDecimal(s.Limit); err != nil {
		return cfg, fmt.Errorf("Limit: %w", err)
	}
	cfg.RefundDelay = uint64(s.RefundDelay / time.Second)
	cfg.StartTime = uint64(s.StartTime.Unix())
	cfg.EndTime = uint64(s.EndTime.Unix())
	return cfg, nil
}
