package rpcapi

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/core/state"
)

type (
	// Version is the result of getversion.
	Version struct {
		// Node is the software version.
		Node string `json:"node"`
		// Auction is the sale identity used as the signing domain.
		Auction common.Address `json:"auction"`
		ChainID uint64         `json:"chainid"`
		Name    string         `json:"name"`
		Version string         `json:"version"`
		// Time is the node clock in Unix seconds.
		Time uint64 `json:"time"`
	}

	// SaleConfig is the wire form of the sale parameters. Amounts are wei
	// decimal strings, times are Unix seconds.
	SaleConfig struct {
		StartPrice  *uint256.Int `json:"startprice"`
		EndPrice    *uint256.Int `json:"endprice"`
		Limit       *uint256.Int `json:"limit"`
		RefundDelay uint64       `json:"refunddelay"`
		StartTime   uint64       `json:"starttime"`
		EndTime     uint64       `json:"endtime"`
	}

	// Price is the result of getcurrentprice.
	Price struct {
		Time  uint64       `json:"time"`
		Price *uint256.Int `json:"price"`
	}

	// UserData is the result of getuserdata.
	UserData struct {
		Contribution  *uint256.Int `json:"contribution"`
		UnitsBid      uint64       `json:"unitsbid"`
		UnitsReleased uint64       `json:"unitsreleased"`
		RefundClaimed bool         `json:"refundclaimed"`
	}

	// SaleState is the result of getsalestate.
	SaleState struct {
		Committed     uint64           `json:"committed"`
		Balance       *uint256.Int     `json:"balance"`
		ClearingPrice *uint256.Int     `json:"clearingprice,omitempty"`
		Paused        bool             `json:"paused"`
		Admins        []common.Address `json:"admins"`
		Signer        common.Address   `json:"signer"`
		Treasury      common.Address   `json:"treasury"`
		NftContract   common.Address   `json:"nftcontract"`
		AllowlistRoot common.Hash      `json:"allowlistroot"`
	}

	// Payout is an entry of getpayouts.
	Payout struct {
		Account common.Address `json:"account"`
		Amount  *uint256.Int   `json:"amount"`
		Count   uint64         `json:"count"`
	}

	// Inventory is the result of getinventory.
	Inventory struct {
		Address       common.Address            `json:"address"`
		MaxSupply     uint64                    `json:"maxsupply"`
		CurrentSupply uint64                    `json:"currentsupply"`
		Paused        bool                      `json:"paused"`
		Owners        map[common.Address]uint64 `json:"owners"`
	}

	// Invocation is the caller context every write method takes as its
	// first parameter.
	Invocation struct {
		Caller common.Address `json:"caller"`
		Value  *uint256.Int   `json:"value,omitempty"`
	}

	// BidParams is the bid authorization passed to the bid method.
	BidParams struct {
		Quantity  uint64         `json:"quantity"`
		Nonce     uint64         `json:"nonce"`
		Deadline  uint64         `json:"deadline"`
		Signature hexutil.Bytes  `json:"signature"`
		Recipient common.Address `json:"recipient"`
	}

	// BidResult is the result of bid.
	BidResult struct {
		Price *uint256.Int `json:"price"`
		Nonce uint64       `json:"nonce"`
	}

	// RefundResult is an entry of the refundusers result.
	RefundResult struct {
		Account common.Address `json:"account"`
		Amount  *uint256.Int   `json:"amount,omitempty"`
		Error   *Error         `json:"error,omitempty"`
	}
)

// NewSaleConfig converts cfg into its wire form.
func NewSaleConfig(cfg *state.SaleConfig) *SaleConfig {
	return &SaleConfig{
		StartPrice:  cfg.StartPrice,
		EndPrice:    cfg.EndPrice,
		Limit:       cfg.Limit,
		RefundDelay: cfg.RefundDelay,
		StartTime:   cfg.StartTime,
		EndTime:     cfg.EndTime,
	}
}

// ToState converts c back into the ledger form.
func (c *SaleConfig) ToState() state.SaleConfig {
	return state.SaleConfig{
		StartPrice:  c.StartPrice,
		EndPrice:    c.EndPrice,
		Limit:       c.Limit,
		RefundDelay: c.RefundDelay,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
	}
}

// NewUserData converts d into its wire form.
func NewUserData(d *auction.UserData) *UserData {
	return &UserData{
		Contribution:  d.Contribution,
		UnitsBid:      d.UnitsBid,
		UnitsReleased: d.UnitsReleased,
		RefundClaimed: d.RefundClaimed,
	}
}

// ToRequest converts p into an auction bid request.
func (p *BidParams) ToRequest() auction.BidRequest {
	return auction.BidRequest{
		Quantity:  p.Quantity,
		Nonce:     p.Nonce,
		Deadline:  p.Deadline,
		Signature: p.Signature,
		Recipient: p.Recipient,
	}
}
