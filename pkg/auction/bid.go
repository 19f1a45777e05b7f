package auction

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BidResult describes an accepted bid.
type BidResult struct {
	// Price is the per-unit price the bid was accepted at.
	Price *uint256.Int
	// Nonce is the recipient's next expected nonce.
	Nonce uint64
}

// Bid reserves req.Quantity units for req.Recipient paid for with the value
// attached to ic. Any value above Quantity times the current price is kept
// as a part of the contribution and refunded after the sale.
func (a *Auction) Bid(ic *Invocation, req BidRequest) (*BidResult, error) {
	var res *BidResult
	err := a.execute(ic, func(op *operation) error {
		var err error
		res, err = a.bid(op, &req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Auction) bid(op *operation, req *BidRequest) (*BidResult, error) {
	cfg, err := getConfig(op.dao)
	if err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, ErrInvalidQuantity
	}
	now := op.ic.Time
	if now < cfg.StartTime || now >= cfg.EndTime {
		return nil, &WindowError{Start: cfg.StartTime, End: cfg.EndTime}
	}
	settings, err := requireNotPaused(op.dao)
	if err != nil {
		return nil, err
	}
	inv, err := a.inventory(settings.NftContract)
	if err != nil {
		return nil, err
	}
	if inv.Paused() {
		return nil, ErrInventoryPaused
	}
	if req.Recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	acc, err := op.dao.GetAccountOrNew(req.Recipient)
	if err != nil {
		return nil, err
	}
	if err = a.auth.authorize(settings.Signer, req, acc.Nonce, now); err != nil {
		return nil, err
	}

	var (
		price = CurrentPrice(cfg, now)
		value = op.ic.value()
	)
	cost, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(req.Quantity))
	if overflow {
		return nil, ErrOverflow
	}
	if value.Lt(cost) {
		return nil, fmt.Errorf("%w: sent %s, need %s", ErrNotEnoughValue, value.Dec(), cost.Dec())
	}
	contribution, overflow := new(uint256.Int).AddOverflow(acc.Contribution, value)
	if overflow || contribution.Gt(cfg.Limit) {
		return nil, ErrPurchaseLimitReached
	}

	g, err := op.dao.GetGlobal()
	if err != nil {
		return nil, err
	}
	if err = reserve(g, inv, req.Quantity); err != nil {
		return nil, err
	}
	balance, overflow := new(uint256.Int).AddOverflow(g.Balance, value)
	if overflow {
		return nil, ErrOverflow
	}
	g.Balance = balance

	acc.Contribution = contribution
	acc.UnitsBid += req.Quantity
	acc.Nonce++
	if err = op.dao.PutAccount(req.Recipient, acc); err != nil {
		return nil, err
	}
	if err = op.dao.PutGlobal(g); err != nil {
		return nil, err
	}
	op.emit(BidEvent{
		Account:  req.Recipient,
		Quantity: req.Quantity,
		Price:    price,
		Value:    new(uint256.Int).Set(value),
	})
	return &BidResult{Price: price, Nonce: acc.Nonce}, nil
}
