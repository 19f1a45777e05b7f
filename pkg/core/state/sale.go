/*
Package state contains the records persisted by the sale and its in-process
collaborators.
*/
package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/io"
)

// SaleConfig is the one-shot configuration of a sale. Prices and the limit
// are in wei, times are unix seconds.
type SaleConfig struct {
	StartPrice  *uint256.Int
	EndPrice    *uint256.Int
	Limit       *uint256.Int
	RefundDelay uint64
	StartTime   uint64
	EndTime     uint64
}

// EncodeBinary implements io.Serializable.
func (c *SaleConfig) EncodeBinary(w *io.BinWriter) {
	writeAmount(w, c.StartPrice)
	writeAmount(w, c.EndPrice)
	writeAmount(w, c.Limit)
	w.WriteU64LE(c.RefundDelay)
	w.WriteU64LE(c.StartTime)
	w.WriteU64LE(c.EndTime)
}

// DecodeBinary implements io.Serializable.
func (c *SaleConfig) DecodeBinary(r *io.BinReader) {
	c.StartPrice = readAmount(r)
	c.EndPrice = readAmount(r)
	c.Limit = readAmount(r)
	c.RefundDelay = r.ReadU64LE()
	c.StartTime = r.ReadU64LE()
	c.EndTime = r.ReadU64LE()
}

// Copy returns a deep copy of the configuration.
func (c *SaleConfig) Copy() *SaleConfig {
	cp := *c
	cp.StartPrice = cloneAmount(c.StartPrice)
	cp.EndPrice = cloneAmount(c.EndPrice)
	cp.Limit = cloneAmount(c.Limit)
	return &cp
}

// RefundTime returns the first moment refunds may be paid out. It saturates
// instead of overflowing.
func (c *SaleConfig) RefundTime() uint64 {
	t := c.EndTime + c.RefundDelay
	if t < c.EndTime {
		return ^uint64(0)
	}
	return t
}

// Account is a per-participant ledger record, created on the first bid.
type Account struct {
	// Contribution is the cumulative payment sent over all bids.
	Contribution *uint256.Int
	// UnitsBid is the cumulative number of units paid for.
	UnitsBid uint64
	// UnitsReleased never exceeds UnitsBid.
	UnitsReleased uint64
	RefundClaimed bool
	// Nonce is the sequence number the next authorization must carry.
	Nonce uint64
}

// NewAccount returns an empty account record.
func NewAccount() *Account {
	return &Account{Contribution: new(uint256.Int)}
}

// EncodeBinary implements io.Serializable.
func (a *Account) EncodeBinary(w *io.BinWriter) {
	writeAmount(w, a.Contribution)
	w.WriteU64LE(a.UnitsBid)
	w.WriteU64LE(a.UnitsReleased)
	w.WriteBool(a.RefundClaimed)
	w.WriteU64LE(a.Nonce)
}

// DecodeBinary implements io.Serializable.
func (a *Account) DecodeBinary(r *io.BinReader) {
	a.Contribution = readAmount(r)
	a.UnitsBid = r.ReadU64LE()
	a.UnitsReleased = r.ReadU64LE()
	a.RefundClaimed = r.ReadBool()
	a.Nonce = r.ReadU64LE()
}

// Global holds the sale-wide counters.
type Global struct {
	// Committed is the sum of all UnitsBid.
	Committed uint64
	// Balance is the amount of native currency held for the sale.
	Balance *uint256.Int
	// ClearingPrice is nil until the first settlement after the end.
	ClearingPrice *uint256.Int
}

// NewGlobal returns zeroed counters.
func NewGlobal() *Global {
	return &Global{Balance: new(uint256.Int)}
}

// EncodeBinary implements io.Serializable.
func (g *Global) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(g.Committed)
	writeAmount(w, g.Balance)
	w.WriteBool(g.ClearingPrice != nil)
	if g.ClearingPrice != nil {
		writeAmount(w, g.ClearingPrice)
	}
}

// DecodeBinary implements io.Serializable.
func (g *Global) DecodeBinary(r *io.BinReader) {
	g.Committed = r.ReadU64LE()
	g.Balance = readAmount(r)
	g.ClearingPrice = nil
	if r.ReadBool() {
		g.ClearingPrice = readAmount(r)
	}
}

// Settings are the admin-controlled parameters of a sale.
type Settings struct {
	Paused        bool
	Signer        common.Address
	Treasury      common.Address
	NftContract   common.Address
	AllowlistRoot common.Hash
}

// EncodeBinary implements io.Serializable.
func (s *Settings) EncodeBinary(w *io.BinWriter) {
	w.WriteBool(s.Paused)
	w.WriteBytes(s.Signer[:])
	w.WriteBytes(s.Treasury[:])
	w.WriteBytes(s.NftContract[:])
	w.WriteBytes(s.AllowlistRoot[:])
}

// DecodeBinary implements io.Serializable.
func (s *Settings) DecodeBinary(r *io.BinReader) {
	s.Paused = r.ReadBool()
	r.ReadBytes(s.Signer[:])
	r.ReadBytes(s.Treasury[:])
	r.ReadBytes(s.NftContract[:])
	r.ReadBytes(s.AllowlistRoot[:])
}
