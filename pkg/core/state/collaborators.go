package state

import (
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/io"
)

// InventoryInfo describes the in-process unit inventory.
type InventoryInfo struct {
	MaxSupply uint64
	// Minted is the number of units minted so far, unit ids are sequential
	// starting from 1.
	Minted uint64
	Paused bool
}

// EncodeBinary implements io.Serializable.
func (i *InventoryInfo) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(i.MaxSupply)
	w.WriteU64LE(i.Minted)
	w.WriteBool(i.Paused)
}

// DecodeBinary implements io.Serializable.
func (i *InventoryInfo) DecodeBinary(r *io.BinReader) {
	i.MaxSupply = r.ReadU64LE()
	i.Minted = r.ReadU64LE()
	i.Paused = r.ReadBool()
}

// UnitRange is a contiguous range of unit ids [First, First+Count).
type UnitRange struct {
	First uint64
	Count uint64
}

// EncodeBinary implements io.Serializable.
func (u *UnitRange) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(u.First)
	w.WriteU64LE(u.Count)
}

// DecodeBinary implements io.Serializable.
func (u *UnitRange) DecodeBinary(r *io.BinReader) {
	u.First = r.ReadU64LE()
	u.Count = r.ReadU64LE()
}

// Holdings lists the unit ranges owned by an address.
type Holdings struct {
	Ranges []UnitRange
}

// Total returns the number of units held.
func (h *Holdings) Total() uint64 {
	var n uint64
	for _, r := range h.Ranges {
		n += r.Count
	}
	return n
}

// EncodeBinary implements io.Serializable.
func (h *Holdings) EncodeBinary(w *io.BinWriter) {
	io.WriteArray(w, h.Ranges)
}

// DecodeBinary implements io.Serializable.
func (h *Holdings) DecodeBinary(r *io.BinReader) {
	h.Ranges = io.ReadArray[UnitRange](r)
}

// Payout accumulates native currency owed to an address.
type Payout struct {
	Amount *uint256.Int
	// Count is the number of transfers credited.
	Count uint64
}

// NewPayout returns an empty payout record.
func NewPayout() *Payout {
	return &Payout{Amount: new(uint256.Int)}
}

// EncodeBinary implements io.Serializable.
func (p *Payout) EncodeBinary(w *io.BinWriter) {
	writeAmount(w, p.Amount)
	w.WriteU64LE(p.Count)
}

// DecodeBinary implements io.Serializable.
func (p *Payout) DecodeBinary(r *io.BinReader) {
	p.Amount = readAmount(r)
	p.Count = r.ReadU64LE()
}
