package state

import (
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/io"
)

// writeAmount writes a as a fixed 32-byte big-endian word, nil is zero.
func writeAmount(w *io.BinWriter, a *uint256.Int) {
	var b [32]byte
	if a != nil {
		b = a.Bytes32()
	}
	w.WriteBytes(b[:])
}

func readAmount(r *io.BinReader) *uint256.Int {
	var b [32]byte
	r.ReadBytes(b[:])
	if r.Err != nil {
		return nil
	}
	return new(uint256.Int).SetBytes32(b[:])
}

// cloneAmount returns a copy of a, nil is treated as zero.
func cloneAmount(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a)
}
