package auction

import (
	"math/bits"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/state"
)

// CurrentPrice returns the unit price at now. It equals StartPrice up to
// StartTime, EndPrice from EndTime on and decays linearly in between. The
// decayed amount is rounded down, so the price never goes below the exact
// linear value.
func CurrentPrice(cfg *state.SaleConfig, now uint64) *uint256.Int {
	if now <= cfg.StartTime || cfg.EndTime <= cfg.StartTime {
		return new(uint256.Int).Set(cfg.StartPrice)
	}
	if now >= cfg.EndTime {
		return new(uint256.Int).Set(cfg.EndPrice)
	}
	var (
		span     = new(uint256.Int).Sub(cfg.StartPrice, cfg.EndPrice)
		elapsed  = uint256.NewInt(now - cfg.StartTime)
		duration = uint256.NewInt(cfg.EndTime - cfg.StartTime)
	)
	// elapsed < duration, so the quotient is below span.
	decay, _ := new(uint256.Int).MulDivOverflow(span, elapsed, duration)
	return decay.Sub(cfg.StartPrice, decay)
}

// vested returns the number of units out of total unlocked at now. Release
// is linear over the sale window and rounds down.
func vested(cfg *state.SaleConfig, total, now uint64) uint64 {
	if now <= cfg.StartTime {
		return 0
	}
	if now >= cfg.EndTime {
		return total
	}
	var (
		elapsed  = now - cfg.StartTime
		duration = cfg.EndTime - cfg.StartTime
	)
	hi, lo := bits.Mul64(total, elapsed)
	q, _ := bits.Div64(hi, lo, duration)
	return q
}
