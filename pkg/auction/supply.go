package auction

import (
	"fmt"

	"github.com/nspcc-dev/dauction/pkg/core/state"
)

// reserve commits quantity units against the inventory cap.
func reserve(g *state.Global, inv Inventory, quantity uint64) error {
	maxSupply := inv.MaxSupply()
	if g.Committed > maxSupply || quantity > maxSupply-g.Committed {
		return fmt.Errorf("%w: %d committed, %d requested, %d max", ErrMaxSupplyReached,
			g.Committed, quantity, maxSupply)
	}
	g.Committed += quantity
	return nil
}
