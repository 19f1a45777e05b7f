package auction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/dao"
)

type (
	// Inventory owns and transfers the units being sold.
	Inventory interface {
		// MintTo creates quantity units owned by recipient within d and
		// returns the id of the first one. The units only exist once d is
		// persisted. It must not fail within remaining capacity.
		MintTo(d *dao.Simple, recipient common.Address, quantity uint64) (uint64, error)
		CurrentSupply() uint64
		MaxSupply() uint64
		// Paused tells whether the inventory refuses new allocations.
		Paused() bool
	}

	// InventoryResolver returns the inventory deployed at the given address.
	InventoryResolver interface {
		Inventory(common.Address) (Inventory, error)
	}

	// Verifier checks bid authorization signatures.
	Verifier interface {
		Verify(signer common.Address, digest common.Hash, sig []byte) bool
	}

	// Allowlist checks inclusion proofs against a committed set digest.
	Allowlist interface {
		VerifyMembership(account common.Address, proof []common.Hash, root common.Hash) bool
	}

	// Delegations tells whether delegate may act on behalf of vault.
	Delegations interface {
		CheckDelegateForAll(delegate, vault common.Address) bool
	}

	// Payer transfers native currency out of the sale. The transfer is
	// recorded within d and is persisted along with the sale records.
	Payer interface {
		Pay(d *dao.Simple, to common.Address, amount *uint256.Int) error
	}
)
