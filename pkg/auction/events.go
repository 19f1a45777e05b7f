package auction

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"go.uber.org/zap"
)

// Event names.
const (
	BidEventName                  = "Bid"
	ClaimEventName                = "Claim"
	ClaimRefundEventName          = "ClaimRefund"
	WithdrawEventName             = "Withdraw"
	ConfigSetEventName            = "ConfigSet"
	PausedEventName               = "Paused"
	UnpausedEventName             = "Unpaused"
	SignerChangedEventName        = "SignerChanged"
	TreasuryChangedEventName      = "TreasuryChanged"
	InventoryChangedEventName     = "InventoryChanged"
	AllowlistRootChangedEventName = "AllowlistRootChanged"
	AdminGrantedEventName         = "AdminGranted"
	AdminRevokedEventName         = "AdminRevoked"
)

// Event is a notification produced by a successful operation.
type Event interface {
	EventName() string
}

type (
	// BidEvent is emitted for every accepted bid.
	BidEvent struct {
		Account  common.Address
		Quantity uint64
		// Price is the realized per-unit price.
		Price *uint256.Int
		// Value is the payment received.
		Value *uint256.Int
	}

	// ClaimEvent is emitted when units are released.
	ClaimEvent struct {
		Account   common.Address
		Recipient common.Address
		Quantity  uint64
		// FirstUnit is the id of the first unit minted.
		FirstUnit uint64
	}

	// ClaimRefundEvent is emitted when a refund is paid.
	ClaimRefundEvent struct {
		Account common.Address
		Amount  *uint256.Int
	}

	// WithdrawEvent is emitted when the balance is swept to the treasury.
	WithdrawEvent struct {
		Treasury common.Address
		Amount   *uint256.Int
	}

	// ConfigSetEvent is emitted once, when the sale is configured.
	ConfigSetEvent struct {
		Config state.SaleConfig
	}

	// PauseEvent is emitted on pause and unpause.
	PauseEvent struct {
		Paused bool
		By     common.Address
	}

	// AddressChangedEvent is emitted when a collaborator address rotates.
	AddressChangedEvent struct {
		Name    string
		Address common.Address
	}

	// AllowlistRootChangedEvent is emitted when the eligibility digest rotates.
	AllowlistRootChangedEvent struct {
		Root common.Hash
	}

	// AdminEvent is emitted when the admin role is granted or revoked.
	AdminEvent struct {
		Account common.Address
		Granted bool
	}
)

// EventName implements Event.
func (BidEvent) EventName() string { return BidEventName }

// EventName implements Event.
func (ClaimEvent) EventName() string { return ClaimEventName }

// EventName implements Event.
func (ClaimRefundEvent) EventName() string { return ClaimRefundEventName }

// EventName implements Event.
func (WithdrawEvent) EventName() string { return WithdrawEventName }

// EventName implements Event.
func (ConfigSetEvent) EventName() string { return ConfigSetEventName }

// EventName implements Event.
func (e PauseEvent) EventName() string {
	if e.Paused {
		return PausedEventName
	}
	return UnpausedEventName
}

// EventName implements Event.
func (e AddressChangedEvent) EventName() string { return e.Name }

// EventName implements Event.
func (AllowlistRootChangedEvent) EventName() string { return AllowlistRootChangedEventName }

// EventName implements Event.
func (e AdminEvent) EventName() string {
	if e.Granted {
		return AdminGrantedEventName
	}
	return AdminRevokedEventName
}

// eventFields returns log fields describing e.
func eventFields(e Event) []zap.Field {
	switch e := e.(type) {
	case BidEvent:
		return []zap.Field{zap.Stringer("account", e.Account), zap.Uint64("qty", e.Quantity),
			zap.String("price", e.Price.Dec()), zap.String("value", e.Value.Dec())}
	case ClaimEvent:
		return []zap.Field{zap.Stringer("account", e.Account), zap.Stringer("recipient", e.Recipient),
			zap.Uint64("qty", e.Quantity), zap.Uint64("first", e.FirstUnit)}
	case ClaimRefundEvent:
		return []zap.Field{zap.Stringer("account", e.Account), zap.String("amount", e.Amount.Dec())}
	case WithdrawEvent:
		return []zap.Field{zap.Stringer("treasury", e.Treasury), zap.String("amount", e.Amount.Dec())}
	case ConfigSetEvent:
		return []zap.Field{zap.Uint64("start", e.Config.StartTime), zap.Uint64("end", e.Config.EndTime),
			zap.String("startPrice", e.Config.StartPrice.Dec()), zap.String("endPrice", e.Config.EndPrice.Dec())}
	case PauseEvent:
		return []zap.Field{zap.Stringer("by", e.By)}
	case AddressChangedEvent:
		return []zap.Field{zap.Stringer("address", e.Address)}
	case AllowlistRootChangedEvent:
		return []zap.Field{zap.Stringer("root", e.Root)}
	case AdminEvent:
		return []zap.Field{zap.Stringer("account", e.Account)}
	}
	return nil
}
