package rpcapi

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/auction"
)

// EventID represents an event type happening on the node.
type EventID byte

const (
	// InvalidEventID is an invalid event id that is the default value of
	// EventID. It's only used as an initial value similar to nil.
	InvalidEventID EventID = iota
	// AuctionEventID is used for all persisted auction events.
	AuctionEventID
	// MissedEventID notifies the user of missed events.
	MissedEventID EventID = 255
)

// String is a good old Stringer implementation.
func (e EventID) String() string {
	switch e {
	case AuctionEventID:
		return "auction_event"
	case MissedEventID:
		return "event_missed"
	default:
		return "unknown"
	}
}

// GetEventIDFromString converts an input string into an EventID if it's possible.
func GetEventIDFromString(s string) (EventID, error) {
	switch s {
	case "auction_event":
		return AuctionEventID, nil
	case "event_missed":
		return MissedEventID, nil
	default:
		return 255, fmt.Errorf("invalid stream name %q", s)
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (e EventID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *EventID) UnmarshalJSON(b []byte) error {
	var s string

	err := json.Unmarshal(b, &s)
	if err != nil {
		return err
	}
	id, err := GetEventIDFromString(s)
	if err != nil {
		return err
	}
	*e = id
	return nil
}

// EventFilter narrows down auction_event notifications. Both fields are
// optional, a nil one matches everything.
type EventFilter struct {
	Name    *string         `json:"name,omitempty"`
	Account *common.Address `json:"account,omitempty"`
}

// Matches returns true if ev passes the filter.
func (f *EventFilter) Matches(ev *AuctionEvent) bool {
	if f == nil {
		return true
	}
	if f.Name != nil && *f.Name != ev.Name {
		return false
	}
	if f.Account != nil && (ev.Account == nil || *ev.Account != *f.Account) {
		return false
	}
	return true
}

// AuctionEvent is the wire form of an auction event. Only the fields relevant
// for the particular event are set.
type AuctionEvent struct {
	Name string `json:"name"`
	// Account is the buyer for sale events, the caller for pause events and
	// the subject of admin events.
	Account *common.Address `json:"account,omitempty"`
	// Address is the new collaborator address or the treasury paid.
	Address   *common.Address `json:"address,omitempty"`
	Recipient *common.Address `json:"recipient,omitempty"`
	Quantity  uint64          `json:"quantity,omitempty"`
	FirstUnit uint64          `json:"firstunit,omitempty"`
	Price     *uint256.Int    `json:"price,omitempty"`
	// Amount is the payment received for bids and the amount paid for
	// refunds and withdrawals.
	Amount *uint256.Int `json:"amount,omitempty"`
	Root   *common.Hash `json:"root,omitempty"`
	Config *SaleConfig  `json:"config,omitempty"`
}

// NewAuctionEvent converts e into its wire form.
func NewAuctionEvent(e auction.Event) *AuctionEvent {
	res := &AuctionEvent{Name: e.EventName()}
	switch e := e.(type) {
	case auction.BidEvent:
		res.Account = &e.Account
		res.Quantity = e.Quantity
		res.Price = e.Price
		res.Amount = e.Value
	case auction.ClaimEvent:
		res.Account = &e.Account
		res.Recipient = &e.Recipient
		res.Quantity = e.Quantity
		res.FirstUnit = e.FirstUnit
	case auction.ClaimRefundEvent:
		res.Account = &e.Account
		res.Amount = e.Amount
	case auction.WithdrawEvent:
		res.Address = &e.Treasury
		res.Amount = e.Amount
	case auction.ConfigSetEvent:
		res.Config = NewSaleConfig(&e.Config)
	case auction.PauseEvent:
		res.Account = &e.By
	case auction.AddressChangedEvent:
		res.Address = &e.Address
	case auction.AllowlistRootChangedEvent:
		res.Root = &e.Root
	case auction.AdminEvent:
		res.Account = &e.Account
	}
	return res
}
