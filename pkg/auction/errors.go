package auction

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrConfigNotSet       = errors.New("config not set")
	ErrConfigAlreadySet   = errors.New("config already set")
	ErrInvalidAmountInWei = errors.New("invalid amount in wei")
)

// Authorization errors.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrBidExpired       = errors.New("bid expired")
	ErrNonceMismatch    = errors.New("nonce mismatch")
)

// Capacity errors.
var (
	ErrNotEnoughValue       = errors.New("not enough value")
	ErrPurchaseLimitReached = errors.New("purchase limit reached")
	ErrMaxSupplyReached     = errors.New("max supply reached")
	ErrInsufficientBalance  = errors.New("insufficient sale balance")
)

// Timing errors.
var (
	ErrInvalidStartEndTime = errors.New("invalid start/end time")
	ErrClaimRefundNotReady = errors.New("claim refund not ready")
	ErrNotEnded            = errors.New("auction not ended")
)

// State errors.
var (
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrNothingToRefund    = errors.New("nothing to refund")
	ErrUserAlreadyClaimed = errors.New("user already claimed")
	ErrPaused             = errors.New("paused")
	ErrNotPaused          = errors.New("not paused")
	ErrInventoryPaused    = errors.New("inventory paused")
	ErrNotEligible        = errors.New("not eligible")
)

// Argument and access errors.
var (
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrZeroAddress      = errors.New("zero address not allowed")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrMissingRole      = errors.New("missing admin role")
	ErrNotDelegate      = errors.New("caller is neither the account nor its delegate")
	ErrLastAdmin        = errors.New("can't revoke the last admin")
	ErrOverflow         = errors.New("arithmetic overflow")
	ErrUnknownInventory = errors.New("inventory can't be resolved")
)

// WindowError is returned when a call is made outside of the configured
// sale window or the window itself is invalid.
type WindowError struct {
	Start uint64
	End   uint64
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s (start %d, end %d)", ErrInvalidStartEndTime, e.Start, e.End)
}

// Unwrap returns ErrInvalidStartEndTime.
func (e *WindowError) Unwrap() error {
	return ErrInvalidStartEndTime
}

// ExpiredError is returned for authorizations used after their deadline.
type ExpiredError struct {
	Deadline uint64
	Now      uint64
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s (deadline %d, now %d)", ErrBidExpired, e.Deadline, e.Now)
}

// Unwrap returns ErrBidExpired.
func (e *ExpiredError) Unwrap() error {
	return ErrBidExpired
}

// NonceError is returned for authorizations carrying a stale or future nonce.
type NonceError struct {
	Expected uint64
	Got      uint64
}

func (e *NonceError) Error() string {
	return fmt.Sprintf("%s (expected %d, got %d)", ErrNonceMismatch, e.Expected, e.Got)
}

// Unwrap returns ErrNonceMismatch.
func (e *NonceError) Unwrap() error {
	return ErrNonceMismatch
}

// Class is a coarse error category.
type Class byte

// Error classes.
const (
	ClassUnknown Class = iota
	ClassConfiguration
	ClassAuthorization
	ClassCapacity
	ClassTiming
	ClassState
	ClassAccess
	ClassArguments
)

var classes = []struct {
	class Class
	errs  []error
}{
	{ClassConfiguration, []error{ErrConfigNotSet, ErrConfigAlreadySet, ErrInvalidAmountInWei}},
	{ClassAuthorization, []error{ErrInvalidSignature, ErrBidExpired, ErrNonceMismatch}},
	{ClassCapacity, []error{ErrNotEnoughValue, ErrPurchaseLimitReached, ErrMaxSupplyReached, ErrInsufficientBalance}},
	{ClassTiming, []error{ErrInvalidStartEndTime, ErrClaimRefundNotReady, ErrNotEnded}},
	{ClassState, []error{ErrNothingToClaim, ErrNothingToRefund, ErrUserAlreadyClaimed, ErrPaused, ErrNotPaused, ErrInventoryPaused, ErrNotEligible}},
	{ClassAccess, []error{ErrMissingRole, ErrNotDelegate, ErrLastAdmin}},
	{ClassArguments, []error{ErrInvalidQuantity, ErrZeroAddress, ErrInvalidArguments, ErrOverflow, ErrUnknownInventory}},
}

// Classify returns the class of err, ClassUnknown for errors not produced
// by the sale itself (storage or collaborator failures).
func Classify(err error) Class {
	for _, c := range classes {
		for _, e := range c.errs {
			if errors.Is(err, e) {
				return c.class
			}
		}
	}
	return ClassUnknown
}

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassAuthorization:
		return "authorization"
	case ClassCapacity:
		return "capacity"
	case ClassTiming:
		return "timing"
	case ClassState:
		return "state"
	case ClassAccess:
		return "access"
	case ClassArguments:
		return "arguments"
	default:
		return "unknown"
	}
}
