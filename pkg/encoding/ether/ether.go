/*
Package ether converts between wei amounts and decimal ether strings.
*/
package ether

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of wei decimal places in one ether.
const Decimals = 18

// ErrInvalidAmount is returned for negative, fractional-wei or too big amounts.
var ErrInvalidAmount = errors.New("invalid ether amount")

// Parse converts a decimal ether string like "0.65" into wei.
func Parse(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts an ether amount into wei.
func FromDecimal(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	wei := d.Shift(Decimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, Decimals)
	}
	v, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}
	return v, nil
}

// ToDecimal converts wei into an ether amount.
func ToDecimal(wei *uint256.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei.ToBig(), -Decimals)
}

// Format returns wei as a decimal ether string without trailing zeroes.
func Format(wei *uint256.Int) string {
	return ToDecimal(wei).String()
}
