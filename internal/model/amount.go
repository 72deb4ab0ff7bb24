package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amounts cross the API as decimal strings ("1250.5") and live inside the
// engine as integer micro-units with 6 fractional digits.
const AmountDecimals = 6

var microScale = decimal.New(1, AmountDecimals)

// ParseAmount converts a decimal string into micro-units. Fractions finer
// than 6 digits are rejected rather than silently truncated.
func ParseAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Mul(microScale)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d fractional digits", s, AmountDecimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders micro-units back into a decimal string.
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -AmountDecimals).String()
}
