// Package money provides integer minor-unit amounts for ledger arithmetic.
//
// All balances and entry amounts are stored as Cents (int64 minor units) so
// that sums, reversals, and reconciliation checks are exact. Fractional
// values only appear at the edges: percentage shares are decimal.Decimal,
// and conversion back to Cents is explicit about its rounding rule.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a signed amount in the currency's minor unit.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Abs returns the magnitude of the amount.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Decimal returns the amount in major units, e.g. 1250 -> 12.50.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// FromDecimal converts a major-unit decimal into Cents.
// It fails if the value has sub-cent precision; amounts supplied by callers
// are never silently rounded.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", d)
	}
	return Cents(scaled.IntPart()), nil
}

// Percent computes total x pct / 100 rounded to the minor unit with
// banker's rounding. The caller is responsible for assigning rounding
// drift (the payer's own share absorbs it).
func Percent(total Cents, pct decimal.Decimal) Cents {
	share := decimal.NewFromInt(int64(total)).Mul(pct).Div(hundred)
	return Cents(share.RoundBank(0).IntPart())
}
