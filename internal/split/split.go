// Package split computes per-debtor amounts for ledger entries.
//
// All functions are pure: they validate that the supplied shares reconcile
// exactly and return typed errors on failure, never silently clamping or
// rounding caller input. The only rounding performed is the documented
// minor-unit rule for EQUAL and PERCENTAGE strategies, where the payer's
// own share absorbs the remainder so debtor amounts stay exact.
package split

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

var (
	// ErrMismatch means the supplied shares do not reconcile with the
	// total (UNEQUAL) or with 100 (PERCENTAGE).
	ErrMismatch = errors.New("split shares do not reconcile")

	// ErrSelfTransaction means the payer appears among the debtors.
	ErrSelfTransaction = errors.New("payer cannot owe themselves")

	// ErrBadShape means the inputs do not fit the strategy, e.g. a
	// settlement with more than one debtor or an unknown strategy.
	ErrBadShape = errors.New("split inputs do not match strategy")

	// ErrNonPositiveAmount means the total (or a settlement amount) is
	// zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

var oneHundred = decimal.NewFromInt(100)

// PairwiseInput carries caller-supplied share inputs for a two-party entry.
// Only the fields matching the strategy are read.
type PairwiseInput struct {
	Strategy models.SplitStrategy
	Total    money.Cents

	// UNEQUAL: raw shares; PayerShare + DebtorShare must equal Total.
	PayerShare  money.Cents
	DebtorShare money.Cents

	// PERCENTAGE: shares must sum to exactly 100.
	PayerPercent  decimal.Decimal
	DebtorPercent decimal.Decimal
}

// DebtorAmount computes the portion the debtor owes from one two-party
// entry.
//
// EQUAL splits assign floor(total/2) to the debtor; the payer absorbs the
// odd cent. SETTLEMENT entries transfer the full amount.
func DebtorAmount(in PairwiseInput) (money.Cents, error) {
	if in.Total <= 0 {
		return 0, ErrNonPositiveAmount
	}

	switch in.Strategy {
	case models.SplitEqual:
		return in.Total / 2, nil

	case models.SplitUnequal:
		if in.PayerShare < 0 || in.DebtorShare < 0 {
			return 0, fmt.Errorf("%w: negative share", ErrBadShape)
		}
		if in.PayerShare+in.DebtorShare != in.Total {
			return 0, fmt.Errorf("%w: shares %s + %s != total %s",
				ErrMismatch, in.PayerShare, in.DebtorShare, in.Total)
		}
		return in.DebtorShare, nil

	case models.SplitPercentage:
		if in.PayerPercent.IsNegative() || in.DebtorPercent.IsNegative() {
			return 0, fmt.Errorf("%w: negative percentage", ErrBadShape)
		}
		if !in.PayerPercent.Add(in.DebtorPercent).Equal(oneHundred) {
			return 0, fmt.Errorf("%w: percentages %s + %s != 100",
				ErrMismatch, in.PayerPercent, in.DebtorPercent)
		}
		return money.Percent(in.Total, in.DebtorPercent), nil

	case models.SplitSettlement:
		return in.Total, nil
	}

	return 0, fmt.Errorf("%w: unknown strategy %q", ErrBadShape, in.Strategy)
}

// DebtorInput is one debtor's caller-supplied share of a group entry.
type DebtorInput struct {
	MemberID string

	// Share is the raw amount for UNEQUAL.
	Share money.Cents

	// Percent is the percentage share for PERCENTAGE.
	Percent decimal.Decimal
}

// GroupInput carries the inputs for one group expense.
type GroupInput struct {
	Strategy models.SplitStrategy
	Total    money.Cents
	PayerID  string

	// PayerShare / PayerPercent are the payer's own portion, needed so
	// UNEQUAL and PERCENTAGE reconcile against the full total.
	PayerShare   money.Cents
	PayerPercent decimal.Decimal

	Debtors []DebtorInput
}

// GroupDebtorAmounts computes the per-debtor amounts for a group expense.
//
// Validation mirrors the two-party case: the payer must not appear among
// the debtors, debtors must be distinct, and shares must reconcile exactly
// against the total (UNEQUAL) or 100 (PERCENTAGE). SETTLEMENT is not a
// valid group expense strategy; settlements are their own operation.
func GroupDebtorAmounts(in GroupInput) ([]models.GroupEntryDebtor, error) {
	if in.Total <= 0 {
		return nil, ErrNonPositiveAmount
	}
	if len(in.Debtors) == 0 {
		return nil, fmt.Errorf("%w: no debtors", ErrBadShape)
	}

	seen := make(map[string]bool, len(in.Debtors))
	for _, d := range in.Debtors {
		if d.MemberID == in.PayerID {
			return nil, ErrSelfTransaction
		}
		if seen[d.MemberID] {
			return nil, fmt.Errorf("%w: duplicate debtor %s", ErrBadShape, d.MemberID)
		}
		seen[d.MemberID] = true
	}

	out := make([]models.GroupEntryDebtor, len(in.Debtors))

	switch in.Strategy {
	case models.SplitEqual:
		// n participants = payer + debtors; debtors owe the floor share,
		// the payer's own share absorbs the remainder.
		base := in.Total / money.Cents(len(in.Debtors)+1)
		for i, d := range in.Debtors {
			out[i] = models.GroupEntryDebtor{MemberID: d.MemberID, Amount: base}
		}

	case models.SplitUnequal:
		sum := in.PayerShare
		if in.PayerShare < 0 {
			return nil, fmt.Errorf("%w: negative share", ErrBadShape)
		}
		for i, d := range in.Debtors {
			if d.Share < 0 {
				return nil, fmt.Errorf("%w: negative share for %s", ErrBadShape, d.MemberID)
			}
			sum += d.Share
			out[i] = models.GroupEntryDebtor{MemberID: d.MemberID, Amount: d.Share}
		}
		if sum != in.Total {
			return nil, fmt.Errorf("%w: shares sum %s != total %s", ErrMismatch, sum, in.Total)
		}

	case models.SplitPercentage:
		sum := in.PayerPercent
		if in.PayerPercent.IsNegative() {
			return nil, fmt.Errorf("%w: negative percentage", ErrBadShape)
		}
		for i, d := range in.Debtors {
			if d.Percent.IsNegative() {
				return nil, fmt.Errorf("%w: negative percentage for %s", ErrBadShape, d.MemberID)
			}
			sum = sum.Add(d.Percent)
			out[i] = models.GroupEntryDebtor{
				MemberID: d.MemberID,
				Amount:   money.Percent(in.Total, d.Percent),
			}
		}
		if !sum.Equal(oneHundred) {
			return nil, fmt.Errorf("%w: percentages sum %s != 100", ErrMismatch, sum)
		}

	default:
		return nil, fmt.Errorf("%w: strategy %q not valid for group expenses", ErrBadShape, in.Strategy)
	}

	return out, nil
}
